package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default_agent.json
var defaultAgentJSON []byte

// Model settings used when the agent file leaves them out.
const (
	DefaultTemperature  = 0.7
	DefaultModelTimeout = 600
	DefaultThinking     = "disabled"
)

// Agent config sources reported by LoadAgentConfig.
const (
	AgentSourceFile     = "file"
	AgentSourceEmbedded = "embedded"
)

// ModelSettings holds the sampling parameters of the chat model.
type ModelSettings struct {
	Model               string  `json:"model" yaml:"model"`
	Temperature         float64 `json:"temperature" yaml:"temperature"`
	TopP                float64 `json:"top_p" yaml:"top_p"`
	MaxCompletionTokens int     `json:"max_completion_tokens" yaml:"max_completion_tokens"`
	Timeout             int     `json:"timeout" yaml:"timeout"`
	Thinking            string  `json:"thinking" yaml:"thinking"`
}

// TimeoutDuration is Timeout in seconds as a duration; zero means no limit.
func (m ModelSettings) TimeoutDuration() time.Duration {
	if m.Timeout <= 0 {
		return 0
	}
	return time.Duration(m.Timeout) * time.Second
}

// AgentConfig is the agent definition file: model settings, system prompt and
// optional tool allow list. An empty Tools list enables every registered tool.
type AgentConfig struct {
	Model        ModelSettings `json:"config" yaml:"config"`
	SystemPrompt string        `json:"sp" yaml:"sp"`
	Tools        []string      `json:"tools" yaml:"tools"`
}

// DefaultAgentConfig returns the embedded agent definition.
func DefaultAgentConfig() AgentConfig {
	cfg, err := decodeAgentConfig(defaultAgentJSON, ".json")
	if err != nil {
		panic(fmt.Sprintf("embedded agent config is invalid: %v", err))
	}
	return cfg
}

// LoadAgentConfig reads the agent definition at path. A missing, unreadable or
// malformed file falls back to the embedded default; the second return value
// reports which source was used.
func LoadAgentConfig(path string, log *slog.Logger) (AgentConfig, string) {
	if log == nil {
		log = slog.Default()
	}
	cfg, err := readAgentConfig(path)
	if err != nil {
		log.Warn("agent config unavailable, using embedded default",
			slog.String("path", path),
			slog.Any("error", err),
		)
		return DefaultAgentConfig(), AgentSourceEmbedded
	}
	log.Info("agent config loaded", slog.String("path", path), slog.String("model", cfg.Model.Model))
	return cfg, AgentSourceFile
}

func readAgentConfig(path string) (AgentConfig, error) {
	if strings.TrimSpace(path) == "" {
		return AgentConfig{}, errors.New("agent config path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return AgentConfig{}, err
	}
	return decodeAgentConfig(data, strings.ToLower(filepath.Ext(path)))
}

func decodeAgentConfig(data []byte, ext string) (AgentConfig, error) {
	cfg := AgentConfig{Model: ModelSettings{
		Temperature: DefaultTemperature,
		Timeout:     DefaultModelTimeout,
		Thinking:    DefaultThinking,
	}}
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return AgentConfig{}, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return AgentConfig{}, fmt.Errorf("decode json: %w", err)
		}
	}
	if strings.TrimSpace(cfg.Model.Model) == "" {
		return AgentConfig{}, errors.New("config.model is required")
	}
	return cfg, nil
}
