package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultConfigPath       = "config.toml"
	DefaultHTTPAddr         = ":5000"
	DefaultWorkspacePath    = "/workspace/projects"
	DefaultAgentConfigFile  = "config/agent_llm_config.json"
	DefaultLocationFile     = "assets/feishu_config.json"
	DefaultFeishuBaseURL    = "https://open.larkoffice.com"
	DefaultMaxMessages      = 40
	DefaultMaxToolRounds    = 5
	DefaultMaxUploadMB      = 20
	DefaultStorageRoot      = "data/uploads"
	DefaultSQLitePath       = "data/checkpoints.db"
	DefaultProbeSchedule    = "@every 5m"
	DefaultPresignTTL       = "24h"
	DefaultFeishuTimeoutSec = 30
)

// Environment variables understood by ApplyEnv.
const (
	EnvWorkspacePath    = "COZE_WORKSPACE_PATH"
	EnvModelAPIKey      = "COZE_WORKLOAD_IDENTITY_API_KEY"
	EnvModelBaseURL     = "COZE_INTEGRATION_MODEL_BASE_URL"
	EnvPort             = "PORT"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFormat        = "LOG_FORMAT"
	EnvFeishuAppToken   = "FEISHU_APP_TOKEN"
	EnvFeishuTableID    = "FEISHU_TABLE_ID"
	EnvFeishuToken      = "FEISHU_ACCESS_TOKEN"
	EnvFeishuAppID      = "FEISHU_APP_ID"
	EnvFeishuAppSecret  = "FEISHU_APP_SECRET"
	EnvStorageEndpoint  = "STORAGE_ENDPOINT"
	EnvStorageBucket    = "STORAGE_BUCKET"
	EnvStorageAccessKey = "STORAGE_ACCESS_KEY"
	EnvStorageSecretKey = "STORAGE_SECRET_KEY"
	EnvCheckpointDSN    = "CHECKPOINT_POSTGRES_DSN"
)

type Config struct {
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
	Workspace  WorkspaceConfig  `toml:"workspace"`
	Model      ModelConfig      `toml:"model"`
	Agent      AgentRunConfig   `toml:"agent"`
	Company    CompanyConfig    `toml:"company"`
	Feishu     FeishuConfig     `toml:"feishu"`
	Storage    StorageConfig    `toml:"storage"`
	Checkpoint CheckpointConfig `toml:"checkpoint"`
	Health     HealthConfig     `toml:"health"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr          string   `toml:"addr"`
	CORSOrigins   []string `toml:"cors_origins"`
	PublicBaseURL string   `toml:"public_base_url"`
}

type WorkspaceConfig struct {
	Path string `toml:"path"`
}

type ModelConfig struct {
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	ConfigFile string `toml:"config_file"`
}

// AgentRunConfig tunes the runtime, not the model.
type AgentRunConfig struct {
	EagerInit     bool `toml:"eager_init"`
	MaxMessages   int  `toml:"max_messages"`
	MaxToolRounds int  `toml:"max_tool_rounds"`
}

// CompanyConfig is the public contact block served by /api/config.
type CompanyConfig struct {
	Website  string `toml:"website"`
	WhatsApp string `toml:"whatsapp"`
	Email    string `toml:"email"`
}

// FeishuConfig configures the bitable record sink.
//
// AuthMode selects where the bearer credential comes from:
//   - "static": AccessToken is used verbatim.
//   - "oauth2": a client-credentials token is fetched from TokenURL.
//   - "app": the Lark SDK manages a tenant token from AppID and AppSecret.
//
// TokenType is "tenant" or "user" and only matters for static and oauth2 modes.
type FeishuConfig struct {
	OpenBaseURL    string   `toml:"open_base_url"`
	Region         string   `toml:"region"`
	LocationFile   string   `toml:"location_file"`
	AppToken       string   `toml:"app_token"`
	TableID        string   `toml:"table_id"`
	AuthMode       string   `toml:"auth_mode"`
	TokenType      string   `toml:"token_type"`
	AccessToken    string   `toml:"access_token"`
	AppID          string   `toml:"app_id"`
	AppSecret      string   `toml:"app_secret"`
	TokenURL       string   `toml:"token_url"`
	ClientID       string   `toml:"client_id"`
	ClientSecret   string   `toml:"client_secret"`
	Scopes         []string `toml:"scopes"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

type StorageConfig struct {
	Provider    string `toml:"provider"`
	LocalRoot   string `toml:"local_root"`
	Endpoint    string `toml:"endpoint"`
	Bucket      string `toml:"bucket"`
	AccessKey   string `toml:"access_key"`
	SecretKey   string `toml:"secret_key"`
	UseSSL      bool   `toml:"use_ssl"`
	Region      string `toml:"region"`
	PresignTTL  string `toml:"presign_ttl"`
	MaxUploadMB int    `toml:"max_upload_mb"`
}

type CheckpointConfig struct {
	Driver      string `toml:"driver"`
	SQLitePath  string `toml:"sqlite_path"`
	PostgresDSN string `toml:"postgres_dsn"`
}

type HealthConfig struct {
	ProbeSchedule string `toml:"probe_schedule"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:        DefaultHTTPAddr,
			CORSOrigins: []string{"*"},
		},
		Workspace: WorkspaceConfig{
			Path: DefaultWorkspacePath,
		},
		Model: ModelConfig{
			ConfigFile: DefaultAgentConfigFile,
		},
		Agent: AgentRunConfig{
			MaxMessages:   DefaultMaxMessages,
			MaxToolRounds: DefaultMaxToolRounds,
		},
		Company: CompanyConfig{
			Website:  "www.paperbagglue.com",
			WhatsApp: "+8613323273311",
			Email:    "LarryChen@paperbagglue.com",
		},
		Feishu: FeishuConfig{
			OpenBaseURL:    DefaultFeishuBaseURL,
			LocationFile:   DefaultLocationFile,
			AuthMode:       "static",
			TokenType:      "tenant",
			TimeoutSeconds: DefaultFeishuTimeoutSec,
		},
		Storage: StorageConfig{
			Provider:    "local",
			LocalRoot:   DefaultStorageRoot,
			PresignTTL:  DefaultPresignTTL,
			MaxUploadMB: DefaultMaxUploadMB,
		},
		Checkpoint: CheckpointConfig{
			Driver:     "memory",
			SQLitePath: DefaultSQLitePath,
		},
		Health: HealthConfig{
			ProbeSchedule: DefaultProbeSchedule,
		},
	}
}

// Load reads the TOML file at path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from the given .env files into the process
// environment without overriding variables that are already set.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *Config) {
	setString(&cfg.Workspace.Path, EnvWorkspacePath)
	setString(&cfg.Model.APIKey, EnvModelAPIKey)
	setString(&cfg.Model.BaseURL, EnvModelBaseURL)
	setString(&cfg.Log.Level, EnvLogLevel)
	setString(&cfg.Log.Format, EnvLogFormat)
	setString(&cfg.Feishu.AppToken, EnvFeishuAppToken)
	setString(&cfg.Feishu.TableID, EnvFeishuTableID)
	setString(&cfg.Feishu.AppID, EnvFeishuAppID)
	setString(&cfg.Feishu.AppSecret, EnvFeishuAppSecret)
	if v := strings.TrimSpace(os.Getenv(EnvFeishuToken)); v != "" {
		cfg.Feishu.AccessToken = v
		if strings.TrimSpace(cfg.Feishu.AuthMode) == "" {
			cfg.Feishu.AuthMode = "static"
		}
	}
	setString(&cfg.Storage.Endpoint, EnvStorageEndpoint)
	setString(&cfg.Storage.Bucket, EnvStorageBucket)
	setString(&cfg.Storage.AccessKey, EnvStorageAccessKey)
	setString(&cfg.Storage.SecretKey, EnvStorageSecretKey)
	setString(&cfg.Checkpoint.PostgresDSN, EnvCheckpointDSN)
	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		if _, err := strconv.Atoi(v); err == nil {
			cfg.Server.Addr = ":" + v
		}
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// WorkspacePath resolves rel against the workspace root. Absolute paths are returned as is.
func (c Config) WorkspacePath(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	root := strings.TrimSpace(c.Workspace.Path)
	if root == "" {
		root = DefaultWorkspacePath
	}
	return filepath.Join(root, rel)
}

// AgentConfigPath is the resolved path of the agent model/prompt file.
func (c Config) AgentConfigPath() string {
	return c.WorkspacePath(c.Model.ConfigFile)
}

// LocationPath is the resolved path of the record sink location file.
func (c Config) LocationPath() string {
	return c.WorkspacePath(c.Feishu.LocationFile)
}

// Validate rejects combinations that cannot start.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(strings.TrimSpace(c.Storage.Provider)) {
	case "", "none", "local":
	case "s3":
		if strings.TrimSpace(c.Storage.Endpoint) == "" || strings.TrimSpace(c.Storage.Bucket) == "" {
			errs = append(errs, fmt.Errorf("storage: s3 provider requires endpoint and bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage: unknown provider %q", c.Storage.Provider))
	}
	switch strings.ToLower(strings.TrimSpace(c.Checkpoint.Driver)) {
	case "", "memory", "sqlite":
	case "postgres":
		if strings.TrimSpace(c.Checkpoint.PostgresDSN) == "" {
			errs = append(errs, fmt.Errorf("checkpoint: postgres driver requires postgres_dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("checkpoint: unknown driver %q", c.Checkpoint.Driver))
	}
	switch strings.ToLower(strings.TrimSpace(c.Feishu.AuthMode)) {
	case "", "static", "oauth2", "app":
	default:
		errs = append(errs, fmt.Errorf("feishu: unknown auth_mode %q", c.Feishu.AuthMode))
	}
	return errors.Join(errs...)
}
