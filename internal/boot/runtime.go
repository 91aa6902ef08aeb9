// Package boot holds the process-wide application context: configuration,
// the lazily built agent, the record sink and upload storage.
package boot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/memohai/supportdesk/internal/agent"
	"github.com/memohai/supportdesk/internal/checkpoint"
	"github.com/memohai/supportdesk/internal/config"
	"github.com/memohai/supportdesk/internal/media"
	"github.com/memohai/supportdesk/internal/records"
	"github.com/memohai/supportdesk/internal/tools"
)

// State is the lifecycle of the agent.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateInitFailed    State = "init_failed"
)

// ErrAgentInit wraps every agent construction failure.
var ErrAgentInit = errors.New("agent initialization failed")

// Assistant is the turn surface handlers use.
type Assistant interface {
	Invoke(ctx context.Context, sessionID, text string) (string, error)
	Stream(ctx context.Context, sessionID, text string) (<-chan string, <-chan error)
}

// Built is the outcome of an AgentFactory.
type Built struct {
	Assistant Assistant
	Config    config.AgentConfig
	Source    string
	Closer    func() error
}

// AgentFactory constructs the assistant.
type AgentFactory func(ctx context.Context, rt *Runtime) (Built, error)

// SinkFactory constructs the record sink.
type SinkFactory func(ctx context.Context, cfg config.Config, log *slog.Logger) (*records.Sink, error)

// Options configures New.
type Options struct {
	Config       config.Config
	Logger       *slog.Logger
	Storage      *media.Service
	AgentFactory AgentFactory
	SinkFactory  SinkFactory
}

// Runtime is constructed once at startup and shared by all handlers.
type Runtime struct {
	cfg     config.Config
	logger  *slog.Logger
	storage *media.Service

	buildAgent AgentFactory
	buildSink  SinkFactory
	group      singleflight.Group

	mu      sync.RWMutex
	state   State
	built   Built
	lastErr error
	sink    *records.Sink
}

var _ records.RecorderSource = (*Runtime)(nil)

func New(opts Options) *Runtime {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	rt := &Runtime{
		cfg:        opts.Config,
		logger:     log.With(slog.String("service", "runtime")),
		storage:    opts.Storage,
		buildAgent: opts.AgentFactory,
		buildSink:  opts.SinkFactory,
		state:      StateUninitialized,
	}
	if rt.buildAgent == nil {
		rt.buildAgent = DefaultAgentFactory
	}
	if rt.buildSink == nil {
		rt.buildSink = DefaultSinkFactory
	}
	return rt
}

// Config returns the application configuration.
func (r *Runtime) Config() config.Config { return r.cfg }

// Logger returns the root logger.
func (r *Runtime) Logger() *slog.Logger { return r.logger }

// Storage returns the upload service; it is nil or disabled when storage is off.
func (r *Runtime) Storage() *media.Service { return r.storage }

// State returns the agent lifecycle state.
func (r *Runtime) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// AgentLoaded reports whether the agent is ready.
func (r *Runtime) AgentLoaded() bool { return r.State() == StateReady }

// LastError is the most recent initialization error, if any.
func (r *Runtime) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// AgentConfig returns the loaded agent configuration once ready.
func (r *Runtime) AgentConfig() (config.AgentConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state != StateReady {
		return config.AgentConfig{}, false
	}
	return r.built.Config, true
}

// EnsureAgent returns the ready assistant, building it on first use.
// Concurrent callers share one build. A failed build leaves the runtime in
// init_failed and the next call tries again.
func (r *Runtime) EnsureAgent(ctx context.Context) (Assistant, error) {
	r.mu.RLock()
	if r.state == StateReady {
		a := r.built.Assistant
		r.mu.RUnlock()
		return a, nil
	}
	r.mu.RUnlock()

	v, err, _ := r.group.Do("agent", func() (any, error) {
		r.mu.Lock()
		if r.state == StateReady {
			a := r.built.Assistant
			r.mu.Unlock()
			return a, nil
		}
		r.state = StateInitializing
		r.mu.Unlock()

		start := time.Now()
		built, err := r.buildAgent(context.WithoutCancel(ctx), r)
		if err == nil && built.Assistant == nil {
			err = errors.New("factory returned no assistant")
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			r.state = StateInitFailed
			r.lastErr = err
			r.logger.Error("agent initialization failed", slog.Any("error", err))
			return nil, fmt.Errorf("%w: %w", ErrAgentInit, err)
		}
		r.state = StateReady
		r.built = built
		r.lastErr = nil
		r.logger.Info("agent ready",
			slog.String("model", built.Config.Model.Model),
			slog.String("config_source", built.Source),
			slog.Duration("took", time.Since(start)),
		)
		return built.Assistant, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Assistant), nil
}

// RecordSink returns the record sink, building it on first use. Failures are
// not cached.
func (r *Runtime) RecordSink(ctx context.Context) (*records.Sink, error) {
	r.mu.RLock()
	if r.sink != nil {
		s := r.sink
		r.mu.RUnlock()
		return s, nil
	}
	r.mu.RUnlock()

	v, err, _ := r.group.Do("sink", func() (any, error) {
		sink, err := r.buildSink(context.WithoutCancel(ctx), r.cfg, r.logger)
		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			r.logger.Warn("record sink unavailable", slog.Any("error", err))
			return nil, err
		}
		r.sink = sink
		return sink, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*records.Sink), nil
}

// Recorder implements records.RecorderSource.
func (r *Runtime) Recorder(ctx context.Context) (records.Recorder, error) {
	sink, err := r.RecordSink(ctx)
	if err != nil {
		return nil, err
	}
	return sink, nil
}

// Close releases resources held by the agent.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built.Closer != nil {
		err := r.built.Closer()
		r.built.Closer = nil
		return err
	}
	return nil
}

// DefaultSinkFactory builds a sink from the location file and config.
func DefaultSinkFactory(ctx context.Context, cfg config.Config, log *slog.Logger) (*records.Sink, error) {
	loc, err := config.ResolveFeishuLocation(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", records.ErrNotConfigured, err)
	}
	client, err := records.NewClient(ctx, records.Options{
		Feishu:  cfg.Feishu,
		BaseURL: loc.BaseURL,
		Logger:  log,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", records.ErrNotConfigured, err)
	}
	return records.NewSink(client, loc, log), nil
}

// DefaultAgentFactory loads the agent config, opens the checkpoint store and
// wires the record tools.
func DefaultAgentFactory(ctx context.Context, rt *Runtime) (Built, error) {
	cfg := rt.cfg
	agentCfg, source := config.LoadAgentConfig(cfg.AgentConfigPath(), rt.logger)

	model, err := agent.NewModel(agentCfg.Model, cfg.Model.APIKey, cfg.Model.BaseURL, rt.logger)
	if err != nil {
		return Built{}, fmt.Errorf("build model: %w", err)
	}

	registry := tools.NewRegistry()
	if err := records.RegisterTools(registry, rt); err != nil {
		return Built{}, err
	}
	registry, err = registry.Restrict(knownTools(registry, agentCfg.Tools, rt.logger))
	if err != nil {
		return Built{}, err
	}

	store, err := checkpoint.Open(ctx, cfg.Checkpoint, rt.logger)
	if err != nil {
		return Built{}, fmt.Errorf("open checkpoint store: %w", err)
	}

	a, err := agent.New(agent.Options{
		Model:         model,
		Settings:      agentCfg.Model,
		SystemPrompt:  agentCfg.SystemPrompt,
		Tools:         registry,
		Store:         store,
		MaxMessages:   cfg.Agent.MaxMessages,
		MaxToolRounds: cfg.Agent.MaxToolRounds,
		Logger:        rt.logger,
	})
	if err != nil {
		_ = store.Close()
		return Built{}, err
	}
	return Built{Assistant: a, Config: agentCfg, Source: source, Closer: store.Close}, nil
}

// knownTools drops allow-list entries that name no registered tool.
func knownTools(registry *tools.Registry, allow []string, log *slog.Logger) []string {
	if len(allow) == 0 {
		return nil
	}
	out := make([]string, 0, len(allow))
	for _, name := range allow {
		name = strings.TrimSpace(name)
		if _, ok := registry.Lookup(name); ok {
			out = append(out, name)
			continue
		}
		log.Warn("agent config names an unknown tool", slog.String("tool", name))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
