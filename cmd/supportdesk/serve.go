package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/memohai/supportdesk/internal/boot"
	"github.com/memohai/supportdesk/internal/config"
	"github.com/memohai/supportdesk/internal/handlers"
	"github.com/memohai/supportdesk/internal/healthcheck"
	agentchecker "github.com/memohai/supportdesk/internal/healthcheck/checkers/agent"
	recordchecker "github.com/memohai/supportdesk/internal/healthcheck/checkers/records"
	storagechecker "github.com/memohai/supportdesk/internal/healthcheck/checkers/storage"
	"github.com/memohai/supportdesk/internal/logger"
	"github.com/memohai/supportdesk/internal/media"
	"github.com/memohai/supportdesk/internal/server"
)

func runServe() error {
	app := fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			boot.NewStorage,
			provideRuntime,
			provideProber,
			provideServerHandler(provideHealthHandler),
			provideServerHandler(provideChatHandler),
			provideServerHandler(provideConfigHandler),
			provideServerHandler(provideUploadHandler),
			provideServerHandler(handlers.NewWebHandler),
			provideServer,
		),
		fx.Invoke(
			startProber,
			startAgentWarmup,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	return loadConfig()
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideRuntime(lc fx.Lifecycle, cfg config.Config, log *slog.Logger, storage *media.Service) *boot.Runtime {
	rt := boot.New(boot.Options{
		Config:  cfg,
		Logger:  log,
		Storage: storage,
	})
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return rt.Close() }})
	return rt
}

func provideProber(log *slog.Logger, cfg config.Config, rt *boot.Runtime) *healthcheck.Prober {
	return healthcheck.NewProber(log, cfg.Health.ProbeSchedule,
		agentchecker.NewChecker(rt),
		recordchecker.NewChecker(log, rt),
		storagechecker.NewChecker(rt.Storage()),
	)
}

func provideHealthHandler(log *slog.Logger, rt *boot.Runtime, prober *healthcheck.Prober) *handlers.HealthHandler {
	return handlers.NewHealthHandler(log, rt, prober)
}

func provideChatHandler(log *slog.Logger, rt *boot.Runtime) *handlers.ChatHandler {
	return handlers.NewChatHandler(log, rt)
}

func provideConfigHandler(log *slog.Logger, rt *boot.Runtime, cfg config.Config) *handlers.ConfigHandler {
	return handlers.NewConfigHandler(log, rt, cfg)
}

func provideUploadHandler(log *slog.Logger, rt *boot.Runtime) *handlers.UploadHandler {
	return handlers.NewUploadHandler(log, rt.Storage(), rt)
}

type serverParams struct {
	fx.In
	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.New(server.Params{
		Logger:   params.Logger,
		Config:   params.Config,
		Handlers: params.ServerHandlers,
	})
}

func startProber(lc fx.Lifecycle, prober *healthcheck.Prober) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := prober.Start(); err != nil {
				return err
			}
			go prober.Run(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error { return prober.Stop(ctx) },
	})
}

// startAgentWarmup builds the agent in the background when eager init is on.
// Failures are logged by the runtime and the next request retries.
func startAgentWarmup(lc fx.Lifecycle, cfg config.Config, rt *boot.Runtime, logger *slog.Logger) {
	if !cfg.Agent.EagerInit {
		return
	}
	lc.Append(fx.Hook{OnStart: func(ctx context.Context) error {
		go func() {
			if _, err := rt.EnsureAgent(context.Background()); err != nil {
				logger.Warn("agent warmup failed", slog.Any("error", err))
			}
		}()
		return nil
	}})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("http server starting", slog.String("addr", srv.Addr()))
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
