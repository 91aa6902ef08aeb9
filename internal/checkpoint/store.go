// Package checkpoint persists the per-session message window between turns.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/memohai/supportdesk/internal/config"
	"github.com/memohai/supportdesk/internal/conversation"
)

// ErrEmptySession is returned when a session ID is blank.
var ErrEmptySession = errors.New("session id is required")

// Store loads and saves session transcripts. Load of an unknown session
// returns an empty window and no error.
type Store interface {
	Load(ctx context.Context, sessionID string) ([]conversation.Message, error)
	Save(ctx context.Context, sessionID string, messages []conversation.Message) error
	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.CheckpointConfig, log *slog.Logger) (Store, error) {
	if log == nil {
		log = slog.Default()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	log = log.With(slog.String("service", "checkpoint"), slog.String("driver", driver))
	switch driver {
	case "", "memory":
		log.Info("using in-memory checkpoints")
		return NewMemoryStore(), nil
	case "sqlite":
		store, err := NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("using sqlite checkpoints", slog.String("path", cfg.SQLitePath))
		return store, nil
	case "postgres":
		store, err := NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		log.Info("using postgres checkpoints")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown checkpoint driver %q", cfg.Driver)
	}
}

func checkSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrEmptySession
	}
	return nil
}
