package boot

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/memohai/supportdesk/internal/config"
	"github.com/memohai/supportdesk/internal/httpkit"
	"github.com/memohai/supportdesk/internal/media"
	"github.com/memohai/supportdesk/internal/storage/providers/localfs"
	"github.com/memohai/supportdesk/internal/storage/providers/s3"
)

// NewStorage builds the upload service for cfg.Storage. A provider that
// cannot be built disables uploads instead of failing startup.
func NewStorage(cfg config.Config, log *slog.Logger) *media.Service {
	if log == nil {
		log = slog.Default()
	}
	maxBytes := media.BytesFromMB(cfg.Storage.MaxUploadMB)
	provider, err := newStorageProvider(cfg, log)
	if err != nil {
		log.Warn("upload storage disabled", slog.Any("error", err))
		return media.NewService(log, nil, maxBytes)
	}
	if provider == nil {
		log.Info("upload storage disabled by configuration")
		return media.NewService(log, nil, maxBytes)
	}
	return media.NewService(log, provider, maxBytes)
}

func newStorageProvider(cfg config.Config, log *slog.Logger) (media.StorageProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Provider)) {
	case "none":
		return nil, nil
	case "", "local":
		root := cfg.WorkspacePath(cfg.Storage.LocalRoot)
		p, err := localfs.New(root, cfg.Server.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		log.Info("upload storage on local disk", slog.String("root", p.Root()))
		return p, nil
	case "s3":
		transport := httpkit.Chain(httpkit.NewTransport(), httpkit.Logging(log, "s3"))
		p, err := s3.New(cfg.Storage, transport)
		if err != nil {
			return nil, err
		}
		log.Info("upload storage on s3",
			slog.String("endpoint", cfg.Storage.Endpoint),
			slog.String("bucket", cfg.Storage.Bucket),
		)
		return p, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}
