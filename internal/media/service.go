package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// KeyPrefix is the first segment of every upload key.
const KeyPrefix = "uploads"

const anonymousSession = "anonymous"

var unsafeSegment = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Service stores customer uploads through a StorageProvider.
type Service struct {
	provider StorageProvider
	logger   *slog.Logger
	maxBytes int64
	now      func() time.Time
	newID    func() string
}

// NewService creates an upload service. maxBytes <= 0 uses MaxAssetBytes.
func NewService(log *slog.Logger, provider StorageProvider, maxBytes int64) *Service {
	if log == nil {
		log = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = MaxAssetBytes
	}
	return &Service{
		provider: provider,
		logger:   log.With(slog.String("service", "media")),
		maxBytes: maxBytes,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// Enabled reports whether a provider is configured.
func (s *Service) Enabled() bool { return s != nil && s.provider != nil }

// Provider returns the underlying storage provider.
func (s *Service) Provider() StorageProvider {
	if s == nil {
		return nil
	}
	return s.provider
}

// Upload stores the bytes of in under uploads/<session>/<file_id><ext> and
// returns the asset with its public URL.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Asset, error) {
	if !s.Enabled() {
		return Asset{}, ErrProviderUnavailable
	}
	if in.Reader == nil {
		return Asset{}, fmt.Errorf("reader is required")
	}
	maxBytes := in.MaxBytes
	if maxBytes <= 0 {
		maxBytes = s.maxBytes
	}
	data, err := ReadAllWithLimit(in.Reader, maxBytes)
	if err != nil {
		return Asset{}, err
	}
	if len(data) == 0 {
		return Asset{}, ErrEmptyAsset
	}

	mime := resolveMime(in.Mime, data)
	fileID := s.newID()
	key := StorageKey(in.SessionID, fileID, extensionFor(in.OriginalName, mime))

	if err := s.provider.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mime); err != nil {
		return Asset{}, fmt.Errorf("store upload: %w", err)
	}
	url, err := s.provider.URL(ctx, key)
	if err != nil {
		return Asset{}, fmt.Errorf("resolve upload url: %w", err)
	}
	asset := Asset{
		ID:           fileID,
		SessionID:    in.SessionID,
		OriginalName: in.OriginalName,
		Mime:         mime,
		SizeBytes:    int64(len(data)),
		StorageKey:   key,
		URL:          url,
		CreatedAt:    s.now(),
	}
	s.logger.Info("upload stored",
		slog.String("session_id", in.SessionID),
		slog.String("key", key),
		slog.String("mime", mime),
		slog.Int64("size", asset.SizeBytes),
	)
	return asset, nil
}

// Open returns a reader for the object at key.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if !s.Enabled() {
		return nil, ErrProviderUnavailable
	}
	return s.provider.Open(ctx, key)
}

// Delete removes the object at key.
func (s *Service) Delete(ctx context.Context, key string) error {
	if !s.Enabled() {
		return ErrProviderUnavailable
	}
	return s.provider.Delete(ctx, key)
}

// StorageKey builds the object key for an upload.
func StorageKey(sessionID, fileID, ext string) string {
	return path.Join(KeyPrefix, safeSegment(sessionID, anonymousSession), safeSegment(fileID, "file")+ext)
}

func safeSegment(v, fallback string) string {
	v = strings.Trim(unsafeSegment.ReplaceAllString(strings.TrimSpace(v), "_"), "._")
	if v == "" {
		return fallback
	}
	return v
}

func resolveMime(declared string, data []byte) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	detected := mimetype.Detect(data).String()
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}
	return detected
}

func extensionFor(name, mime string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	if ext != "" && len(ext) <= 10 && !unsafeSegment.MatchString(ext[1:]) {
		return ext
	}
	if m := mimetype.Lookup(mime); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".bin"
}
