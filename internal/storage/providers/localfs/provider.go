// Package localfs implements media.StorageProvider on a local directory.
// Objects are served back by the HTTP layer under PublicPrefix.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/memohai/supportdesk/internal/media"
)

// Provider stores uploads below root.
type Provider struct {
	root    string
	baseURL string
}

// New creates a directory-backed provider. baseURL is prepended to object
// keys when building public URLs; it may be empty for relative URLs.
func New(root, baseURL string) (*Provider, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Provider{root: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the absolute storage directory.
func (p *Provider) Root() string { return p.root }

func (p *Provider) Put(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	dest, err := p.hostPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, reader); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (p *Provider) Open(_ context.Context, key string) (io.ReadCloser, error) {
	dest, err := p.hostPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(dest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, media.ErrAssetNotFound
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

func (p *Provider) Delete(_ context.Context, key string) error {
	dest, err := p.hostPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// URL returns "<baseURL>/<key>".
func (p *Provider) URL(_ context.Context, key string) (string, error) {
	if _, err := p.hostPath(key); err != nil {
		return "", err
	}
	return p.baseURL + "/" + filepath.ToSlash(filepath.Clean(key)), nil
}

// Ping checks that the root is still a writable directory.
func (p *Provider) Ping(context.Context) error {
	info, err := os.Stat(p.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("storage root %s is not a directory", p.root)
	}
	f, err := os.CreateTemp(p.root, ".ping-*")
	if err != nil {
		return fmt.Errorf("storage root not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// hostPath converts a storage key into a path below root.
func (p *Provider) hostPath(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("invalid storage key: %q", key)
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: absolute key %s", media.ErrPathTraversal, key)
	}
	if strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." || clean == "." {
		return "", fmt.Errorf("%w: %s", media.ErrPathTraversal, key)
	}
	joined := filepath.Join(p.root, clean)
	if !strings.HasPrefix(joined, p.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s escapes root", media.ErrPathTraversal, key)
	}
	return joined, nil
}

var _ media.StorageProvider = (*Provider)(nil)
var _ media.Pinger = (*Provider)(nil)
