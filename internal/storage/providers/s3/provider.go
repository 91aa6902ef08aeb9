// Package s3 implements media.StorageProvider on an S3-compatible bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/memohai/supportdesk/internal/config"
	"github.com/memohai/supportdesk/internal/media"
)

const defaultPresignTTL = 24 * time.Hour

// Provider stores uploads as bucket objects and hands out presigned GET URLs.
type Provider struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

// New builds a provider from the storage config. Endpoint may carry an
// http:// or https:// scheme, which overrides UseSSL.
func New(cfg config.StorageConfig, transport http.RoundTripper) (*Provider, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}
	host, secure, err := ParseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	ttl := defaultPresignTTL
	if strings.TrimSpace(cfg.PresignTTL) != "" {
		ttl, err = time.ParseDuration(cfg.PresignTTL)
		if err != nil {
			return nil, fmt.Errorf("parse presign_ttl: %w", err)
		}
	}
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	}
	if transport != nil {
		opts.Transport = transport
	}
	client, err := minio.New(host, opts)
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &Provider{client: client, bucket: cfg.Bucket, ttl: ttl}, nil
}

// ParseEndpoint splits an endpoint into the host form minio expects and
// whether TLS is used.
func ParseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, errors.New("s3 endpoint is required")
	}
	if !strings.Contains(raw, "://") {
		return strings.TrimRight(raw, "/"), useSSL, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse s3 endpoint: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("s3 endpoint %q has no host", raw)
	}
	switch u.Scheme {
	case "https":
		return u.Host, true, nil
	case "http":
		return u.Host, false, nil
	default:
		return "", false, fmt.Errorf("unsupported s3 endpoint scheme %q", u.Scheme)
	}
}

func (p *Provider) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if size <= 0 {
		size = -1
	}
	_, err := p.client.PutObject(ctx, p.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (p *Provider) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := p.client.GetObject(ctx, p.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, media.ErrAssetNotFound
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}
	return obj, nil
}

func (p *Provider) Delete(ctx context.Context, key string) error {
	if err := p.client.RemoveObject(ctx, p.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// URL returns a presigned GET URL valid for the configured TTL.
func (p *Provider) URL(ctx context.Context, key string) (string, error) {
	u, err := p.client.PresignedGetObject(ctx, p.bucket, key, p.ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}

// Ping verifies the bucket exists.
func (p *Provider) Ping(ctx context.Context) error {
	ok, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", p.bucket)
	}
	return nil
}

var _ media.StorageProvider = (*Provider)(nil)
var _ media.Pinger = (*Provider)(nil)
