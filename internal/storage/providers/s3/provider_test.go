package s3

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/supportdesk/internal/config"
)

func TestParseEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		useSSL  bool
		host    string
		secure  bool
		wantErr bool
	}{
		{raw: "minio:9000", host: "minio:9000"},
		{raw: "s3.example.com/", useSSL: true, host: "s3.example.com", secure: true},
		{raw: "https://tos.example.com", host: "tos.example.com", secure: true},
		{raw: "http://127.0.0.1:9000", useSSL: true, host: "127.0.0.1:9000"},
		{raw: "", wantErr: true},
		{raw: "ftp://x", wantErr: true},
	}
	for _, tt := range tests {
		host, secure, err := ParseEndpoint(tt.raw, tt.useSSL)
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.host, host, tt.raw)
		assert.Equal(t, tt.secure, secure, tt.raw)
	}
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(config.StorageConfig{Endpoint: "minio:9000"}, nil)
	assert.Error(t, err)

	_, err = New(config.StorageConfig{Endpoint: "minio:9000", Bucket: "b", PresignTTL: "soon"}, nil)
	assert.Error(t, err)
}

func TestPresignedURL(t *testing.T) {
	t.Parallel()

	p, err := New(config.StorageConfig{
		Endpoint:   "https://s3.example.com",
		Bucket:     "chat-uploads",
		AccessKey:  "AKIAEXAMPLE",
		SecretKey:  "secret",
		Region:     "us-east-1",
		PresignTTL: "1h",
	}, nil)
	require.NoError(t, err)

	raw, err := p.URL(context.Background(), "uploads/s1/f.png")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "s3.example.com", u.Host)
	assert.True(t, strings.HasSuffix(u.Path, "/chat-uploads/uploads/s1/f.png") || strings.HasSuffix(u.Path, "/uploads/s1/f.png"))
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
}
