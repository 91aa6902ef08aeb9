package media

import (
	"context"
	"io"
	"time"
)

// Asset is a stored upload.
type Asset struct {
	ID           string    `json:"file_id"`
	SessionID    string    `json:"session_id"`
	OriginalName string    `json:"file_name"`
	Mime         string    `json:"mime"`
	SizeBytes    int64     `json:"size_bytes"`
	StorageKey   string    `json:"storage_key"`
	URL          string    `json:"file_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// UploadInput carries one uploaded file.
type UploadInput struct {
	SessionID    string
	OriginalName string
	// Mime is the type declared by the client; it is replaced by the sniffed
	// type when empty or generic.
	Mime string
	// Reader provides the raw bytes; caller is responsible for closing.
	Reader io.Reader
	// MaxBytes optionally overrides the service limit.
	MaxBytes int64
}

// StorageProvider abstracts object storage operations.
type StorageProvider interface {
	// Put writes data to storage under the given key.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Open returns a reader for the given storage key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
	// URL returns an address the customer's browser can fetch the object from.
	URL(ctx context.Context, key string) (string, error)
}

// Pinger is implemented by providers that can check their backend.
type Pinger interface {
	Ping(ctx context.Context) error
}
