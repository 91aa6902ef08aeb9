package media

import (
	"errors"
	"fmt"
	"io"
)

// MaxAssetBytes caps an upload when no limit is configured.
const MaxAssetBytes int64 = 20 << 20

// BytesFromMB converts a configured megabyte limit. Non-positive values
// select MaxAssetBytes.
func BytesFromMB(mb int) int64 {
	if mb <= 0 {
		return MaxAssetBytes
	}
	return int64(mb) << 20
}

// ReadAllWithLimit buffers reader, failing with ErrAssetTooLarge as soon as
// more than maxBytes have been read.
func ReadAllWithLimit(reader io.Reader, maxBytes int64) ([]byte, error) {
	switch {
	case reader == nil:
		return nil, errors.New("reader is required")
	case maxBytes <= 0:
		return nil, errors.New("max bytes must be positive")
	}
	data, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrAssetTooLarge, maxBytes)
	}
	return data, nil
}
