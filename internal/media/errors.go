package media

import "errors"

var (
	// ErrAssetNotFound is returned when no object exists under a key.
	ErrAssetNotFound = errors.New("upload not found")
	// ErrProviderUnavailable means uploads are disabled or the backend cannot be reached.
	ErrProviderUnavailable = errors.New("upload storage unavailable")
	// ErrAssetTooLarge means the upload exceeded the configured size limit.
	ErrAssetTooLarge = errors.New("upload too large")
	ErrEmptyAsset    = errors.New("upload is empty")
	// ErrPathTraversal is returned for keys that escape the storage root.
	ErrPathTraversal = errors.New("storage key escapes root")
)
