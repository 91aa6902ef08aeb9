package records

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured indicates the sink has no table location or credential.
	ErrNotConfigured = errors.New("record sink is not configured")
	// ErrAPI is matched by every *APIError.
	ErrAPI = errors.New("bitable api error")
)

// APIError is a non-zero code returned by the bitable API.
type APIError struct {
	Op   string
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("feishu %s failed: %s (code: %d)", e.Op, e.Msg, e.Code)
}

func (e *APIError) Is(target error) bool { return target == ErrAPI }
