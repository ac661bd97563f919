package jnt

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks transport failures, timeouts and non-200 responses.
var ErrUnavailable = errors.New("jnt: courier unavailable")

// RejectedError is returned when the courier answers with a code other than "1".
type RejectedError struct {
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("jnt: request rejected (code %s)", e.Code)
	}
	return fmt.Sprintf("jnt: request rejected (code %s): %s", e.Code, e.Message)
}

// IsRejected reports whether err carries a courier rejection.
func IsRejected(err error) (*RejectedError, bool) {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected, true
	}
	return nil, false
}
