package gateway

import (
	"errors"
	"fmt"
)

// RejectionError means the remote refused a submitted spec outright.
// Terminal for the node; the detail surfaces to the user unchanged.
type RejectionError struct {
	Detail string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("submission rejected: %s", e.Detail)
}

// Reject builds a RejectionError with the given detail.
func Reject(format string, args ...any) error {
	return &RejectionError{Detail: fmt.Sprintf(format, args...)}
}

// IsRejection reports whether err is a gateway rejection.
func IsRejection(err error) bool {
	var r *RejectionError
	return errors.As(err, &r)
}

// TransientError wraps a prober failure that carries no verdict about the
// resource. The poller retries these per policy instead of failing the node.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient probe error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a transient probe error.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is a transient probe error.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
