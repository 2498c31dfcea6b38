package pairing

import (
	"errors"
	"fmt"
)

// NotFoundError is returned by Approve when the input was well-formed but no
// pending pairing request matches the code. It is deliberately distinct from
// InvalidChannelError: it is only reported after a successful store lookup
// came back empty.
type NotFoundError struct {
	Code string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no pending pairing request found for code: %s", e.Code)
}

// UnavailableError wraps a downstream store failure. The underlying message
// is preserved so adapters can surface it as free text.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string { return e.Err.Error() }
func (e *UnavailableError) Unwrap() error { return e.Err }

// IsInvalidChannel reports whether err is a channel resolution failure.
func IsInvalidChannel(err error) bool {
	var e *InvalidChannelError
	return errors.As(err, &e)
}

// IsNotFound reports whether err means "no matching pending request".
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsUnavailable reports whether err is a downstream store failure.
func IsUnavailable(err error) bool {
	var e *UnavailableError
	return errors.As(err, &e)
}
