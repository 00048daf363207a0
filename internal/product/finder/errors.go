package finder

import (
	"errors"
	"fmt"
)

// ErrTransport matches every TransportError via errors.Is.
var ErrTransport = errors.New("product-finder transport failure")

// TransportError reports a failed page request. It aborts the current fetch
// run; records fetched before it remain usable.
type TransportError struct {
	Offset     int
	StatusCode int // zero when no response was received
	Underlying error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("product-finder page at offset %d: http %d", e.Offset, e.StatusCode)
	}
	return fmt.Sprintf("product-finder page at offset %d: %v", e.Offset, e.Underlying)
}

func (e *TransportError) Unwrap() error {
	return e.Underlying
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
