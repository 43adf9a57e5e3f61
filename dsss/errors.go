package dsss

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned by any suspending operation (Modulate,
// Demodulate) when its cancellation handle fires. Never recovered
// locally — it always propagates to the caller.
var ErrCancelled = errors.New("dsss: operation cancelled")

// ErrPayloadTooLarge is returned by Framer.Build when the payload exceeds
// the selected LDPC variant's message capacity.
type ErrPayloadTooLarge struct {
	Got, Max int
}

func (e *ErrPayloadTooLarge) Error() string {
	return fmt.Sprintf("dsss: payload of %d bytes exceeds %d-byte capacity for the selected variant", e.Got, e.Max)
}

// ErrConfiguration wraps an invalid configuration parameter. Returned
// synchronously from Configure; the demodulator retains its prior
// configuration on this error.
type ErrConfiguration struct {
	Field  string
	Reason string
}

func (e *ErrConfiguration) Error() string {
	return fmt.Sprintf("dsss: invalid configuration field %q: %s", e.Field, e.Reason)
}
