package scene

import (
	"errors"
	"fmt"
)

// ErrInvalidState is returned by Initialize on a manager that is already
// running or disposed.
var ErrInvalidState = errors.New("scene: invalid state")

// GraphicsInitError reports that the surface could not provide a graphics
// context.
type GraphicsInitError struct {
	Err error
}

func (e *GraphicsInitError) Error() string {
	return fmt.Sprintf("scene: graphics context unavailable: %v", e.Err)
}

func (e *GraphicsInitError) Unwrap() error { return e.Err }

// DisposalError wraps a failure to release one resource during teardown.
type DisposalError struct {
	Resource string
	Err      error
}

func (e *DisposalError) Error() string {
	return fmt.Sprintf("scene: dispose %s: %v", e.Resource, e.Err)
}

func (e *DisposalError) Unwrap() error { return e.Err }
