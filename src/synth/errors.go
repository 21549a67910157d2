package synth

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by calls made before Initialize or after Dispose.
	ErrNotInitialized = errors.New("synth: engine is not initialized")
	// ErrPitchOutOfRange is returned by Trigger for pitches outside 0-127.
	ErrPitchOutOfRange = errors.New("synth: pitch out of range")
)

// InitializationError means the audio graph could not be created.
// The engine stays uninitialized; call Initialize again to retry.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("synth: initialization failed: %v", e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// TransientNodeError is a failed stop or disconnect on a node that is
// already torn down. It is only ever logged.
type TransientNodeError struct {
	Op  string
	Err error
}

func (e *TransientNodeError) Error() string {
	return fmt.Sprintf("synth: %s: %v", e.Op, e.Err)
}

func (e *TransientNodeError) Unwrap() error {
	return e.Err
}
