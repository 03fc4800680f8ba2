package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a call exceeds its deadline.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrOutsideRoot is returned when a script touches a path outside its root.
	ErrOutsideRoot = errors.New("path is outside the plugin root")
)
