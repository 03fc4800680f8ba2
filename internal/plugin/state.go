package plugin

// State represents the lifecycle state of a plugin.
type State int

// Plugin states.
const (
	// StateDiscovered - Plugin directory found, not started.
	StateDiscovered State = iota

	// StateRuntimeOnly - Plugin has no entry point and only contributes
	// runtime paths.
	StateRuntimeOnly

	// StateRunning - Plugin is connected to the channel.
	StateRunning

	// StateError - Plugin failed to load or start.
	StateError
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateRuntimeOnly:
		return "runtime-only"
	case StateRunning:
		return "running"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
