package plugin

// State represents the lifecycle state of a script host.
type State int

// Host states.
const (
	// StateUnloaded - no Lua state exists.
	StateUnloaded State = iota

	// StateLoaded - the script ran and its registrations are live.
	StateLoaded

	// StateError - the script failed to load.
	StateError
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
