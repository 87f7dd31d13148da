package render

import "fmt"

// State is the render session lifecycle state.
type State string

const (
	StateIdle         State = "idle"
	StateHashing      State = "hashing"
	StateSubstituting State = "substituting"
	StateCompiling    State = "compiling"
	StateReady        State = "ready"
	StateFailed       State = "failed"
)

// isAllowedTransition encodes the session lifecycle. Ready and Failed are
// resting states: a new render (or a retry) re-enters Hashing from either.
func isAllowedTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateHashing
	case StateHashing:
		// Ready on a cache hit, Substituting on a miss.
		return to == StateReady || to == StateSubstituting
	case StateSubstituting:
		return to == StateCompiling || to == StateFailed
	case StateCompiling:
		return to == StateReady || to == StateFailed
	case StateReady, StateFailed:
		return to == StateHashing
	default:
		return false
	}
}

// transition performs a validated state change on a session. The caller must
// hold the session lock. An invalid transition is a programming error and is
// reported rather than silently applied.
func (s *session) transition(to State) error {
	if !isAllowedTransition(s.state, to) {
		return fmt.Errorf("disallowed transition: %s -> %s", s.state, to)
	}
	s.state = to
	return nil
}
