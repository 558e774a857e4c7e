// internal/service/creative/domain/state.go
package domain

import "fmt"

// State is the lifecycle state of an AdRun.
type State string

const (
	StatePending    State = "PENDING"    // run row created, reference image stored
	StateAnalyzing  State = "ANALYZING"  // reference ad analysis in progress
	StateGenerating State = "GENERATING" // hook selection + image generation
	StateReviewing  State = "REVIEWING"  // dual review of generated ads
	StateComplete   State = "COMPLETE"   // terminal success
	StateFailed     State = "FAILED"     // terminal, error_message populated
)

// transitions is the closed transition table. failed is reachable from any
// non-terminal state; everything else moves strictly forward.
var transitions = map[State][]State{
	StatePending:    {StateAnalyzing, StateFailed},
	StateAnalyzing:  {StateGenerating, StateFailed},
	StateGenerating: {StateReviewing, StateFailed},
	StateReviewing:  {StateComplete, StateFailed},
	StateComplete:   {},
	StateFailed:     {},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// CanTransition reports whether the table allows s -> to.
func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition marks a transition the table forbids; hitting it is a
// programming error, never user input.
type ErrInvalidTransition struct {
	From, To State
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid ad run transition %s -> %s", e.From, e.To)
}
