package domain

import "time"

// State is the derived lifecycle state of an engagement.
type State string

const (
	StateUpcoming    State = "UPCOMING"
	StateActive      State = "ACTIVE"
	StateTerminating State = "TERMINATING"
	StatePast        State = "PAST"

	// StateAny is an aggregate marker used only for counting, never stored
	// on an engagement.
	StateAny State = "ANY"
)

// States lists the real (storable) lifecycle states.
func States() []State {
	return []State{StateUpcoming, StateActive, StateTerminating, StatePast}
}

// ParseState maps a string to a State, returning false for unknown input.
func ParseState(s string) (State, bool) {
	switch State(s) {
	case StateUpcoming, StateActive, StateTerminating, StatePast, StateAny:
		return State(s), true
	}
	return "", false
}

// State derives the lifecycle state at the given instant. An un-launched or
// irregularly-dated engagement is always upcoming, regardless of its dates.
func (e *Engagement) State(now time.Time) State {
	if e.Launch == nil || e.StartDate == nil || e.EndDate == nil {
		return StateUpcoming
	}

	if !now.Before(*e.EndDate) {
		if e.ArchiveDate != nil && e.ArchiveDate.After(now) {
			return StateTerminating
		}
		return StatePast
	}

	return StateActive
}

// StateCounts maps lifecycle states to engagement counts. The StateAny key
// holds the total.
type StateCounts map[State]int
