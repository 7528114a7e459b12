// Package lifecycle holds the forward-only session status machine.
package lifecycle

import (
	"fmt"

	"github.com/yungbote/tripseal-backend/internal/domain/aggregates"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
)

// Event names a lifecycle step.
type Event string

const (
	EventStart    Event = "start"
	EventComplete Event = "complete"
)

var transitions = map[Event]struct{ from, to trip.Status }{
	EventStart:    {from: trip.StatusPending, to: trip.StatusInProgress},
	EventComplete: {from: trip.StatusInProgress, to: trip.StatusCompleted},
}

// InitialStatus is the status a freshly created session is persisted with.
// Creation starts the trip immediately.
func InitialStatus() trip.Status { return trip.StatusInProgress }

// CanTransition reports whether from -> to moves strictly forward between
// known statuses.
func CanTransition(from, to trip.Status) bool {
	if from.Rank() == 0 || to.Rank() == 0 {
		return false
	}
	return to.Rank() > from.Rank()
}

// Transition returns the target of event applied to current, or a conflict
// error when the session is not in the expected state.
func Transition(current trip.Status, event Event) (trip.Status, error) {
	const op = "lifecycle.Transition"
	t, ok := transitions[event]
	if !ok {
		return current, aggregates.NewError(aggregates.CodeValidation, op, fmt.Sprintf("unknown event %q", event), nil)
	}
	if current == trip.StatusCompleted {
		return current, aggregates.NewError(aggregates.CodeConflict, op, "session is already completed", nil)
	}
	// A pending session may be completed directly; it still only moves forward.
	if event == EventComplete && current == trip.StatusPending {
		return t.to, nil
	}
	if current != t.from {
		return current, aggregates.NewError(
			aggregates.CodeConflict, op,
			fmt.Sprintf("cannot %s session in status %s", event, current), nil,
		)
	}
	return t.to, nil
}

// Editable reports whether trip details may still change in status s.
func Editable(s trip.Status) bool {
	return s.Rank() > 0 && s != trip.StatusCompleted
}

// RequireEditable returns a conflict error for sessions that are frozen.
func RequireEditable(s trip.Status) error {
	if Editable(s) {
		return nil
	}
	return aggregates.NewError(
		aggregates.CodeConflict, "lifecycle.RequireEditable",
		fmt.Sprintf("session in status %s cannot be modified", s), nil,
	)
}
