package lifecycle

import (
	"testing"

	"github.com/yungbote/tripseal-backend/internal/domain/aggregates"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
)

func TestCanTransitionForwardOnly(t *testing.T) {
	all := []trip.Status{trip.StatusPending, trip.StatusInProgress, trip.StatusCompleted}
	for _, from := range all {
		for _, to := range all {
			want := to.Rank() > from.Rank()
			if got := CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s,%s): want=%v got=%v", from, to, want, got)
			}
		}
	}
	if CanTransition(trip.Status("LOST"), trip.StatusCompleted) {
		t.Fatalf("unknown status must not transition")
	}
}

func TestTransition(t *testing.T) {
	cases := []struct {
		from  trip.Status
		event Event
		want  trip.Status
		code  aggregates.ErrorCode
	}{
		{trip.StatusPending, EventStart, trip.StatusInProgress, ""},
		{trip.StatusInProgress, EventComplete, trip.StatusCompleted, ""},
		{trip.StatusPending, EventComplete, trip.StatusCompleted, ""},
		{trip.StatusInProgress, EventStart, trip.StatusInProgress, aggregates.CodeConflict},
		{trip.StatusCompleted, EventComplete, trip.StatusCompleted, aggregates.CodeConflict},
		{trip.StatusCompleted, EventStart, trip.StatusCompleted, aggregates.CodeConflict},
		{trip.StatusInProgress, Event("reopen"), trip.StatusInProgress, aggregates.CodeValidation},
	}
	for _, tc := range cases {
		got, err := Transition(tc.from, tc.event)
		if got != tc.want {
			t.Fatalf("Transition(%s,%s): want=%s got=%s", tc.from, tc.event, tc.want, got)
		}
		if tc.code == "" && err != nil {
			t.Fatalf("Transition(%s,%s): unexpected err %v", tc.from, tc.event, err)
		}
		if tc.code != "" && !aggregates.IsCode(err, tc.code) {
			t.Fatalf("Transition(%s,%s): want code=%s got=%v", tc.from, tc.event, tc.code, err)
		}
	}
}

func TestEditable(t *testing.T) {
	if !Editable(InitialStatus()) {
		t.Fatalf("new sessions must be editable")
	}
	if err := RequireEditable(trip.StatusCompleted); !aggregates.IsCode(err, aggregates.CodeConflict) {
		t.Fatalf("completed: want conflict got=%v", err)
	}
	if err := RequireEditable(trip.StatusPending); err != nil {
		t.Fatalf("pending: unexpected err %v", err)
	}
}
