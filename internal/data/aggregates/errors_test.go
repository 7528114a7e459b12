package aggregates

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	domainagg "github.com/yungbote/tripseal-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

func TestMapError_Validation(t *testing.T) {
	err := MapError("op", ValidationError("bad input"))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_Conflict(t *testing.T) {
	err := MapError("op", ConflictError("stale"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_NotFound(t *testing.T) {
	for _, in := range []error{gorm.ErrRecordNotFound, NotFoundError("session missing")} {
		err := MapError("op", in)
		if !domainagg.IsCode(err, domainagg.CodeNotFound) {
			t.Fatalf("expected not_found code, got %q (%v)", domainagg.CodeOf(err), err)
		}
	}
}

func TestMapError_Precondition(t *testing.T) {
	err := MapError("op", PreconditionError("insufficient coins"))
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("expected precondition code, got %q (%v)", domainagg.CodeOf(err), err)
	}
	err = MapError("op", &pgconn.PgError{Code: "23514"})
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("check violation: expected precondition code, got %q", domainagg.CodeOf(err))
	}
}

func TestMapError_UniqueViolations(t *testing.T) {
	cases := []error{
		&pgconn.PgError{Code: "23505"},
		errors.New("UNIQUE constraint failed: seal_tag.session_id, seal_tag.barcode_key"),
		fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey),
	}
	for _, in := range cases {
		if !isUniqueViolation(in) {
			t.Fatalf("isUniqueViolation(%v): want=true", in)
		}
		if err := MapError("op", in); !domainagg.IsCode(err, domainagg.CodeConflict) {
			t.Fatalf("MapError(%v): want conflict got %q", in, domainagg.CodeOf(err))
		}
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Fatalf("plain error must not be a unique violation")
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
	wrapped := fmt.Errorf("outer: %w", in)
	if got := MapError("other", wrapped); !domainagg.IsCode(got, domainagg.CodeRetryable) {
		t.Fatalf("wrapped aggregate error: want retryable got %q", domainagg.CodeOf(got))
	}
}
