package aggregates

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	domainagg "github.com/yungbote/planadapt-backend/internal/domain/aggregates"
)

func TestMapError_Sentinels(t *testing.T) {
	cases := []struct {
		in   error
		want domainagg.ErrorCode
	}{
		{fmt.Errorf("approve: %w", adjustment.ErrInvalidStateTransition), domainagg.CodePreconditionFailed},
		{adjustment.ErrUndoWindowExpired, domainagg.CodePreconditionFailed},
		{adjustment.ErrDuplicateOverride, domainagg.CodeConflict},
		{gorm.ErrDuplicatedKey, domainagg.CodeConflict},
		{gorm.ErrRecordNotFound, domainagg.CodeNotFound},
		{ValidationError("bad input"), domainagg.CodeValidation},
		{&pgconn.PgError{Code: "40P01"}, domainagg.CodeRetryable},
		{errors.New("boom"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		got := MapError("op", tc.in)
		if !domainagg.IsCode(got, tc.want) {
			t.Fatalf("MapError(%v) = %q, want %q", tc.in, domainagg.CodeOf(got), tc.want)
		}
		if !errors.Is(got, tc.in) {
			t.Fatalf("MapError(%v) lost its cause", tc.in)
		}
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	if out := MapError("other", in); out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
}

func TestIsDuplicate(t *testing.T) {
	if !IsDuplicate(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)) {
		t.Fatalf("expected wrapped ErrDuplicatedKey to be a duplicate")
	}
	if !IsDuplicate(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("expected 23505 to be a duplicate")
	}
	if IsDuplicate(errors.New("boom")) || IsDuplicate(nil) {
		t.Fatalf("unexpected duplicate")
	}
}
