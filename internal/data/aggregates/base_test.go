package aggregates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/planadapt-backend/internal/domain/adjustment"
	domainagg "github.com/yungbote/planadapt-backend/internal/domain/aggregates"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
)

func TestWriterObservesSuccessStatus(t *testing.T) {
	hooks := &spyHooks{}
	w := newWriter(spyTxRunner{}, hooks)

	if err := w.Write(context.Background(), "override.create", func(_ dbctx.Context) error { return nil }); err != nil {
		t.Fatalf("write success: %v", err)
	}
	if len(hooks.Operations) != 1 {
		t.Fatalf("operations count: want=1 got=%d", len(hooks.Operations))
	}
	if hooks.Operations[0].Status != "success" || hooks.Operations[0].Name != "override.create" {
		t.Fatalf("operation: got=%+v", hooks.Operations[0])
	}
}

func TestWriterMapsDomainSentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		code     domainagg.ErrorCode
		conflict bool
	}{
		{"duplicate override", adjustment.ErrDuplicateOverride, domainagg.CodeConflict, true},
		{"invalid transition", adjustment.ErrInvalidStateTransition, domainagg.CodePreconditionFailed, false},
		{"validation", ValidationError("weekly sets must be positive"), domainagg.CodeValidation, false},
		{"deadline", context.DeadlineExceeded, domainagg.CodeRetryable, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hooks := &spyHooks{}
			w := newWriter(spyTxRunner{}, hooks)
			err := w.Write(context.Background(), "op", func(_ dbctx.Context) error { return tc.err })
			if !domainagg.IsCode(err, tc.code) {
				t.Fatalf("code: want=%s got=%v", tc.code, err)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("cause lost: %v", err)
			}
			if got := hooks.Operations[0].Status; got != string(tc.code) {
				t.Fatalf("status: want=%s got=%s", tc.code, got)
			}
			if (len(hooks.Conflicts) == 1) != tc.conflict {
				t.Fatalf("conflict hooks: %+v", hooks.Conflicts)
			}
		})
	}
}

func TestWriterDefaultsOpName(t *testing.T) {
	hooks := &spyHooks{}
	w := newWriter(spyTxRunner{}, hooks)
	_ = w.Write(context.Background(), "  ", func(_ dbctx.Context) error { return nil })
	if hooks.Operations[0].Name != "aggregate.write" {
		t.Fatalf("op name: got=%s", hooks.Operations[0].Name)
	}
}

func TestWriterNilHooks(t *testing.T) {
	w := newWriter(spyTxRunner{}, nil)
	if err := w.Write(context.Background(), "op", func(_ dbctx.Context) error { return nil }); err != nil {
		t.Fatalf("write: %v", err)
	}
}

type spyTxRunner struct{}

func (spyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return fn(dbctx.Context{Ctx: ctx})
}

type spyHooks struct {
	Operations []spyOperation
	Conflicts  []string
}

type spyOperation struct {
	Name   string
	Status string
}

func (h *spyHooks) ObserveOperation(name, status string, _ time.Duration) {
	h.Operations = append(h.Operations, spyOperation{Name: name, Status: status})
}

func (h *spyHooks) IncConflict(name string) {
	h.Conflicts = append(h.Conflicts, name)
}
