package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/planadapt-backend/internal/domain/aggregates"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
)

// TxRunner is the transaction boundary for multi-row writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

// NewGormTxRunner opens one gorm transaction per InTx call. The callback sees
// the transaction through dbc.Tx.
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return gormTxRunner{db: db}
}

func (r gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "no database handle", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

// Writer runs a named write in one transaction, maps its error and reports the
// outcome to Hooks.
type Writer struct {
	runner TxRunner
	hooks  Hooks
}

func NewWriter(db *gorm.DB, hooks Hooks) *Writer {
	return newWriter(NewGormTxRunner(db), hooks)
}

func newWriter(runner TxRunner, hooks Hooks) *Writer {
	if hooks == nil {
		hooks = noopHooks{}
	}
	return &Writer{runner: runner, hooks: hooks}
}

func (w *Writer) Write(ctx context.Context, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	mapped := MapError(op, w.runner.InTx(ctx, fn))

	status := "success"
	if mapped != nil {
		status = string(domainagg.CodeOf(mapped))
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			w.hooks.IncConflict(op)
		}
	}
	w.hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}
