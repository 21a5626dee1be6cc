package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// Background is a convenience for callers that have no transaction.
func Background(ctx context.Context) Context {
	return Context{Ctx: ctx}
}
