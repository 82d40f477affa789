package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context carries the request context together with an optional open transaction.
// Repos use Tx when set and fall back to their own handle otherwise.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func (c Context) Context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// DB resolves the handle a repo should issue queries on.
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	if c.Tx != nil {
		return c.Tx.WithContext(c.Context())
	}
	if fallback == nil {
		return nil
	}
	return fallback.WithContext(c.Context())
}
