package aggregates

import (
	"context"
	"testing"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/coursemarket-backend/internal/domain/aggregates"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
)

func TestRequireOwner(t *testing.T) {
	owner := uuid.New()
	if err := RequireOwner(owner, owner); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	err := RequireOwner(owner, uuid.New())
	if err == nil {
		t.Fatalf("expected forbidden error")
	}
	if !domainagg.IsCode(MapError("op", err), domainagg.CodeForbidden) {
		t.Fatalf("expected forbidden code, got %v", err)
	}
	if err := RequireOwner(owner, uuid.Nil); !domainagg.IsCode(MapError("op", err), domainagg.CodeValidation) {
		t.Fatalf("expected validation code for nil actor, got %v", err)
	}
}

func TestRequireCASSuccess(t *testing.T) {
	if err := RequireCASSuccess(true, "ok"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := RequireCASSuccess(false, "stale"); err == nil {
		t.Fatalf("expected conflict error")
	}
}

func TestCASGuardRequiresTableAndID(t *testing.T) {
	g := NewCASGuard(nil)
	if _, err := g.UpdateByVersion(dbcNoDB(), "progress", uuid.Nil, 0, map[string]any{"percent": 1}); err == nil {
		t.Fatalf("expected error without db")
	}
	if _, err := g.UpdateByVersion(dbcNoDB(), "progress", uuid.New(), -1, nil); err == nil {
		t.Fatalf("expected error for negative version")
	}
}

func dbcNoDB() dbctx.Context { return dbctx.Context{Ctx: context.Background()} }
