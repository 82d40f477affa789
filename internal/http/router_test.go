package http

import (
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	types "github.com/yungbote/coursemarket-backend/internal/domain"
	httpH "github.com/yungbote/coursemarket-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursemarket-backend/internal/http/middleware"
	"github.com/yungbote/coursemarket-backend/internal/platform/apierr"
	"github.com/yungbote/coursemarket-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
	"github.com/yungbote/coursemarket-backend/internal/services"
)

type tokenAuth struct {
	services.AuthService
	tokens map[string]*ctxutil.RequestData
}

func (a *tokenAuth) Verify(_ context.Context, token string) (*ctxutil.RequestData, error) {
	if rd, ok := a.tokens[token]; ok {
		return rd, nil
	}
	return nil, apierr.Unauthorized("invalid_token", "unknown token")
}

func (a *tokenAuth) AccessTTL() time.Duration { return time.Hour }

type stubDashboards struct{}

func (stubDashboards) Instructor(context.Context) (*services.InstructorDashboard, error) {
	return &services.InstructorDashboard{}, nil
}

func (stubDashboards) Learner(context.Context) (*services.LearnerDashboard, error) {
	return &services.LearnerDashboard{}, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	auth := &tokenAuth{tokens: map[string]*ctxutil.RequestData{
		"learner":    {UserID: uuid.New(), Role: types.RoleLearner},
		"instructor": {UserID: uuid.New(), Role: types.RoleInstructor},
	}}
	return NewRouter(RouterConfig{
		Log:              log,
		AuthMiddleware:   httpMW.NewAuthMiddleware(log, auth),
		DashboardHandler: httpH.NewDashboardHandler(log, stubDashboards{}),
	})
}

func get(r stdhttp.Handler, path, token string) int {
	req := httptest.NewRequest(stdhttp.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRouterRoleGating(t *testing.T) {
	r := newTestRouter()

	assert.Equal(t, stdhttp.StatusUnauthorized, get(r, "/api/dashboard/learner", ""))
	assert.Equal(t, stdhttp.StatusUnauthorized, get(r, "/api/dashboard/learner", "forged"))

	assert.Equal(t, stdhttp.StatusOK, get(r, "/api/dashboard/learner", "learner"))
	assert.Equal(t, stdhttp.StatusForbidden, get(r, "/api/dashboard/instructor", "learner"))

	assert.Equal(t, stdhttp.StatusOK, get(r, "/api/dashboard/instructor", "instructor"))
	assert.Equal(t, stdhttp.StatusForbidden, get(r, "/api/dashboard/learner", "instructor"))
}
