package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemarket-backend/internal/http/response"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
	"github.com/yungbote/coursemarket-backend/internal/services"
)

type DashboardHandler struct {
	log        *logger.Logger
	dashboards services.DashboardService
}

func NewDashboardHandler(log *logger.Logger, dashboards services.DashboardService) *DashboardHandler {
	return &DashboardHandler{log: log.With("handler", "DashboardHandler"), dashboards: dashboards}
}

// GET /dashboard/learner
func (h *DashboardHandler) Learner(c *gin.Context) {
	out, err := h.dashboards.Learner(c.Request.Context())
	if err != nil {
		fail(c, h.log, "LearnerDashboard", err, nil)
		return
	}
	response.RespondOK(c, out)
}

// GET /dashboard/instructor
func (h *DashboardHandler) Instructor(c *gin.Context) {
	out, err := h.dashboards.Instructor(c.Request.Context())
	if err != nil {
		fail(c, h.log, "InstructorDashboard", err, nil)
		return
	}
	response.RespondOK(c, out)
}
