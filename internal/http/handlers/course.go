package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/coursemarket-backend/internal/domain/aggregates"
	"github.com/yungbote/coursemarket-backend/internal/http/response"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
	"github.com/yungbote/coursemarket-backend/internal/services"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var courseNotFound = response.Overrides{
	domainagg.CodeNotFound: {Status: http.StatusNotFound, Code: "course_not_found"},
}

// CourseHandler serves the public catalog.
type CourseHandler struct {
	log     *logger.Logger
	catalog services.CatalogService
}

func NewCourseHandler(log *logger.Logger, catalog services.CatalogService) *CourseHandler {
	return &CourseHandler{log: log.With("handler", "CourseHandler"), catalog: catalog}
}

// GET /courses?category=&limit=&offset=
func (h *CourseHandler) ListPublished(c *gin.Context) {
	limit := queryInt(c, "limit", defaultPageSize)
	if limit == 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page, err := h.catalog.ListPublished(c.Request.Context(), services.CourseListQuery{
		Category: strings.TrimSpace(c.Query("category")),
		Limit:    limit,
		Offset:   queryInt(c, "offset", 0),
	})
	if err != nil {
		fail(c, h.log, "ListPublished", err, nil)
		return
	}
	response.RespondOK(c, page)
}

// GET /courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	detail, err := h.catalog.GetPublishedCourse(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, "GetCourse", err, courseNotFound)
		return
	}
	response.RespondOK(c, gin.H{"course": detail})
}
