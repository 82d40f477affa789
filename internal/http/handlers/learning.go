package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/coursemarket-backend/internal/domain/aggregates"
	"github.com/yungbote/coursemarket-backend/internal/http/response"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
	"github.com/yungbote/coursemarket-backend/internal/services"
)

var (
	enrollOverrides = response.Overrides{
		domainagg.CodeConflict: {Status: http.StatusBadRequest, Code: "already_enrolled"},
		domainagg.CodeNotFound: {Status: http.StatusNotFound, Code: "course_not_found"},
	}
	reviewOverrides = response.Overrides{
		domainagg.CodeConflict: {Status: http.StatusConflict, Code: "duplicate_review"},
		domainagg.CodeNotFound: {Status: http.StatusNotFound, Code: "course_not_found"},
	}
	lessonOverrides = response.Overrides{
		domainagg.CodeNotFound: {Status: http.StatusNotFound, Code: "lesson_not_found"},
	}
)

type LearningHandler struct {
	log      *logger.Logger
	learning services.LearningService
	catalog  services.CatalogService
}

func NewLearningHandler(log *logger.Logger, learning services.LearningService, catalog services.CatalogService) *LearningHandler {
	return &LearningHandler{
		log:      log.With("handler", "LearningHandler"),
		learning: learning,
		catalog:  catalog,
	}
}

// POST /courses/:id/enroll
func (h *LearningHandler) Enroll(c *gin.Context) {
	courseID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	enrollment, err := h.learning.Enroll(c.Request.Context(), courseID)
	if err != nil {
		fail(c, h.log, "Enroll", err, enrollOverrides)
		return
	}
	response.RespondCreated(c, enrollment)
}

// GET /courses/:id/progress
func (h *LearningHandler) GetProgress(c *gin.Context) {
	courseID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	view, err := h.learning.GetProgress(c.Request.Context(), courseID)
	if err != nil {
		fail(c, h.log, "GetProgress", err, courseNotFound)
		return
	}
	response.RespondOK(c, view)
}

// POST /courses/:id/lessons/:lessonId/toggle
func (h *LearningHandler) ToggleLesson(c *gin.Context) {
	courseID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	lessonID, ok := pathUUID(c, "lessonId")
	if !ok {
		return
	}
	snap, err := h.learning.ToggleLesson(c.Request.Context(), courseID, lessonID)
	if err != nil {
		fail(c, h.log, "ToggleLesson", err, lessonOverrides)
		return
	}
	response.RespondOK(c, snap)
}

// PUT /courses/:id/progress/last-accessed
// body: { "lessonId": "<uuid>" }
func (h *LearningHandler) SetLastAccessed(c *gin.Context) {
	courseID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		LessonID string `json:"lessonId"`
	}
	if !bindJSON(c, &req) {
		return
	}
	lessonID, err := uuid.Parse(req.LessonID)
	if err != nil || lessonID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", errMissing("lessonId"))
		return
	}
	view, err := h.learning.SetLastAccessed(c.Request.Context(), courseID, lessonID)
	if err != nil {
		fail(c, h.log, "SetLastAccessed", err, lessonOverrides)
		return
	}
	response.RespondOK(c, view)
}

// POST /courses/:id/reviews
func (h *LearningHandler) PostReview(c *gin.Context) {
	courseID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req services.PostReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	review, err := h.learning.PostReview(c.Request.Context(), courseID, req)
	if err != nil {
		fail(c, h.log, "PostReview", err, reviewOverrides)
		return
	}
	response.RespondOK(c, review)
}

// GET /courses/:id/reviews?limit=&offset=
func (h *LearningHandler) GetReviews(c *gin.Context) {
	courseID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	page, err := h.learning.GetReviews(c.Request.Context(), courseID, queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		fail(c, h.log, "GetReviews", err, courseNotFound)
		return
	}
	response.RespondOK(c, page)
}

// GET /lessons/:id/playback
func (h *LearningHandler) Playback(c *gin.Context) {
	lessonID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	pb, err := h.catalog.GetLessonPlayback(c.Request.Context(), lessonID)
	if err != nil {
		fail(c, h.log, "Playback", err, lessonOverrides)
		return
	}
	response.RespondOK(c, pb)
}
