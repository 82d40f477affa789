package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemarket-backend/internal/http/response"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
	"github.com/yungbote/coursemarket-backend/internal/services"
)

// InstructorHandler serves course authoring. Ownership is enforced by the catalog
// service; a non-owner gets 403 not_owner.
type InstructorHandler struct {
	log     *logger.Logger
	catalog services.CatalogService
}

func NewInstructorHandler(log *logger.Logger, catalog services.CatalogService) *InstructorHandler {
	return &InstructorHandler{log: log.With("handler", "InstructorHandler"), catalog: catalog}
}

type uploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

type keyRequest struct {
	Key string `json:"key"`
}

// GET /instructor/courses
func (h *InstructorHandler) ListCourses(c *gin.Context) {
	courses, err := h.catalog.ListMyCourses(c.Request.Context())
	if err != nil {
		fail(c, h.log, "ListCourses", err, nil)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

// POST /instructor/courses
func (h *InstructorHandler) CreateCourse(c *gin.Context) {
	var req services.CreateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.catalog.CreateCourse(c.Request.Context(), req)
	if err != nil {
		fail(c, h.log, "CreateCourse", err, nil)
		return
	}
	response.RespondCreated(c, gin.H{"course": course})
}

// GET /instructor/courses/:id
func (h *InstructorHandler) GetCourse(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	detail, err := h.catalog.GetMyCourse(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, "GetCourse", err, courseNotFound)
		return
	}
	response.RespondOK(c, gin.H{"course": detail})
}

// PATCH /instructor/courses/:id
func (h *InstructorHandler) UpdateCourse(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.catalog.UpdateCourse(c.Request.Context(), id, req)
	if err != nil {
		fail(c, h.log, "UpdateCourse", err, courseNotFound)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// DELETE /instructor/courses/:id
func (h *InstructorHandler) DeleteCourse(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCourse(c.Request.Context(), id); err != nil {
		fail(c, h.log, "DeleteCourse", err, courseNotFound)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// PUT /instructor/courses/:id/publish
// body: { "published": true|false }
func (h *InstructorHandler) SetPublished(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Published *bool `json:"published"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.Published == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errMissing("published"))
		return
	}
	course, err := h.catalog.SetPublished(c.Request.Context(), id, *req.Published)
	if err != nil {
		fail(c, h.log, "SetPublished", err, courseNotFound)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// POST /instructor/courses/:id/thumbnail/upload-url
func (h *InstructorHandler) ThumbnailUploadURL(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req uploadRequest
	if !bindJSON(c, &req) {
		return
	}
	target, err := h.catalog.RequestThumbnailUpload(c.Request.Context(), id, req.FileName, req.ContentType)
	if err != nil {
		fail(c, h.log, "ThumbnailUploadURL", err, courseNotFound)
		return
	}
	response.RespondOK(c, target)
}

// PUT /instructor/courses/:id/thumbnail
func (h *InstructorHandler) ConfirmThumbnail(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req keyRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.catalog.ConfirmThumbnail(c.Request.Context(), id, req.Key)
	if err != nil {
		fail(c, h.log, "ConfirmThumbnail", err, courseNotFound)
		return
	}
	response.RespondOK(c, gin.H{"course": view})
}

// POST /instructor/courses/:id/sections
func (h *InstructorHandler) CreateSection(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req services.SectionRequest
	if !bindJSON(c, &req) {
		return
	}
	section, err := h.catalog.CreateSection(c.Request.Context(), id, req)
	if err != nil {
		fail(c, h.log, "CreateSection", err, courseNotFound)
		return
	}
	response.RespondCreated(c, gin.H{"section": section})
}

// PATCH /instructor/sections/:id
func (h *InstructorHandler) UpdateSection(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req services.SectionPatch
	if !bindJSON(c, &req) {
		return
	}
	section, err := h.catalog.UpdateSection(c.Request.Context(), id, req)
	if err != nil {
		fail(c, h.log, "UpdateSection", err, nil)
		return
	}
	response.RespondOK(c, gin.H{"section": section})
}

// DELETE /instructor/sections/:id
func (h *InstructorHandler) DeleteSection(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteSection(c.Request.Context(), id); err != nil {
		fail(c, h.log, "DeleteSection", err, nil)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /instructor/sections/:id/lessons/upload-url
func (h *InstructorHandler) LessonUploadURL(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req services.LessonUploadRequest
	if !bindJSON(c, &req) {
		return
	}
	targets, err := h.catalog.RequestLessonUpload(c.Request.Context(), id, req)
	if err != nil {
		fail(c, h.log, "LessonUploadURL", err, nil)
		return
	}
	response.RespondOK(c, targets)
}

// POST /instructor/sections/:id/lessons
func (h *InstructorHandler) CreateLesson(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req services.CreateLessonRequest
	if !bindJSON(c, &req) {
		return
	}
	lesson, err := h.catalog.CreateLesson(c.Request.Context(), id, req)
	if err != nil {
		fail(c, h.log, "CreateLesson", err, nil)
		return
	}
	response.RespondCreated(c, gin.H{"lesson": lesson})
}

// PATCH /instructor/lessons/:id
func (h *InstructorHandler) UpdateLesson(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req services.LessonPatch
	if !bindJSON(c, &req) {
		return
	}
	lesson, err := h.catalog.UpdateLesson(c.Request.Context(), id, req)
	if err != nil {
		fail(c, h.log, "UpdateLesson", err, nil)
		return
	}
	response.RespondOK(c, gin.H{"lesson": lesson})
}

// DELETE /instructor/lessons/:id
func (h *InstructorHandler) DeleteLesson(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteLesson(c.Request.Context(), id); err != nil {
		fail(c, h.log, "DeleteLesson", err, nil)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /instructor/lessons/:id/video/upload-url
func (h *InstructorHandler) VideoUploadURL(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req uploadRequest
	if !bindJSON(c, &req) {
		return
	}
	target, err := h.catalog.RequestVideoUpload(c.Request.Context(), id, req.FileName, req.ContentType)
	if err != nil {
		fail(c, h.log, "VideoUploadURL", err, nil)
		return
	}
	response.RespondOK(c, target)
}

// PUT /instructor/lessons/:id/video
func (h *InstructorHandler) ReplaceVideo(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req keyRequest
	if !bindJSON(c, &req) {
		return
	}
	lesson, err := h.catalog.ReplaceLessonVideo(c.Request.Context(), id, req.Key)
	if err != nil {
		fail(c, h.log, "ReplaceVideo", err, nil)
		return
	}
	response.RespondOK(c, gin.H{"lesson": lesson})
}
