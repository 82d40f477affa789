package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/coursemarket-backend/internal/domain"
	domainagg "github.com/yungbote/coursemarket-backend/internal/domain/aggregates"
	"github.com/yungbote/coursemarket-backend/internal/domain/learning"
	"github.com/yungbote/coursemarket-backend/internal/http/response"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
	"github.com/yungbote/coursemarket-backend/internal/services"
)

// Embedding the interface lets each fake implement only what a test exercises;
// anything else panics on the nil embedded value.
type fakeLearning struct {
	services.LearningService
	enrollErr error
	reviewErr error
	lastSet   uuid.UUID
}

func (f *fakeLearning) Enroll(_ context.Context, courseID uuid.UUID) (*types.Enrollment, error) {
	if f.enrollErr != nil {
		return nil, f.enrollErr
	}
	return &types.Enrollment{ID: uuid.New(), CourseID: courseID}, nil
}

func (f *fakeLearning) PostReview(_ context.Context, courseID uuid.UUID, req services.PostReviewRequest) (*types.Review, error) {
	if f.reviewErr != nil {
		return nil, f.reviewErr
	}
	return &types.Review{ID: uuid.New(), CourseID: courseID, Rating: req.Rating}, nil
}

func (f *fakeLearning) SetLastAccessed(_ context.Context, courseID, lessonID uuid.UUID) (*services.ProgressView, error) {
	f.lastSet = lessonID
	return &services.ProgressView{CourseID: courseID, Snapshot: learning.Snapshot{LastAccessedLessonID: &lessonID}}, nil
}

type fakeCatalog struct {
	services.CatalogService
	lastQuery services.CourseListQuery
	published *bool
	err       error
}

func (f *fakeCatalog) ListPublished(_ context.Context, q services.CourseListQuery) (*services.CoursePage, error) {
	f.lastQuery = q
	return &services.CoursePage{Courses: []*services.CourseView{}, Limit: q.Limit, Offset: q.Offset}, nil
}

func (f *fakeCatalog) GetPublishedCourse(context.Context, uuid.UUID) (*services.CourseDetail, error) {
	return nil, f.err
}

func (f *fakeCatalog) SetPublished(_ context.Context, id uuid.UUID, published bool) (*types.Course, error) {
	f.published = &published
	return &types.Course{ID: id, IsPublished: published}, nil
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env response.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error.Code
}

func learningRouter(l *fakeLearning) *gin.Engine {
	h := NewLearningHandler(logger.NewNop(), l, &fakeCatalog{})
	r := newTestEngine()
	r.POST("/courses/:id/enroll", h.Enroll)
	r.POST("/courses/:id/reviews", h.PostReview)
	r.PUT("/courses/:id/progress/last-accessed", h.SetLastAccessed)
	return r
}

func TestEnrollStatusMapping(t *testing.T) {
	courseID := uuid.New()
	path := "/courses/" + courseID.String() + "/enroll"
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"created", nil, http.StatusCreated, ""},
		{"already enrolled", domainagg.NewError(domainagg.CodeConflict, "Enroll", "already enrolled", nil), http.StatusBadRequest, "already_enrolled"},
		{"missing course", domainagg.NewError(domainagg.CodeNotFound, "Enroll", "course not found", nil), http.StatusNotFound, "course_not_found"},
		{"store failure", errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(learningRouter(&fakeLearning{enrollErr: tc.err}), http.MethodPost, path, nil)
			require.Equal(t, tc.status, w.Code, w.Body.String())
			if tc.code != "" {
				assert.Equal(t, tc.code, errorCode(t, w))
			} else {
				var body types.Enrollment
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, courseID, body.CourseID)
				assert.NotEqual(t, uuid.Nil, body.ID)
			}
			assert.NotContains(t, w.Body.String(), "connection reset")
		})
	}
}

func TestPostReviewDuplicateIsConflict(t *testing.T) {
	l := &fakeLearning{reviewErr: domainagg.NewError(domainagg.CodeConflict, "PostReview", "already reviewed", nil)}
	path := "/courses/" + uuid.NewString() + "/reviews"

	w := doJSON(learningRouter(l), http.MethodPost, path, map[string]any{"rating": 4})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate_review", errorCode(t, w))

	l.reviewErr = domainagg.NewError(domainagg.CodeValidation, "PostReview", "rating must be between 1 and 5", nil)
	w = doJSON(learningRouter(l), http.MethodPost, path, map[string]any{"rating": 9})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", errorCode(t, w))

	l.reviewErr = nil
	w = doJSON(learningRouter(l), http.MethodPost, path, map[string]any{"rating": 5})
	require.Equal(t, http.StatusOK, w.Code)
	var review types.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &review))
	assert.Equal(t, 5, review.Rating)
}

func TestPathAndBodyValidation(t *testing.T) {
	l := &fakeLearning{}
	r := learningRouter(l)

	w := doJSON(r, http.MethodPost, "/courses/not-a-uuid/enroll", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_id", errorCode(t, w))

	path := "/courses/" + uuid.NewString() + "/progress/last-accessed"
	w = doJSON(r, http.MethodPut, path, map[string]any{"lessonId": "nope"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, uuid.Nil, l.lastSet)

	lessonID := uuid.New()
	w = doJSON(r, http.MethodPut, path, map[string]any{"lessonId": lessonID.String()})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, lessonID, l.lastSet)
}

func TestListPublishedPaging(t *testing.T) {
	cat := &fakeCatalog{}
	h := NewCourseHandler(logger.NewNop(), cat)
	r := newTestEngine()
	r.GET("/courses", h.ListPublished)
	r.GET("/courses/:id", h.GetCourse)

	require.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/courses", nil).Code)
	assert.Equal(t, defaultPageSize, cat.lastQuery.Limit)

	doJSON(r, http.MethodGet, "/courses?limit=500&offset=40&category=%20dev%20", nil)
	assert.Equal(t, services.CourseListQuery{Category: "dev", Limit: maxPageSize, Offset: 40}, cat.lastQuery)

	cat.err = domainagg.NewError(domainagg.CodeNotFound, "Catalog.GetPublishedCourse", "course not found", nil)
	w := doJSON(r, http.MethodGet, "/courses/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "course_not_found", errorCode(t, w))
}

func TestSetPublishedRequiresFlag(t *testing.T) {
	cat := &fakeCatalog{}
	h := NewInstructorHandler(logger.NewNop(), cat)
	r := newTestEngine()
	r.PUT("/instructor/courses/:id/publish", h.SetPublished)
	path := "/instructor/courses/" + uuid.NewString() + "/publish"

	w := doJSON(r, http.MethodPut, path, map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, cat.published)

	w = doJSON(r, http.MethodPut, path, map[string]any{"published": false})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, cat.published)
	assert.False(t, *cat.published)
}
