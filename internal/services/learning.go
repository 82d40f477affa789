package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursemarket-backend/internal/data/repos"
	types "github.com/yungbote/coursemarket-backend/internal/domain"
	domainagg "github.com/yungbote/coursemarket-backend/internal/domain/aggregates"
	"github.com/yungbote/coursemarket-backend/internal/domain/learning"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

const (
	defaultReviewPageSize = 20
	maxReviewPageSize     = 100
)

// ProgressView is a learner's progress for one course, always computed against the
// course's current lessons.
type ProgressView struct {
	CourseID     uuid.UUID `json:"courseId"`
	TotalLessons int       `json:"totalLessons"`
	learning.Snapshot
}

type PostReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type ReviewView struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	UserName  string    `json:"userName"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type ReviewPage struct {
	AvgRating    float64       `json:"avgRating"`
	TotalReviews int64         `json:"totalReviews"`
	Reviews      []*ReviewView `json:"reviews"`
}

type LearningService interface {
	Enroll(ctx context.Context, courseID uuid.UUID) (*types.Enrollment, error)
	GetProgress(ctx context.Context, courseID uuid.UUID) (*ProgressView, error)
	ToggleLesson(ctx context.Context, courseID, lessonID uuid.UUID) (learning.Snapshot, error)
	SetLastAccessed(ctx context.Context, courseID, lessonID uuid.UUID) (*ProgressView, error)
	PostReview(ctx context.Context, courseID uuid.UUID, req PostReviewRequest) (*types.Review, error)
	GetReviews(ctx context.Context, courseID uuid.UUID, limit, offset int) (*ReviewPage, error)
}

type LearningServiceDeps struct {
	Log         *logger.Logger
	Users       repos.UserRepo
	Courses     repos.CourseRepo
	Lessons     repos.LessonRepo
	Progress    repos.ProgressRepo
	Reviews     repos.ReviewRepo
	Enrollments domainagg.EnrollmentAggregate
	Toggles     domainagg.ProgressAggregate
	Ratings     domainagg.RatingAggregate
}

type learningService struct {
	deps LearningServiceDeps
	log  *logger.Logger
}

func NewLearningService(deps LearningServiceDeps) LearningService {
	return &learningService{deps: deps, log: deps.Log.With("service", "LearningService")}
}

func (ls *learningService) Enroll(ctx context.Context, courseID uuid.UUID) (*types.Enrollment, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	res, err := ls.deps.Enrollments.Enroll(ctx, domainagg.EnrollInput{UserID: rd.UserID, CourseID: courseID})
	if err != nil {
		return nil, err
	}
	ls.log.Info("Learner enrolled", "user_id", rd.UserID, "course_id", courseID)
	return res.Enrollment, nil
}

func (ls *learningService) GetProgress(ctx context.Context, courseID uuid.UUID) (*ProgressView, error) {
	const op = "Learning.GetProgress"
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := ls.deps.Courses.GetByID(dbc, courseID); err != nil {
		return nil, storeErr(op, err)
	}
	lessonIDs, err := ls.deps.Lessons.ListIDsByCourse(dbc, courseID)
	if err != nil {
		return nil, fmt.Errorf("%s: list lessons: %w", op, err)
	}
	row, err := ls.deps.Progress.GetByUserCourse(dbc, rd.UserID, courseID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: load progress: %w", op, err)
	}
	return progressView(courseID, row, lessonIDs), nil
}

// progressView prunes the stored set to current lessons and recomputes percent. A
// nil row is zero progress.
func progressView(courseID uuid.UUID, row *types.Progress, lessonIDs []uuid.UUID) *ProgressView {
	var (
		completed []uuid.UUID
		bookmark  *uuid.UUID
	)
	if row != nil {
		completed = learning.Prune(row.LessonIDs(), lessonIDs)
		if row.LastAccessedLessonID != nil && containsLesson(lessonIDs, *row.LastAccessedLessonID) {
			bookmark = row.LastAccessedLessonID
		}
	}
	return &ProgressView{
		CourseID:     courseID,
		TotalLessons: len(lessonIDs),
		Snapshot:     learning.NewSnapshot(completed, len(lessonIDs), bookmark),
	}
}

func containsLesson(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func (ls *learningService) ToggleLesson(ctx context.Context, courseID, lessonID uuid.UUID) (learning.Snapshot, error) {
	rd, err := caller(ctx)
	if err != nil {
		return learning.Snapshot{}, err
	}
	res, err := ls.deps.Toggles.ToggleLesson(ctx, domainagg.ToggleLessonInput{
		UserID:   rd.UserID,
		CourseID: courseID,
		LessonID: lessonID,
	})
	if err != nil {
		return learning.Snapshot{}, err
	}
	if res.Attempts > 1 {
		ls.log.Debug("Toggle needed retries", "course_id", courseID, "attempts", res.Attempts)
	}
	return res.Snapshot, nil
}

func (ls *learningService) SetLastAccessed(ctx context.Context, courseID, lessonID uuid.UUID) (*ProgressView, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := ls.deps.Toggles.SetLastAccessed(ctx, domainagg.SetLastAccessedInput{
		UserID:   rd.UserID,
		CourseID: courseID,
		LessonID: lessonID,
	})
	if err != nil {
		return nil, err
	}
	total, err := ls.deps.Lessons.CountByCourse(dbctx.Context{Ctx: ctx}, courseID)
	if err != nil {
		return nil, fmt.Errorf("count lessons: %w", err)
	}
	return &ProgressView{CourseID: courseID, TotalLessons: int(total), Snapshot: snap}, nil
}

func (ls *learningService) PostReview(ctx context.Context, courseID uuid.UUID, req PostReviewRequest) (*types.Review, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	res, err := ls.deps.Ratings.PostReview(ctx, domainagg.PostReviewInput{
		UserID:   rd.UserID,
		CourseID: courseID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		return nil, err
	}
	ls.log.Info("Review posted",
		"course_id", courseID,
		"rating", req.Rating,
		"total_reviews", res.TotalReviews,
		"average_rating", res.AverageRating,
	)
	return res.Review, nil
}

// GetReviews reads the aggregate from the course counters and the page of rows
// separately; the counters are authoritative.
func (ls *learningService) GetReviews(ctx context.Context, courseID uuid.UUID, limit, offset int) (*ReviewPage, error) {
	const op = "Learning.GetReviews"
	dbc := dbctx.Context{Ctx: ctx}
	course, err := ls.deps.Courses.GetByID(dbc, courseID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if limit <= 0 {
		limit = defaultReviewPageSize
	}
	if limit > maxReviewPageSize {
		limit = maxReviewPageSize
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := ls.deps.Reviews.ListByCourse(dbc, courseID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: list reviews: %w", op, err)
	}
	names, err := ls.displayNames(dbc, rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := &ReviewPage{
		AvgRating:    course.AverageRating,
		TotalReviews: course.TotalReviews,
		Reviews:      make([]*ReviewView, 0, len(rows)),
	}
	for _, r := range rows {
		out.Reviews = append(out.Reviews, &ReviewView{
			ID:        r.ID,
			UserID:    r.UserID,
			UserName:  names[r.UserID],
			Rating:    r.Rating,
			Comment:   r.Comment,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

func (ls *learningService) displayNames(dbc dbctx.Context, rows []*types.Review) (map[uuid.UUID]string, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	return userNames(dbc, ls.deps.Users, ids)
}

// userNames resolves display names; users that no longer exist are simply absent.
func userNames(dbc dbctx.Context, users repos.UserRepo, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	found, err := users.GetByIDs(dbc, dedupeIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, u := range found {
		if u != nil {
			out[u.ID] = u.DisplayName()
		}
	}
	return out, nil
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
