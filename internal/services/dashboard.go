package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/coursemarket-backend/internal/data/repos"
	types "github.com/yungbote/coursemarket-backend/internal/domain"
	"github.com/yungbote/coursemarket-backend/internal/domain/catalog"
	"github.com/yungbote/coursemarket-backend/internal/observability"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
	"github.com/yungbote/coursemarket-backend/internal/platform/gcp"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

const dashboardRecentLimit = 5

type InstructorDashboard struct {
	TotalCourses      int64               `json:"totalCourses"`
	PublishedCourses  int64               `json:"publishedCourses"`
	DraftCourses      int64               `json:"draftCourses"`
	TotalEnrollments  int64               `json:"totalEnrollments"`
	ActiveLearners    int64               `json:"activeLearners"`
	TotalReviews      int64               `json:"totalReviews"`
	AverageRating     float64             `json:"averageRating"`
	RecentEnrollments []*RecentEnrollment `json:"recentEnrollments"`
	RecentCourses     []*CourseSummary    `json:"recentCourses"`
}

type RecentEnrollment struct {
	LearnerID   uuid.UUID `json:"learnerId"`
	LearnerName string    `json:"learnerName"`
	CourseID    uuid.UUID `json:"courseId"`
	CourseTitle string    `json:"courseTitle"`
	EnrolledAt  time.Time `json:"enrolledAt"`
}

type CourseSummary struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	IsPublished   bool      `json:"isPublished"`
	StudentCount  int64     `json:"studentCount"`
	AverageRating float64   `json:"averageRating"`
	TotalReviews  int64     `json:"totalReviews"`
	CreatedAt     time.Time `json:"createdAt"`
}

type LearnerDashboard struct {
	EnrolledCourses    int                 `json:"enrolledCourses"`
	CompletedCourses   int                 `json:"completedCourses"`
	InProgressCourses  int                 `json:"inProgressCourses"`
	UnavailableCourses int                 `json:"unavailableCourses"`
	ContinueLearning   []*ContinueLearning `json:"continueLearning"`
	RecentEnrollments  []*RecentEnrollment `json:"recentEnrollments"`
}

type ContinueLearning struct {
	CourseID                uuid.UUID  `json:"courseId"`
	CourseTitle             string     `json:"courseTitle"`
	ThumbnailURL            string     `json:"thumbnailUrl,omitempty"`
	Percent                 int        `json:"percent"`
	LastAccessedLessonID    *uuid.UUID `json:"lastAccessedLessonId,omitempty"`
	LastAccessedLessonTitle string     `json:"lastAccessedLessonTitle,omitempty"`
	LastActivityAt          time.Time  `json:"lastActivityAt"`
}

type DashboardService interface {
	Instructor(ctx context.Context) (*InstructorDashboard, error)
	Learner(ctx context.Context) (*LearnerDashboard, error)
}

type DashboardServiceDeps struct {
	Log         *logger.Logger
	Users       repos.UserRepo
	Courses     repos.CourseRepo
	Lessons     repos.LessonRepo
	Enrollments repos.EnrollmentRepo
	Progress    repos.ProgressRepo
	Bucket      gcp.BucketService
	Metrics     *observability.Metrics
	TTLs        URLTTLs
}

type dashboardService struct {
	deps    DashboardServiceDeps
	log     *logger.Logger
	janitor objectJanitor
}

func NewDashboardService(deps DashboardServiceDeps) DashboardService {
	log := deps.Log.With("service", "DashboardService")
	deps.TTLs = deps.TTLs.withDefaults()
	return &dashboardService{
		deps:    deps,
		log:     log,
		janitor: objectJanitor{log: log, bucket: deps.Bucket, metrics: deps.Metrics},
	}
}

func (ds *dashboardService) Instructor(ctx context.Context) (*InstructorDashboard, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "dashboard.instructor", attribute.String("user_id", rd.UserID.String()))
	defer span.End()

	var (
		stats   repos.InstructorStats
		courses []*types.Course
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := ds.deps.Courses.InstructorStats(dbctx.Context{Ctx: gctx}, rd.UserID)
		if err != nil {
			return fmt.Errorf("instructor stats: %w", err)
		}
		stats = s
		return nil
	})
	g.Go(func() error {
		rows, err := ds.deps.Courses.ListByInstructor(dbctx.Context{Ctx: gctx}, rd.UserID, 0)
		if err != nil {
			return fmt.Errorf("list instructor courses: %w", err)
		}
		courses = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	out := &InstructorDashboard{
		TotalCourses:      stats.Total,
		PublishedCourses:  stats.Published,
		DraftCourses:      stats.Total - stats.Published,
		TotalReviews:      stats.TotalReviews,
		AverageRating:     catalog.AverageRating(stats.RatingSum, stats.TotalReviews),
		RecentEnrollments: []*RecentEnrollment{},
		RecentCourses:     make([]*CourseSummary, 0, dashboardRecentLimit),
	}
	courseByID := make(map[uuid.UUID]*types.Course, len(courses))
	courseIDs := make([]uuid.UUID, 0, len(courses))
	for _, c := range courses {
		courseByID[c.ID] = c
		courseIDs = append(courseIDs, c.ID)
		if len(out.RecentCourses) < dashboardRecentLimit {
			out.RecentCourses = append(out.RecentCourses, courseSummary(c))
		}
	}
	if len(courseIDs) == 0 {
		return out, nil
	}

	var recent []*types.Enrollment
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := ds.deps.Enrollments.CountByCourseIDs(dbctx.Context{Ctx: gctx}, courseIDs)
		if err != nil {
			return fmt.Errorf("count enrollments: %w", err)
		}
		out.TotalEnrollments = n
		return nil
	})
	g.Go(func() error {
		n, err := ds.deps.Enrollments.CountDistinctUsersByCourseIDs(dbctx.Context{Ctx: gctx}, courseIDs)
		if err != nil {
			return fmt.Errorf("count learners: %w", err)
		}
		out.ActiveLearners = n
		return nil
	})
	g.Go(func() error {
		rows, err := ds.deps.Enrollments.ListByCourseIDs(dbctx.Context{Ctx: gctx}, courseIDs, dashboardRecentLimit)
		if err != nil {
			return fmt.Errorf("recent enrollments: %w", err)
		}
		recent = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	learnerIDs := make([]uuid.UUID, 0, len(recent))
	for _, e := range recent {
		learnerIDs = append(learnerIDs, e.UserID)
	}
	names, err := userNames(dbctx.Context{Ctx: ctx}, ds.deps.Users, learnerIDs)
	if err != nil {
		return nil, err
	}
	for _, e := range recent {
		title := ""
		if c := courseByID[e.CourseID]; c != nil {
			title = c.Title
		}
		out.RecentEnrollments = append(out.RecentEnrollments, &RecentEnrollment{
			LearnerID:   e.UserID,
			LearnerName: names[e.UserID],
			CourseID:    e.CourseID,
			CourseTitle: title,
			EnrolledAt:  e.CreatedAt,
		})
	}
	return out, nil
}

func courseSummary(c *types.Course) *CourseSummary {
	return &CourseSummary{
		ID:            c.ID,
		Title:         c.Title,
		IsPublished:   c.IsPublished,
		StudentCount:  c.StudentCount,
		AverageRating: c.AverageRating,
		TotalReviews:  c.TotalReviews,
		CreatedAt:     c.CreatedAt,
	}
}

// Learner builds the learner dashboard. Enrollments whose course no longer exists are
// left out of every list and counted in UnavailableCourses.
func (ds *dashboardService) Learner(ctx context.Context) (*LearnerDashboard, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "dashboard.learner", attribute.String("user_id", rd.UserID.String()))
	defer span.End()

	enrollments, err := ds.deps.Enrollments.ListByUser(dbctx.Context{Ctx: ctx}, rd.UserID, 0)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	out := &LearnerDashboard{
		ContinueLearning:  []*ContinueLearning{},
		RecentEnrollments: []*RecentEnrollment{},
	}
	if len(enrollments) == 0 {
		return out, nil
	}
	courseIDs := make([]uuid.UUID, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}

	var (
		courses    []*types.Course
		progress   []*types.Progress
		curriculum map[uuid.UUID][]uuid.UUID
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := ds.deps.Courses.GetByIDs(dbctx.Context{Ctx: gctx}, courseIDs)
		if err != nil {
			return fmt.Errorf("load courses: %w", err)
		}
		courses = rows
		return nil
	})
	g.Go(func() error {
		rows, err := ds.deps.Progress.ListByUserAndCourseIDs(dbctx.Context{Ctx: gctx}, rd.UserID, courseIDs)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		progress = rows
		return nil
	})
	g.Go(func() error {
		ids, err := ds.deps.Lessons.ListIDsByCourseIDs(dbctx.Context{Ctx: gctx}, courseIDs)
		if err != nil {
			return fmt.Errorf("load lessons: %w", err)
		}
		curriculum = ids
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	courseByID := make(map[uuid.UUID]*types.Course, len(courses))
	for _, c := range courses {
		courseByID[c.ID] = c
	}
	progressByCourse := make(map[uuid.UUID]*types.Progress, len(progress))
	bookmarks := make([]uuid.UUID, 0, len(progress))
	for _, p := range progress {
		progressByCourse[p.CourseID] = p
		if p.LastAccessedLessonID != nil {
			bookmarks = append(bookmarks, *p.LastAccessedLessonID)
		}
	}
	lessonTitles, err := ds.lessonTitles(ctx, bookmarks)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	for _, e := range enrollments {
		c := courseByID[e.CourseID]
		if c == nil {
			out.UnavailableCourses++
			continue
		}
		out.EnrolledCourses++
		p := progressByCourse[e.CourseID]
		view := progressView(c.ID, p, curriculum[c.ID])
		if view.IsCompleted {
			out.CompletedCourses++
		} else {
			out.InProgressCourses++
			out.ContinueLearning = append(out.ContinueLearning, ds.continueItem(ctx, e, c, p, view, lessonTitles))
		}
		if len(out.RecentEnrollments) < dashboardRecentLimit {
			out.RecentEnrollments = append(out.RecentEnrollments, &RecentEnrollment{
				LearnerID:   rd.UserID,
				CourseID:    c.ID,
				CourseTitle: c.Title,
				EnrolledAt:  e.CreatedAt,
			})
		}
	}
	sort.SliceStable(out.ContinueLearning, func(i, j int) bool {
		return out.ContinueLearning[i].LastActivityAt.After(out.ContinueLearning[j].LastActivityAt)
	})
	if out.UnavailableCourses > 0 {
		ds.log.Debug("Dashboard skipped deleted courses", "count", out.UnavailableCourses)
	}
	return out, nil
}

// continueItem takes percent and bookmark from view, which is already pruned to the
// course's current lessons.
func (ds *dashboardService) continueItem(ctx context.Context, e *types.Enrollment, c *types.Course, p *types.Progress, view *ProgressView, titles map[uuid.UUID]string) *ContinueLearning {
	item := &ContinueLearning{
		CourseID:       c.ID,
		CourseTitle:    c.Title,
		ThumbnailURL:   ds.janitor.thumbnailURL(ctx, c.ThumbnailKey, ds.deps.TTLs.Playback),
		Percent:        view.Percent,
		LastActivityAt: e.CreatedAt,
	}
	if p != nil && p.UpdatedAt.After(item.LastActivityAt) {
		item.LastActivityAt = p.UpdatedAt
	}
	if view.LastAccessedLessonID != nil {
		if title, ok := titles[*view.LastAccessedLessonID]; ok {
			item.LastAccessedLessonID = view.LastAccessedLessonID
			item.LastAccessedLessonTitle = title
		}
	}
	return item
}

// lessonTitles maps bookmark ids to titles; lessons deleted since are absent.
func (ds *dashboardService) lessonTitles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := ds.deps.Lessons.GetByIDs(dbctx.Context{Ctx: ctx}, dedupeIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("load bookmarked lessons: %w", err)
	}
	for _, l := range rows {
		out[l.ID] = l.Title
	}
	return out, nil
}
