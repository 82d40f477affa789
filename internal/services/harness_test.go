package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursemarket-backend/internal/data/aggregates"
	"github.com/yungbote/coursemarket-backend/internal/data/repos"
	repotest "github.com/yungbote/coursemarket-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursemarket-backend/internal/domain"
	"github.com/yungbote/coursemarket-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
	"github.com/yungbote/coursemarket-backend/internal/platform/gcp"
)

type fakeBucket struct {
	mu        sync.Mutex
	signErr   error
	deleteErr error
	uploads   []string
	deleted   []string
	prefixes  []string
}

func (b *fakeBucket) SignedUploadURL(_ context.Context, category gcp.BucketCategory, key, contentType string, _ time.Duration) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.signErr != nil {
		return "", b.signErr
	}
	b.uploads = append(b.uploads, key)
	return "https://upload.test/" + string(category) + "/" + key + "?ct=" + contentType, nil
}

func (b *fakeBucket) SignedDownloadURL(_ context.Context, category gcp.BucketCategory, key string, _ time.Duration) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.signErr != nil {
		return "", b.signErr
	}
	return "https://download.test/" + string(category) + "/" + key, nil
}

func (b *fakeBucket) DeleteFile(_ dbctx.Context, _ gcp.BucketCategory, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, key)
	return b.deleteErr
}

func (b *fakeBucket) DeletePrefix(_ context.Context, _ gcp.BucketCategory, prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prefixes = append(b.prefixes, prefix)
	return b.deleteErr
}

func (b *fakeBucket) ListKeys(context.Context, gcp.BucketCategory, string) ([]string, error) {
	return nil, errors.New("not implemented in fake")
}

// serviceHarness wires real repos and aggregates over a fresh SQLite database.
type serviceHarness struct {
	t      *testing.T
	db     *gorm.DB
	bucket *fakeBucket

	users       repos.UserRepo
	courses     repos.CourseRepo
	sections    repos.SectionRepo
	lessons     repos.LessonRepo
	enrollments repos.EnrollmentRepo
	progress    repos.ProgressRepo
	reviews     repos.ReviewRepo

	catalog   CatalogService
	learning  LearningService
	dashboard DashboardService
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	h := &serviceHarness{
		t:           t,
		db:          db,
		bucket:      &fakeBucket{},
		users:       repos.NewUserRepo(db, log),
		courses:     repos.NewCourseRepo(db, log),
		sections:    repos.NewSectionRepo(db, log),
		lessons:     repos.NewLessonRepo(db, log),
		enrollments: repos.NewEnrollmentRepo(db, log),
		progress:    repos.NewProgressRepo(db, log),
		reviews:     repos.NewReviewRepo(db, log),
	}
	base := aggregates.BaseDeps{DB: db, Log: log}
	catalogAgg := aggregates.NewCatalogAggregate(aggregates.CatalogAggregateDeps{
		Base: base, Courses: h.courses, Sections: h.sections, Lessons: h.lessons,
	})
	progressAgg := aggregates.NewProgressAggregate(aggregates.ProgressAggregateDeps{
		Base: base, Lessons: h.lessons, Progress: h.progress,
	})
	h.catalog = NewCatalogService(CatalogServiceDeps{
		Log:         log,
		Courses:     h.courses,
		Sections:    h.sections,
		Lessons:     h.lessons,
		Enrollments: h.enrollments,
		Catalog:     catalogAgg,
		Progress:    progressAgg,
		Bucket:      h.bucket,
	})
	h.learning = NewLearningService(LearningServiceDeps{
		Log:      log,
		Users:    h.users,
		Courses:  h.courses,
		Lessons:  h.lessons,
		Progress: h.progress,
		Reviews:  h.reviews,
		Enrollments: aggregates.NewEnrollmentAggregate(aggregates.EnrollmentAggregateDeps{
			Base: base, Courses: h.courses, Enrollments: h.enrollments,
		}),
		Toggles: progressAgg,
		Ratings: aggregates.NewRatingAggregate(aggregates.RatingAggregateDeps{
			Base: base, Courses: h.courses, Reviews: h.reviews,
		}),
	})
	h.dashboard = NewDashboardService(DashboardServiceDeps{
		Log:         log,
		Users:       h.users,
		Courses:     h.courses,
		Lessons:     h.lessons,
		Enrollments: h.enrollments,
		Progress:    h.progress,
		Bucket:      h.bucket,
	})
	return h
}

func (h *serviceHarness) user(role string) *types.User {
	return repotest.SeedUser(h.t, context.Background(), h.db, role)
}

func (h *serviceHarness) course(instructorID uuid.UUID, published bool) *types.Course {
	return repotest.SeedCourse(h.t, context.Background(), h.db, instructorID, published)
}

func (h *serviceHarness) section(courseID uuid.UUID, order int) *types.Section {
	return repotest.SeedSection(h.t, context.Background(), h.db, courseID, order)
}

func (h *serviceHarness) lesson(s *types.Section, order int) *types.Lesson {
	return repotest.SeedLesson(h.t, context.Background(), h.db, s, order)
}

func as(u *types.User) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: u.ID, Role: u.Role})
}
