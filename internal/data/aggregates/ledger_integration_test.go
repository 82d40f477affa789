package aggregates_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/coursemarket-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/coursemarket-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/coursemarket-backend/internal/data/repos"
	repotest "github.com/yungbote/coursemarket-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursemarket-backend/internal/domain"
	domainagg "github.com/yungbote/coursemarket-backend/internal/domain/aggregates"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
)

type ledgerHarness struct {
	db    *gorm.DB
	hooks *aggtest.HooksRecorder

	courses     repos.CourseRepo
	sections    repos.SectionRepo
	lessons     repos.LessonRepo
	enrollments repos.EnrollmentRepo
	progress    repos.ProgressRepo
	reviews     repos.ReviewRepo
}

func newLedgerHarness(t *testing.T) *ledgerHarness {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	return &ledgerHarness{
		db:          db,
		hooks:       &aggtest.HooksRecorder{},
		courses:     repos.NewCourseRepo(db, log),
		sections:    repos.NewSectionRepo(db, log),
		lessons:     repos.NewLessonRepo(db, log),
		enrollments: repos.NewEnrollmentRepo(db, log),
		progress:    repos.NewProgressRepo(db, log),
		reviews:     repos.NewReviewRepo(db, log),
	}
}

func (h *ledgerHarness) base(runner aggregates.TxRunner) aggregates.BaseDeps {
	if runner == nil {
		runner = aggregates.NewGormTxRunner(h.db)
	}
	return aggregates.BaseDeps{
		DB:       h.db,
		Runner:   runner,
		Hooks:    h.hooks,
		CASGuard: aggregates.NewCASGuard(h.db),
	}
}

func (h *ledgerHarness) enrollment(runner aggregates.TxRunner) domainagg.EnrollmentAggregate {
	return aggregates.NewEnrollmentAggregate(aggregates.EnrollmentAggregateDeps{
		Base:        h.base(runner),
		Courses:     h.courses,
		Enrollments: h.enrollments,
	})
}

func (h *ledgerHarness) progressAgg() domainagg.ProgressAggregate {
	return aggregates.NewProgressAggregate(aggregates.ProgressAggregateDeps{
		Base:     h.base(nil),
		Lessons:  h.lessons,
		Progress: h.progress,
	})
}

func (h *ledgerHarness) rating() domainagg.RatingAggregate {
	return aggregates.NewRatingAggregate(aggregates.RatingAggregateDeps{
		Base:    h.base(nil),
		Courses: h.courses,
		Reviews: h.reviews,
	})
}

func (h *ledgerHarness) course(t *testing.T, id uuid.UUID) *types.Course {
	t.Helper()
	c, err := h.courses.GetByID(dbctx.Context{Ctx: context.Background()}, id)
	require.NoError(t, err)
	return c
}

func TestEnrollIncrementsStudentCountOnce(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	inst := repotest.SeedUser(t, ctx, h.db, types.RoleInstructor)
	learner := repotest.SeedUser(t, ctx, h.db, types.RoleLearner)
	course := repotest.SeedCourse(t, ctx, h.db, inst.ID, false)
	agg := h.enrollment(nil)

	res, err := agg.Enroll(ctx, domainagg.EnrollInput{UserID: learner.ID, CourseID: course.ID})
	require.NoError(t, err)
	require.NotNil(t, res.Enrollment)
	assert.Equal(t, learner.ID, res.Enrollment.UserID)
	assert.EqualValues(t, 1, h.course(t, course.ID).StudentCount)

	_, err = agg.Enroll(ctx, domainagg.EnrollInput{UserID: learner.ID, CourseID: course.ID})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeConflict), "got %v", err)
	assert.EqualValues(t, 1, h.course(t, course.ID).StudentCount)
	assert.Equal(t, 1, h.hooks.EventCount(aggregates.EventEnrolled))
}

func TestEnrollUnknownCourseIsNotFound(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	learner := repotest.SeedUser(t, ctx, h.db, types.RoleLearner)

	_, err := h.enrollment(nil).Enroll(ctx, domainagg.EnrollInput{UserID: learner.ID, CourseID: uuid.New()})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)
}

func TestEnrollCommitFailureLeavesNoTrace(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	inst := repotest.SeedUser(t, ctx, h.db, types.RoleInstructor)
	learner := repotest.SeedUser(t, ctx, h.db, types.RoleLearner)
	course := repotest.SeedCourse(t, ctx, h.db, inst.ID, true)

	runner := &aggtest.InjectedTxRunner{DB: h.db, FailCommit: errors.New("commit lost")}
	_, err := h.enrollment(runner).Enroll(ctx, domainagg.EnrollInput{UserID: learner.ID, CourseID: course.ID})
	require.Error(t, err)
	assert.Equal(t, 1, runner.RollbackCalls)

	ok, err := h.enrollments.Exists(dbctx.Context{Ctx: ctx}, learner.ID, course.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 0, h.course(t, course.ID).StudentCount)
}

func seedCurriculum(t *testing.T, h *ledgerHarness, n int) (*types.Course, []*types.Lesson) {
	t.Helper()
	ctx := context.Background()
	inst := repotest.SeedUser(t, ctx, h.db, types.RoleInstructor)
	course := repotest.SeedCourse(t, ctx, h.db, inst.ID, true)
	section := repotest.SeedSection(t, ctx, h.db, course.ID, 1)
	lessons := make([]*types.Lesson, 0, n)
	for i := 1; i <= n; i++ {
		lessons = append(lessons, repotest.SeedLesson(t, ctx, h.db, section, i))
	}
	return course, lessons
}

func TestToggleLessonTwiceRestoresState(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	course, lessons := seedCurriculum(t, h, 3)
	learner := repotest.SeedUser(t, ctx, h.db, types.RoleLearner)
	agg := h.progressAgg()
	in := domainagg.ToggleLessonInput{UserID: learner.ID, CourseID: course.ID, LessonID: lessons[0].ID}

	first, err := agg.ToggleLesson(ctx, in)
	require.NoError(t, err)
	assert.True(t, first.Completed)
	assert.Equal(t, []uuid.UUID{lessons[0].ID}, first.Snapshot.CompletedLessons)
	assert.Equal(t, 33, first.Snapshot.Percent)
	assert.False(t, first.Snapshot.IsCompleted)
	assert.Equal(t, 1, first.Attempts)

	second, err := agg.ToggleLesson(ctx, in)
	require.NoError(t, err)
	assert.False(t, second.Completed)
	assert.Empty(t, second.Snapshot.CompletedLessons)
	assert.Equal(t, 0, second.Snapshot.Percent)

	row, err := h.progress.GetByUserCourse(dbctx.Context{Ctx: ctx}, learner.ID, course.ID)
	require.NoError(t, err)
	assert.Empty(t, row.LessonIDs())
	assert.Equal(t, 2, row.Version)
}

func TestToggleLessonPercentAndCompletion(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	course, lessons := seedCurriculum(t, h, 3)
	learner := repotest.SeedUser(t, ctx, h.db, types.RoleLearner)
	agg := h.progressAgg()

	want := []int{33, 67, 100}
	for i, l := range lessons {
		res, err := agg.ToggleLesson(ctx, domainagg.ToggleLessonInput{UserID: learner.ID, CourseID: course.ID, LessonID: l.ID})
		require.NoError(t, err)
		assert.Equal(t, want[i], res.Snapshot.Percent)
		assert.Equal(t, want[i] == 100, res.Snapshot.IsCompleted)
	}
	assert.Equal(t, 3, h.hooks.EventCount(aggregates.EventLessonToggled))
}

func TestToggleLessonPrunesRemovedLessons(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	course, lessons := seedCurriculum(t, h, 2)
	learner := repotest.SeedUser(t, ctx, h.db, types.RoleLearner)
	gone := uuid.New()
	repotest.SeedProgress(t, ctx, h.db, learner.ID, course.ID, []uuid.UUID{gone, lessons[0].ID}, 3)

	res, err := h.progressAgg().ToggleLesson(ctx, domainagg.ToggleLessonInput{
		UserID: learner.ID, CourseID: course.ID, LessonID: lessons[1].ID,
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{lessons[0].ID, lessons[1].ID}, res.Snapshot.CompletedLessons)
	assert.Equal(t, 100, res.Snapshot.Percent)
	assert.True(t, res.Snapshot.IsCompleted)
}

func TestToggleLessonFromAnotherCourseIsNotFound(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	course, _ := seedCurriculum(t, h, 1)
	_, otherLessons := seedCurriculum(t, h, 1)
	learner := repotest.SeedUser(t, ctx, h.db, types.RoleLearner)

	_, err := h.progressAgg().ToggleLesson(ctx, domainagg.ToggleLessonInput{
		UserID: learner.ID, CourseID: course.ID, LessonID: otherLessons[0].ID,
	})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)

	_, err = h.progress.GetByUserCourse(dbctx.Context{Ctx: ctx}, learner.ID, course.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestConcurrentTogglesOfDistinctLessonsAllLand(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	course, lessons := seedCurriculum(t, h, 4)
	learner := repotest.SeedUser(t, ctx, h.db, types.RoleLearner)
	agg := h.progressAgg()

	var wg sync.WaitGroup
	errs := make(chan error, len(lessons))
	for _, l := range lessons {
		wg.Add(1)
		go func(lessonID uuid.UUID) {
			defer wg.Done()
			_, err := agg.ToggleLesson(ctx, domainagg.ToggleLessonInput{UserID: learner.ID, CourseID: course.ID, LessonID: lessonID})
			errs <- err
		}(l.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	row, err := h.progress.GetByUserCourse(dbctx.Context{Ctx: ctx}, learner.ID, course.ID)
	require.NoError(t, err)
	assert.Len(t, row.LessonIDs(), 4)
	assert.Equal(t, 100, row.Percent)
	assert.True(t, row.IsCompleted)
}

// staleProgress serves one outdated read of the progress row, as if another writer
// committed between this transaction's read and its compare-and-set.
type staleProgress struct {
	repos.ProgressRepo
	mu    sync.Mutex
	stale *types.Progress
}

func (p *staleProgress) Ensure(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Progress, error) {
	p.mu.Lock()
	row := p.stale
	p.stale = nil
	p.mu.Unlock()
	if row != nil {
		return row, nil
	}
	return p.ProgressRepo.Ensure(dbc, userID, courseID)
}

func TestToggleLessonRetriesAfterLostVersionRace(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	course, lessons := seedCurriculum(t, h, 2)
	learner := repotest.SeedUser(t, ctx, h.db, types.RoleLearner)

	before, err := h.progress.Ensure(dbctx.Context{Ctx: ctx}, learner.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, 0, before.Version)

	first, err := h.progressAgg().ToggleLesson(ctx, domainagg.ToggleLessonInput{UserID: learner.ID, CourseID: course.ID, LessonID: lessons[0].ID})
	require.NoError(t, err)
	require.Equal(t, 1, first.Attempts)

	racing := aggregates.NewProgressAggregate(aggregates.ProgressAggregateDeps{
		Base:     h.base(nil),
		Lessons:  h.lessons,
		Progress: &staleProgress{ProgressRepo: h.progress, stale: before},
	})
	res, err := racing.ToggleLesson(ctx, domainagg.ToggleLessonInput{UserID: learner.ID, CourseID: course.ID, LessonID: lessons[1].ID})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.True(t, res.Completed)
	assert.Equal(t, 100, res.Snapshot.Percent)
	assert.GreaterOrEqual(t, h.hooks.RetryCount(), 1)

	row, err := h.progress.GetByUserCourse(dbctx.Context{Ctx: ctx}, learner.ID, course.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{lessons[0].ID, lessons[1].ID}, row.LessonIDs())
	assert.Equal(t, 2, row.Version)
	assert.True(t, row.IsCompleted)
}

func TestSetLastAccessedKeepsVersion(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	course, lessons := seedCurriculum(t, h, 2)
	learner := repotest.SeedUser(t, ctx, h.db, types.RoleLearner)
	agg := h.progressAgg()

	_, err := agg.ToggleLesson(ctx, domainagg.ToggleLessonInput{UserID: learner.ID, CourseID: course.ID, LessonID: lessons[0].ID})
	require.NoError(t, err)

	snap, err := agg.SetLastAccessed(ctx, domainagg.SetLastAccessedInput{UserID: learner.ID, CourseID: course.ID, LessonID: lessons[1].ID})
	require.NoError(t, err)
	require.NotNil(t, snap.LastAccessedLessonID)
	assert.Equal(t, lessons[1].ID, *snap.LastAccessedLessonID)
	assert.Equal(t, 50, snap.Percent)

	row, err := h.progress.GetByUserCourse(dbctx.Context{Ctx: ctx}, learner.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, row.Version)
	require.NotNil(t, row.LastAccessedLessonID)
	assert.Equal(t, lessons[1].ID, *row.LastAccessedLessonID)
}

func TestConcurrentReviewsFoldCommutatively(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	inst := repotest.SeedUser(t, ctx, h.db, types.RoleInstructor)
	course := repotest.SeedCourse(t, ctx, h.db, inst.ID, true)
	a := repotest.SeedUser(t, ctx, h.db, types.RoleLearner)
	b := repotest.SeedUser(t, ctx, h.db, types.RoleLearner)
	agg := h.rating()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, in := range []domainagg.PostReviewInput{
		{UserID: a.ID, CourseID: course.ID, Rating: 4},
		{UserID: b.ID, CourseID: course.ID, Rating: 2, Comment: "  meh  "},
	} {
		wg.Add(1)
		go func(i int, in domainagg.PostReviewInput) {
			defer wg.Done()
			_, errs[i] = agg.PostReview(ctx, in)
		}(i, in)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	got := h.course(t, course.ID)
	assert.EqualValues(t, 2, got.TotalReviews)
	assert.EqualValues(t, 6, got.RatingSum)
	assert.Equal(t, 3.0, got.AverageRating)
	assert.Equal(t, 2, h.hooks.EventCount(aggregates.EventReviewed))
}

func TestDuplicateReviewIsRejectedWithoutMutation(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	inst := repotest.SeedUser(t, ctx, h.db, types.RoleInstructor)
	course := repotest.SeedCourse(t, ctx, h.db, inst.ID, true)
	learner := repotest.SeedUser(t, ctx, h.db, types.RoleLearner)
	agg := h.rating()

	res, err := agg.PostReview(ctx, domainagg.PostReviewInput{UserID: learner.ID, CourseID: course.ID, Rating: 5})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.TotalReviews)
	assert.Equal(t, 5.0, res.AverageRating)

	_, err = agg.PostReview(ctx, domainagg.PostReviewInput{UserID: learner.ID, CourseID: course.ID, Rating: 1})
	require.Error(t, err)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeConflict), "got %v", err)

	got := h.course(t, course.ID)
	assert.EqualValues(t, 1, got.TotalReviews)
	assert.EqualValues(t, 5, got.RatingSum)
}

func TestPostReviewValidatesRatingBeforeStore(t *testing.T) {
	runner := &aggtest.InjectedTxRunner{}
	agg := aggregates.NewRatingAggregate(aggregates.RatingAggregateDeps{
		Base: aggregates.BaseDeps{Runner: runner},
	})
	for _, rating := range []int{0, 6, -1} {
		_, err := agg.PostReview(context.Background(), domainagg.PostReviewInput{
			UserID: uuid.New(), CourseID: uuid.New(), Rating: rating,
		})
		require.Error(t, err)
		assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "rating %d: %v", rating, err)
	}
	assert.Zero(t, runner.BeginCalls)
}

func TestReconcileRepairsDriftedCounters(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	inst := repotest.SeedUser(t, ctx, h.db, types.RoleInstructor)
	course := repotest.SeedCourse(t, ctx, h.db, inst.ID, true)
	a := repotest.SeedUser(t, ctx, h.db, types.RoleLearner)
	b := repotest.SeedUser(t, ctx, h.db, types.RoleLearner)
	repotest.SeedReview(t, ctx, h.db, a.ID, course.ID, 5)
	repotest.SeedReview(t, ctx, h.db, b.ID, course.ID, 3)
	require.NoError(t, h.courses.SetRatingCounters(dbctx.Context{Ctx: ctx}, course.ID, 1, 1))
	agg := h.rating()

	dry, err := agg.Reconcile(ctx, domainagg.ReconcileRatingInput{CourseID: course.ID, DryRun: true})
	require.NoError(t, err)
	assert.True(t, dry.Changed)
	assert.EqualValues(t, 8, dry.RecomputedSum)
	assert.EqualValues(t, 2, dry.RecomputedTotal)
	assert.EqualValues(t, 1, h.course(t, course.ID).TotalReviews)

	res, err := agg.Reconcile(ctx, domainagg.ReconcileRatingInput{CourseID: course.ID})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	got := h.course(t, course.ID)
	assert.EqualValues(t, 2, got.TotalReviews)
	assert.Equal(t, 4.0, got.AverageRating)

	again, err := agg.Reconcile(ctx, domainagg.ReconcileRatingInput{CourseID: course.ID})
	require.NoError(t, err)
	assert.False(t, again.Changed)
}
