package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/coursemarket-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursemarket-backend/internal/domain"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
)

func TestCourseRepoCountersAndListing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCourseRepo(db, testutil.Logger(t))

	inst := testutil.SeedUser(t, ctx, tx, types.RoleInstructor)
	pub := testutil.SeedCourse(t, ctx, tx, inst.ID, true)
	draft := testutil.SeedCourse(t, ctx, tx, inst.ID, false)

	if err := repo.IncrementStudentCount(dbc, pub.ID, 1); err != nil {
		t.Fatalf("IncrementStudentCount: %v", err)
	}
	if err := repo.IncrementRating(dbc, pub.ID, 4); err != nil {
		t.Fatalf("IncrementRating: %v", err)
	}
	if err := repo.IncrementRating(dbc, pub.ID, 2); err != nil {
		t.Fatalf("IncrementRating: %v", err)
	}
	got, err := repo.GetByID(dbc, pub.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.StudentCount != 1 || got.TotalReviews != 2 || got.RatingSum != 6 || got.AverageRating != 3.0 {
		t.Fatalf("counters: %+v", got)
	}

	if err := repo.IncrementStudentCount(dbc, uuid.New(), 1); err == nil {
		t.Fatalf("IncrementStudentCount on missing course: expected error")
	}

	list, total, err := repo.ListPublished(dbc, ListPublishedFilter{Category: pub.Category})
	if err != nil {
		t.Fatalf("ListPublished: %v", err)
	}
	for _, c := range list {
		if c.ID == draft.ID {
			t.Fatalf("ListPublished returned a draft course")
		}
	}
	if total < 1 {
		t.Fatalf("ListPublished total=%d", total)
	}

	stats, err := repo.InstructorStats(dbc, inst.ID)
	if err != nil {
		t.Fatalf("InstructorStats: %v", err)
	}
	if stats.Total != 2 || stats.Published != 1 || stats.TotalReviews != 2 || stats.RatingSum != 6 || stats.StudentCount != 1 {
		t.Fatalf("InstructorStats: %+v", stats)
	}

	first, err := repo.NextSectionOrder(dbc, pub.ID)
	if err != nil {
		t.Fatalf("NextSectionOrder: %v", err)
	}
	second, err := repo.NextSectionOrder(dbc, pub.ID)
	if err != nil {
		t.Fatalf("NextSectionOrder: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("NextSectionOrder: first=%d second=%d", first, second)
	}

	if _, err := repo.LockByID(dbctx.Context{Ctx: ctx}, pub.ID); err == nil {
		t.Fatalf("LockByID without tx: expected error")
	}
	if locked, err := repo.LockByID(dbc, pub.ID); err != nil || locked.ID != pub.ID {
		t.Fatalf("LockByID: err=%v", err)
	}
}

func TestLessonRepoCurriculumOrder(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	lessons := NewLessonRepo(db, testutil.Logger(t))
	sections := NewSectionRepo(db, testutil.Logger(t))

	inst := testutil.SeedUser(t, ctx, tx, types.RoleInstructor)
	course := testutil.SeedCourse(t, ctx, tx, inst.ID, true)
	s2 := testutil.SeedSection(t, ctx, tx, course.ID, 2)
	s1 := testutil.SeedSection(t, ctx, tx, course.ID, 1)
	l3 := testutil.SeedLesson(t, ctx, tx, s2, 1)
	l2 := testutil.SeedLesson(t, ctx, tx, s1, 2)
	l1 := testutil.SeedLesson(t, ctx, tx, s1, 1)

	ordered, err := sections.ListByCourse(dbc, course.ID)
	if err != nil || len(ordered) != 2 || ordered[0].ID != s1.ID {
		t.Fatalf("ListByCourse sections: err=%v %+v", err, ordered)
	}

	ids, err := lessons.ListIDsByCourse(dbc, course.ID)
	if err != nil {
		t.Fatalf("ListIDsByCourse: %v", err)
	}
	want := []uuid.UUID{l1.ID, l2.ID, l3.ID}
	if len(ids) != len(want) {
		t.Fatalf("ListIDsByCourse: got %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ListIDsByCourse[%d]: want=%s got=%s", i, want[i], ids[i])
		}
	}

	grouped, err := lessons.ListIDsByCourseIDs(dbc, []uuid.UUID{course.ID, uuid.New()})
	if err != nil || len(grouped) != 1 || len(grouped[course.ID]) != len(want) {
		t.Fatalf("ListIDsByCourseIDs: err=%v got=%v", err, grouped)
	}
	for i := range want {
		if grouped[course.ID][i] != want[i] {
			t.Fatalf("ListIDsByCourseIDs[%d]: want=%s got=%s", i, want[i], grouped[course.ID][i])
		}
	}

	n, err := lessons.CountByCourse(dbc, course.ID)
	if err != nil || n != 3 {
		t.Fatalf("CountByCourse: n=%d err=%v", n, err)
	}

	bySection, err := lessons.ListBySection(dbc, s1.ID)
	if err != nil || len(bySection) != 2 || bySection[0].ID != l1.ID || !bySection[0].HasVideo {
		t.Fatalf("ListBySection: err=%v rows=%+v", err, bySection)
	}

	if err := lessons.DeleteBySectionID(dbc, s1.ID); err != nil {
		t.Fatalf("DeleteBySectionID: %v", err)
	}
	if err := sections.DeleteByIDs(dbc, []uuid.UUID{s1.ID}); err != nil {
		t.Fatalf("DeleteByIDs: %v", err)
	}
	n, _ = lessons.CountByCourse(dbc, course.ID)
	if n != 1 {
		t.Fatalf("after section delete CountByCourse=%d", n)
	}
	if _, err := lessons.GetByID(dbc, l1.ID); err == nil {
		t.Fatalf("deleted lesson still readable")
	}
}
