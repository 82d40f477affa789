package aggregates

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/coursemarket-backend/internal/data/repos"
	types "github.com/yungbote/coursemarket-backend/internal/domain"
	domainagg "github.com/yungbote/coursemarket-backend/internal/domain/aggregates"
	"github.com/yungbote/coursemarket-backend/internal/domain/catalog"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
)

const maxTitleLength = 200

type CatalogAggregateDeps struct {
	Base     BaseDeps
	Courses  repos.CourseRepo
	Sections repos.SectionRepo
	Lessons  repos.LessonRepo
}

type catalogAggregate struct {
	deps CatalogAggregateDeps
}

func NewCatalogAggregate(deps CatalogAggregateDeps) domainagg.CatalogAggregate {
	deps.Base = deps.Base.withDefaults()
	return &catalogAggregate{deps: deps}
}

func (a *catalogAggregate) Contract() domainagg.Contract {
	return domainagg.CatalogAggregateContract
}

func (a *catalogAggregate) ready(op string) error {
	if a.deps.Courses == nil || a.deps.Sections == nil || a.deps.Lessons == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "catalog aggregate repos are not configured", nil)
	}
	return nil
}

// lockOwnedCourse takes the course row lock and checks ownership. Every structural
// write goes through it, so order counters and cascades are serialized per course.
func (a *catalogAggregate) lockOwnedCourse(dbc dbctx.Context, courseID, actorID uuid.UUID) (*types.Course, error) {
	course, err := a.deps.Courses.LockByID(dbc, courseID)
	if err != nil {
		return nil, err
	}
	if err := RequireOwner(course.InstructorID, actorID); err != nil {
		return nil, err
	}
	return course, nil
}

func validTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ValidationError("title is required")
	}
	if len(title) > maxTitleLength {
		return ValidationError("title is too long")
	}
	return nil
}

func validOrder(order *int) error {
	if order != nil && *order < 0 {
		return ValidationError("order must be >= 0")
	}
	return nil
}

func (a *catalogAggregate) CreateCourse(ctx context.Context, in domainagg.CreateCourseInput) (*types.Course, error) {
	const op = "Catalog.Course.Create"
	if in.InstructorID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "instructor_id is required", nil)
	}
	if err := validTitle(in.Title); err != nil {
		return nil, MapError(op, err)
	}
	if in.PriceCents < 0 {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "price_cents must be >= 0", nil)
	}
	if err := a.ready(op); err != nil {
		return nil, err
	}

	var out *types.Course
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rows, err := a.deps.Courses.Create(dbc, []*types.Course{{
			InstructorID: in.InstructorID,
			Title:        strings.TrimSpace(in.Title),
			Description:  strings.TrimSpace(in.Description),
			Category:     strings.TrimSpace(in.Category),
			PriceCents:   in.PriceCents,
			IsPublished:  false,
		}})
		if err != nil {
			return err
		}
		if len(rows) != 1 {
			return InvariantError("course insert returned no row")
		}
		out = rows[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *catalogAggregate) UpdateCourse(ctx context.Context, in domainagg.UpdateCourseInput) (*types.Course, error) {
	const op = "Catalog.Course.Update"
	if in.CourseID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "course_id is required", nil)
	}
	updates := map[string]interface{}{}
	if in.Title != nil {
		if err := validTitle(*in.Title); err != nil {
			return nil, MapError(op, err)
		}
		updates["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		updates["category"] = strings.TrimSpace(*in.Category)
	}
	if in.PriceCents != nil {
		if *in.PriceCents < 0 {
			return nil, domainagg.NewError(domainagg.CodeValidation, op, "price_cents must be >= 0", nil)
		}
		updates["price_cents"] = *in.PriceCents
	}
	if err := a.ready(op); err != nil {
		return nil, err
	}

	var out *types.Course
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		course, err := a.lockOwnedCourse(dbc, in.CourseID, in.ActorID)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			out = course
			return nil
		}
		if err := a.deps.Courses.UpdateFields(dbc, in.CourseID, updates); err != nil {
			return err
		}
		out, err = a.deps.Courses.GetByID(dbc, in.CourseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *catalogAggregate) SetPublished(ctx context.Context, in domainagg.SetPublishedInput) (*types.Course, error) {
	const op = "Catalog.Course.SetPublished"
	if in.CourseID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "course_id is required", nil)
	}
	if err := a.ready(op); err != nil {
		return nil, err
	}

	var out *types.Course
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		course, err := a.lockOwnedCourse(dbc, in.CourseID, in.ActorID)
		if err != nil {
			return err
		}
		if course.IsPublished == in.Published {
			out = course
			return nil
		}
		if err := a.deps.Courses.UpdateFields(dbc, in.CourseID, map[string]interface{}{"is_published": in.Published}); err != nil {
			return err
		}
		out, err = a.deps.Courses.GetByID(dbc, in.CourseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *catalogAggregate) SetThumbnail(ctx context.Context, in domainagg.SetThumbnailInput) (domainagg.CatalogWriteResult, error) {
	const op = "Catalog.Course.SetThumbnail"
	out := domainagg.CatalogWriteResult{}
	if in.CourseID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "course_id is required", nil)
	}
	key := strings.TrimSpace(in.Key)
	if !catalog.KeyInCourse(in.CourseID, key) || !strings.HasPrefix(key, catalog.ThumbnailObjectPrefix(in.CourseID)) {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "thumbnail key is outside the course storage prefix", nil)
	}
	if err := a.ready(op); err != nil {
		return out, err
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		course, err := a.lockOwnedCourse(dbc, in.CourseID, in.ActorID)
		if err != nil {
			return err
		}
		old := course.ThumbnailKey
		if err := a.deps.Courses.UpdateFields(dbc, in.CourseID, map[string]interface{}{"thumbnail_key": key}); err != nil {
			return err
		}
		if old != "" && old != key {
			out.Orphaned = append(out.Orphaned, catalog.ObjectRef{Category: catalog.ObjectCategoryThumbnail, Key: old})
		}
		out.Course, err = a.deps.Courses.GetByID(dbc, in.CourseID)
		return err
	})
	if err != nil {
		return domainagg.CatalogWriteResult{}, err
	}
	return out, nil
}

// DeleteCourse removes the course with its sections and lessons in one transaction.
// Enrollments, progress and reviews are kept; readers treat them as pointing at an
// unavailable course.
func (a *catalogAggregate) DeleteCourse(ctx context.Context, in domainagg.DeleteCourseInput) (domainagg.CatalogWriteResult, error) {
	const op = "Catalog.Course.Delete"
	out := domainagg.CatalogWriteResult{}
	if in.CourseID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "course_id is required", nil)
	}
	if err := a.ready(op); err != nil {
		return out, err
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		course, err := a.lockOwnedCourse(dbc, in.CourseID, in.ActorID)
		if err != nil {
			return err
		}
		lessons, err := a.deps.Lessons.ListByCourse(dbc, in.CourseID)
		if err != nil {
			return err
		}
		for _, l := range lessons {
			out.Orphaned = append(out.Orphaned, catalog.MediaObjects(l.StorageKeys()...)...)
		}
		if course.ThumbnailKey != "" {
			out.Orphaned = append(out.Orphaned, catalog.ObjectRef{Category: catalog.ObjectCategoryThumbnail, Key: course.ThumbnailKey})
		}
		if err := a.deps.Lessons.DeleteByCourseID(dbc, in.CourseID); err != nil {
			return err
		}
		if err := a.deps.Sections.DeleteByCourseID(dbc, in.CourseID); err != nil {
			return err
		}
		if err := a.deps.Courses.DeleteByIDs(dbc, []uuid.UUID{in.CourseID}); err != nil {
			return err
		}
		out.Course = course
		out.PrefixOrphaned = catalog.StoragePrefix(in.CourseID)
		return nil
	})
	if err != nil {
		return domainagg.CatalogWriteResult{}, err
	}
	return out, nil
}

func (a *catalogAggregate) CreateSection(ctx context.Context, in domainagg.CreateSectionInput) (*types.Section, error) {
	const op = "Catalog.Section.Create"
	if in.CourseID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "course_id is required", nil)
	}
	if err := validTitle(in.Title); err != nil {
		return nil, MapError(op, err)
	}
	if err := validOrder(in.Order); err != nil {
		return nil, MapError(op, err)
	}
	if err := a.ready(op); err != nil {
		return nil, err
	}

	var out *types.Section
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if _, err := a.lockOwnedCourse(dbc, in.CourseID, in.ActorID); err != nil {
			return err
		}
		order, err := a.deps.Courses.NextSectionOrder(dbc, in.CourseID)
		if err != nil {
			return err
		}
		if in.Order != nil {
			order = *in.Order
		}
		rows, err := a.deps.Sections.Create(dbc, []*types.Section{{
			CourseID: in.CourseID,
			Title:    strings.TrimSpace(in.Title),
			Order:    order,
		}})
		if err != nil {
			return err
		}
		if len(rows) != 1 {
			return InvariantError("section insert returned no row")
		}
		out = rows[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *catalogAggregate) UpdateSection(ctx context.Context, in domainagg.UpdateSectionInput) (*types.Section, error) {
	const op = "Catalog.Section.Update"
	if in.SectionID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "section_id is required", nil)
	}
	updates := map[string]interface{}{}
	if in.Title != nil {
		if err := validTitle(*in.Title); err != nil {
			return nil, MapError(op, err)
		}
		updates["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Order != nil {
		if err := validOrder(in.Order); err != nil {
			return nil, MapError(op, err)
		}
		updates["position"] = *in.Order
	}
	if err := a.ready(op); err != nil {
		return nil, err
	}

	var out *types.Section
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		section, err := a.deps.Sections.GetByID(dbc, in.SectionID)
		if err != nil {
			return err
		}
		if _, err := a.lockOwnedCourse(dbc, section.CourseID, in.ActorID); err != nil {
			return err
		}
		if len(updates) == 0 {
			out = section
			return nil
		}
		if err := a.deps.Sections.UpdateFields(dbc, in.SectionID, updates); err != nil {
			return err
		}
		out, err = a.deps.Sections.GetByID(dbc, in.SectionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *catalogAggregate) DeleteSection(ctx context.Context, in domainagg.DeleteSectionInput) (domainagg.CatalogWriteResult, error) {
	const op = "Catalog.Section.Delete"
	out := domainagg.CatalogWriteResult{}
	if in.SectionID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "section_id is required", nil)
	}
	if err := a.ready(op); err != nil {
		return out, err
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		section, err := a.deps.Sections.GetByID(dbc, in.SectionID)
		if err != nil {
			return err
		}
		if _, err := a.lockOwnedCourse(dbc, section.CourseID, in.ActorID); err != nil {
			return err
		}
		lessons, err := a.deps.Lessons.ListBySection(dbc, in.SectionID)
		if err != nil {
			return err
		}
		for _, l := range lessons {
			out.Orphaned = append(out.Orphaned, catalog.MediaObjects(l.StorageKeys()...)...)
		}
		if err := a.deps.Lessons.DeleteBySectionID(dbc, in.SectionID); err != nil {
			return err
		}
		return a.deps.Sections.DeleteByIDs(dbc, []uuid.UUID{in.SectionID})
	})
	if err != nil {
		return domainagg.CatalogWriteResult{}, err
	}
	return out, nil
}

func (a *catalogAggregate) CreateLesson(ctx context.Context, in domainagg.CreateLessonInput) (*types.Lesson, error) {
	const op = "Catalog.Lesson.Create"
	if in.SectionID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "section_id is required", nil)
	}
	if err := validTitle(in.Title); err != nil {
		return nil, MapError(op, err)
	}
	if err := validOrder(in.Order); err != nil {
		return nil, MapError(op, err)
	}
	if strings.TrimSpace(in.VideoKey) == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "video_key is required", nil)
	}
	if err := a.ready(op); err != nil {
		return nil, err
	}

	var out *types.Lesson
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		section, err := a.deps.Sections.GetByID(dbc, in.SectionID)
		if err != nil {
			return err
		}
		if _, err := a.lockOwnedCourse(dbc, section.CourseID, in.ActorID); err != nil {
			return err
		}
		if err := requireLessonKeys(section.CourseID, in.VideoKey, in.AttachmentKey); err != nil {
			return err
		}
		order, err := a.deps.Sections.NextLessonOrder(dbc, in.SectionID)
		if err != nil {
			return err
		}
		if in.Order != nil {
			order = *in.Order
		}
		rows, err := a.deps.Lessons.Create(dbc, []*types.Lesson{{
			CourseID:      section.CourseID,
			SectionID:     section.ID,
			Title:         strings.TrimSpace(in.Title),
			Order:         order,
			VideoKey:      strings.TrimSpace(in.VideoKey),
			AttachmentKey: strings.TrimSpace(in.AttachmentKey),
		}})
		if err != nil {
			return err
		}
		if len(rows) != 1 {
			return InvariantError("lesson insert returned no row")
		}
		out = rows[0]
		out.HasVideo = out.VideoKey != ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *catalogAggregate) UpdateLesson(ctx context.Context, in domainagg.UpdateLessonInput) (*types.Lesson, error) {
	const op = "Catalog.Lesson.Update"
	if in.LessonID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "lesson_id is required", nil)
	}
	updates := map[string]interface{}{}
	if in.Title != nil {
		if err := validTitle(*in.Title); err != nil {
			return nil, MapError(op, err)
		}
		updates["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Order != nil {
		if err := validOrder(in.Order); err != nil {
			return nil, MapError(op, err)
		}
		updates["position"] = *in.Order
	}
	if err := a.ready(op); err != nil {
		return nil, err
	}

	var out *types.Lesson
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		lesson, err := a.deps.Lessons.GetByID(dbc, in.LessonID)
		if err != nil {
			return err
		}
		if _, err := a.lockOwnedCourse(dbc, lesson.CourseID, in.ActorID); err != nil {
			return err
		}
		if len(updates) == 0 {
			out = lesson
			return nil
		}
		if err := a.deps.Lessons.UpdateFields(dbc, in.LessonID, updates); err != nil {
			return err
		}
		out, err = a.deps.Lessons.GetByID(dbc, in.LessonID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceLessonVideo points the lesson at a new upload. The row is updated first;
// the previous object is returned as orphaned.
func (a *catalogAggregate) ReplaceLessonVideo(ctx context.Context, in domainagg.ReplaceLessonVideoInput) (domainagg.CatalogWriteResult, error) {
	const op = "Catalog.Lesson.ReplaceVideo"
	out := domainagg.CatalogWriteResult{}
	if in.LessonID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "lesson_id is required", nil)
	}
	key := strings.TrimSpace(in.VideoKey)
	if key == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "video key is required", nil)
	}
	if err := a.ready(op); err != nil {
		return out, err
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		lesson, err := a.deps.Lessons.GetByID(dbc, in.LessonID)
		if err != nil {
			return err
		}
		if _, err := a.lockOwnedCourse(dbc, lesson.CourseID, in.ActorID); err != nil {
			return err
		}
		if err := requireLessonKeys(lesson.CourseID, key); err != nil {
			return err
		}
		if err := a.deps.Lessons.UpdateFields(dbc, in.LessonID, map[string]interface{}{"video_key": key}); err != nil {
			return err
		}
		if lesson.VideoKey != "" && lesson.VideoKey != key {
			out.Orphaned = catalog.MediaObjects(lesson.VideoKey)
		}
		out.Lesson, err = a.deps.Lessons.GetByID(dbc, in.LessonID)
		return err
	})
	if err != nil {
		return domainagg.CatalogWriteResult{}, err
	}
	return out, nil
}

func (a *catalogAggregate) DeleteLesson(ctx context.Context, in domainagg.DeleteLessonInput) (domainagg.CatalogWriteResult, error) {
	const op = "Catalog.Lesson.Delete"
	out := domainagg.CatalogWriteResult{}
	if in.LessonID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "lesson_id is required", nil)
	}
	if err := a.ready(op); err != nil {
		return out, err
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		lesson, err := a.deps.Lessons.GetByID(dbc, in.LessonID)
		if err != nil {
			return err
		}
		if _, err := a.lockOwnedCourse(dbc, lesson.CourseID, in.ActorID); err != nil {
			return err
		}
		if err := a.deps.Lessons.DeleteByIDs(dbc, []uuid.UUID{in.LessonID}); err != nil {
			return err
		}
		out.Lesson = lesson
		out.Orphaned = catalog.MediaObjects(lesson.StorageKeys()...)
		return nil
	})
	if err != nil {
		return domainagg.CatalogWriteResult{}, err
	}
	return out, nil
}

// requireLessonKeys skips empty keys (an optional attachment); non-empty ones must
// live under the course's lessons prefix.
func requireLessonKeys(courseID uuid.UUID, keys ...string) error {
	prefix := catalog.LessonObjectPrefix(courseID)
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if !catalog.KeyInCourse(courseID, k) || !strings.HasPrefix(k, prefix) {
			return ValidationError("object key is outside the course storage prefix")
		}
	}
	return nil
}
