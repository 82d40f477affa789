package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/coursemarket-backend/internal/domain/catalog"
)

var CatalogAggregateContract = Contract{
	Name:             "Catalog.CatalogAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyTableRepoQueries,
	Notes:            "Owns course/section/lesson structure: ownership checks under row locks, order counters and cascade deletes.",
}

// CatalogAggregate owns instructor-side catalog writes.
//
// Every method verifies the caller owns the course under a row lock. A foreign
// caller gets CodeForbidden; a missing row gets CodeNotFound. Storage objects made
// unreachable by a write are returned in the result so the caller can remove them
// after commit.
type CatalogAggregate interface {
	Aggregate

	CreateCourse(ctx context.Context, in CreateCourseInput) (*catalog.Course, error)
	UpdateCourse(ctx context.Context, in UpdateCourseInput) (*catalog.Course, error)
	SetPublished(ctx context.Context, in SetPublishedInput) (*catalog.Course, error)
	SetThumbnail(ctx context.Context, in SetThumbnailInput) (CatalogWriteResult, error)
	DeleteCourse(ctx context.Context, in DeleteCourseInput) (CatalogWriteResult, error)

	CreateSection(ctx context.Context, in CreateSectionInput) (*catalog.Section, error)
	UpdateSection(ctx context.Context, in UpdateSectionInput) (*catalog.Section, error)
	DeleteSection(ctx context.Context, in DeleteSectionInput) (CatalogWriteResult, error)

	CreateLesson(ctx context.Context, in CreateLessonInput) (*catalog.Lesson, error)
	UpdateLesson(ctx context.Context, in UpdateLessonInput) (*catalog.Lesson, error)
	ReplaceLessonVideo(ctx context.Context, in ReplaceLessonVideoInput) (CatalogWriteResult, error)
	DeleteLesson(ctx context.Context, in DeleteLessonInput) (CatalogWriteResult, error)
}

type CreateCourseInput struct {
	InstructorID uuid.UUID
	Title        string
	Description  string
	Category     string
	PriceCents   int64
}

type UpdateCourseInput struct {
	ActorID     uuid.UUID
	CourseID    uuid.UUID
	Title       *string
	Description *string
	Category    *string
	PriceCents  *int64
}

type SetPublishedInput struct {
	ActorID   uuid.UUID
	CourseID  uuid.UUID
	Published bool
}

type SetThumbnailInput struct {
	ActorID  uuid.UUID
	CourseID uuid.UUID
	Key      string
}

type DeleteCourseInput struct {
	ActorID  uuid.UUID
	CourseID uuid.UUID
}

type CreateSectionInput struct {
	ActorID  uuid.UUID
	CourseID uuid.UUID
	Title    string
	// Order is taken from the course's section counter when nil.
	Order *int
}

type UpdateSectionInput struct {
	ActorID   uuid.UUID
	SectionID uuid.UUID
	Title     *string
	Order     *int
}

type DeleteSectionInput struct {
	ActorID   uuid.UUID
	SectionID uuid.UUID
}

type CreateLessonInput struct {
	ActorID       uuid.UUID
	SectionID     uuid.UUID
	Title         string
	Order         *int
	VideoKey      string
	AttachmentKey string
}

type UpdateLessonInput struct {
	ActorID  uuid.UUID
	LessonID uuid.UUID
	Title    *string
	Order    *int
}

type ReplaceLessonVideoInput struct {
	ActorID  uuid.UUID
	LessonID uuid.UUID
	VideoKey string
}

type DeleteLessonInput struct {
	ActorID  uuid.UUID
	LessonID uuid.UUID
}

// CatalogWriteResult carries the written row (when one survives) and the storage
// objects the write orphaned.
type CatalogWriteResult struct {
	Course   *catalog.Course
	Lesson   *catalog.Lesson
	Orphaned []catalog.ObjectRef
	// PrefixOrphaned is set when every object under the course prefix is orphaned.
	PrefixOrphaned string
}
