package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/coursemarket-backend/internal/domain/learning"
)

var EnrollmentAggregateContract = Contract{
	Name:             "Ledger.EnrollmentAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns enrollment uniqueness and the course student counter.",
}

// EnrollmentAggregate records enrollments.
//
// Write failures return *Error with CodeValidation, CodeNotFound, CodeConflict,
// CodeRetryable or CodeInternal.
type EnrollmentAggregate interface {
	Aggregate

	// Enroll inserts the (learner, course) enrollment and increments student_count in
	// the same transaction. A second enrollment fails with CodeConflict and changes nothing.
	Enroll(ctx context.Context, in EnrollInput) (EnrollResult, error)
}

type EnrollInput struct {
	UserID   uuid.UUID
	CourseID uuid.UUID
}

type EnrollResult struct {
	Enrollment *learning.Enrollment
}

var ProgressAggregateContract = Contract{
	Name:             "Ledger.ProgressAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns the completed-lessons set, percent and completion flag of one progress record.",
}

// ProgressAggregate owns per-(learner, course) completion state.
type ProgressAggregate interface {
	Aggregate

	// ToggleLesson flips one lesson's completion. The set is pruned to the course's
	// current lessons and rewritten with a version compare-and-set; lost races are retried.
	ToggleLesson(ctx context.Context, in ToggleLessonInput) (ToggleLessonResult, error)

	// SetLastAccessed records the bookmark without touching the completed set.
	SetLastAccessed(ctx context.Context, in SetLastAccessedInput) (learning.Snapshot, error)
}

type ToggleLessonInput struct {
	UserID   uuid.UUID
	CourseID uuid.UUID
	LessonID uuid.UUID
}

type ToggleLessonResult struct {
	Snapshot  learning.Snapshot
	Completed bool
	Attempts  int
}

type SetLastAccessedInput struct {
	UserID   uuid.UUID
	CourseID uuid.UUID
	LessonID uuid.UUID
}

var RatingAggregateContract = Contract{
	Name:             "Ledger.RatingAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns review uniqueness and the course rating_sum/total_reviews counters.",
}

// RatingAggregate folds reviews into course counters.
type RatingAggregate interface {
	Aggregate

	// PostReview validates the rating, inserts the review and increments the course
	// counters as one commutative delta.
	PostReview(ctx context.Context, in PostReviewInput) (PostReviewResult, error)

	// Reconcile recomputes the counters of one course from its review rows.
	Reconcile(ctx context.Context, in ReconcileRatingInput) (ReconcileRatingResult, error)
}

type PostReviewInput struct {
	UserID   uuid.UUID
	CourseID uuid.UUID
	Rating   int
	Comment  string
}

type PostReviewResult struct {
	Review        *learning.Review
	TotalReviews  int64
	AverageRating float64
}

type ReconcileRatingInput struct {
	CourseID uuid.UUID
	DryRun   bool
}

type ReconcileRatingResult struct {
	CourseID        uuid.UUID
	PreviousSum     int64
	PreviousTotal   int64
	RecomputedSum   int64
	RecomputedTotal int64
	Changed         bool
}
