package aggregates

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/coursemarket-backend/internal/data/repos"
	types "github.com/yungbote/coursemarket-backend/internal/domain"
	domainagg "github.com/yungbote/coursemarket-backend/internal/domain/aggregates"
	"github.com/yungbote/coursemarket-backend/internal/domain/learning"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
)

const (
	opPostReview      = "Ledger.Rating.PostReview"
	opReconcileRating = "Ledger.Rating.Reconcile"

	EventReviewed = "reviewed"

	MaxReviewCommentLength = 4000
)

type RatingAggregateDeps struct {
	Base    BaseDeps
	Courses repos.CourseRepo
	Reviews repos.ReviewRepo
}

type ratingAggregate struct {
	deps RatingAggregateDeps
}

func NewRatingAggregate(deps RatingAggregateDeps) domainagg.RatingAggregate {
	deps.Base = deps.Base.withDefaults()
	return &ratingAggregate{deps: deps}
}

func (a *ratingAggregate) Contract() domainagg.Contract {
	return domainagg.RatingAggregateContract
}

func (a *ratingAggregate) PostReview(ctx context.Context, in domainagg.PostReviewInput) (domainagg.PostReviewResult, error) {
	const op = opPostReview
	out := domainagg.PostReviewResult{}
	if in.UserID == uuid.Nil || in.CourseID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "user_id and course_id are required", nil)
	}
	if !learning.ValidRating(in.Rating) {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "rating must be between 1 and 5", nil)
	}
	comment := strings.TrimSpace(in.Comment)
	if len(comment) > MaxReviewCommentLength {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "comment is too long", nil)
	}
	if a.deps.Courses == nil || a.deps.Reviews == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "rating aggregate repos are not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if _, err := a.deps.Courses.GetByID(dbc, in.CourseID); err != nil {
			return err
		}
		rows, err := a.deps.Reviews.Create(dbc, []*types.Review{{
			UserID:   in.UserID,
			CourseID: in.CourseID,
			Rating:   in.Rating,
			Comment:  comment,
		}})
		if err != nil {
			return err
		}
		if len(rows) != 1 || rows[0] == nil {
			return InvariantError("review insert returned no row")
		}
		// Pure deltas: concurrent folds commute.
		if err := a.deps.Courses.IncrementRating(dbc, in.CourseID, in.Rating); err != nil {
			return err
		}
		course, err := a.deps.Courses.GetByID(dbc, in.CourseID)
		if err != nil {
			return err
		}
		out.Review = rows[0]
		out.TotalReviews = course.TotalReviews
		out.AverageRating = course.AverageRating
		return nil
	})
	if err != nil {
		return domainagg.PostReviewResult{}, err
	}
	a.deps.Base.Hooks.IncEvent(EventReviewed)
	return out, nil
}

// Reconcile recomputes rating_sum/total_reviews from review rows while holding the
// course row lock, and writes them back unless DryRun is set.
func (a *ratingAggregate) Reconcile(ctx context.Context, in domainagg.ReconcileRatingInput) (domainagg.ReconcileRatingResult, error) {
	const op = opReconcileRating
	out := domainagg.ReconcileRatingResult{CourseID: in.CourseID}
	if in.CourseID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "course_id is required", nil)
	}
	if a.deps.Courses == nil || a.deps.Reviews == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "rating aggregate repos are not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		course, err := a.deps.Courses.LockByID(dbc, in.CourseID)
		if err != nil {
			return err
		}
		sum, total, err := a.deps.Reviews.SumByCourse(dbc, in.CourseID)
		if err != nil {
			return err
		}
		out.PreviousSum = course.RatingSum
		out.PreviousTotal = course.TotalReviews
		out.RecomputedSum = sum
		out.RecomputedTotal = total
		out.Changed = sum != course.RatingSum || total != course.TotalReviews
		if !out.Changed || in.DryRun {
			return nil
		}
		return a.deps.Courses.SetRatingCounters(dbc, in.CourseID, sum, total)
	})
	if err != nil {
		return domainagg.ReconcileRatingResult{CourseID: in.CourseID}, err
	}
	if out.Changed && !in.DryRun {
		a.deps.Base.Log.Warn("rating counters repaired",
			"course_id", in.CourseID,
			"previous_sum", out.PreviousSum,
			"previous_total", out.PreviousTotal,
			"sum", out.RecomputedSum,
			"total", out.RecomputedTotal,
		)
	}
	return out, nil
}
