package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/coursemarket-backend/internal/data/repos"
	types "github.com/yungbote/coursemarket-backend/internal/domain"
	domainagg "github.com/yungbote/coursemarket-backend/internal/domain/aggregates"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
)

const (
	opEnroll = "Ledger.Enrollment.Enroll"

	EventEnrolled = "enrolled"
)

type EnrollmentAggregateDeps struct {
	Base        BaseDeps
	Courses     repos.CourseRepo
	Enrollments repos.EnrollmentRepo
}

type enrollmentAggregate struct {
	deps EnrollmentAggregateDeps
}

func NewEnrollmentAggregate(deps EnrollmentAggregateDeps) domainagg.EnrollmentAggregate {
	deps.Base = deps.Base.withDefaults()
	return &enrollmentAggregate{deps: deps}
}

func (a *enrollmentAggregate) Contract() domainagg.Contract {
	return domainagg.EnrollmentAggregateContract
}

func (a *enrollmentAggregate) Enroll(ctx context.Context, in domainagg.EnrollInput) (domainagg.EnrollResult, error) {
	const op = opEnroll
	out := domainagg.EnrollResult{}
	if in.UserID == uuid.Nil || in.CourseID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "user_id and course_id are required", nil)
	}
	if a.deps.Courses == nil || a.deps.Enrollments == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "enrollment aggregate repos are not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if _, err := a.deps.Courses.GetByID(dbc, in.CourseID); err != nil {
			return err
		}
		rows, err := a.deps.Enrollments.Create(dbc, []*types.Enrollment{{
			UserID:   in.UserID,
			CourseID: in.CourseID,
		}})
		if err != nil {
			return err
		}
		if len(rows) != 1 || rows[0] == nil {
			return InvariantError("enrollment insert returned no row")
		}
		if err := a.deps.Courses.IncrementStudentCount(dbc, in.CourseID, 1); err != nil {
			return err
		}
		out.Enrollment = rows[0]
		return nil
	})
	if err != nil {
		return domainagg.EnrollResult{}, err
	}
	a.deps.Base.Hooks.IncEvent(EventEnrolled)
	return out, nil
}
