package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursemarket-backend/internal/data/repos"
	domainagg "github.com/yungbote/coursemarket-backend/internal/domain/aggregates"
	"github.com/yungbote/coursemarket-backend/internal/domain/learning"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
)

const (
	opToggleLesson    = "Ledger.Progress.ToggleLesson"
	opSetLastAccessed = "Ledger.Progress.SetLastAccessed"

	EventLessonToggled = "lesson_toggled"
)

type ProgressAggregateDeps struct {
	Base     BaseDeps
	Lessons  repos.LessonRepo
	Progress repos.ProgressRepo
}

type progressAggregate struct {
	deps ProgressAggregateDeps
}

func NewProgressAggregate(deps ProgressAggregateDeps) domainagg.ProgressAggregate {
	deps.Base = deps.Base.withDefaults()
	return &progressAggregate{deps: deps}
}

func (a *progressAggregate) Contract() domainagg.Contract {
	return domainagg.ProgressAggregateContract
}

func (a *progressAggregate) ToggleLesson(ctx context.Context, in domainagg.ToggleLessonInput) (domainagg.ToggleLessonResult, error) {
	const op = opToggleLesson
	out := domainagg.ToggleLessonResult{}
	if in.UserID == uuid.Nil || in.CourseID == uuid.Nil || in.LessonID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "user_id, course_id and lesson_id are required", nil)
	}
	if a.deps.Lessons == nil || a.deps.Progress == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "progress aggregate repos are not configured", nil)
	}

	attempts, err := executeWriteWithRetry(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.requireLessonInCourse(dbc, op, in.CourseID, in.LessonID); err != nil {
			return err
		}
		row, err := a.deps.Progress.Ensure(dbc, in.UserID, in.CourseID)
		if err != nil {
			return err
		}
		current, err := a.deps.Lessons.ListIDsByCourse(dbc, in.CourseID)
		if err != nil {
			return err
		}
		next := learning.Toggle(row.LessonIDs(), in.LessonID, current)
		snap := learning.NewSnapshot(next, len(current), row.LastAccessedLessonID)

		ok, err := a.deps.Base.CASGuard.UpdateByVersion(dbc, "progress", row.ID, row.Version, map[string]any{
			"completed_lessons": learning.EncodeLessonIDs(next),
			"percent":           snap.Percent,
			"is_completed":      snap.IsCompleted,
			"version":           row.Version + 1,
			"updated_at":        time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "progress version changed during toggle"); err != nil {
			return err
		}
		out.Snapshot = snap
		out.Completed = containsID(next, in.LessonID)
		return nil
	})
	if err != nil {
		return domainagg.ToggleLessonResult{}, err
	}
	out.Attempts = attempts
	a.deps.Base.Hooks.IncEvent(EventLessonToggled)
	return out, nil
}

func (a *progressAggregate) SetLastAccessed(ctx context.Context, in domainagg.SetLastAccessedInput) (learning.Snapshot, error) {
	const op = opSetLastAccessed
	var out learning.Snapshot
	if in.UserID == uuid.Nil || in.CourseID == uuid.Nil || in.LessonID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "user_id, course_id and lesson_id are required", nil)
	}
	if a.deps.Lessons == nil || a.deps.Progress == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "progress aggregate repos are not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.requireLessonInCourse(dbc, op, in.CourseID, in.LessonID); err != nil {
			return err
		}
		row, err := a.deps.Progress.Ensure(dbc, in.UserID, in.CourseID)
		if err != nil {
			return err
		}
		if err := a.deps.Progress.SetLastAccessed(dbc, row.ID, in.LessonID); err != nil {
			return err
		}
		current, err := a.deps.Lessons.ListIDsByCourse(dbc, in.CourseID)
		if err != nil {
			return err
		}
		lessonID := in.LessonID
		out = learning.NewSnapshot(learning.Prune(row.LessonIDs(), current), len(current), &lessonID)
		return nil
	})
	if err != nil {
		return learning.Snapshot{}, err
	}
	return out, nil
}

func (a *progressAggregate) requireLessonInCourse(dbc dbctx.Context, op string, courseID, lessonID uuid.UUID) error {
	lesson, err := a.deps.Lessons.GetByID(dbc, lessonID)
	if err != nil {
		return err
	}
	if lesson.CourseID != courseID {
		return domainagg.NewError(domainagg.CodeNotFound, op, "lesson does not belong to course", nil)
	}
	return nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
