package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursemarket-backend/internal/domain"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

type EnrollmentRepo interface {
	Create(dbc dbctx.Context, rows []*types.Enrollment) ([]*types.Enrollment, error)
	Exists(dbc dbctx.Context, userID, courseID uuid.UUID) (bool, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Enrollment, error)
	ListByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID, limit int) ([]*types.Enrollment, error)
	CountByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) (int64, error)
	CountDistinctUsersByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) (int64, error)
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{db: db, log: baseLog.With("repo", "EnrollmentRepo")}
}

// Create inserts rows as-is; the (user_id, course_id) unique index rejects duplicates.
func (r *enrollmentRepo) Create(dbc dbctx.Context, rows []*types.Enrollment) ([]*types.Enrollment, error) {
	if len(rows) == 0 {
		return []*types.Enrollment{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *enrollmentRepo) Exists(dbc dbctx.Context, userID, courseID uuid.UUID) (bool, error) {
	var n int64
	if err := dbc.DB(r.db).
		Model(&types.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListByUser returns the user's enrollments newest first; limit <= 0 means all.
func (r *enrollmentRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Enrollment, error) {
	var out []*types.Enrollment
	q := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *enrollmentRepo) ListByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID, limit int) ([]*types.Enrollment, error) {
	var out []*types.Enrollment
	if len(courseIDs) == 0 {
		return out, nil
	}
	q := dbc.DB(r.db).
		Where("course_id IN ?", courseIDs).
		Order("created_at DESC").
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *enrollmentRepo) CountByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) (int64, error) {
	if len(courseIDs) == 0 {
		return 0, nil
	}
	var n int64
	if err := dbc.DB(r.db).
		Model(&types.Enrollment{}).
		Where("course_id IN ?", courseIDs).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *enrollmentRepo) CountDistinctUsersByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) (int64, error) {
	if len(courseIDs) == 0 {
		return 0, nil
	}
	var n int64
	if err := dbc.DB(r.db).
		Model(&types.Enrollment{}).
		Where("course_id IN ?", courseIDs).
		Distinct("user_id").
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
