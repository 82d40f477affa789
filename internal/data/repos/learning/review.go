package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursemarket-backend/internal/domain"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

type ReviewRepo interface {
	Create(dbc dbctx.Context, rows []*types.Review) ([]*types.Review, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID, limit, offset int) ([]*types.Review, error)
	SumByCourse(dbc dbctx.Context, courseID uuid.UUID) (sum int64, count int64, err error)
}

type reviewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewRepo(db *gorm.DB, baseLog *logger.Logger) ReviewRepo {
	return &reviewRepo{db: db, log: baseLog.With("repo", "ReviewRepo")}
}

func (r *reviewRepo) Create(dbc dbctx.Context, rows []*types.Review) ([]*types.Review, error) {
	if len(rows) == 0 {
		return []*types.Review{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByCourse returns reviews newest first.
func (r *reviewRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID, limit, offset int) ([]*types.Review, error) {
	var out []*types.Review
	q := dbc.DB(r.db).
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *reviewRepo) SumByCourse(dbc dbctx.Context, courseID uuid.UUID) (int64, int64, error) {
	var row struct {
		Total int64
		Cnt   int64
	}
	if err := dbc.DB(r.db).
		Model(&types.Review{}).
		Select("COALESCE(SUM(rating), 0) AS total, COUNT(*) AS cnt").
		Where("course_id = ?", courseID).
		Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	return row.Total, row.Cnt, nil
}
