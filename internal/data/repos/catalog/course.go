package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursemarket-backend/internal/domain"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

type ListPublishedFilter struct {
	Category string
	Limit    int
	Offset   int
}

// InstructorStats sums the counters of every course an instructor owns.
type InstructorStats struct {
	Total        int64
	Published    int64
	RatingSum    int64
	TotalReviews int64
	StudentCount int64
}

type CourseRepo interface {
	Create(dbc dbctx.Context, courses []*types.Course) ([]*types.Course, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Course, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error)
	ListPublished(dbc dbctx.Context, f ListPublishedFilter) ([]*types.Course, int64, error)
	ListByInstructor(dbc dbctx.Context, instructorID uuid.UUID, limit int) ([]*types.Course, error)
	ListIDs(dbc dbctx.Context) ([]uuid.UUID, error)
	InstructorStats(dbc dbctx.Context, instructorID uuid.UUID) (InstructorStats, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	IncrementStudentCount(dbc dbctx.Context, id uuid.UUID, delta int64) error
	IncrementRating(dbc dbctx.Context, id uuid.UUID, rating int) error
	SetRatingCounters(dbc dbctx.Context, id uuid.UUID, sum, total int64) error
	NextSectionOrder(dbc dbctx.Context, id uuid.UUID) (int, error)
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

func (r *courseRepo) Create(dbc dbctx.Context, courses []*types.Course) ([]*types.Course, error) {
	if len(courses) == 0 {
		return []*types.Course{}, nil
	}
	if err := dbc.DB(r.db).Create(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error) {
	var out types.Course
	if err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *courseRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Course, error) {
	var results []*types.Course
	if len(ids) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID required dbc.Tx")
	}
	var out types.Course
	if err := dbc.Tx.WithContext(dbc.Context()).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *courseRepo) ListPublished(dbc dbctx.Context, f ListPublishedFilter) ([]*types.Course, int64, error) {
	base := func() *gorm.DB {
		q := dbc.DB(r.db).Model(&types.Course{}).Where("is_published = ?", true)
		if c := strings.TrimSpace(f.Category); c != "" {
			q = q.Where("category = ?", c)
		}
		return q
	}
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	var results []*types.Course
	if err := base().Order("created_at DESC").
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *courseRepo) ListByInstructor(dbc dbctx.Context, instructorID uuid.UUID, limit int) ([]*types.Course, error) {
	var results []*types.Course
	q := dbc.DB(r.db).
		Where("instructor_id = ?", instructorID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) ListIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := dbc.DB(r.db).
		Model(&types.Course{}).
		Order("created_at").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *courseRepo) InstructorStats(dbc dbctx.Context, instructorID uuid.UUID) (InstructorStats, error) {
	var row struct {
		Total        int64
		Published    int64
		RatingSum    int64
		TotalReviews int64
		StudentCount int64
	}
	err := dbc.DB(r.db).
		Model(&types.Course{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN is_published THEN 1 ELSE 0 END), 0) AS published,
			COALESCE(SUM(rating_sum), 0) AS rating_sum,
			COALESCE(SUM(total_reviews), 0) AS total_reviews,
			COALESCE(SUM(student_count), 0) AS student_count`).
		Where("instructor_id = ?", instructorID).
		Scan(&row).Error
	if err != nil {
		return InstructorStats{}, err
	}
	return InstructorStats(row), nil
}

func (r *courseRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now().UTC()
	return dbc.DB(r.db).
		Model(&types.Course{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// IncrementStudentCount applies delta in SQL so concurrent enrollments commute.
func (r *courseRepo) IncrementStudentCount(dbc dbctx.Context, id uuid.UUID, delta int64) error {
	res := dbc.DB(r.db).
		Model(&types.Course{}).
		Where("id = ?", id).
		UpdateColumn("student_count", gorm.Expr("student_count + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *courseRepo) IncrementRating(dbc dbctx.Context, id uuid.UUID, rating int) error {
	res := dbc.DB(r.db).
		Model(&types.Course{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"rating_sum":    gorm.Expr("rating_sum + ?", rating),
			"total_reviews": gorm.Expr("total_reviews + ?", 1),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *courseRepo) SetRatingCounters(dbc dbctx.Context, id uuid.UUID, sum, total int64) error {
	return dbc.DB(r.db).
		Model(&types.Course{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"rating_sum":    sum,
			"total_reviews": total,
		}).Error
}

// NextSectionOrder bumps the course's section counter and returns the new value.
// Callers hold the course row lock.
func (r *courseRepo) NextSectionOrder(dbc dbctx.Context, id uuid.UUID) (int, error) {
	db := dbc.DB(r.db)
	if err := db.Model(&types.Course{}).
		Where("id = ?", id).
		UpdateColumn("section_seq", gorm.Expr("section_seq + ?", 1)).Error; err != nil {
		return 0, err
	}
	var seqs []int
	if err := db.Model(&types.Course{}).
		Where("id = ?", id).
		Pluck("section_seq", &seqs).Error; err != nil {
		return 0, err
	}
	if len(seqs) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return seqs[0], nil
}

func (r *courseRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("id IN ?", ids).
		Delete(&types.Course{}).Error
}
