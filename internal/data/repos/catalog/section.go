package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursemarket-backend/internal/domain"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

type SectionRepo interface {
	Create(dbc dbctx.Context, sections []*types.Section) ([]*types.Section, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Section, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Section, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Section, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	NextLessonOrder(dbc dbctx.Context, id uuid.UUID) (int, error)
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	DeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error
}

type sectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSectionRepo(db *gorm.DB, baseLog *logger.Logger) SectionRepo {
	return &sectionRepo{db: db, log: baseLog.With("repo", "SectionRepo")}
}

func (r *sectionRepo) Create(dbc dbctx.Context, sections []*types.Section) ([]*types.Section, error) {
	if len(sections) == 0 {
		return []*types.Section{}, nil
	}
	if err := dbc.DB(r.db).Create(&sections).Error; err != nil {
		return nil, err
	}
	return sections, nil
}

func (r *sectionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Section, error) {
	var out types.Section
	if err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sectionRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Section, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID required dbc.Tx")
	}
	var out types.Section
	if err := dbc.Tx.WithContext(dbc.Context()).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByCourse returns the course's sections by (order, created_at).
func (r *sectionRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Section, error) {
	var results []*types.Section
	if err := dbc.DB(r.db).
		Where("course_id = ?", courseID).
		Order("position").
		Order("created_at").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *sectionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now().UTC()
	return dbc.DB(r.db).
		Model(&types.Section{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// NextLessonOrder bumps the section's lesson counter. Callers hold the course row lock.
func (r *sectionRepo) NextLessonOrder(dbc dbctx.Context, id uuid.UUID) (int, error) {
	db := dbc.DB(r.db)
	if err := db.Model(&types.Section{}).
		Where("id = ?", id).
		UpdateColumn("lesson_seq", gorm.Expr("lesson_seq + ?", 1)).Error; err != nil {
		return 0, err
	}
	var seqs []int
	if err := db.Model(&types.Section{}).
		Where("id = ?", id).
		Pluck("lesson_seq", &seqs).Error; err != nil {
		return 0, err
	}
	if len(seqs) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return seqs[0], nil
}

func (r *sectionRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("id IN ?", ids).
		Delete(&types.Section{}).Error
}

func (r *sectionRepo) DeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error {
	return dbc.DB(r.db).
		Where("course_id = ?", courseID).
		Delete(&types.Section{}).Error
}
