package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursemarket-backend/internal/domain"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

// LessonRepo exposes the ledger-facing reads (CountByCourse, ListIDsByCourse) and
// the catalog writes for lessons.
type LessonRepo interface {
	Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lesson, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Lesson, error)
	ListBySection(dbc dbctx.Context, sectionID uuid.UUID) ([]*types.Lesson, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Lesson, error)
	ListIDsByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]uuid.UUID, error)
	ListIDsByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
	CountByCourse(dbc dbctx.Context, courseID uuid.UUID) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	DeleteBySectionID(dbc dbctx.Context, sectionID uuid.UUID) error
	DeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error) {
	if len(lessons) == 0 {
		return []*types.Lesson{}, nil
	}
	if err := dbc.DB(r.db).Create(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *lessonRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lesson, error) {
	var out types.Lesson
	if err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *lessonRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Lesson, error) {
	var results []*types.Lesson
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

func (r *lessonRepo) ListBySection(dbc dbctx.Context, sectionID uuid.UUID) ([]*types.Lesson, error) {
	var results []*types.Lesson
	if err := dbc.DB(r.db).
		Where("section_id = ?", sectionID).
		Order("position").
		Order("created_at").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListByCourse returns every lesson of the course in curriculum order: section
// (order, created_at) first, then lesson (order, created_at).
func (r *lessonRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Lesson, error) {
	var results []*types.Lesson
	if err := dbc.DB(r.db).
		Select("lesson.*").
		Joins("JOIN section ON section.id = lesson.section_id").
		Where("lesson.course_id = ?", courseID).
		Order("section.position").
		Order("section.created_at").
		Order("lesson.position").
		Order("lesson.created_at").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListIDsByCourse reads the current lesson ids fresh from the store.
func (r *lessonRepo) ListIDsByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := dbc.DB(r.db).
		Model(&types.Lesson{}).
		Joins("JOIN section ON section.id = lesson.section_id").
		Where("lesson.course_id = ?", courseID).
		Order("section.position").
		Order("section.created_at").
		Order("lesson.position").
		Order("lesson.created_at").
		Pluck("lesson.id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ListIDsByCourseIDs is ListIDsByCourse for several courses in one query. Courses
// without lessons are absent from the map.
func (r *lessonRepo) ListIDsByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	out := make(map[uuid.UUID][]uuid.UUID, len(courseIDs))
	if len(courseIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ID       uuid.UUID
		CourseID uuid.UUID
	}
	if err := dbc.DB(r.db).
		Model(&types.Lesson{}).
		Select("lesson.id AS id, lesson.course_id AS course_id").
		Joins("JOIN section ON section.id = lesson.section_id").
		Where("lesson.course_id IN ?", courseIDs).
		Order("section.position").
		Order("section.created_at").
		Order("lesson.position").
		Order("lesson.created_at").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.CourseID] = append(out[row.CourseID], row.ID)
	}
	return out, nil
}

func (r *lessonRepo) CountByCourse(dbc dbctx.Context, courseID uuid.UUID) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).
		Model(&types.Lesson{}).
		Where("course_id = ?", courseID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *lessonRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now().UTC()
	return dbc.DB(r.db).
		Model(&types.Lesson{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *lessonRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("id IN ?", ids).
		Delete(&types.Lesson{}).Error
}

func (r *lessonRepo) DeleteBySectionID(dbc dbctx.Context, sectionID uuid.UUID) error {
	return dbc.DB(r.db).
		Where("section_id = ?", sectionID).
		Delete(&types.Lesson{}).Error
}

func (r *lessonRepo) DeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error {
	return dbc.DB(r.db).
		Where("course_id = ?", courseID).
		Delete(&types.Lesson{}).Error
}
