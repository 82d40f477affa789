package learning

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursemarket-backend/internal/domain"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

type ProgressRepo interface {
	// Ensure creates an empty record for (user, course) unless one exists, then returns it.
	Ensure(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Progress, error)
	GetByUserCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Progress, error)
	ListByUserAndCourseIDs(dbc dbctx.Context, userID uuid.UUID, courseIDs []uuid.UUID) ([]*types.Progress, error)
	SetLastAccessed(dbc dbctx.Context, id uuid.UUID, lessonID uuid.UUID) error
}

type progressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	return &progressRepo{db: db, log: baseLog.With("repo", "ProgressRepo")}
}

func (r *progressRepo) Ensure(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Progress, error) {
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, fmt.Errorf("missing user or course id")
	}
	db := dbc.DB(r.db)
	row := &types.Progress{
		ID:               uuid.New(),
		UserID:           userID,
		CourseID:         courseID,
		CompletedLessons: datatypes.JSON([]byte("[]")),
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(row).Error; err != nil {
		return nil, err
	}
	var out types.Progress
	if err := db.Where("user_id = ? AND course_id = ?", userID, courseID).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *progressRepo) GetByUserCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Progress, error) {
	var out types.Progress
	if err := dbc.DB(r.db).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *progressRepo) ListByUserAndCourseIDs(dbc dbctx.Context, userID uuid.UUID, courseIDs []uuid.UUID) ([]*types.Progress, error) {
	var out []*types.Progress
	if len(courseIDs) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ? AND course_id IN ?", userID, courseIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SetLastAccessed writes the bookmark column only; the version is left alone so a
// concurrent toggle is not forced to retry.
func (r *progressRepo) SetLastAccessed(dbc dbctx.Context, id uuid.UUID, lessonID uuid.UUID) error {
	return dbc.DB(r.db).
		Model(&types.Progress{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"last_accessed_lesson_id": lessonID,
			"updated_at":              time.Now().UTC(),
		}).Error
}
