package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Section struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;index:idx_section_course_order,priority:1;column:course_id" json:"course_id"`
	Title     string    `gorm:"not null;column:title" json:"title"`
	Order     int       `gorm:"not null;column:position;index:idx_section_course_order,priority:2" json:"order"`
	LessonSeq int       `gorm:"not null;default:0;column:lesson_seq" json:"-"`

	Lessons []*Lesson `gorm:"-" json:"lessons,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Section) TableName() string { return "section" }

func (s *Section) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
