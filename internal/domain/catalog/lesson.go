package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Lesson struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID      uuid.UUID `gorm:"type:uuid;not null;index;column:course_id" json:"course_id"`
	SectionID     uuid.UUID `gorm:"type:uuid;not null;index:idx_lesson_section_order,priority:1;column:section_id" json:"section_id"`
	Title         string    `gorm:"not null;column:title" json:"title"`
	Order         int       `gorm:"not null;column:position;index:idx_lesson_section_order,priority:2" json:"order"`
	VideoKey      string    `gorm:"column:video_key" json:"-"`
	AttachmentKey string    `gorm:"column:attachment_key" json:"-"`
	HasVideo      bool      `gorm:"-" json:"has_video"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }

func (l *Lesson) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (l *Lesson) AfterFind(*gorm.DB) error {
	l.HasVideo = l.VideoKey != ""
	return nil
}

// StorageKeys lists the non-empty object keys owned by the lesson.
func (l *Lesson) StorageKeys() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, 2)
	if l.VideoKey != "" {
		out = append(out, l.VideoKey)
	}
	if l.AttachmentKey != "" {
		out = append(out, l.AttachmentKey)
	}
	return out
}
