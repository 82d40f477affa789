package learning

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Progress is one learner's completion state for one course. CompletedLessons is a
// JSON array of lesson ids; Version guards concurrent rewrites of the set.
type Progress struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID      `gorm:"type:uuid;not null;column:user_id;uniqueIndex:idx_progress_user_course,priority:1" json:"user_id"`
	CourseID             uuid.UUID      `gorm:"type:uuid;not null;column:course_id;uniqueIndex:idx_progress_user_course,priority:2;index" json:"course_id"`
	CompletedLessons     datatypes.JSON `gorm:"column:completed_lessons" json:"completed_lessons"`
	Percent              int            `gorm:"not null;default:0;column:percent" json:"percent"`
	IsCompleted          bool           `gorm:"not null;default:false;column:is_completed" json:"is_completed"`
	LastAccessedLessonID *uuid.UUID     `gorm:"type:uuid;column:last_accessed_lesson_id" json:"last_accessed_lesson_id,omitempty"`
	Version              int            `gorm:"not null;default:0;column:version" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime;index" json:"updated_at"`
}

func (Progress) TableName() string { return "progress" }

func (p *Progress) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if len(p.CompletedLessons) == 0 {
		p.CompletedLessons = datatypes.JSON([]byte("[]"))
	}
	return nil
}

// LessonIDs decodes CompletedLessons, dropping entries that are not valid ids.
func (p *Progress) LessonIDs() []uuid.UUID {
	if p == nil || len(p.CompletedLessons) == 0 {
		return []uuid.UUID{}
	}
	var raw []string
	if err := json.Unmarshal(p.CompletedLessons, &raw); err != nil {
		return []uuid.UUID{}
	}
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

func EncodeLessonIDs(ids []uuid.UUID) datatypes.JSON {
	strs := make([]string, 0, len(ids))
	for _, id := range ids {
		strs = append(strs, id.String())
	}
	b, _ := json.Marshal(strs)
	return datatypes.JSON(b)
}

// PercentComplete is round(100*completed/total), 0 when the course has no lessons.
func PercentComplete(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// Toggle flips lessonID's membership in the completed set and prunes ids that are
// not in current. Output order follows current.
func Toggle(completed []uuid.UUID, lessonID uuid.UUID, current []uuid.UUID) []uuid.UUID {
	set := make(map[uuid.UUID]struct{}, len(completed)+1)
	for _, id := range completed {
		set[id] = struct{}{}
	}
	if _, ok := set[lessonID]; ok {
		delete(set, lessonID)
	} else {
		set[lessonID] = struct{}{}
	}
	return Intersect(set, current)
}

// Prune keeps only ids that still belong to the course, in course order.
func Prune(completed []uuid.UUID, current []uuid.UUID) []uuid.UUID {
	set := make(map[uuid.UUID]struct{}, len(completed))
	for _, id := range completed {
		set[id] = struct{}{}
	}
	return Intersect(set, current)
}

func Intersect(set map[uuid.UUID]struct{}, current []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	seen := make(map[uuid.UUID]struct{}, len(current))
	for _, id := range current {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Snapshot is the derived view returned after a toggle or a read.
type Snapshot struct {
	CompletedLessons     []uuid.UUID `json:"completedLessons"`
	Percent              int         `json:"percent"`
	IsCompleted          bool        `json:"isCompleted"`
	LastAccessedLessonID *uuid.UUID  `json:"lastAccessedLessonId,omitempty"`
}

func NewSnapshot(completed []uuid.UUID, totalLessons int, lastAccessed *uuid.UUID) Snapshot {
	if completed == nil {
		completed = []uuid.UUID{}
	}
	pct := PercentComplete(len(completed), totalLessons)
	return Snapshot{
		CompletedLessons:     completed,
		Percent:              pct,
		IsCompleted:          pct == 100,
		LastAccessedLessonID: lastAccessed,
	}
}
