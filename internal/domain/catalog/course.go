package catalog

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Course carries the ledger counters. AverageRating is derived from RatingSum and
// TotalReviews on load and is never written.
type Course struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	InstructorID uuid.UUID `gorm:"type:uuid;not null;index;column:instructor_id" json:"instructor_id"`
	Title        string    `gorm:"not null;column:title" json:"title"`
	Description  string    `gorm:"column:description" json:"description"`
	Category     string    `gorm:"column:category;index" json:"category"`
	PriceCents   int64     `gorm:"not null;default:0;column:price_cents;check:price_cents >= 0" json:"price_cents"`
	IsPublished  bool      `gorm:"not null;default:false;column:is_published;index" json:"is_published"`
	ThumbnailKey string    `gorm:"column:thumbnail_key" json:"thumbnail_key,omitempty"`

	RatingSum    int64 `gorm:"not null;default:0;column:rating_sum" json:"rating_sum"`
	TotalReviews int64 `gorm:"not null;default:0;column:total_reviews" json:"total_reviews"`
	StudentCount int64 `gorm:"not null;default:0;column:student_count" json:"student_count"`
	SectionSeq   int   `gorm:"not null;default:0;column:section_seq" json:"-"`

	AverageRating float64 `gorm:"-" json:"average_rating"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *Course) AfterFind(*gorm.DB) error {
	c.AverageRating = AverageRating(c.RatingSum, c.TotalReviews)
	return nil
}

// AverageRating rounds sum/total to one decimal; 0 when there are no reviews.
func AverageRating(sum, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(total)*10) / 10
}

// StoragePrefix is the object key prefix every file of the course lives under.
func StoragePrefix(courseID uuid.UUID) string {
	return "courses/" + courseID.String() + "/"
}
