package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAverageRating(t *testing.T) {
	assert.Equal(t, 0.0, AverageRating(0, 0))
	assert.Equal(t, 0.0, AverageRating(7, 0))
	assert.Equal(t, 3.0, AverageRating(6, 2))
	assert.Equal(t, 4.3, AverageRating(13, 3))
	assert.Equal(t, 5.0, AverageRating(15, 3))
}

func TestCourseAfterFindDerivesAverage(t *testing.T) {
	c := &Course{RatingSum: 9, TotalReviews: 2}
	_ = c.AfterFind(nil)
	assert.Equal(t, 4.5, c.AverageRating)
}

func TestStoragePrefix(t *testing.T) {
	id := uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")
	assert.Equal(t, "courses/7c9e6679-7425-40de-944b-e07fc1f90ae7/", StoragePrefix(id))
}

func TestLessonStorageKeys(t *testing.T) {
	l := &Lesson{VideoKey: "v", AttachmentKey: ""}
	assert.Equal(t, []string{"v"}, l.StorageKeys())
	var nilLesson *Lesson
	assert.Nil(t, nilLesson.StorageKeys())
}

func TestKeyInCourse(t *testing.T) {
	id := uuid.New()
	other := uuid.New()
	assert.True(t, KeyInCourse(id, LessonObjectPrefix(id)+"x/video.mp4"))
	assert.True(t, KeyInCourse(id, "/"+ThumbnailObjectPrefix(id)+"a.png"))
	assert.False(t, KeyInCourse(id, StoragePrefix(id)))
	assert.False(t, KeyInCourse(id, LessonObjectPrefix(other)+"x/video.mp4"))
	assert.False(t, KeyInCourse(id, StoragePrefix(id)+"../"+other.String()+"/v.mp4"))
	assert.False(t, KeyInCourse(id, ""))
}

func TestMediaObjectsSkipsEmpty(t *testing.T) {
	refs := MediaObjects("a", "", " ", "b")
	assert.Equal(t, []ObjectRef{{Category: ObjectCategoryMedia, Key: "a"}, {Category: ObjectCategoryMedia, Key: "b"}}, refs)
}
