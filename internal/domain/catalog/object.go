package catalog

import (
	"strings"

	"github.com/google/uuid"
)

const (
	ObjectCategoryMedia     = "media"
	ObjectCategoryThumbnail = "thumbnail"
)

// ObjectRef addresses one stored object by bucket category and key.
type ObjectRef struct {
	Category string
	Key      string
}

func MediaObjects(keys ...string) []ObjectRef {
	out := make([]ObjectRef, 0, len(keys))
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			continue
		}
		out = append(out, ObjectRef{Category: ObjectCategoryMedia, Key: k})
	}
	return out
}

// KeyInCourse reports whether key lives under the course's storage prefix.
func KeyInCourse(courseID uuid.UUID, key string) bool {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" || strings.Contains(key, "..") {
		return false
	}
	prefix := StoragePrefix(courseID)
	return strings.HasPrefix(key, prefix) && len(key) > len(prefix)
}

func LessonObjectPrefix(courseID uuid.UUID) string {
	return StoragePrefix(courseID) + "lessons/"
}

func ThumbnailObjectPrefix(courseID uuid.UUID) string {
	return StoragePrefix(courseID) + "thumbnail/"
}
