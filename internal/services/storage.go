package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coursemarket-backend/internal/domain/catalog"
	"github.com/yungbote/coursemarket-backend/internal/observability"
	"github.com/yungbote/coursemarket-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
	"github.com/yungbote/coursemarket-backend/internal/platform/envutil"
	"github.com/yungbote/coursemarket-backend/internal/platform/gcp"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

// URLTTLs bounds the lifetime of signed URLs handed to clients.
type URLTTLs struct {
	Playback        time.Duration
	LessonUpload    time.Duration
	ThumbnailUpload time.Duration
}

func URLTTLsFromEnv() URLTTLs {
	return URLTTLs{
		Playback:        envutil.Seconds("PLAYBACK_URL_TTL", time.Hour),
		LessonUpload:    envutil.Seconds("LESSON_UPLOAD_URL_TTL", 15*time.Minute),
		ThumbnailUpload: envutil.Seconds("THUMBNAIL_UPLOAD_URL_TTL", 5*time.Minute),
	}
}

func (t URLTTLs) withDefaults() URLTTLs {
	if t.Playback <= 0 {
		t.Playback = time.Hour
	}
	if t.LessonUpload <= 0 {
		t.LessonUpload = 15 * time.Minute
	}
	if t.ThumbnailUpload <= 0 {
		t.ThumbnailUpload = 5 * time.Minute
	}
	return t
}

// UploadTarget is one pre-signed PUT the client performs before confirming the key.
type UploadTarget struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// lessonObjectKey builds courses/<course>/lessons/<uuid>/<file>.
func lessonObjectKey(courseID uuid.UUID, fileName string) string {
	return catalog.LessonObjectPrefix(courseID) + uuid.NewString() + "/" + safeFileName(fileName, "file")
}

// thumbnailObjectKey builds courses/<course>/thumbnail/<uuid><ext>.
func thumbnailObjectKey(courseID uuid.UUID, fileName string) string {
	ext := strings.ToLower(path.Ext(safeFileName(fileName, "")))
	return catalog.ThumbnailObjectPrefix(courseID) + uuid.NewString() + ext
}

func safeFileName(name, fallback string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" || name == ".." {
		return fallback
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return fallback
	}
	return out
}

func bucketCategory(category string) gcp.BucketCategory {
	if category == catalog.ObjectCategoryThumbnail {
		return gcp.BucketCategoryThumbnail
	}
	return gcp.BucketCategoryMedia
}

// objectJanitor deletes objects orphaned by a committed metadata change. Failures
// are logged and counted, never returned.
type objectJanitor struct {
	log     *logger.Logger
	bucket  gcp.BucketService
	metrics *observability.Metrics
}

func (j objectJanitor) cleanup(ctx context.Context, refs []catalog.ObjectRef, prefix string) {
	if j.bucket == nil {
		return
	}
	bg := ctxutil.Default(ctx)
	for _, ref := range refs {
		if ref.Key == "" {
			continue
		}
		if err := j.bucket.DeleteFile(dbctx.Context{Ctx: bg}, bucketCategory(ref.Category), ref.Key); err != nil {
			j.log.Warn("Best-effort object delete failed", "category", ref.Category, "key", ref.Key, "error", err)
			j.metrics.IncStorageCleanupFailure(ref.Category)
		}
	}
	if prefix == "" {
		return
	}
	for _, cat := range []gcp.BucketCategory{gcp.BucketCategoryMedia, gcp.BucketCategoryThumbnail} {
		if err := j.bucket.DeletePrefix(bg, cat, prefix); err != nil {
			j.log.Warn("Best-effort prefix delete failed", "category", cat, "prefix", prefix, "error", err)
			j.metrics.IncStorageCleanupFailure(string(cat))
		}
	}
}

func (j objectJanitor) signDownload(ctx context.Context, category gcp.BucketCategory, key string, ttl time.Duration) (string, error) {
	if j.bucket == nil {
		return "", fmt.Errorf("object storage not configured")
	}
	return j.bucket.SignedDownloadURL(ctx, category, key, ttl)
}

// thumbnailURL signs a thumbnail for display; failures yield "" and a debug log.
func (j objectJanitor) thumbnailURL(ctx context.Context, key string, ttl time.Duration) string {
	if key == "" || j.bucket == nil {
		return ""
	}
	u, err := j.bucket.SignedDownloadURL(ctx, gcp.BucketCategoryThumbnail, key, ttl)
	if err != nil {
		j.log.Debug("Thumbnail URL signing failed", "key", key, "error", err)
		return ""
	}
	return u
}

func trim(s string) string { return strings.TrimSpace(s) }
