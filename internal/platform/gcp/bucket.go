package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

type BucketCategory string

const (
	// BucketCategoryMedia holds lesson videos and attachments.
	BucketCategoryMedia     BucketCategory = "media"
	BucketCategoryThumbnail BucketCategory = "thumbnail"
)

// BucketService is the storage gateway. Objects are addressed by opaque keys and
// clients only ever see short-lived signed URLs.
type BucketService interface {
	SignedUploadURL(ctx context.Context, category BucketCategory, key, contentType string, ttl time.Duration) (string, error)
	SignedDownloadURL(ctx context.Context, category BucketCategory, key string, ttl time.Duration) (string, error)
	DeleteFile(dbc dbctx.Context, category BucketCategory, key string) error
	DeletePrefix(ctx context.Context, category BucketCategory, prefix string) error
	ListKeys(ctx context.Context, category BucketCategory, prefix string) ([]string, error)
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	cfg           StorageConfig
	now           func() time.Time
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	return NewBucketServiceWithConfig(log, cfg)
}

func NewBucketServiceWithConfig(log *logger.Logger, cfg StorageConfig) (BucketService, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	serviceLog := log.With("service", "BucketService")

	stClient, err := newStorageClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	serviceLog.Info(
		"Object storage initialized",
		"mode", cfg.Mode,
		"compatibility_fallback", cfg.CompatibilityFallback,
		"emulator_host", cfg.EmulatorHost,
		"media_bucket", cfg.MediaBucket,
		"thumbnail_bucket", cfg.ThumbnailBucket,
	)
	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		cfg:           cfg,
		now:           time.Now,
	}, nil
}

func newStorageClient(ctx context.Context, cfg StorageConfig) (*storage.Client, error) {
	if cfg.IsEmulatorMode() {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}
	opts := ClientOptionsFromEnv()
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	return storage.NewClient(ctx, opts...)
}

func (bs *bucketService) bucketName(category BucketCategory) (string, error) {
	switch category {
	case BucketCategoryMedia:
		return bs.cfg.MediaBucket, nil
	case BucketCategoryThumbnail:
		return bs.cfg.ThumbnailBucket, nil
	default:
		return "", fmt.Errorf("unknown bucket category: %s", category)
	}
}

func (bs *bucketService) SignedUploadURL(ctx context.Context, category BucketCategory, key, contentType string, ttl time.Duration) (string, error) {
	name, err := bs.bucketName(category)
	if err != nil {
		return "", err
	}
	key, err = normalizeKey(key)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = ContentTypeForKey(key)
	}
	if bs.cfg.IsEmulatorMode() {
		// fake-gcs does not verify signatures; clients POST the body to the media upload endpoint.
		return emulatorUploadURL(bs.cfg.EmulatorHost, name, key), nil
	}
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodPut,
		Expires: bs.now().Add(ttl),
	}
	if contentType != "" {
		opts.ContentType = contentType
	}
	if bs.cfg.SignerEmail != "" {
		opts.GoogleAccessID = bs.cfg.SignerEmail
	}
	u, err := bs.storageClient.Bucket(name).SignedURL(key, opts)
	if err != nil {
		return "", fmt.Errorf("sign upload url for %q: %w", key, err)
	}
	return u, nil
}

func (bs *bucketService) SignedDownloadURL(ctx context.Context, category BucketCategory, key string, ttl time.Duration) (string, error) {
	name, err := bs.bucketName(category)
	if err != nil {
		return "", err
	}
	key, err = normalizeKey(key)
	if err != nil {
		return "", err
	}
	if bs.cfg.IsEmulatorMode() {
		return emulatorMediaURL(bs.cfg.EmulatorHost, name, key), nil
	}
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: bs.now().Add(ttl),
	}
	if bs.cfg.SignerEmail != "" {
		opts.GoogleAccessID = bs.cfg.SignerEmail
	}
	u, err := bs.storageClient.Bucket(name).SignedURL(key, opts)
	if err != nil {
		return "", fmt.Errorf("sign download url for %q: %w", key, err)
	}
	return u, nil
}

func (bs *bucketService) DeleteFile(dbc dbctx.Context, category BucketCategory, key string) error {
	name, err := bs.bucketName(category)
	if err != nil {
		return err
	}
	key, err = normalizeKey(key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(dbc.Context(), 30*time.Second)
	defer cancel()
	if err := bs.storageClient.Bucket(name).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, name, err)
	}
	return nil
}

func (bs *bucketService) ListKeys(ctx context.Context, category BucketCategory, prefix string) ([]string, error) {
	name, err := bs.bucketName(category)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	it := bs.storageClient.Bucket(name).Objects(ctx, &storage.Query{Prefix: prefix})
	out := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

// DeletePrefix removes every object under prefix, continuing past individual failures.
func (bs *bucketService) DeletePrefix(ctx context.Context, category BucketCategory, prefix string) error {
	if strings.Trim(prefix, "/ ") == "" {
		return fmt.Errorf("refusing to delete empty prefix")
	}
	keys, err := bs.ListKeys(ctx, category, prefix)
	if err != nil {
		return err
	}
	var errs []error
	for _, k := range keys {
		if err := bs.DeleteFile(dbctx.Context{Ctx: ctx}, category, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("object key required")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return key, nil
}

func emulatorUploadURL(host, bucket, key string) string {
	q := url.Values{}
	q.Set("uploadType", "media")
	q.Set("name", key)
	return fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", strings.TrimRight(host, "/"), url.PathEscape(bucket), q.Encode())
}

func emulatorMediaURL(host, bucket, key string) string {
	return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", strings.TrimRight(host, "/"), url.PathEscape(bucket), url.PathEscape(key))
}
