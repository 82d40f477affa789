package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
	"github.com/yungbote/coursemarket-backend/internal/platform/gcp"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

func storageTestConfig(mode, emulatorHost string) Config {
	return Config{
		ObjectStorageMode:   mode,
		StorageEmulatorHost: emulatorHost,
		MediaBucket:         "media",
		ThumbnailBucket:     "thumbs",
	}
}

func stubBucketFactory(t *testing.T) (*gcp.StorageConfig, gcp.BucketService) {
	t.Helper()
	orig := newBucketServiceWithConfig
	t.Cleanup(func() { newBucketServiceWithConfig = orig })

	captured := &gcp.StorageConfig{}
	expected := &testBucketService{}
	newBucketServiceWithConfig = func(_ *logger.Logger, cfg gcp.StorageConfig) (gcp.BucketService, error) {
		*captured = cfg
		return expected, nil
	}
	return captured, expected
}

func requireBootstrapCode(t *testing.T, err error, want StorageProviderBootstrapErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	var got *StorageProviderBootstrapError
	if !errors.As(err, &got) {
		t.Fatalf("expected StorageProviderBootstrapError, got=%T", err)
	}
	if got.Code != want {
		t.Fatalf("code: want=%q got=%q", want, got.Code)
	}
}

func TestClassifyStorageProviderBootstrapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want StorageProviderBootstrapErrorCode
	}{
		{"invalid mode", &gcp.ConfigError{Code: gcp.ConfigErrorInvalidMode, Value: "bad"}, StorageProviderBootstrapErrorInvalidMode},
		{"missing emulator host", &gcp.ConfigError{Code: gcp.ConfigErrorMissingEmulatorHost}, StorageProviderBootstrapErrorMissingEmulatorHost},
		{"invalid emulator host", &gcp.ConfigError{Code: gcp.ConfigErrorInvalidEmulatorHost, Value: "x"}, StorageProviderBootstrapErrorInvalidEmulatorHost},
		{"missing bucket", &gcp.ConfigError{Code: gcp.ConfigErrorMissingBucket, Value: "MEDIA_GCS_BUCKET_NAME"}, StorageProviderBootstrapErrorMissingBucket},
		{"connect failed", errors.New("dial tcp: connection refused"), StorageProviderBootstrapErrorConnectFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyStorageProviderBootstrapError(gcp.StorageConfig{Mode: gcp.ObjectStorageModeGCS}, tc.err)
			requireBootstrapCode(t, err, tc.want)
		})
	}
}

func TestResolveBucketServiceInvalidMode(t *testing.T) {
	_, err := resolveBucketService(logger.NewNop(), storageTestConfig("invalid", ""))
	requireBootstrapCode(t, err, StorageProviderBootstrapErrorInvalidMode)
}

func TestResolveBucketServiceGCSMode(t *testing.T) {
	captured, expected := stubBucketFactory(t)

	got, err := resolveBucketService(logger.NewNop(), storageTestConfig(string(gcp.ObjectStorageModeGCS), ""))
	if err != nil {
		t.Fatalf("resolveBucketService: %v", err)
	}
	if got != expected {
		t.Fatalf("bucket: expected stub bucket instance")
	}
	if captured.Mode != gcp.ObjectStorageModeGCS || captured.MediaBucket != "media" {
		t.Fatalf("captured config: %+v", *captured)
	}
}

func TestResolveBucketServiceEmulatorFallback(t *testing.T) {
	captured, _ := stubBucketFactory(t)

	if _, err := resolveBucketService(logger.NewNop(), storageTestConfig("", "http://fake-gcs:4443/")); err != nil {
		t.Fatalf("resolveBucketService: %v", err)
	}
	if captured.Mode != gcp.ObjectStorageModeGCSEmulator || !captured.CompatibilityFallback {
		t.Fatalf("mode: got=%q fallback=%v", captured.Mode, captured.CompatibilityFallback)
	}
	if captured.EmulatorHost != "http://fake-gcs:4443" {
		t.Fatalf("emulator host: got=%q", captured.EmulatorHost)
	}
}

func TestResolveBucketServiceEmulatorMisconfigured(t *testing.T) {
	stubBucketFactory(t)

	_, err := resolveBucketService(logger.NewNop(), storageTestConfig(string(gcp.ObjectStorageModeGCSEmulator), ""))
	requireBootstrapCode(t, err, StorageProviderBootstrapErrorMissingEmulatorHost)

	_, err = resolveBucketService(logger.NewNop(), storageTestConfig(string(gcp.ObjectStorageModeGCSEmulator), "not-a-url"))
	requireBootstrapCode(t, err, StorageProviderBootstrapErrorInvalidEmulatorHost)

	cfg := storageTestConfig(string(gcp.ObjectStorageModeGCS), "")
	cfg.ThumbnailBucket = ""
	_, err = resolveBucketService(logger.NewNop(), cfg)
	requireBootstrapCode(t, err, StorageProviderBootstrapErrorMissingBucket)
}

func TestResolveBucketServiceConnectFailure(t *testing.T) {
	orig := newBucketServiceWithConfig
	t.Cleanup(func() { newBucketServiceWithConfig = orig })
	newBucketServiceWithConfig = func(*logger.Logger, gcp.StorageConfig) (gcp.BucketService, error) {
		return nil, errors.New("credentials not found")
	}

	_, err := resolveBucketService(logger.NewNop(), storageTestConfig(string(gcp.ObjectStorageModeGCS), ""))
	requireBootstrapCode(t, err, StorageProviderBootstrapErrorConnectFailed)
}

type testBucketService struct{}

func (*testBucketService) SignedUploadURL(context.Context, gcp.BucketCategory, string, string, time.Duration) (string, error) {
	return "", nil
}

func (*testBucketService) SignedDownloadURL(context.Context, gcp.BucketCategory, string, time.Duration) (string, error) {
	return "", nil
}

func (*testBucketService) DeleteFile(dbctx.Context, gcp.BucketCategory, string) error { return nil }

func (*testBucketService) DeletePrefix(context.Context, gcp.BucketCategory, string) error {
	return nil
}

func (*testBucketService) ListKeys(context.Context, gcp.BucketCategory, string) ([]string, error) {
	return nil, nil
}
