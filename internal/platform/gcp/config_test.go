package gcp

import (
	"errors"
	"strings"
	"testing"
)

func setBuckets(t *testing.T) {
	t.Helper()
	t.Setenv("MEDIA_GCS_BUCKET_NAME", "cm-media")
	t.Setenv("THUMBNAIL_GCS_BUCKET_NAME", "cm-thumbs")
}

func TestConfigFromEnvDefaultsToGCS(t *testing.T) {
	setBuckets(t)
	t.Setenv("OBJECT_STORAGE_MODE", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.Mode != ObjectStorageModeGCS || cfg.CompatibilityFallback {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestConfigFromEnvEmulatorFallback(t *testing.T) {
	setBuckets(t)
	t.Setenv("OBJECT_STORAGE_MODE", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "http://fake-gcs:4443/")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.Mode != ObjectStorageModeGCSEmulator || !cfg.CompatibilityFallback {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.EmulatorHost != "http://fake-gcs:4443" {
		t.Fatalf("emulator host not trimmed: %q", cfg.EmulatorHost)
	}
}

func TestConfigFromEnvRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		mode string
		host string
		code ConfigErrorCode
	}{
		{name: "invalid mode", mode: "s3", code: ConfigErrorInvalidMode},
		{name: "emulator without host", mode: "gcs_emulator", code: ConfigErrorMissingEmulatorHost},
		{name: "relative host", mode: "gcs_emulator", host: "fake-gcs:4443", code: ConfigErrorInvalidEmulatorHost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBuckets(t)
			t.Setenv("OBJECT_STORAGE_MODE", tc.mode)
			t.Setenv("STORAGE_EMULATOR_HOST", tc.host)
			_, err := ConfigFromEnv()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Code != tc.code {
				t.Fatalf("code: want=%s got=%s", tc.code, cfgErr.Code)
			}
		})
	}
}

func TestValidateConfigRequiresBuckets(t *testing.T) {
	err := ValidateConfig(StorageConfig{Mode: ObjectStorageModeGCS, MediaBucket: "m"})
	if err == nil || !strings.Contains(err.Error(), "THUMBNAIL_GCS_BUCKET_NAME") {
		t.Fatalf("expected missing thumbnail bucket error, got %v", err)
	}
}

func TestEmulatorURLsEscapeKeys(t *testing.T) {
	up := emulatorUploadURL("http://fake-gcs:4443/", "cm-media", "courses/a b/lesson.mp4")
	if !strings.HasPrefix(up, "http://fake-gcs:4443/upload/storage/v1/b/cm-media/o?") {
		t.Fatalf("unexpected upload url: %s", up)
	}
	if !strings.Contains(up, "name=courses%2Fa+b%2Flesson.mp4") {
		t.Fatalf("key not query-escaped: %s", up)
	}
	down := emulatorMediaURL("http://fake-gcs:4443", "cm-media", "courses/x/lesson.mp4")
	if down != "http://fake-gcs:4443/storage/v1/b/cm-media/o/courses%2Fx%2Flesson.mp4?alt=media" {
		t.Fatalf("unexpected media url: %s", down)
	}
}

func TestNormalizeKey(t *testing.T) {
	if _, err := normalizeKey("  "); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := normalizeKey("courses/../secrets"); err == nil {
		t.Fatalf("expected error for traversal")
	}
	got, err := normalizeKey("/courses/x.mp4")
	if err != nil || got != "courses/x.mp4" {
		t.Fatalf("got=%q err=%v", got, err)
	}
}

func TestContentTypeHelpers(t *testing.T) {
	if got := ContentTypeForKey("courses/x/video.MP4"); got != "video/mp4" {
		t.Fatalf("got=%q", got)
	}
	if got := ExtensionForContentType("image/jpeg; charset=binary"); got != ".jpg" {
		t.Fatalf("got=%q", got)
	}
	if !IsVideoContentType("video/webm") || IsVideoContentType("video/x-flv") {
		t.Fatalf("video content type detection wrong")
	}
	if !IsImageContentType("image/png") || IsImageContentType("application/pdf") {
		t.Fatalf("image content type detection wrong")
	}
}
