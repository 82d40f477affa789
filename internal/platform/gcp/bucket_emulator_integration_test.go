package gcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

func TestBucketServiceEmulatorSignedURLLifecycle(t *testing.T) {
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("CM_RUN_GCS_EMULATOR_INTEGRATION")), "true") {
		t.Skip("set CM_RUN_GCS_EMULATOR_INTEGRATION=true to run emulator integration tests")
	}
	emulatorHost := strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/")
	if emulatorHost == "" {
		emulatorHost = "http://127.0.0.1:4443"
	}
	if !isEmulatorReachable(t, emulatorHost) {
		t.Skipf("storage emulator not reachable at %s", emulatorHost)
	}

	suffix := time.Now().UnixNano()
	mediaBucket := fmt.Sprintf("cm-it-media-%d", suffix)
	thumbBucket := fmt.Sprintf("cm-it-thumb-%d", suffix)
	createBucketIfMissing(t, emulatorHost, mediaBucket)
	createBucketIfMissing(t, emulatorHost, thumbBucket)

	bucket, err := NewBucketServiceWithConfig(logger.NewNop(), StorageConfig{
		Mode:            ObjectStorageModeGCSEmulator,
		EmulatorHost:    emulatorHost,
		MediaBucket:     mediaBucket,
		ThumbnailBucket: thumbBucket,
	})
	if err != nil {
		t.Fatalf("NewBucketServiceWithConfig: %v", err)
	}

	ctx := context.Background()
	prefix := fmt.Sprintf("courses/%d", suffix)
	keyA := prefix + "/lessons/a.mp4"
	keyB := prefix + "/lessons/b.mp4"
	for key, body := range map[string]string{keyA: "alpha", keyB: "beta"} {
		up, err := bucket.SignedUploadURL(ctx, BucketCategoryMedia, key, "video/mp4", time.Minute)
		if err != nil {
			t.Fatalf("SignedUploadURL(%s): %v", key, err)
		}
		postObject(t, up, body)
	}

	down, err := bucket.SignedDownloadURL(ctx, BucketCategoryMedia, keyA, time.Minute)
	if err != nil {
		t.Fatalf("SignedDownloadURL: %v", err)
	}
	if got := getObject(t, down); got != "alpha" {
		t.Fatalf("download body: want=alpha got=%q", got)
	}

	keys, err := bucket.ListKeys(ctx, BucketCategoryMedia, prefix)
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if !slices.Contains(keys, keyA) || !slices.Contains(keys, keyB) {
		t.Fatalf("ListKeys missing uploaded keys: %v", keys)
	}

	if err := bucket.DeleteFile(dbctx.Context{Ctx: ctx}, BucketCategoryMedia, keyA); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if err := bucket.DeleteFile(dbctx.Context{Ctx: ctx}, BucketCategoryMedia, keyA); err != nil {
		t.Fatalf("DeleteFile of missing object should be a no-op: %v", err)
	}
	if err := bucket.DeletePrefix(ctx, BucketCategoryMedia, prefix); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	keys, err = bucket.ListKeys(ctx, BucketCategoryMedia, prefix)
	if err != nil {
		t.Fatalf("ListKeys after DeletePrefix: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected empty prefix, got %v", keys)
	}
}

func isEmulatorReachable(t *testing.T, emulatorHost string) bool {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(emulatorHost + "/storage/v1/b?project=local-dev")
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 500
}

func createBucketIfMissing(t *testing.T, emulatorHost, bucket string) {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"name": bucket})
	resp, err := http.Post(emulatorHost+"/storage/v1/b?project=local-dev", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("create bucket %q: %v", bucket, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusConflict {
		return
	}
	b, _ := io.ReadAll(resp.Body)
	t.Fatalf("create bucket %q failed: status=%d body=%s", bucket, resp.StatusCode, strings.TrimSpace(string(b)))
}

func postObject(t *testing.T, url, body string) {
	t.Helper()
	resp, err := http.Post(url, "video/mp4", strings.NewReader(body))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status=%d body=%s", resp.StatusCode, string(b))
	}
}

func getObject(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}
