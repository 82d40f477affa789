package gcp

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
)

type StorageConfig struct {
	Mode            ObjectStorageMode
	EmulatorHost    string
	MediaBucket     string
	ThumbnailBucket string
	// SignerEmail overrides the service account used for V4 signing when the
	// ambient credentials do not carry one (e.g. workload identity).
	SignerEmail string
	// CompatibilityFallback is true when the mode was inferred from STORAGE_EMULATOR_HOST alone.
	CompatibilityFallback bool
}

func (cfg StorageConfig) IsEmulatorMode() bool {
	return cfg.Mode == ObjectStorageModeGCSEmulator
}

type ConfigErrorCode string

const (
	ConfigErrorInvalidMode         ConfigErrorCode = "invalid_mode"
	ConfigErrorMissingEmulatorHost ConfigErrorCode = "missing_emulator_host"
	ConfigErrorInvalidEmulatorHost ConfigErrorCode = "invalid_emulator_host"
	ConfigErrorMissingBucket       ConfigErrorCode = "missing_bucket"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid object storage config"
	}
	switch e.Code {
	case ConfigErrorInvalidMode:
		return fmt.Sprintf("invalid OBJECT_STORAGE_MODE=%q (allowed: %q, %q)", e.Value, ObjectStorageModeGCS, ObjectStorageModeGCSEmulator)
	case ConfigErrorMissingEmulatorHost:
		return fmt.Sprintf("OBJECT_STORAGE_MODE=%q requires STORAGE_EMULATOR_HOST to be set", ObjectStorageModeGCSEmulator)
	case ConfigErrorInvalidEmulatorHost:
		return fmt.Sprintf("invalid STORAGE_EMULATOR_HOST=%q; expected absolute URL like http://fake-gcs:4443", e.Value)
	case ConfigErrorMissingBucket:
		return fmt.Sprintf("missing env var %s", e.Value)
	default:
		return "invalid object storage config"
	}
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func ConfigFromEnv() (StorageConfig, error) {
	return ResolveConfig(
		os.Getenv("OBJECT_STORAGE_MODE"),
		os.Getenv("STORAGE_EMULATOR_HOST"),
		os.Getenv("MEDIA_GCS_BUCKET_NAME"),
		os.Getenv("THUMBNAIL_GCS_BUCKET_NAME"),
		os.Getenv("GCS_SIGNER_EMAIL"),
	)
}

// ResolveConfig normalizes raw settings. An empty mode falls back to the emulator
// when an emulator host is present.
func ResolveConfig(mode, emulatorHost, mediaBucket, thumbnailBucket, signerEmail string) (StorageConfig, error) {
	cfg := StorageConfig{
		EmulatorHost:    strings.TrimRight(strings.TrimSpace(emulatorHost), "/"),
		MediaBucket:     strings.TrimSpace(mediaBucket),
		ThumbnailBucket: strings.TrimSpace(thumbnailBucket),
		SignerEmail:     strings.TrimSpace(signerEmail),
	}
	raw := strings.TrimSpace(mode)
	switch ObjectStorageMode(strings.ToLower(raw)) {
	case "":
		cfg.Mode = ObjectStorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = ObjectStorageModeGCSEmulator
			cfg.CompatibilityFallback = true
		}
	case ObjectStorageModeGCS:
		cfg.Mode = ObjectStorageModeGCS
	case ObjectStorageModeGCSEmulator:
		cfg.Mode = ObjectStorageModeGCSEmulator
	default:
		cfg.Mode = ObjectStorageMode(raw)
		return cfg, &ConfigError{Code: ConfigErrorInvalidMode, Value: raw}
	}
	return cfg, ValidateConfig(cfg)
}

func ValidateConfig(cfg StorageConfig) error {
	switch cfg.Mode {
	case ObjectStorageModeGCS, ObjectStorageModeGCSEmulator:
	default:
		return &ConfigError{Code: ConfigErrorInvalidMode, Value: string(cfg.Mode)}
	}
	if cfg.MediaBucket == "" {
		return &ConfigError{Code: ConfigErrorMissingBucket, Value: "MEDIA_GCS_BUCKET_NAME"}
	}
	if cfg.ThumbnailBucket == "" {
		return &ConfigError{Code: ConfigErrorMissingBucket, Value: "THUMBNAIL_GCS_BUCKET_NAME"}
	}
	if !cfg.IsEmulatorMode() {
		return nil
	}
	if cfg.EmulatorHost == "" {
		return &ConfigError{Code: ConfigErrorMissingEmulatorHost}
	}
	u, err := url.Parse(cfg.EmulatorHost)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Code: ConfigErrorInvalidEmulatorHost, Value: cfg.EmulatorHost, Cause: err}
	}
	return nil
}
