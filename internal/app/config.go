package app

import (
	"strings"
	"time"

	"github.com/yungbote/coursemarket-backend/internal/platform/envutil"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

type Config struct {
	AppEnv      string
	ServiceName string
	Port        string

	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// DBDriver selects "postgres" (default) or "sqlite" for local runs.
	DBDriver   string
	SQLitePath string

	ObjectStorageMode   string
	StorageEmulatorHost string
	MediaBucket         string
	ThumbnailBucket     string
	GCSSignerEmail      string

	IdempotencyTTL    time.Duration
	ToggleMaxAttempts int

	MetricsAddr     string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		AppEnv:      envutil.String("APP_ENV", "development"),
		ServiceName: envutil.String("SERVICE_NAME", "coursemarket-api"),
		Port:        envutil.String("PORT", "8080"),

		JWTSecretKey:    envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		AccessTokenTTL:  envutil.Seconds("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL: envutil.Seconds("REFRESH_TOKEN_TTL", 24*time.Hour),

		DBDriver:   strings.ToLower(envutil.String("DB_DRIVER", "postgres")),
		SQLitePath: envutil.String("SQLITE_PATH", ""),

		ObjectStorageMode:   envutil.String("OBJECT_STORAGE_MODE", ""),
		StorageEmulatorHost: envutil.String("STORAGE_EMULATOR_HOST", ""),
		MediaBucket:         envutil.String("MEDIA_GCS_BUCKET_NAME", ""),
		ThumbnailBucket:     envutil.String("THUMBNAIL_GCS_BUCKET_NAME", ""),
		GCSSignerEmail:      envutil.String("GCS_SIGNER_EMAIL", ""),

		IdempotencyTTL:    envutil.Seconds("IDEMPOTENCY_TTL", 24*time.Hour),
		ToggleMaxAttempts: envutil.Int("PROGRESS_TOGGLE_MAX_ATTEMPTS", 5),

		MetricsAddr:     envutil.String("METRICS_ADDR", ":9090"),
		AllowedOrigins:  splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),
		ShutdownTimeout: envutil.Seconds("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
	if cfg.JWTSecretKey == "defaultsecret" && cfg.AppEnv == "production" {
		log.Warn("JWT_SECRET_KEY is using the default value in production")
	}
	log.Info("Config loaded",
		"app_env", cfg.AppEnv,
		"port", cfg.Port,
		"db_driver", cfg.DBDriver,
		"object_storage_mode", cfg.ObjectStorageMode,
		"access_token_ttl", cfg.AccessTokenTTL.String(),
	)
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
