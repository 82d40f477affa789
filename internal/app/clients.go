package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/coursemarket-backend/internal/data/db"
	"github.com/yungbote/coursemarket-backend/internal/platform/gcp"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
	redisclient "github.com/yungbote/coursemarket-backend/internal/platform/redis"
)

type Clients struct {
	DB     *gorm.DB
	Redis  *goredis.Client
	Bucket gcp.BucketService

	closeDB func() error
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	theDB, closeDB, err := openDatabase(log, cfg)
	if err != nil {
		return Clients{}, err
	}
	if err := db.AutoMigrateAll(theDB); err != nil {
		_ = closeDB()
		return Clients{}, fmt.Errorf("automigrate: %w", err)
	}

	bucket, err := resolveBucketService(log, cfg)
	if err != nil {
		_ = closeDB()
		return Clients{}, err
	}

	// Redis is optional; without it idempotency keys are not honored.
	rdb, err := redisclient.NewClient(log, redisclient.ConfigFromEnv())
	if err != nil {
		_ = closeDB()
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}

	return Clients{DB: theDB, Redis: rdb, Bucket: bucket, closeDB: closeDB}, nil
}

func openDatabase(log *logger.Logger, cfg Config) (*gorm.DB, func() error, error) {
	if cfg.DBDriver == "sqlite" {
		theDB, err := db.OpenSQLite(cfg.SQLitePath, false)
		if err != nil {
			return nil, nil, err
		}
		log.Warn("Using SQLite database; row locks are not available", "path", cfg.SQLitePath)
		closeFn := func() error {
			sqlDB, err := theDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}
		return theDB, closeFn, nil
	}
	pg, err := db.NewPostgresService(log)
	if err != nil {
		return nil, nil, fmt.Errorf("init postgres: %w", err)
	}
	return pg.DB(), pg.Close, nil
}

func (c Clients) Close(log *logger.Logger) {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	}
	if c.closeDB != nil {
		if err := c.closeDB(); err != nil {
			log.Warn("database close failed", "error", err)
		}
	}
}
