package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/coursemarket-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/coursemarket-backend/internal/domain/aggregates"
	"github.com/yungbote/coursemarket-backend/internal/observability"
	"github.com/yungbote/coursemarket-backend/internal/platform/gcp"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
	"github.com/yungbote/coursemarket-backend/internal/services"
)

type Aggregates struct {
	Catalog    domainagg.CatalogAggregate
	Enrollment domainagg.EnrollmentAggregate
	Progress   domainagg.ProgressAggregate
	Rating     domainagg.RatingAggregate
}

type Services struct {
	Auth      services.AuthService
	User      services.UserService
	Catalog   services.CatalogService
	Learning  services.LearningService
	Dashboard services.DashboardService
}

func wireAggregates(db *gorm.DB, log *logger.Logger, cfg Config, metrics *observability.Metrics, r Repos) (Aggregates, error) {
	log.Info("Wiring aggregates...")
	base := aggregates.BaseDeps{
		DB:    db,
		Log:   log,
		Hooks: aggregates.NewObservabilityHooks(metrics),
		Retry: aggregates.RetryPolicy{MaxAttempts: cfg.ToggleMaxAttempts},
	}
	out := Aggregates{
		Catalog: aggregates.NewCatalogAggregate(aggregates.CatalogAggregateDeps{
			Base: base, Courses: r.Course, Sections: r.Section, Lessons: r.Lesson,
		}),
		Enrollment: aggregates.NewEnrollmentAggregate(aggregates.EnrollmentAggregateDeps{
			Base: base, Courses: r.Course, Enrollments: r.Enrollment,
		}),
		Progress: aggregates.NewProgressAggregate(aggregates.ProgressAggregateDeps{
			Base: base, Lessons: r.Lesson, Progress: r.Progress,
		}),
		Rating: aggregates.NewRatingAggregate(aggregates.RatingAggregateDeps{
			Base: base, Courses: r.Course, Reviews: r.Review,
		}),
	}
	if err := domainagg.CheckContracts(out.Catalog, out.Enrollment, out.Progress, out.Rating); err != nil {
		return Aggregates{}, fmt.Errorf("aggregate contracts: %w", err)
	}
	return out, nil
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	metrics *observability.Metrics,
	bucket gcp.BucketService,
	r Repos,
	agg Aggregates,
) Services {
	log.Info("Wiring services...")
	ttls := services.URLTTLsFromEnv()
	return Services{
		Auth: services.NewAuthService(db, log, r.User, r.UserToken, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		User: services.NewUserService(log, r.User),
		Catalog: services.NewCatalogService(services.CatalogServiceDeps{
			Log:         log,
			Courses:     r.Course,
			Sections:    r.Section,
			Lessons:     r.Lesson,
			Enrollments: r.Enrollment,
			Catalog:     agg.Catalog,
			Progress:    agg.Progress,
			Bucket:      bucket,
			Metrics:     metrics,
			TTLs:        ttls,
		}),
		Learning: services.NewLearningService(services.LearningServiceDeps{
			Log:         log,
			Users:       r.User,
			Courses:     r.Course,
			Lessons:     r.Lesson,
			Progress:    r.Progress,
			Reviews:     r.Review,
			Enrollments: agg.Enrollment,
			Toggles:     agg.Progress,
			Ratings:     agg.Rating,
		}),
		Dashboard: services.NewDashboardService(services.DashboardServiceDeps{
			Log:         log,
			Users:       r.User,
			Courses:     r.Course,
			Lessons:     r.Lesson,
			Enrollments: r.Enrollment,
			Progress:    r.Progress,
			Bucket:      bucket,
			Metrics:     metrics,
			TTLs:        ttls,
		}),
	}
}
