package app

import (
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/coursemarket-backend/internal/http"
	httpH "github.com/yungbote/coursemarket-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursemarket-backend/internal/http/middleware"
	"github.com/yungbote/coursemarket-backend/internal/observability"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
	redisclient "github.com/yungbote/coursemarket-backend/internal/platform/redis"
)

type Middleware struct {
	Auth        *httpMW.AuthMiddleware
	Idempotency *httpMW.Idempotency
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Auth       *httpH.AuthHandler
	User       *httpH.UserHandler
	Course     *httpH.CourseHandler
	Learning   *httpH.LearningHandler
	Dashboard  *httpH.DashboardHandler
	Instructor *httpH.InstructorHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, svc Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(db),
		Auth:       httpH.NewAuthHandler(log, svc.Auth),
		User:       httpH.NewUserHandler(log, svc.User),
		Course:     httpH.NewCourseHandler(log, svc.Catalog),
		Learning:   httpH.NewLearningHandler(log, svc.Learning, svc.Catalog),
		Dashboard:  httpH.NewDashboardHandler(log, svc.Dashboard),
		Instructor: httpH.NewInstructorHandler(log, svc.Catalog),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config, svc Services, rdb *goredis.Client, metrics *observability.Metrics) Middleware {
	log.Info("Wiring middleware...")
	mw := Middleware{Auth: httpMW.NewAuthMiddleware(log, svc.Auth)}
	if rdb != nil {
		store := redisclient.NewIdempotencyStore(log, rdb, cfg.IdempotencyTTL)
		mw.Idempotency = httpMW.NewIdempotency(log, store, metrics)
	}
	return mw
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, h Handlers, mw Middleware) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    cfg.ServiceName,
		AllowedOrigins: cfg.AllowedOrigins,

		AuthMiddleware: mw.Auth,
		Idempotency:    mw.Idempotency,

		HealthHandler:     h.Health,
		AuthHandler:       h.Auth,
		UserHandler:       h.User,
		CourseHandler:     h.Course,
		LearningHandler:   h.Learning,
		DashboardHandler:  h.Dashboard,
		InstructorHandler: h.Instructor,
	})
}
