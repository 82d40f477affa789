package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	types "github.com/yungbote/coursemarket-backend/internal/domain"
	httpH "github.com/yungbote/coursemarket-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursemarket-backend/internal/http/middleware"
	"github.com/yungbote/coursemarket-backend/internal/observability"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AllowedOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware
	Idempotency    *httpMW.Idempotency

	HealthHandler     *httpH.HealthHandler
	AuthHandler       *httpH.AuthHandler
	UserHandler       *httpH.UserHandler
	CourseHandler     *httpH.CourseHandler
	LearningHandler   *httpH.LearningHandler
	DashboardHandler  *httpH.DashboardHandler
	InstructorHandler *httpH.InstructorHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "coursemarket-api"
	}
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	idempotent := func(c *gin.Context) { c.Next() }
	if cfg.Idempotency != nil {
		idempotent = cfg.Idempotency.Handle()
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
			api.POST("/refresh", cfg.AuthHandler.Refresh)
		}

		// Catalog (public)
		if cfg.CourseHandler != nil {
			api.GET("/courses", cfg.CourseHandler.ListPublished)
			api.GET("/courses/:id", cfg.CourseHandler.GetCourse)
		}
		if cfg.LearningHandler != nil {
			api.GET("/courses/:id/reviews", cfg.LearningHandler.GetReviews)
		}
	}

	if cfg.AuthMiddleware == nil {
		return r
	}

	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	{
		if cfg.AuthHandler != nil {
			protected.POST("/logout", cfg.AuthHandler.Logout)
		}
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
			protected.PATCH("/me", cfg.UserHandler.ChangeName)
		}
		if cfg.LearningHandler != nil {
			protected.GET("/lessons/:id/playback", cfg.LearningHandler.Playback)
		}
	}

	learner := protected.Group("/")
	learner.Use(cfg.AuthMiddleware.RequireRole(types.RoleLearner))
	{
		if cfg.LearningHandler != nil {
			learner.POST("/courses/:id/enroll", idempotent, cfg.LearningHandler.Enroll)
			learner.GET("/courses/:id/progress", cfg.LearningHandler.GetProgress)
			learner.PUT("/courses/:id/progress/last-accessed", cfg.LearningHandler.SetLastAccessed)
			learner.POST("/courses/:id/lessons/:lessonId/toggle", cfg.LearningHandler.ToggleLesson)
			learner.POST("/courses/:id/reviews", idempotent, cfg.LearningHandler.PostReview)
		}
		if cfg.DashboardHandler != nil {
			learner.GET("/dashboard/learner", cfg.DashboardHandler.Learner)
		}
	}

	instructor := protected.Group("/")
	instructor.Use(cfg.AuthMiddleware.RequireRole(types.RoleInstructor))
	{
		if cfg.DashboardHandler != nil {
			instructor.GET("/dashboard/instructor", cfg.DashboardHandler.Instructor)
		}
		if h := cfg.InstructorHandler; h != nil {
			instructor.GET("/instructor/courses", h.ListCourses)
			instructor.POST("/instructor/courses", h.CreateCourse)
			instructor.GET("/instructor/courses/:id", h.GetCourse)
			instructor.PATCH("/instructor/courses/:id", h.UpdateCourse)
			instructor.DELETE("/instructor/courses/:id", h.DeleteCourse)
			instructor.PUT("/instructor/courses/:id/publish", h.SetPublished)
			instructor.POST("/instructor/courses/:id/thumbnail/upload-url", h.ThumbnailUploadURL)
			instructor.PUT("/instructor/courses/:id/thumbnail", h.ConfirmThumbnail)
			instructor.POST("/instructor/courses/:id/sections", h.CreateSection)

			instructor.PATCH("/instructor/sections/:id", h.UpdateSection)
			instructor.DELETE("/instructor/sections/:id", h.DeleteSection)
			instructor.POST("/instructor/sections/:id/lessons/upload-url", h.LessonUploadURL)
			instructor.POST("/instructor/sections/:id/lessons", h.CreateLesson)

			instructor.PATCH("/instructor/lessons/:id", h.UpdateLesson)
			instructor.DELETE("/instructor/lessons/:id", h.DeleteLesson)
			instructor.POST("/instructor/lessons/:id/video/upload-url", h.VideoUploadURL)
			instructor.PUT("/instructor/lessons/:id/video", h.ReplaceVideo)
		}
	}

	return r
}
