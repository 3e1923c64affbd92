package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/cgrente/profile-intake-platform/config"
	"github.com/cgrente/profile-intake-platform/controllers"
	"github.com/cgrente/profile-intake-platform/credentials"
	"github.com/cgrente/profile-intake-platform/middleware"
	"github.com/cgrente/profile-intake-platform/services"
)

type Dependencies struct {
	Credentials    credentials.Store
	Profiles       *services.ProfileService
	Submissions    *services.SubmissionService
	MaxUploadBytes int64
}

// NewRouter builds the engine with the standard middleware stack and all
// routes registered.
func NewRouter(cfg config.Config, deps Dependencies) *gin.Engine {
	router := gin.New()

	router.Use(gin.LoggerWithWriter(config.LogWriter))
	router.Use(gin.RecoveryWithWriter(config.LogWriter))
	router.Use(middleware.SecurityHeaders())
	if cfg.EnableCORS {
		router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	}

	SetupRoutes(router, deps)
	return router
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	profiles := controllers.NewProfileController(deps.Profiles)
	submissions := controllers.NewSubmissionController(deps.Submissions, deps.MaxUploadBytes)

	// Health check
	router.GET("/healthz", controllers.Health)

	// API v1 group, every route requires the bearer credential
	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(deps.Credentials))
	{
		v1.POST("/profiles", profiles.CreateProfile)
		v1.GET("/profiles/:id", profiles.GetProfile)
		v1.GET("/profiles/:id/submissions", profiles.ListProfileSubmissions)

		v1.POST("/submissions", submissions.UploadSubmission)
		v1.GET("/submissions/:id", submissions.GetSubmission)
		v1.POST("/submissions/:id/submit", submissions.SubmitSubmission)
		v1.GET("/submissions/:id/file", submissions.DownloadSubmissionFile)
		v1.GET("/submissions/:id/tasks", submissions.ListSubmissionTasks)
	}
}
