package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/clearlane/inspection-backend/internal/handlers"
	"github.com/clearlane/inspection-backend/internal/middleware"
)

type RouterConfig struct {
	InspectionHandler *handlers.InspectionHandler
	UploadHandler     *handlers.UploadHandler
	AdminMiddleware   *middleware.AdminMiddleware
	AllowOrigins      []string
	ServiceName       string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "inspection-backend"
	}
	// Span first so AttachTraceContext can read its trace id.
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.AttachTraceContext())

	allowOrigins := cfg.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	// Seller intake authenticates with the per-inspection upload token.
	router.POST("/api/inspections/:id/uploads", cfg.UploadHandler.Upload)

	// ===============
	// || Admin     ||
	// ===============
	admin := router.Group("/api")
	admin.Use(cfg.AdminMiddleware.RequireAdmin())
	admin.POST("/inspections", cfg.InspectionHandler.Create)
	admin.GET("/inspections/:id", cfg.InspectionHandler.Get)
	admin.POST("/inspections/:id/score", cfg.InspectionHandler.Score)
	admin.POST("/inspections/:id/approve", cfg.InspectionHandler.Approve)

	return router
}
