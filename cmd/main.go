package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/clearlane/inspection-backend/internal/db"
	"github.com/clearlane/inspection-backend/internal/handlers"
	"github.com/clearlane/inspection-backend/internal/logger"
	"github.com/clearlane/inspection-backend/internal/middleware"
	"github.com/clearlane/inspection-backend/internal/observability"
	"github.com/clearlane/inspection-backend/internal/repos"
	"github.com/clearlane/inspection-backend/internal/server"
	"github.com/clearlane/inspection-backend/internal/services"
	"github.com/clearlane/inspection-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "inspection-backend",
		Environment: logMode,
		Version:     os.Getenv("SERVICE_VERSION"),
	})
	if otelShutdown != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(ctx); err != nil {
				log.Warn("otel shutdown failed", "error", err)
			}
		}()
	}

	// Env
	log.Info("Loading environment variables from main...")
	adminJWTSecret := utils.GetEnv("ADMIN_JWT_SECRET", "", log)
	tokenTTLHours := utils.GetEnvAsInt("UPLOAD_TOKEN_TTL_HOURS", 48, log)
	uploadRateLimit := utils.GetEnvAsInt("UPLOAD_RATE_LIMIT", 30, log)
	uploadRateWindow := utils.GetEnvAsInt("UPLOAD_RATE_WINDOW_SECONDS", 60, log)
	fraudPolicyPath := utils.GetEnv("FRAUD_POLICY_PATH", "", log)
	detectorEndpoint := utils.GetEnv("DETECTOR_ENDPOINT", "", log)
	detectorAPIKey := utils.GetEnv("DETECTOR_API_KEY", "", log)
	detectorModelID := utils.GetEnv("DETECTOR_MODEL_ID", "", log)
	historyBaseURL := utils.GetEnv("VEHICLE_HISTORY_BASE_URL", "", log)
	historyAPIKey := utils.GetEnv("VEHICLE_HISTORY_API_KEY", "", log)
	allowOrigins := utils.GetEnv("CORS_ALLOW_ORIGINS", "", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	inspectionRepo := repos.NewInspectionRepo(thePG, log)
	uploadRepo := repos.NewUploadRepo(thePG, log)
	historyRepo := repos.NewVehicleHistoryRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	locks := utils.NewKeyedMutex()
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
	tokenService := services.NewTokenService(log, time.Duration(tokenTTLHours)*time.Hour)
	exifService := services.NewExifService(log)
	qualityService := services.NewQualityService(log, services.QualityConfig{})
	detectorService := services.NewDetectorService(log, services.DetectorConfig{
		Endpoint: detectorEndpoint,
		APIKey:   detectorAPIKey,
		ModelID:  detectorModelID,
	})
	plateService, err := services.NewPlateRecognitionService(log)
	if err != nil {
		log.Warn("Could not init PlateRecognitionService, VIN recognition disabled", "error", err)
	}
	annotateService := services.NewAnnotateService(log, bucketService)
	historyService := services.NewVehicleHistoryService(log, historyRepo, services.HistoryConfig{
		BaseURL: historyBaseURL,
		APIKey:  historyAPIKey,
	})
	policy, err := services.LoadFraudPolicy(fraudPolicyPath)
	if err != nil {
		log.Warn("Fraud policy override rejected, using defaults", "error", err)
	}
	inspectionService := services.NewInspectionService(thePG, log, inspectionRepo, tokenService, locks)
	uploadService := services.NewUploadService(
		thePG,
		log,
		inspectionRepo,
		uploadRepo,
		tokenService,
		bucketService,
		exifService,
		qualityService,
		detectorService,
		plateService,
		annotateService,
		locks,
	)
	fraudService := services.NewFraudService(
		thePG,
		log,
		inspectionRepo,
		historyService,
		services.NewZIPCentroidGeocoder(),
		policy,
		locks,
	)
	rateLimiter := services.NewRedisRateLimiter(log, uploadRateLimit, time.Duration(uploadRateWindow)*time.Second)

	// Handlers
	log.Info("Setting up handlers from main...")
	inspectionHandler := handlers.NewInspectionHandler(log, inspectionService, fraudService)
	uploadHandler := handlers.NewUploadHandler(log, uploadService, rateLimiter)

	// Middleware
	log.Info("Setting up middleware from main...")
	adminMiddleware := middleware.NewAdminMiddleware(log, adminJWTSecret)

	// Router
	log.Info("Setting up router from main...")
	var origins []string
	if allowOrigins != "" {
		origins = strings.Split(allowOrigins, ",")
	}
	router := server.NewRouter(server.RouterConfig{
		InspectionHandler: inspectionHandler,
		UploadHandler:     uploadHandler,
		AdminMiddleware:   adminMiddleware,
		AllowOrigins:      origins,
		ServiceName:       "inspection-backend",
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
