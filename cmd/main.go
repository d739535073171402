package main

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/joblane/verification-service/internal/app"
	"github.com/joblane/verification-service/internal/config"
	"github.com/joblane/verification-service/internal/controllers"
	"github.com/joblane/verification-service/internal/middleware"
	"github.com/joblane/verification-service/internal/repositories"
	"github.com/joblane/verification-service/internal/services"
	"github.com/joblane/verification-service/internal/storage"
	"github.com/joblane/verification-service/internal/utils"
)

func main() {
	_ = godotenv.Load()

	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize application:", err)
	}
	defer application.Close()

	//----------------------------------------------------------------------
	// Repositories
	//----------------------------------------------------------------------
	recordRepo := repositories.NewVerificationRecordRepository(application.DB)
	docRepo := repositories.NewEmployerDocumentRepository(application.DB)
	otpRepo := repositories.NewEmailVerificationRepository(application.DB)
	rateLimitRepo := repositories.NewRateLimitRepository(application.DB)
	auditRepo := repositories.NewAdminAuditLogRepository(application.DB)

	//----------------------------------------------------------------------
	// Services
	//----------------------------------------------------------------------
	docStore := storage.NewCloudinaryStore(cfg)
	notifier := services.NewEmailNotifier(cfg)

	rateLimiterService := services.NewRateLimiterService(rateLimitRepo, cfg)
	otpService := services.NewOtpService(recordRepo, docRepo, otpRepo, rateLimiterService, cfg)
	verificationService := services.NewVerificationService(recordRepo, docRepo, docStore, cfg)
	adminReviewService := services.NewAdminReviewService(
		recordRepo,
		docRepo,
		auditRepo,
		docStore,
		notifier,
		verificationService,
	)

	verificationCleanupService := services.NewVerificationCleanupService(otpRepo)
	rateLimitCleanupService := services.NewRateLimitCleanupService(rateLimitRepo)

	//----------------------------------------------------------------------
	// Controllers
	//----------------------------------------------------------------------
	verificationController := controllers.NewVerificationController(otpService, verificationService)
	adminController := controllers.NewAdminVerificationController(adminReviewService)
	healthController := controllers.NewHealthController(application)

	//----------------------------------------------------------------------
	// Router & Endpoints
	//----------------------------------------------------------------------
	router := mux.NewRouter()

	// Health
	router.HandleFunc("/health", healthController.HealthCheckHandler).Methods("GET")

	// /verification/v1
	verificationRouter := router.PathPrefix("/verification").Subrouter()
	v1Router := verificationRouter.PathPrefix("/v1").Subrouter()

	// Employer endpoints require a valid token
	protected := v1Router.NewRoute().Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg.RSAPublicKey))
	protected.HandleFunc("/records", verificationController.RegisterRecord).Methods("POST")
	protected.HandleFunc("/send-otp", verificationController.SendOtp).Methods("POST")
	protected.HandleFunc("/verify-otp", verificationController.VerifyOtp).Methods("POST")
	protected.HandleFunc("/id-card", verificationController.UploadIDCard).Methods("POST")
	protected.HandleFunc("/documents", verificationController.UploadDocument).Methods("POST")
	protected.HandleFunc("/status", verificationController.GetStatus).Methods("GET")

	// Admin review endpoints additionally require the admin role
	adminRouter := v1Router.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.AdminAuthMiddleware(cfg.RSAPublicKey))
	adminRouter.HandleFunc("/pending", adminController.ListPending).Methods("GET")
	adminRouter.HandleFunc("/{accountId}/id-card", adminController.DecideIDCard).Methods("PUT")
	adminRouter.HandleFunc("/{accountId}/documents/{documentId}", adminController.DecideDocument).Methods("PUT")

	//----------------------------------------------------------------------
	// Setup daily cleanup via cron
	//----------------------------------------------------------------------
	c := cron.New()

	// expired verification codes
	_, schErr1 := c.AddFunc("0 3 * * *", func() {
		if e := verificationCleanupService.CleanupDaily(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled verification-codes cleanup failed")
		}
	})
	if schErr1 != nil {
		utils.Logger.WithError(schErr1).Fatal("Failed to schedule verification-codes cleanup job")
	}

	// rate limit counter cleanup
	_, schErr2 := c.AddFunc("10 3 * * *", func() {
		if e := rateLimitCleanupService.CleanupDaily(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled rate limit counter cleanup failed")
		}
	})
	if schErr2 != nil {
		utils.Logger.WithError(schErr2).Fatal("Failed to schedule rate limit counter cleanup job")
	}

	c.Start()

	co := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AppUrl},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", config.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("Failed to start server:", err)
	}
}
