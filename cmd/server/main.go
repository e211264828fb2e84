package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/touresta/touresta-backend/internal/config"
	"github.com/touresta/touresta-backend/internal/database"
	"github.com/touresta/touresta-backend/internal/handlers"
	"github.com/touresta/touresta-backend/internal/middleware"
	"github.com/touresta/touresta-backend/internal/services"
	"github.com/touresta/touresta-backend/pkg/evaluation"
	"github.com/touresta/touresta-backend/pkg/googleauth"
	"github.com/touresta/touresta-backend/pkg/jwt"
	"github.com/touresta/touresta-backend/pkg/mailer"
	"github.com/touresta/touresta-backend/pkg/storage"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Touresta Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize repositories. The drug test and language repositories run
	// multi-statement transactions and need the raw sqlx handle.
	userRepo := database.NewUserRepository(db)
	helperRepo := database.NewHelperRepository(db)
	drugTestRepo := database.NewDrugTestRepository(db.DB)
	carRepo := database.NewCarRepository(db)
	certificateRepo := database.NewCertificateRepository(db)
	languageRepo := database.NewLanguageRepository(db.DB)
	auditLogRepo := database.NewAuditLogRepository(db)
	adminRepo := database.NewAdminRepository(db)

	// Initialize gateways
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	var mailGateway mailer.Gateway
	if cfg.Mail.Mode == "production" {
		mailGateway = mailer.NewSMTPMailer(
			cfg.Mail.Host,
			cfg.Mail.Port,
			cfg.Mail.Username,
			cfg.Mail.Password,
			cfg.Mail.From,
			cfg.Mail.FromName,
		)
		logger.Info("Mail gateway: SMTP")
	} else {
		mailGateway = &mailer.DevMailer{Log: func(to, code string) {
			logger.WithFields(logrus.Fields{"to": to, "code": code}).Info("Verification code issued (dev mode - no email sent)")
		}}
		logger.Info("Mail gateway: dev mode, codes are logged")
	}

	var storageGateway storage.Gateway
	if cfg.Cloudinary.CloudName != "" {
		storageGateway, err = storage.NewCloudinaryGateway(
			cfg.Cloudinary.CloudName,
			cfg.Cloudinary.APIKey,
			cfg.Cloudinary.APISecret,
			cfg.Cloudinary.UploadTimeout,
		)
		if err != nil {
			logger.Fatalf("Failed to initialize document storage: %v", err)
		}
		logger.Info("Document storage: Cloudinary")
	} else {
		storageGateway = &storage.DevGateway{Log: func(action, detail string) {
			logger.WithFields(logrus.Fields{"action": action, "detail": detail}).Info("Document storage (dev mode)")
		}}
		logger.Info("Document storage: dev mode, nothing is persisted")
	}

	googleVerifier := googleauth.NewTokenInfoVerifier(cfg.Google.ClientID)
	evaluator := evaluation.NewStubGateway()

	// Initialize services
	logger.Info("Initializing services...")
	auditService := services.NewAuditService(auditLogRepo, logger)
	authService := services.NewAuthService(
		userRepo,
		adminRepo,
		mailGateway,
		googleVerifier,
		jwtService,
		auditService,
		logger,
		cfg.Security.BcryptCost,
	)
	onboardingService := services.NewOnboardingService(
		userRepo,
		helperRepo,
		drugTestRepo,
		carRepo,
		certificateRepo,
		languageRepo,
		storageGateway,
		logger,
	)
	languageService := services.NewLanguageService(helperRepo, languageRepo, evaluator, logger)
	reviewService := services.NewReviewService(
		helperRepo,
		userRepo,
		drugTestRepo,
		languageRepo,
		carRepo,
		certificateRepo,
		auditService,
		logger,
		cfg.Review.DeactivateOnReject,
	)
	gateService := services.NewGateService(userRepo, helperRepo, drugTestRepo, languageRepo, logger)
	cleanupService := services.NewCleanupService(
		userRepo,
		helperRepo,
		auditLogRepo,
		cfg.Cleanup.Interval,
		cfg.Cleanup.UnverifiedUserMaxAge,
		cfg.Cleanup.AuditLogRetention,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	helperHandler := handlers.NewHelperHandler(onboardingService, gateService)
	languageHandler := handlers.NewLanguageHandler(languageService)
	adminHandler := handlers.NewAdminHelperHandler(reviewService, auditService, cleanupService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Authentication routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/verify", authHandler.VerifyEmail)
			auth.POST("/resend-code", authHandler.ResendCode)
			auth.POST("/login", authHandler.Login)
			auth.POST("/google", authHandler.GoogleSignIn)
			auth.POST("/refresh", authHandler.Refresh)
		}

		// User routes (user token required)
		users := v1.Group("/users", middleware.AuthMiddleware(jwtService), middleware.RequireUser())
		{
			users.POST("/me/profile-image", helperHandler.UploadProfileImage)
		}

		// Helper onboarding routes (user token required)
		helpers := v1.Group("/helpers", middleware.AuthMiddleware(jwtService), middleware.RequireUser())
		{
			helpers.POST("", helperHandler.Register)

			me := helpers.Group("/me")
			{
				me.GET("", helperHandler.GetProfile)
				me.PUT("/profile", helperHandler.UpdateProfile)
				me.GET("/status", helperHandler.GetStatus)
				me.GET("/eligibility", helperHandler.GetEligibility)

				me.POST("/drug-tests", helperHandler.UploadDrugTest)
				me.GET("/drug-tests", helperHandler.GetDrugTestHistory)

				me.PUT("/car", helperHandler.SaveCar)
				me.GET("/car", helperHandler.GetCar)
				me.DELETE("/car", helperHandler.RemoveCar)

				me.POST("/certificates", helperHandler.AddCertificate)
				me.GET("/certificates", helperHandler.ListCertificates)
				me.DELETE("/certificates/:id", helperHandler.RemoveCertificate)

				me.GET("/languages", languageHandler.ListMine)
				me.GET("/languages/available", languageHandler.ListAvailable)
				me.POST("/languages/:code/test", languageHandler.TakeTest)
				me.GET("/languages/:code/tests", languageHandler.TestHistory)

				// Work routes sit behind the booking-eligibility gate; an
				// expired drug test is deactivated on the spot here.
				work := me.Group("/work", middleware.RequireEligibleHelper(gateService))
				{
					work.GET("/eligibility", func(c *gin.Context) {
						c.JSON(http.StatusOK, gin.H{"eligible": true})
					})
				}
			}
		}

		// Admin routes
		admin := v1.Group("/admin")
		{
			admin.POST("/auth/login", authHandler.AdminLogin)

			reviews := admin.Group("/helpers", middleware.AuthMiddleware(jwtService), middleware.RequireAdmin())
			{
				reviews.GET("/pending", adminHandler.PendingQueue)
				reviews.GET("/:id", adminHandler.GetForReview)
				reviews.POST("/:id/approve", adminHandler.Approve)
				reviews.POST("/:id/reject", adminHandler.Reject)
				reviews.POST("/:id/request-changes", adminHandler.RequestChanges)
				reviews.GET("/:id/audit", adminHandler.AuditTrail)
			}

			maintenance := admin.Group("/maintenance", middleware.AuthMiddleware(jwtService), middleware.RequireAdmin())
			{
				maintenance.POST("/cleanup", adminHandler.TriggerCleanup)
				maintenance.GET("/cleanup", adminHandler.CleanupStatus)
			}
		}
	}

	// Start the background cleanup sweep
	if err := cleanupService.Start(); err != nil {
		logger.Fatalf("Failed to start cleanup service: %v", err)
	}

	// HTTP server with sane timeouts
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	logger.Info("Stopping cleanup service...")
	cleanupService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
