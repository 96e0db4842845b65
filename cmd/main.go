package main

import (
	"context"
	"time"

	"vacuumvp-service/internal/handler"
	custommiddleware "vacuumvp-service/internal/middleware"
	"vacuumvp-service/pkg/config"
	"vacuumvp-service/pkg/database"
	"vacuumvp-service/pkg/jwtutil"
	"vacuumvp-service/pkg/logger"
	"vacuumvp-service/pkg/storage"
	"vacuumvp-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting vacuumvp-service",
		zap.String("port", cfg.Server.Port),
		zap.String("env", cfg.Server.Env))

	// Initialize JWT utilities
	jwtutil.Initialize(&cfg.JWT)

	// Initialize database connection and run migrations
	if err := database.InitDB(cfg, log); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// Initialize object storage for report attachments and datasheets
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := storage.Init(ctx, &cfg.Storage); err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Create echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(custommiddleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Response cache for the dashboard aggregates
	dashboardCache := cache.New(cfg.Cache.DashboardTTL, 2*cfg.Cache.DashboardTTL)

	// Public routes
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	auth := e.Group("/auth")
	auth.POST("/login", handler.Login,
		custommiddleware.RateLimiter(rate.Limit(cfg.RateLimit.LoginPerSec), cfg.RateLimit.LoginBurst))
	auth.POST("/forgot-password", handler.ForgotPassword)

	// Authenticated routes
	api := e.Group("/api", custommiddleware.AuthMiddleware)

	e.POST("/auth/register", handler.Register,
		custommiddleware.AuthMiddleware, custommiddleware.RequireAdmin)
	e.POST("/auth/logout", handler.Logout, custommiddleware.AuthMiddleware)

	users := api.Group("/users")
	users.GET("/profile", handler.GetProfile)
	users.GET("/admins", handler.ListAdmins, custommiddleware.RequireAdmin)
	users.GET("/distributers", handler.ListDistributers, custommiddleware.RequireAdmin)
	users.DELETE("/:user_id", handler.DeleteUser, custommiddleware.RequireAdmin)

	machines := api.Group("/machines")
	machines.GET("/pumps", handler.ListPumps, custommiddleware.RequireAdmin)
	machines.GET("/parts", handler.ListParts, custommiddleware.RequireAdmin)
	machines.POST("", handler.CreateMachine, custommiddleware.RequireAdmin)

	reports := api.Group("/service-reports", custommiddleware.RequireAnyRole)
	reports.GET("/machine", handler.GetMachineBySerial)
	reports.POST("/customer", handler.CreateCustomerRecord)
	reports.GET("/types", handler.GetServiceTypes)
	reports.POST("", handler.CreateServiceReport)
	reports.GET("", handler.ListServiceReports)
	reports.GET("/:report_id", handler.GetServiceReportDetail)
	reports.GET("/:report_id/pdf", handler.ExportServiceReportPDF)

	dashboard := api.Group("/dashboard")
	dashboard.GET("/recent-activities", handler.GetRecentActivities,
		custommiddleware.RequireAnyRole)

	// Aggregate endpoints are admin-only and served from a short-TTL cache
	stats := dashboard.Group("",
		custommiddleware.RequireAdmin,
		custommiddleware.Cache(dashboardCache, cfg.Cache.DashboardTTL))
	stats.GET("/statistics", handler.GetDashboardStatistics)
	stats.GET("/service-type-statistics", handler.GetServiceTypeStatistics)
	stats.GET("/part-number-statistics", handler.GetPartNumberStatistics)
	stats.GET("/customer-machines", handler.GetCustomerMachineStatistics)

	// Start server
	log.Info("Server starting", zap.String("port", cfg.Server.Port))
	if err := e.Start(":" + cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
