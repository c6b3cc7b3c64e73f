package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"course-video-service/interfaces/api/handlers"
	"course-video-service/interfaces/api/middleware"
	"course-video-service/interfaces/api/routes"
	"course-video-service/pkg/di"
	"course-video-service/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container := di.NewContainer(di.RoleAPI)

	// Initialize all dependencies (including logger)
	if err := container.Initialize(ctx); err != nil {
		// ใช้ log พื้นฐานก่อน logger init
		panic("Failed to initialize container: " + err.Error())
	}
	cfg := container.Config

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		AppName:               cfg.App.Name,
		BodyLimit:             int(cfg.Upload.MaxFileSize) + 1024*1024,
		StreamRequestBody:     true, // local upload ไม่ buffer ทั้งไฟล์
		DisableStartupMessage: !cfg.IsDevelopment(),
	})

	// Setup middleware (order matters!)
	app.Use(middleware.RequestIDMiddleware()) // ต้องมาก่อน logger
	app.Use(middleware.LoggerMiddleware("/hls/"))
	app.Use(middleware.CorsMiddleware(cfg.App.CORSOrigins))

	h := handlers.NewHandlers(container.HandlerServices())
	routes.SetupRoutes(app, h, routes.Config{
		JWTSecret:      cfg.JWT.Secret,
		MetricsEnabled: cfg.Metrics.Enabled,
	})

	// memory driver: worker รันใน process เดียวกับ API
	workerDone := make(chan struct{})
	if container.JobConsumer != nil {
		go func() {
			defer close(workerDone)
			if err := container.JobConsumer.Start(ctx, container.JobHandler()); err != nil {
				logger.Error("In-process worker stopped", "error", err)
			}
		}()
	} else {
		close(workerDone)
	}

	go func() {
		<-ctx.Done()
		logger.Info("Gracefully shutting down...")
		if err := app.ShutdownWithTimeout(di.ShutdownTimeout); err != nil {
			logger.Error("HTTP shutdown failed", "error", err)
		}
	}()

	port := cfg.App.Port
	logger.Info("Server starting",
		"port", port,
		"env", cfg.App.Env,
		"app", cfg.App.Name,
		"base_url", cfg.App.BaseURL,
	)

	if err := app.Listen(":" + port); err != nil {
		logger.Error("Server failed to start", "error", err)
		_ = container.Cleanup()
		os.Exit(1)
	}

	<-workerDone
	if err := container.Cleanup(); err != nil {
		logger.Error("Error during cleanup", "error", err)
	}
}
