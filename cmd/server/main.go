// Package main is the entry point for the application.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"time"

	"kantor/internal/config"
	"kantor/internal/repositories"
	"kantor/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	config.LoadEnv()

	logger, _ := zap.NewProduction()
	if !config.IsProduction() {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	if err := repositories.InitDB(); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	sqlDB, err := repositories.DB.DB()
	if err != nil {
		logger.Fatal("failed to get database instance", zap.Error(err))
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("failed to close database connection", zap.Error(err))
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				logger.Warn("failed to close redis connection", zap.Error(err))
			}
		}
	}()

	if err := sqlDB.Ping(); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}
	logger.Info("connected to database")

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))

	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Credential endpoints get a per-IP rate limit.
	for _, path := range []string{"/api/auth/register", "/api/auth/login"} {
		app.Use(path, limiter.New(limiter.Config{
			Max:        5,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Too many requests. Please try again later.",
				})
			},
		}))
	}

	routes.SetupRoutes(app, logger)

	addr := ":" + config.GetEnv("PORT", "8081")
	logger.Info("starting server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
