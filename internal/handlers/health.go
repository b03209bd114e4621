package handlers

import (
	"kantor/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck reports liveness of the service and its dependencies.
func HealthCheck(c *fiber.Ctx) error {
	status := fiber.Map{"status": "ok"}

	sqlDB, err := repositories.DB.DB()
	if err != nil || sqlDB.Ping() != nil {
		status["status"] = "degraded"
		status["database"] = "unreachable"
	}

	if repositories.CacheService != nil {
		if err := repositories.CacheService.HealthCheck(c.Context()); err != nil {
			status["status"] = "degraded"
			status["cache"] = "unreachable"
		}
	}

	if status["status"] != "ok" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(status)
	}
	return c.JSON(status)
}
