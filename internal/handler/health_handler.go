package handler

import (
	"net/http"
	"time"

	"genealogy-service/pkg/database"

	"github.com/labstack/echo/v4"
)

// HealthCheck reports service liveness and database reachability
func HealthCheck(c echo.Context) error {
	status := "healthy"
	dbStatus := "connected"

	sqlDB, err := database.GetDB().DB()
	if err != nil || sqlDB.Ping() != nil {
		status = "degraded"
		dbStatus = "unreachable"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, echo.Map{
		"status":    status,
		"service":   "genealogy-service",
		"database":  dbStatus,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
