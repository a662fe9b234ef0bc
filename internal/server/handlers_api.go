package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/siphyshu/ascii-patakhe/internal/version"
)

func (s *Server) handleStats(c echo.Context) error {
	total, rate := s.svc.Stats(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]any{
		"total":  total,
		"rate":   rate,
		"online": s.hub.OnlineCount(),
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"redis":  "disconnected",
			"error":  err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":       "healthy",
		"redis":        "connected",
		"online_users": s.hub.OnlineCount(),
	})
}

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Get())
}
