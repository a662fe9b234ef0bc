package server

import (
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// REST stats (rate limited per IP)
	s.echo.GET("/stats", s.handleStats, newRateLimiter(5, 10))

	// WebSocket endpoint
	s.echo.GET("/ws", s.handleWebSocket)

	// Landing page and assets
	staticDir := s.config.StaticDir
	s.echo.File("/", filepath.Join(staticDir, "index.html"))
	s.echo.File("/background.png", filepath.Join(staticDir, "background.png"))
	s.echo.File("/favicon.ico", filepath.Join(staticDir, "favicon.ico"))
	s.echo.File("/og.png", filepath.Join(staticDir, "og.png"))
	s.echo.Static("/static", staticDir)
}
