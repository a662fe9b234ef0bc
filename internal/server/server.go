// Package server wires the echo HTTP server: the WebSocket session handler,
// the REST stats/health surface, metrics, and static assets.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/siphyshu/ascii-patakhe/internal/config"
	"github.com/siphyshu/ascii-patakhe/internal/launch"
)

// launcher is the slice of the launch service the server needs.
type launcher interface {
	Launch(ctx context.Context, clientID string) (launch.Outcome, error)
	Stats(ctx context.Context) (total int64, rate float64)
}

// registry is the slice of the hub the server needs.
type registry interface {
	Register(conn *websocket.Conn, clientIP string) error
	Unregister(conn *websocket.Conn)
	Broadcast(messageType string, data []byte)
	Unicast(conn *websocket.Conn, data []byte)
	OnlineCount() int
}

// storePinger reports store reachability for health checks.
type storePinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	svc         launcher
	hub         registry
	store       storePinger
	connLimiter *GlobalConnectionLimiter
	startTime   time.Time
}

func New(cfg *config.Config, svc launcher, hub registry, store storePinger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	srv := &Server{
		echo:        e,
		config:      cfg,
		svc:         svc,
		hub:         hub,
		store:       store,
		connLimiter: NewGlobalConnectionLimiter(int64(cfg.MaxConnections)),
		startTime:   time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying HTTP handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
