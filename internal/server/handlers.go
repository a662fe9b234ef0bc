package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/siphyshu/ascii-patakhe/internal/domain"
	"github.com/siphyshu/ascii-patakhe/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // public landing page, no origin restriction
	},
}

const cooldownNotice = "Please wait before launching another firework"

// handleWebSocket upgrades the connection and runs the per-connection session
// loop until the client disconnects.
func (s *Server) handleWebSocket(c echo.Context) error {
	if !s.connLimiter.Acquire() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "server at capacity"})
	}

	// RealIP prefers X-Forwarded-For over the transport address, so proxied
	// deployments rate limit on the real client, not the proxy.
	clientIP := c.RealIP()

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.connLimiter.Release()
		slog.Warn("WebSocket upgrade failed", "client_ip", clientIP, "error", err)
		return nil
	}

	s.serveSession(c.Request().Context(), conn, clientIP)
	return nil
}

// serveSession registers the connection, sends the one-time stats snapshot,
// and runs the receive loop. All exit paths funnel through the deferred
// cleanup; unregistration is idempotent so the redundancy is harmless.
func (s *Server) serveSession(ctx context.Context, conn *websocket.Conn, clientIP string) {
	logger := logging.WithClient(clientIP)

	defer s.connLimiter.Release()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Session panic recovered", "panic", r)
		}
		s.hub.Unregister(conn)
		_ = conn.Close()
	}()

	if err := s.hub.Register(conn, clientIP); err != nil {
		logger.Error("Failed to register connection", "error", err)
		return
	}

	s.sendSnapshot(ctx, conn, logger)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Warn("WebSocket read error", "error", err)
			}
			return
		}

		var msg domain.ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			// Malformed input is discarded; the connection stays open.
			logger.Debug("Discarding malformed message", "error", err)
			continue
		}

		if msg.Type != domain.TypeLaunch {
			continue
		}

		s.processLaunch(ctx, conn, clientIP, logger)
	}
}

// sendSnapshot unicasts current aggregate state to a newly joined connection
// so it is never behind.
func (s *Server) sendSnapshot(ctx context.Context, conn *websocket.Conn, logger *slog.Logger) {
	total, rate := s.svc.Stats(ctx)
	data, err := json.Marshal(domain.NewStatsMessage(total, rate, s.hub.OnlineCount()))
	if err != nil {
		logger.Error("Failed to marshal stats snapshot", "error", err)
		return
	}
	s.hub.Unicast(conn, data)
}

func (s *Server) processLaunch(ctx context.Context, conn *websocket.Conn, clientIP string, logger *slog.Logger) {
	outcome, err := s.svc.Launch(ctx, clientIP)
	if err != nil {
		// Counter increment failed; the session stays alive.
		logger.Error("Launch failed", "error", err)
		return
	}

	if !outcome.Allowed {
		data, err := json.Marshal(domain.NewCooldownMessage(cooldownNotice))
		if err != nil {
			logger.Error("Failed to marshal cooldown message", "error", err)
			return
		}
		s.hub.Unicast(conn, data)
		return
	}

	if outcome.Display {
		data, err := json.Marshal(domain.NewFireworkMessage(outcome.X, outcome.Count, outcome.SampleRate))
		if err != nil {
			logger.Error("Failed to marshal firework message", "error", err)
			return
		}
		s.hub.Broadcast(domain.TypeFirework, data)
		return
	}

	data, err := json.Marshal(domain.NewCountUpdateMessage(outcome.Count))
	if err != nil {
		logger.Error("Failed to marshal count update", "error", err)
		return
	}
	s.hub.Broadcast(domain.TypeCountUpdate, data)
}
