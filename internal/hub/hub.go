// Package hub implements the connection registry: a single goroutine owns the
// live set and all mutations flow through its command channel, so concurrent
// session handlers never touch the map directly.
package hub

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/siphyshu/ascii-patakhe/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

// client is one registered connection.
type client struct {
	id       uuid.UUID
	clientIP string
	writer   *clientWriter
}

// --- Command types ---

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	connection   *websocket.Conn
	clientIP     string
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	connection *websocket.Conn
}

type broadcastCmd struct {
	baseHubCmd
	messageType string
	data        []byte
}

type unicastCmd struct {
	baseHubCmd
	connection *websocket.Conn
	data       []byte
}

type onlineCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub tracks live connections and fans messages out to them.
type Hub struct {
	cmdCh   chan hubCmd
	clock   clockwork.Clock
	clients map[*websocket.Conn]*client
	done    chan struct{}
}

func NewHub(clock clockwork.Clock) *Hub {
	h := &Hub{
		cmdCh:   make(chan hubCmd, 256),
		clock:   clock,
		clients: make(map[*websocket.Conn]*client),
		done:    make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.connection)
		case broadcastCmd:
			h.handleBroadcast(c)
		case unicastCmd:
			h.handleUnicast(c)
		case onlineCountCmd:
			c.replyChannel <- len(h.clients)
		case stopCmd:
			h.handleStop()
			return
		default:
			slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if _, exists := h.clients[c.connection]; exists {
		c.errorChannel <- fmt.Errorf("connection already registered")
		return
	}

	cl := &client{
		id:       uuid.New(),
		clientIP: c.clientIP,
		writer:   newClientWriter(c.connection, h.clock),
	}
	h.clients[c.connection] = cl

	metrics.HubConnectedClients.Set(float64(len(h.clients)))
	slog.Info("Client connected", "client_ip", c.clientIP, "conn_id", cl.id.String(), "online", len(h.clients))
	c.errorChannel <- nil
}

// handleUnregister removes a connection. Removing an unknown connection is a
// no-op, so redundant cleanup paths are safe.
func (h *Hub) handleUnregister(conn *websocket.Conn) {
	cl, exists := h.clients[conn]
	if !exists {
		return
	}

	cl.writer.stop()
	delete(h.clients, conn)

	metrics.HubConnectedClients.Set(float64(len(h.clients)))
	slog.Info("Client disconnected", "client_ip", cl.clientIP, "conn_id", cl.id.String(), "online", len(h.clients))
}

// handleBroadcast delivers to a snapshot of the live set. Clients whose send
// buffer is full are collected and removed after the pass, so one bad
// connection never blocks delivery to the rest.
func (h *Hub) handleBroadcast(c broadcastCmd) {
	var slow []*websocket.Conn
	for conn, cl := range h.clients {
		select {
		case cl.writer.sendChannel <- c.data:
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow client", "client_ip", h.clients[conn].clientIP)
		metrics.HubSlowClientsEvicted.Inc()
		h.handleUnregister(conn)
	}

	metrics.HubBroadcastsTotal.WithLabelValues(c.messageType).Inc()
}

func (h *Hub) handleUnicast(c unicastCmd) {
	cl, exists := h.clients[c.connection]
	if !exists {
		slog.Debug("Unicast to unregistered connection dropped")
		return
	}

	select {
	case cl.writer.sendChannel <- c.data:
	default:
		slog.Warn("Unicast dropped, client send buffer full", "client_ip", cl.clientIP)
	}
}

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down", "clients", len(h.clients))
	for conn, cl := range h.clients {
		cl.writer.stopGraceful("Server shutting down")
		delete(h.clients, conn)
	}
	metrics.HubConnectedClients.Set(0)
}

// --- Public API ---

// Register adds a connection to the live set. Must be called exactly once per
// connection, after a successful upgrade.
func (h *Hub) Register(conn *websocket.Conn, clientIP string) error {
	errCh := make(chan error, 1)
	h.cmdCh <- registerCmd{connection: conn, clientIP: clientIP, errorChannel: errCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a connection. Idempotent.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.cmdCh <- unregisterCmd{connection: conn}
}

// Broadcast delivers data to every currently registered connection.
// messageType is only used for metrics.
func (h *Hub) Broadcast(messageType string, data []byte) {
	h.cmdCh <- broadcastCmd{messageType: messageType, data: data}
}

// Unicast delivers data to a single connection, best effort.
func (h *Hub) Unicast(conn *websocket.Conn, data []byte) {
	h.cmdCh <- unicastCmd{connection: conn, data: data}
}

// OnlineCount returns the number of live connections, or -1 on timeout.
func (h *Hub) OnlineCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- onlineCountCmd{replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("OnlineCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop closes every connection and shuts the hub down. Blocks until the hub
// goroutine has exited or the stop timeout is reached.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timer := h.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Hub stop timeout exceeded", "timeout", stopTimeout)
	}
}
