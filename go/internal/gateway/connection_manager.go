package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizarena/go/internal/events"
)

// ConnectionManager owns every player socket and implements the
// orchestrator's Broadcaster.
type ConnectionManager struct {
	conns map[string]*Connection
	mu    sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	router   *Router
	logger   zerolog.Logger
}

// Connection is one player's websocket
type Connection struct {
	ID          string
	DisplayName string
	ConnectedAt time.Time

	ws      *websocket.Conn
	send    chan []byte
	manager *ConnectionManager

	mu     sync.Mutex
	closed bool
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	// AllowedOrigins empty or containing "*" accepts every origin.
	AllowedOrigins []string
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
	}
}

func (c ConnectionConfig) checkOrigin(r *http.Request) bool {
	if len(c.AllowedOrigins) == 0 || slices.Contains(c.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(c.AllowedOrigins, r.Header.Get("Origin"))
}

type Option func(*ConnectionManager)

func WithLogger(l zerolog.Logger) Option {
	return func(cm *ConnectionManager) {
		cm.logger = l
	}
}

func NewConnectionManager(config ConnectionConfig, opts ...Option) *ConnectionManager {
	cm := &ConnectionManager{
		conns: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.checkOrigin,
		},
		config: config,
		logger: log.With().Str("component", "gateway").Logger(),
	}
	for _, opt := range opts {
		opt(cm)
	}
	return cm
}

// UpgradeConnection upgrades r to a websocket, registers it and starts its
// pumps. The new connection is sent the public room list straight away.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, displayName string) (*Connection, error) {
	if cm.router == nil {
		return nil, fmt.Errorf("connection manager has no router")
	}
	ws, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &Connection{
		ID:          uuid.New().String(),
		DisplayName: displayName,
		ConnectedAt: time.Now(),
		ws:          ws,
		send:        make(chan []byte, cm.config.SendBufferSize),
		manager:     cm,
	}
	cm.register(c)

	go c.writePump()
	go c.readPump()

	cm.reply(c, Envelope{Type: string(events.TypeRoomsList), Data: cm.router.coord.PublicRooms()})

	cm.logger.Info().
		Str("conn_id", c.ID).
		Str("display_name", displayName).
		Msg("WebSocket connection established")
	return c, nil
}

func (cm *ConnectionManager) register(c *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.conns[c.ID] = c
	cm.logger.Debug().
		Str("conn_id", c.ID).
		Int("total_connections", len(cm.conns)).
		Msg("connection registered")
}

// unregister removes c and closes its send queue. It reports whether c was
// still registered.
func (cm *ConnectionManager) unregister(c *Connection) bool {
	cm.mu.Lock()
	_, exists := cm.conns[c.ID]
	if exists {
		delete(cm.conns, c.ID)
	}
	cm.mu.Unlock()

	if !exists {
		return false
	}
	c.closeSend()
	cm.logger.Info().Str("conn_id", c.ID).Msg("connection unregistered")
	return true
}

// drop disconnects a connection whose send buffer is full. The read pump
// then exits and reports the disconnect.
func (cm *ConnectionManager) drop(c *Connection) {
	cm.logger.Warn().Str("conn_id", c.ID).Msg("connection send buffer full, closing connection")
	cm.unregister(c)
	c.ws.Close()
}

// Send enqueues msg for the given connections. Unknown ids are skipped.
func (cm *ConnectionManager) Send(connIDs []string, msg events.Outbound) {
	cm.mu.RLock()
	targets := make([]*Connection, 0, len(connIDs))
	for _, id := range connIDs {
		if c, ok := cm.conns[id]; ok {
			targets = append(targets, c)
		}
	}
	cm.mu.RUnlock()

	cm.deliver(targets, msg)
}

// BroadcastAll enqueues msg for every open connection
func (cm *ConnectionManager) BroadcastAll(msg events.Outbound) {
	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.conns))
	for _, c := range cm.conns {
		targets = append(targets, c)
	}
	cm.mu.RUnlock()

	cm.deliver(targets, msg)
}

func (cm *ConnectionManager) deliver(targets []*Connection, msg events.Outbound) {
	if len(targets) == 0 {
		return
	}
	data, err := json.Marshal(broadcastEnvelope(msg))
	if err != nil {
		cm.logger.Error().Err(err).Str("type", string(msg.Type)).Msg("failed to marshal event for broadcast")
		return
	}

	for _, c := range targets {
		if !c.enqueue(data) {
			cm.drop(c)
		}
	}

	cm.logger.Debug().
		Str("type", string(msg.Type)).
		Str("room_id", msg.RoomID).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

func (cm *ConnectionManager) reply(c *Connection, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		cm.logger.Error().Err(err).Str("conn_id", c.ID).Msg("failed to marshal reply")
		return
	}
	if !c.enqueue(data) {
		cm.drop(c)
	}
}

// CloseAll sends a close frame to every connection. Used on shutdown.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.conns))
	for _, c := range cm.conns {
		targets = append(targets, c)
	}
	cm.mu.RUnlock()

	for _, c := range targets {
		cm.unregister(c)
	}
}

type ConnectionStats struct {
	TotalConnections int `json:"total_connections"`
}

func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return ConnectionStats{TotalConnections: len(cm.conns)}
}

// enqueue reports false when the send buffer is full. A closed connection
// silently discards.
func (c *Connection) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Connection) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	cfg := c.manager.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
		c.manager.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.manager.logger.Error().Err(err).Str("conn_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.manager.logger.Error().Err(err).Str("conn_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump feeds client messages to the router. Its exit is the
// connection:closed event.
func (c *Connection) readPump() {
	cfg := c.manager.config
	defer func() {
		c.manager.unregister(c)
		c.ws.Close()
		c.manager.router.disconnect(c)
	}()

	c.ws.SetReadLimit(cfg.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.manager.logger.Error().Err(err).Str("conn_id", c.ID).Msg("unexpected WebSocket close error")
			}
			return
		}

		c.manager.reply(c, c.manager.router.handle(c, message))
		c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	}
}
