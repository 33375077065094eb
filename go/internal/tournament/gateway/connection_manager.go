package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/orchestrator"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/session"
)

// Server message types.
const (
	MessageTypeState  = "state"
	MessageTypeResult = "result"
	MessageTypeError  = "error"
)

// ServerMessage is everything the server writes to a websocket client.
type ServerMessage struct {
	Type    string         `json:"type"`
	Version uint64         `json:"version,omitempty"`
	View    *session.View  `json:"view,omitempty"`
	Action  string         `json:"action,omitempty"`
	Result  *models.Result `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ClientMessage is a control command sent by a websocket client.
type ClientMessage struct {
	Action string `json:"action"`
}

// CommandFunc applies a control action on behalf of a client.
type CommandFunc func(ctx context.Context, action orchestrator.Action) (orchestrator.Outcome, error)

// ConnectionManager fans session state out to every websocket client.
type ConnectionManager struct {
	connections map[*Connection]bool
	mu          sync.RWMutex

	// latest state message, sent to clients as soon as they connect
	latest []byte

	upgrader    websocket.Upgrader
	config      ConnectionConfig
	broadcastCh chan []byte
	command     CommandFunc
	log         zerolog.Logger
}

// Connection is one websocket client.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds websocket settings.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default websocket settings.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		SendBuffer:      64,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a connection manager. command may be nil, in
// which case client commands are refused.
func NewConnectionManager(config ConnectionConfig, command CommandFunc, logger zerolog.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan []byte, 256),
		command:     command,
		log:         logger.With().Str("component", "ws").Logger(),
	}
}

// Start processes broadcasts until ctx is cancelled, then closes every
// connection.
func (cm *ConnectionManager) Start(ctx context.Context) {
	cm.log.Info().Msg("connection manager started")
	for {
		select {
		case <-ctx.Done():
			cm.closeAll()
			cm.log.Info().Msg("connection manager shutting down")
			return
		case data := <-cm.broadcastCh:
			cm.handleBroadcast(data)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a websocket client.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	now := time.Now()
	connection := &Connection{
		ID:          uuid.NewString(),
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBuffer),
		Manager:     cm,
		ConnectedAt: now,
		LastPing:    now,
	}
	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	cm.log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("websocket connection established")
	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn] = true
	if cm.latest != nil {
		select {
		case conn.Send <- cm.latest:
		default:
		}
	}
	cm.log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, ok := cm.connections[conn]; ok {
		delete(cm.connections, conn)
		close(conn.Send)
		cm.log.Info().Str("connection_id", conn.ID).Msg("connection unregistered")
	}
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for conn := range cm.connections {
		delete(cm.connections, conn)
		close(conn.Send)
	}
}

// BroadcastUpdate queues a state update for every client.
func (cm *ConnectionManager) BroadcastUpdate(u orchestrator.Update) {
	data, err := json.Marshal(ServerMessage{Type: MessageTypeState, Version: u.Version, View: u.View})
	if err != nil {
		cm.log.Error().Err(err).Msg("failed to marshal state update")
		return
	}

	cm.mu.Lock()
	cm.latest = data
	cm.mu.Unlock()

	select {
	case cm.broadcastCh <- data:
	default:
		cm.log.Warn().Uint64("version", u.Version).Msg("broadcast channel full, dropping update")
	}
}

func (cm *ConnectionManager) handleBroadcast(data []byte) {
	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.connections))
	for conn := range cm.connections {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		if !cm.trySend(conn, data) {
			cm.log.Warn().Str("connection_id", conn.ID).Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}
}

// trySend queues data without blocking. It holds the read lock so Send is
// never written after unregister closed it.
func (cm *ConnectionManager) trySend(conn *Connection, data []byte) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if !cm.connections[conn] {
		return true
	}
	select {
	case conn.Send <- data:
		return true
	default:
		return false
	}
}

// ConnectionStats reports active connections.
type ConnectionStats struct {
	TotalConnections int `json:"total_connections"`
}

// Stats returns statistics about active connections.
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return ConnectionStats{TotalConnections: len(cm.connections)}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Manager.log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to websocket")
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Manager.log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Manager.log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected websocket close error")
			}
			break
		}
		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage runs a client command and replies to that client only.
func (c *Connection) handleClientMessage(message []byte) {
	var msg ClientMessage
	reply := ServerMessage{Type: MessageTypeResult}
	switch {
	case json.Unmarshal(message, &msg) != nil || msg.Action == "":
		reply = ServerMessage{Type: MessageTypeError, Error: "expected {\"action\": ...}"}
	case c.Manager.command == nil:
		reply = ServerMessage{Type: MessageTypeError, Action: msg.Action, Error: "commands are disabled"}
	default:
		ctx, cancel := context.WithTimeout(context.Background(), c.Manager.config.WriteTimeout)
		out, err := c.Manager.command(ctx, orchestrator.Action(msg.Action))
		cancel()
		reply.Action = msg.Action
		if err != nil {
			reply = ServerMessage{Type: MessageTypeError, Action: msg.Action, Error: err.Error()}
		} else {
			reply.Result = &out.Result
		}
	}

	c.Manager.log.Debug().
		Str("connection_id", c.ID).
		Str("action", msg.Action).
		Str("reply", reply.Type).
		Msg("client command handled")

	data, err := json.Marshal(reply)
	if err != nil {
		c.Manager.log.Error().Err(err).Msg("failed to marshal reply")
		return
	}
	c.Manager.trySend(c, data)
}
