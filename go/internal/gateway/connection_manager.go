package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/mcdev12/petitbac/go/internal/game"
)

// SessionProvider resolves session slugs to live sessions.
type SessionProvider interface {
	Session(slug string) (*game.Session, error)
	Get(slug string) (*game.Session, error)
	List() []game.Summary
}

// ConnectionManager manages the WebSocket connections of every session and
// delivers game events to them.
type ConnectionManager struct {
	connections map[string]*Connection
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	sessions SessionProvider
}

// Connection is one client WebSocket. The player and session fields are owned
// by the read goroutine.
type Connection struct {
	ID      string
	Slug    string
	Conn    *websocket.Conn
	Manager *ConnectionManager

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	limiter   *rate.Limiter

	ConnectedAt time.Time

	player  uuid.UUID
	session *game.Session
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	// RateLimit and RateBurst bound the inbound messages of one connection.
	RateLimit   rate.Limit
	RateBurst   int
	CheckOrigin func(r *http.Request) bool
}

// ConnectionStats is a snapshot of the open connections.
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveSessions   int            `json:"active_sessions"`
	Sessions         map[string]int `json:"session_connections"`
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  16 * 1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		RateLimit:       20,
		RateBurst:       40,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a connection manager resolving sessions
// through sessions. The provider may be set later with SetSessions.
func NewConnectionManager(config ConnectionConfig, sessions SessionProvider) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:   config,
		sessions: sessions,
	}
}

// SetSessions sets the session provider. It must be called before the first
// connection is accepted.
func (cm *ConnectionManager) SetSessions(sessions SessionProvider) {
	cm.sessions = sessions
}

// UpgradeConnection upgrades an HTTP connection to a WebSocket bound to slug.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, slug string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Slug:        slug,
		Conn:        conn,
		Manager:     cm,
		send:        make(chan []byte, cm.config.SendBufferSize),
		closed:      make(chan struct{}),
		limiter:     rate.NewLimiter(cm.config.RateLimit, cm.config.RateBurst),
		ConnectedAt: time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("slug", slug).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn.ID] = conn

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if current, ok := cm.connections[conn.ID]; ok && current == conn {
		delete(cm.connections, conn.ID)

		log.Info().
			Str("connection_id", conn.ID).
			Str("slug", conn.Slug).
			Msg("connection unregistered")
	}
}

func (cm *ConnectionManager) connection(id string) (*Connection, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	conn, ok := cm.connections[id]
	return conn, ok
}

// Send delivers event to the connection identified by connID. It never
// blocks: a connection whose buffer is full is dropped.
func (cm *ConnectionManager) Send(connID string, event game.Event) {
	conn, ok := cm.connection(connID)
	if !ok {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event", string(event.Name)).Msg("failed to marshal event")
		return
	}

	select {
	case <-conn.closed:
	case conn.send <- data:
	default:
		log.Warn().
			Str("connection_id", conn.ID).
			Str("slug", conn.Slug).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.close()
	}
}

// Stats returns statistics about active connections.
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{Sessions: make(map[string]int)}
	for _, conn := range cm.connections {
		stats.TotalConnections++
		stats.Sessions[conn.Slug]++
	}
	stats.ActiveSessions = len(stats.Sessions)
	return stats
}

// CloseAll closes every connection.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.Lock()
	connections := cm.connections
	cm.connections = make(map[string]*Connection)
	cm.mu.Unlock()

	for _, conn := range connections {
		conn.close()
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.Conn.Close()
	})
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.closed:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump reads client messages until the socket fails. Losing the socket is
// a disconnect for the player bound to it.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.close()
		if c.session != nil {
			c.session.Disconnect(c.ID, c.player)
		}
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))

		if !c.limiter.Allow() {
			log.Debug().
				Str("connection_id", c.ID).
				Msg("rate limit exceeded, dropping message")
			continue
		}
		c.handleClientMessage(message)
	}
}
