package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jobizaaa/network/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Client is one open socket of a member
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	memberID uuid.UUID
}

// WebSocketManager tracks open sockets per member and pushes realtime events to them
type WebSocketManager struct {
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	// a member may be connected from several devices
	memberClients map[uuid.UUID]map[*Client]bool
	mu            sync.RWMutex
	upgrader      websocket.Upgrader
	logger        *zap.Logger
}

// NewWebSocketManager creates a manager. checkOrigin may be nil to accept any origin.
func NewWebSocketManager(logger *zap.Logger, checkOrigin func(r *http.Request) bool) *WebSocketManager {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &WebSocketManager{
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		done:          make(chan struct{}),
		memberClients: make(map[uuid.UUID]map[*Client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// Run owns client registration until ctx is cancelled, then closes every socket.
func (m *WebSocketManager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			for memberID, clients := range m.memberClients {
				for client := range clients {
					close(client.send)
				}
				delete(m.memberClients, memberID)
			}
			m.mu.Unlock()
			return

		case client := <-m.register:
			m.mu.Lock()
			if _, ok := m.memberClients[client.memberID]; !ok {
				m.memberClients[client.memberID] = make(map[*Client]bool)
			}
			m.memberClients[client.memberID][client] = true
			m.mu.Unlock()
			m.logger.Debug("websocket client registered", zap.String("member_id", client.memberID.String()))

		case client := <-m.unregister:
			m.mu.Lock()
			if clients, ok := m.memberClients[client.memberID]; ok && clients[client] {
				delete(clients, client)
				if len(clients) == 0 {
					delete(m.memberClients, client.memberID)
				}
				close(client.send)
				m.logger.Debug("websocket client unregistered", zap.String("member_id", client.memberID.String()))
			}
			m.mu.Unlock()
		}
	}
}

// SendToMember writes event to every open socket of memberID. Slow clients
// whose buffer is full miss the event; it is still stored as a notification.
func (m *WebSocketManager) SendToMember(memberID uuid.UUID, event domain.RealtimeEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clients, ok := m.memberClients[memberID]
	if !ok {
		return
	}

	msg, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("failed to marshal realtime event", zap.Error(err))
		return
	}

	for client := range clients {
		select {
		case client.send <- msg:
		default:
			m.logger.Debug("websocket client buffer full", zap.String("member_id", memberID.String()))
		}
	}
}

// ConnectedClients returns the number of open sockets for memberID
func (m *WebSocketManager) ConnectedClients(memberID uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.memberClients[memberID])
}

// ServeWS handles GET /ws. The member comes from the websocket auth middleware.
func (m *WebSocketManager) ServeWS(w http.ResponseWriter, r *http.Request) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		m.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{conn: conn, send: make(chan []byte, sendBuffer), memberID: memberID}
	select {
	case m.register <- client:
	case <-m.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(m)
}

// readPump discards client frames; it exists to process pongs and notice disconnects.
func (c *Client) readPump(m *WebSocketManager) {
	defer func() {
		select {
		case m.unregister <- c:
		case <-m.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Debug("websocket closed unexpectedly", zap.String("member_id", c.memberID.String()), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
