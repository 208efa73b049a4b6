package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"emubridge/internal/protocol"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local network tool, any origin may connect once authenticated
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSManager handles WebSocket connections and broadcasting
type WSManager struct {
	server     *Server
	clients    map[*WebSocketClient]bool
	clientsMu  sync.RWMutex
	broadcast  chan protocol.Message
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	shutdown   chan struct{}
	stopOnce   sync.Once
}

// WebSocketClient represents a connected control client
type WebSocketClient struct {
	manager *WSManager
	conn    *websocket.Conn
	send    chan []byte
	ip      string
}

func newWSManager(s *Server) *WSManager {
	return &WSManager{
		server:     s,
		clients:    make(map[*WebSocketClient]bool),
		broadcast:  make(chan protocol.Message, 16),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
		shutdown:   make(chan struct{}),
	}
}

func (m *WSManager) start() {
	for {
		select {
		case client := <-m.register:
			m.clientsMu.Lock()
			m.clients[client] = true
			total := len(m.clients)
			m.clientsMu.Unlock()
			log.Info().Str("component", "ws").Str("remote", client.ip).Int("clients", total).Msg("Client registered")

			// New clients learn the current state immediately
			client.sendMessage(stateMessage(m.server.ctrl.Captured()))

		case client := <-m.unregister:
			m.clientsMu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.send)
				log.Info().Str("component", "ws").Str("remote", client.ip).Int("clients", len(m.clients)).Msg("Client unregistered")
			}
			m.clientsMu.Unlock()

		case message := <-m.broadcast:
			m.broadcastMessage(message)

		case <-m.shutdown:
			m.clientsMu.Lock()
			for client := range m.clients {
				delete(m.clients, client)
				close(client.send)
			}
			m.clientsMu.Unlock()
			return
		}
	}
}

func (m *WSManager) stop() {
	m.stopOnce.Do(func() { close(m.shutdown) })
}

func (m *WSManager) broadcastMessage(message protocol.Message) {
	jsonMsg, err := json.Marshal(message)
	if err != nil {
		log.Error().Str("component", "ws").Err(err).Msg("Failed to marshal broadcast message")
		return
	}

	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()

	for client := range m.clients {
		select {
		case client.send <- jsonMsg:
		default:
			close(client.send)
			delete(m.clients, client)
		}
	}
}

func (m *WSManager) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Str("component", "ws").Err(err).Msg("Failed to upgrade connection")
		return
	}

	client := &WebSocketClient{
		manager: m,
		conn:    conn,
		send:    make(chan []byte, 256),
		ip:      r.RemoteAddr,
	}

	select {
	case m.register <- client:
	case <-m.shutdown:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub.
func (c *WebSocketClient) readPump() {
	defer func() {
		select {
		case c.manager.unregister <- c:
		case <-c.manager.shutdown:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Str("component", "ws").Err(err).Msg("Read error")
			}
			return
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(50 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendMessage queues a message for this client only. Must be called from the
// hub goroutine, which owns the send channel.
func (c *WebSocketClient) sendMessage(msg protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Warn().Str("component", "ws").Str("remote", c.ip).Msg("Client send buffer full")
	}
}

func (c *WebSocketClient) handleMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warn().Str("component", "ws").Err(err).Msg("Invalid message format")
		return
	}

	ctrl := c.manager.server.ctrl

	var fn func() error
	switch msg.Type {
	case protocol.TypeCapture:
		fn = ctrl.CaptureMouse
	case protocol.TypeUncapture:
		fn = ctrl.UncaptureMouse
	default:
		log.Debug().Str("component", "ws").Str("type", string(msg.Type)).Msg("Ignoring message")
		return
	}

	log.Info().Str("component", "ws").Str("request", string(msg.Type)).Str("remote", c.ip).Msg("Capture request")

	if err := safeCall(fn); err != nil {
		log.Warn().Str("component", "ws").Str("request", string(msg.Type)).Err(err).Msg("Capture request failed")
		c.manager.queue(protocol.Message{
			Type:    protocol.TypeError,
			Payload: protocol.ErrorPayload{Request: msg.Type, Error: err.Error()},
		})
		// Failed requests still report the resulting state
		c.manager.queue(stateMessage(ctrl.Captured()))
	}
	// Successful transitions are broadcast through BroadcastState
}

// safeCall turns a panic in the controller into an error. Bridge misuse
// keeps panicking and takes the process down.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if isMisuse(r) {
				panic(r)
			}
			err = fmt.Errorf("ws: recovered: %v", r)
		}
	}()
	return fn()
}

func (m *WSManager) queue(msg protocol.Message) {
	select {
	case m.broadcast <- msg:
	case <-m.shutdown:
	}
}

func stateMessage(captured bool) protocol.Message {
	return protocol.Message{
		Type:    protocol.TypeState,
		Payload: protocol.StatePayload{Captured: captured},
	}
}

// BroadcastState sends the capture state to every connected client
func (m *WSManager) BroadcastState(captured bool) {
	m.queue(stateMessage(captured))
}
