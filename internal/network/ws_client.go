package network

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"emubridge/internal/protocol"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSClient is a control connection to the host's /ws endpoint. It requests
// capture changes and reports capture state broadcasts.
type WSClient struct {
	hostAddr  string
	token     string
	send      chan protocol.Message
	done      chan struct{}
	closeOnce sync.Once

	// OnState is called for every capture state broadcast
	OnState func(captured bool)
	// OnError is called when the host rejects a request
	OnError func(request protocol.MessageType, msg string)

	mu          sync.Mutex
	isConnected bool
}

// NewWSClient creates a new WebSocket client
func NewWSClient(hostAddr, token string) *WSClient {
	return &WSClient{
		hostAddr: hostAddr,
		token:    token,
		send:     make(chan protocol.Message, 16),
		done:     make(chan struct{}),
	}
}

// Start begins the client loop (connect & process), reconnecting until Close
func (c *WSClient) Start() {
	go c.loop()
}

func (c *WSClient) loop() {
	for {
		c.connect()

		// If connect returns, it means we disconnected. Wait a bit and retry.
		select {
		case <-c.done:
			return
		case <-time.After(5 * time.Second):
			log.Info().Str("component", "ws").Msg("Attempting reconnection")
		}
	}
}

func (c *WSClient) connect() {
	u := url.URL{Scheme: "ws", Host: c.hostAddr, Path: "/ws"}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Warn().Str("component", "ws").Str("url", u.String()).Err(err).Msg("Connection failed")
		return
	}
	defer conn.Close()

	c.setConnected(true)
	defer c.setConnected(false)
	log.Info().Str("component", "ws").Str("url", u.String()).Msg("Connected to host")

	readDone := make(chan struct{})
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		c.writePump(conn, readDone)
	}()

	c.readPump(conn)
	close(readDone)
	<-writeDone
}

func (c *WSClient) setConnected(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = v
}

func (c *WSClient) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(4096)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Str("component", "ws").Err(err).Msg("Read error")
			}
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Str("component", "ws").Err(err).Msg("Invalid message")
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *WSClient) writePump(conn *websocket.Conn, readDone <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn().Str("component", "ws").Err(err).Msg("Write error")
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-readDone:
			return

		case <-c.done:
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *WSClient) handleMessage(msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeState:
		var payload protocol.StatePayload
		if err := remarshal(msg.Payload, &payload); err != nil {
			log.Warn().Str("component", "ws").Err(err).Msg("Invalid state payload")
			return
		}
		log.Debug().Str("component", "ws").Bool("captured", payload.Captured).Msg("Capture state")
		if c.OnState != nil {
			c.OnState(payload.Captured)
		}

	case protocol.TypeError:
		var payload protocol.ErrorPayload
		if err := remarshal(msg.Payload, &payload); err != nil {
			return
		}
		log.Warn().Str("component", "ws").Str("request", string(payload.Request)).Str("error", payload.Error).Msg("Host rejected request")
		if c.OnError != nil {
			c.OnError(payload.Request, payload.Error)
		}
	}
}

// remarshal converts a generically decoded payload into a typed one
func remarshal(in interface{}, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// RequestCapture asks the host to capture the pointer
func (c *WSClient) RequestCapture() {
	c.send <- protocol.Message{Type: protocol.TypeCapture}
}

// RequestUncapture asks the host to release the pointer
func (c *WSClient) RequestUncapture() {
	c.send <- protocol.Message{Type: protocol.TypeUncapture}
}

// IsConnected returns true if client is connected to host
func (c *WSClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected
}

// Close stops the client
func (c *WSClient) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
