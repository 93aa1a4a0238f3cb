package broadcast

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"go-tag-detector/internal/logger"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebsocketHub pushes every published message to the connected viewers
type WebsocketHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewWebsocketHub creates an empty hub
func NewWebsocketHub() *WebsocketHub {
	return &WebsocketHub{
		clients: make(map[*websocket.Conn]bool),
	}
}

// Register adds a connection
func (h *WebsocketHub) Register(client *websocket.Conn) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	logger.WithField("clients", total).Info("Tag detection viewer connected")
}

// Unregister removes and closes a connection
func (h *WebsocketHub) Unregister(client *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.Close()
	}
	total := len(h.clients)
	h.mu.Unlock()
	logger.WithField("clients", total).Info("Tag detection viewer disconnected")
}

// GetClientCount returns the number of connected viewers
func (h *WebsocketHub) GetClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// OnPublish writes the message to every viewer. Viewers that cannot keep up
// are dropped; that is not a publish failure.
func (h *WebsocketHub) OnPublish(ctx context.Context, msg Message) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.WithError(err).Warn("Dropping tag detection viewer")
			delete(h.clients, client)
			client.Close()
		}
	}
	return nil
}

// Name returns the subscriber name
func (h *WebsocketHub) Name() string {
	return "websocket"
}

// ServeHTTP upgrades the request and keeps the viewer registered until it
// goes away
func (h *WebsocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	connection, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("WebSocket upgrade error")
		return
	}
	connection.SetReadLimit(512)
	connection.SetReadDeadline(time.Now().Add(pongWait))
	connection.SetPongHandler(func(appData string) error {
		connection.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	h.Register(connection)
	defer h.Unregister(connection)

	done := make(chan struct{})
	defer close(done)
	go h.ping(connection, done)

	for {
		if _, _, err := connection.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				logger.WithError(err).Debug("Viewer read ended")
			}
			return
		}
	}
}

func (h *WebsocketHub) ping(connection *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			h.mu.Lock()
			err := connection.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			h.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Close disconnects every viewer
func (h *WebsocketHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		client.Close()
		delete(h.clients, client)
	}
	return nil
}
