package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raainshe/animedash/internal/logging"
	"github.com/raainshe/animedash/internal/metrics"
	"github.com/raainshe/animedash/internal/page"
)

// Live update message types
const (
	messageElements = "elements"
)

type wsMessage struct {
	Type    string            `json:"type"`
	Version uint64            `json:"version"`
	Data    map[string]string `json:"data"`
}

type wsClient struct {
	hub  *wsHub
	conn *websocket.Conn
	send chan []byte
}

type wsHub struct {
	clients    map[*wsClient]bool
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	closeOnce  sync.Once
	logger     *logging.Logger
}

func newWSHub(logger *logging.Logger) *wsHub {
	return &wsHub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *wsHub) run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				_ = client.conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(2*time.Second),
				)
				close(client.send)
				delete(h.clients, client)
			}
			metrics.WebSocketClients.Set(0)
			h.logger.Debug("Live update hub stopped, all clients disconnected")
			return
		case client := <-h.register:
			h.clients[client] = true
			metrics.WebSocketClients.Set(float64(len(h.clients)))
			h.logger.WithField("total", len(h.clients)).Debug("Live update client connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.WebSocketClients.Set(float64(len(h.clients)))
				h.logger.WithField("total", len(h.clients)).Debug("Live update client disconnected")
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Close signals the hub to stop and disconnect all clients
func (h *wsHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// forward relays page store updates to every client until the subscription
// closes or the hub stops
func (h *wsHub) forward(updates <-chan page.Update) {
	for update := range updates {
		payload, err := encodeUpdate(update)
		if err != nil {
			h.logger.WithError(err).Error("Failed to encode live update")
			continue
		}
		// Waiting here lets the page store merge updates that pile up meanwhile
		select {
		case h.broadcast <- payload:
		case <-h.done:
			return
		}
	}
}

func encodeUpdate(update page.Update) ([]byte, error) {
	return json.Marshal(wsMessage{Type: messageElements, Version: update.Version, Data: update.Elements})
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
