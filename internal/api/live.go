package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"referral_contest/internal/model"
	"referral_contest/pkg/auth"
	"referral_contest/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = pongWait * 9 / 10
	clientBacklog = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type liveClient struct {
	conn *websocket.Conn
	send chan []byte
}

// LiveHub fans domain events out to connected mini-app clients. It is an
// event publisher: clients that fall behind are disconnected.
type LiveHub struct {
	mu      sync.Mutex
	clients map[*liveClient]struct{}
	closed  bool
}

func NewLiveHub() *LiveHub {
	return &LiveHub{clients: make(map[*liveClient]struct{})}
}

func NewLiveRoutes(handler *gin.RouterGroup, hub *LiveHub, a *auth.TelegramAuth) {
	h := handler.Group("/ws")
	h.Use(a.TelegramAuthMiddleware())

	h.GET("/live", hub.ServeWS)
}

func (h *LiveHub) Publish(_ context.Context, event model.Event) error {
	out, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- out:
		default:
			logger.Logger().Warn("Dropping slow live client")
			h.removeLocked(client)
		}
	}
	return nil
}

// Clients is the number of connected clients.
func (h *LiveHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *LiveHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for client := range h.clients {
		h.removeLocked(client)
	}
}

func (h *LiveHub) ServeWS(c *gin.Context) {
	log := logger.Logger()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &liveClient{conn: conn, send: make(chan []byte, clientBacklog)}
	if !h.register(client) {
		conn.Close()
		return
	}

	if user, ok := auth.UserFromContext(c); ok {
		log.Debug("Live client connected", zap.Int64("telegram_id", user.ID))
	}

	go h.writeLoop(client)
	go h.readLoop(client)
}

func (h *LiveHub) register(client *liveClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[client] = struct{}{}
	return true
}

func (h *LiveHub) remove(client *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *LiveHub) removeLocked(client *liveClient) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
}

// readLoop discards client messages; it only notices disconnects and pongs.
func (h *LiveHub) readLoop(client *liveClient) {
	defer func() {
		h.remove(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *LiveHub) writeLoop(client *liveClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Logger().Debug("Live write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
