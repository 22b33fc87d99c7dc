package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/campaign-vault/backend/internal/auth"
	"github.com/campaign-vault/backend/internal/events"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WSHub fans the campaign event stream out to every open socket. All
// sessions see the same stream, so sockets are kept in one flat set.
type WSHub struct {
	jwtSecret  string
	subscriber events.Subscriber
	log        *zap.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]uuid.UUID
}

func NewWSHub(jwtSecret string, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		jwtSecret:  jwtSecret,
		subscriber: subscriber,
		log:        log,
		conns:      make(map[*websocket.Conn]uuid.UUID),
	}
}

func (h *WSHub) Start(ctx context.Context) error {
	return h.subscriber.Subscribe(ctx, events.StreamCampaigns, h.broadcast)
}

func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("ws event not encodable", zap.String("type", event.Type), zap.Error(err))
		return
	}

	// writes happen under the lock; a socket must not be written concurrently
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, sessionID := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("ws write failed", zap.String("session_id", sessionID.String()), zap.Error(err))
		}
	}
}

// WSUpgradeMiddleware rejects plain HTTP requests to the socket route.
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}
}

func rejectWS(conn *websocket.Conn, reason string) {
	msg, _ := json.Marshal(fiber.Map{"error": reason})
	_ = conn.WriteMessage(websocket.TextMessage, msg)
	_ = conn.Close()
}

// HandleWS authenticates with ?token= (browsers cannot set headers on the
// handshake) and then only reads, to notice when the peer goes away.
func (h *WSHub) HandleWS(conn *websocket.Conn) {
	token := conn.Query("token")
	if token == "" {
		rejectWS(conn, "missing token")
		return
	}
	claims, err := auth.ParseJWT(h.jwtSecret, token)
	if err != nil {
		rejectWS(conn, "invalid token")
		return
	}

	h.mu.Lock()
	h.conns[conn] = claims.SessionID
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
