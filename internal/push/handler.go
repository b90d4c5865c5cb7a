package push

import (
	"net/http"
	"time"

	"github.com/fittrack/fittrack/internal/auth"
	"github.com/fittrack/fittrack/internal/middleware"
	"github.com/fittrack/fittrack/internal/notifications"
	"github.com/fittrack/fittrack/pkg"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is enforced by the middleware chain, the upgrade itself
	// accepts any origin that got this far
	CheckOrigin: func(_ *http.Request) bool { return true },
}

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{
		hub: hub,
	}
}

// HandleWS upgrades the connection and subscribes the client to its
// rooms: the per-user room always, the admin room for admins. The
// token arrives as a query parameter since browsers cannot set
// headers on websocket dials.
func (h *Handler) HandleWS(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	rooms := []string{notifications.UserRoom(claims.UserID)}
	if claims.Role == auth.RoleAdmin {
		rooms = append(rooms, notifications.AdminRoom)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("ws upgrade for user %d: %s", claims.UserID, err)
		return
	}

	sub := h.hub.subscribe(rooms)
	log.Debugf("ws client connected: user %d, rooms %v", claims.UserID, rooms)

	go h.writePump(conn, sub)
	go h.readPump(conn, sub)
}

// writePump forwards hub messages to the socket and keeps the
// connection alive with pings.
func (h *Handler) writePump(conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound messages (the channel is push-only) and
// unsubscribes when the client goes away.
func (h *Handler) readPump(conn *websocket.Conn, sub *subscriber) {
	defer func() {
		h.hub.unsubscribe(sub)
		_ = conn.Close()
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Tracef("ws read: %s", err)
			}
			return
		}
	}
}
