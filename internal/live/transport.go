package live

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/guitarbuddy/backend/internal/logging"
	"github.com/guitarbuddy/backend/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// Handler upgrades HTTP requests to WebSocket connections, authenticates
// them from the token query parameter and pumps frames to and from the
// Coordinator.
type Handler struct {
	coord    *Coordinator
	verifier TokenVerifier
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler. Browser origins must appear in
// allowedOrigins unless it contains "*". Requests without an Origin
// header are accepted.
func NewHandler(coord *Coordinator, verifier TokenVerifier, allowedOrigins []string) *Handler {
	return &Handler{
		coord:    coord,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") {
			return true
		}
		if slices.ContainsFunc(allowed, func(o string) bool { return strings.EqualFold(o, origin) }) {
			return true
		}
		// Same-host connections are always allowed.
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		slog.Debug("websocket upgrade failed", append(logging.RequestFields(ctx), slog.String("error", err.Error()))...)
		return
	}

	identity, err := Authenticate(h.verifier, r.URL.Query().Get("token"))
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			event := logging.SecurityEventWSInvalidToken
			if authErr.Code == CloseMissingToken {
				event = logging.SecurityEventWSMissingToken
			}
			logging.LogSecurityEvent(ctx, event, "rejected websocket handshake")
			closeWith(ws, authErr.Code, authErr.Reason)
		}
		_ = ws.Close()
		return
	}

	conn, err := h.coord.Connect(identity)
	if err != nil {
		closeWith(ws, websocket.CloseGoingAway, "server shutting down")
		_ = ws.Close()
		return
	}

	slog.Info("websocket connected", append(logging.RequestFields(ctx),
		slog.Uint64("conn_id", uint64(conn.ID())),
		slog.String("user_id", identity.UserID))...)

	go h.writePump(ws, conn)
	go h.readPump(ws, conn)
}

func closeWith(ws *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// readPump feeds inbound text frames to the coordinator until the socket
// fails, then releases the connection.
func (h *Handler) readPump(ws *websocket.Conn, conn *Conn) {
	defer func() {
		h.coord.Disconnect(conn)
		_ = ws.Close()
	}()

	ws.SetReadLimit(maxMessageSize)
	if err := ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Error("failed to set read deadline", slog.Any("error", err))
		return
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				slog.Warn("unexpected websocket close",
					slog.Uint64("conn_id", uint64(conn.ID())),
					slog.String("error", err.Error()))
			}
			return
		}
		if messageType != websocket.TextMessage {
			metrics.LiveFramesDropped.WithLabelValues("binary").Inc()
			continue
		}
		h.coord.HandleFrame(conn, data)
	}
}

// writePump writes queued messages and keepalive pings. It sends a close
// frame once the coordinator closes the outbound queue.
func (h *Handler) writePump(ws *websocket.Conn, conn *Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case msg, ok := <-conn.Outbound():
			if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Debug("websocket write failed",
					slog.Uint64("conn_id", uint64(conn.ID())),
					slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
