package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"facedistance/internal/calibration"
	"facedistance/internal/dto"
	"facedistance/internal/logger"
	"facedistance/internal/services"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// maxPushMessage bounds one pushed base64 JPEG.
	maxPushMessage = 8 << 20
	// control frame payloads are limited to 125 bytes, 2 of them the close code
	maxCloseReason = 123
)

// NewUpgrader upgrades HTTP connections to WebSocket, accepting the given
// origins. "*" accepts every origin.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// client serialises writes to one websocket connection.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// close sends a close frame with the given code before dropping the connection.
func (c *client) close(code int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
	c.conn.Close()
}

// DeviceWebsocketHandler streams the server's own camera: calibration
// progress first, then annotated frames with distances.
func DeviceWebsocketHandler(manager *services.Manager, upgrader *websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := manager.Logger()

		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		c := &client{conn: connection}

		session, err := manager.NewSession()
		if err != nil {
			log.Error("Could not create session: %v", err)
			c.send(dto.ErrorMessage{Error: err.Error()})
			c.close(websocket.CloseInternalServerErr, "session setup failed")
			return
		}
		defer session.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// the client never sends anything useful; reading detects the disconnect
		go func() {
			defer cancel()
			for {
				if _, _, err := connection.ReadMessage(); err != nil {
					logDisconnect(session.Logger(), err)
					return
				}
			}
		}()

		err = session.RunDevice(ctx, c.send)
		c.close(closeCode(err), closeText(err))
	}
}

// PushWebsocketHandler estimates distances on frames pushed by the client.
func PushWebsocketHandler(manager *services.Manager, upgrader *websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := manager.Logger()

		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(maxPushMessage)
		c := &client{conn: connection}

		session, err := manager.NewSession()
		if err != nil {
			log.Error("Could not create session: %v", err)
			c.send(dto.ErrorMessage{Error: err.Error()})
			c.close(websocket.CloseInternalServerErr, "session setup failed")
			return
		}
		defer session.Close()

		// unblock the read loop on server shutdown
		stop := context.AfterFunc(r.Context(), func() {
			c.close(websocket.CloseGoingAway, "server shutting down")
		})
		defer stop()

		for {
			_, msg, err := connection.ReadMessage()
			if err != nil {
				logDisconnect(session.Logger(), err)
				c.close(websocket.CloseNormalClosure, "")
				return
			}

			if err := session.HandlePush(msg, c.send); err != nil {
				session.Logger().Warning("Session ended: %v", err)
				c.close(closeCode(err), closeText(err))
				return
			}
		}
	}
}

func logDisconnect(log *logger.Logger, err error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Info("Client disconnected normally")
	} else {
		log.Warning("Client disconnected with error: %v", err)
	}
}

func closeCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, services.ErrTransport):
		return websocket.CloseNormalClosure
	case errors.Is(err, calibration.ErrCalibrationFailed):
		return websocket.ClosePolicyViolation
	default:
		return websocket.CloseInternalServerErr
	}
}

func closeText(err error) string {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, services.ErrTransport) {
		return ""
	}
	return truncateReason(err.Error(), maxCloseReason)
}

// truncateReason cuts text to at most limit bytes on a rune boundary.
func truncateReason(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
