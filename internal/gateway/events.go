package gateway

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mockmate/mockmate/internal/domain"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
)

// identityEvent is the one frame type pushed over /api/events. The UI
// uses it to react to sign-in and sign-out from any tab, including the
// OAuth popup.
type identityEvent struct {
	Type     string          `json:"type"`
	SignedIn bool            `json:"signedIn"`
	Identity domain.Identity `json:"identity"`
}

func newIdentityEvent(identity domain.Identity) identityEvent {
	return identityEvent{Type: "identity", SignedIn: identity.SignedIn(), Identity: identity}
}

// handleEvents upgrades to WebSocket and streams identity changes until
// the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	s.log.Debug().Str("remote", r.RemoteAddr).Msg("event feed connected")

	// Scoped to this UI instance: the feed only carries identity changes
	// for the browser it belongs to.
	updates, cancel := s.notifier.Subscribe(uiInstanceFrom(r))
	defer cancel()

	// The client never sends application frames; the read loop only
	// services pongs and surfaces disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Initial frame so the UI starts from the current identity.
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(newIdentityEvent(identityFrom(r))); err != nil {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case identity := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(newIdentityEvent(identity)); err != nil {
				s.log.Debug().Err(err).Msg("event feed write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			s.log.Debug().Str("remote", r.RemoteAddr).Msg("event feed disconnected")
			return
		case <-r.Context().Done():
			return
		}
	}
}
