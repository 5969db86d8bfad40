package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dukahub/storefront/internal/domain/auth"
)

const (
	// writeWait bounds a single frame write to a session.
	writeWait = 10 * time.Second
	// pongWait is how long a session may stay silent before it is dropped.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// sendBuffer is the per-session outbound queue; overflow drops frames.
	sendBuffer = 64
)

// Session is one authenticated realtime connection. It owns a buffered
// outbound queue drained by a single writer goroutine, so frames to one
// session are delivered in emission order. All per-session resources are
// released on close; nothing is scheduled for a detached session.
type Session struct {
	identity auth.Identity
	hub      *Hub
	conn     *websocket.Conn

	send chan []byte
	done chan struct{}
	once sync.Once
}

// Join admits an upgraded websocket connection under the given verified
// identity: the session is attached to the hub and its read/write pumps
// start. The caller must not use conn afterwards.
func (h *Hub) Join(conn *websocket.Conn, id auth.Identity) *Session {
	s := newSession(h, conn, id)
	h.attach(s)
	go s.writePump()
	go s.readPump()
	return s
}

func newSession(h *Hub, conn *websocket.Conn, id auth.Identity) *Session {
	return &Session{
		identity: id,
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

// enqueue queues a frame for delivery. It never blocks: frames to a closed
// session are discarded, and a full queue drops the frame (no replay
// semantics on this channel).
func (s *Session) enqueue(frame []byte) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.send <- frame:
	default:
		s.hub.lg.Warn("slow realtime session, frame dropped",
			zap.String("user_id", s.identity.UserID))
	}
}

// close tears the session down exactly once: the writer stops, the
// underlying connection closes, and the hub detaches the session.
func (s *Session) close() {
	s.once.Do(func() {
		close(s.done)
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.hub.detach(s)
	})
}

// writePump drains the outbound queue onto the connection and keeps the
// connection alive with periodic pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case frame := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

// readPump consumes inbound frames until the peer goes away. The channel is
// push-only, so inbound payloads are discarded; reading is still required to
// process control frames and detect disconnects.
func (s *Session) readPump() {
	defer s.close()

	s.conn.SetReadLimit(1 << 10)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
