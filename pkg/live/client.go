package live

import (
	"log/slog"
	"sync"
	"time"

	"github.com/enviromon/enviromon/pkg/model"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Subscriber is one live websocket listener. The server pushes
// JSON-encoded readings; anything the peer sends is read and discarded
// to service control frames.
type Subscriber struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	logger *slog.Logger

	send chan model.Reading
	stop chan struct{}
	once sync.Once
}

// NewSubscriber wraps an upgraded websocket connection.
func NewSubscriber(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		id:     uuid.NewString(),
		hub:    hub,
		conn:   conn,
		logger: logger,
		send:   make(chan model.Reading, sendBuffer),
		stop:   make(chan struct{}),
	}
}

// ID returns the subscriber identifier.
func (s *Subscriber) ID() string { return s.id }

// Start registers the subscriber with the hub and launches its pumps.
func (s *Subscriber) Start() {
	s.hub.Add(s)
	go s.writePump()
	go s.readPump()
}

// Prime queues the current reading so a fresh subscriber sees state
// immediately instead of waiting for the next poll cycle.
func (s *Subscriber) Prime(reading model.Reading) {
	s.push(reading)
}

// push queues a reading without blocking. It reports false when the
// subscriber's buffer is full, which the hub treats as a dead listener.
func (s *Subscriber) push(reading model.Reading) bool {
	select {
	case <-s.stop:
		return false
	default:
	}
	select {
	case s.send <- reading:
		return true
	default:
		return false
	}
}

// shutdown stops the pumps. Idempotent.
func (s *Subscriber) shutdown() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Subscriber) readPump() {
	defer func() {
		s.hub.Remove(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		// Inbound messages are ignored; reading keeps control frames flowing.
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("live subscriber read error", "id", s.id, "error", err)
			}
			return
		}
	}
}

func (s *Subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case <-s.stop:
			_ = s.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return

		case reading := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.hub.Remove(s)
				return
			}
			if err := s.conn.WriteJSON(reading); err != nil {
				s.logger.Debug("live subscriber write failed", "id", s.id, "error", err)
				s.hub.Remove(s)
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.hub.Remove(s)
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.hub.Remove(s)
				return
			}
		}
	}
}
