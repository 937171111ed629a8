package sink

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/enviromon/enviromon/pkg/model"
)

// sendAttempts bounds delivery attempts per Send invocation. Exhausted
// readings fall back to the pending queue for the drain loop.
const sendAttempts = 3

// Manager owns the single live connection to the sink, the pending
// queue, and the drain loop. Send and the drain loop may run
// concurrently; connection state and the queue are guarded by one lock.
type Manager struct {
	// BackoffBase scales the exponential backoff between failed send
	// attempts (base, 2x, 4x). Set before Start.
	BackoffBase time.Duration

	// DrainInterval is the fixed sleep between drain cycles. Set before
	// Start.
	DrainInterval time.Duration

	// SendTimeout bounds a single publish attempt. Set before Start.
	SendTimeout time.Duration

	dial   Dialer
	logger *slog.Logger

	mu      sync.Mutex
	conn    Conn
	pending []model.Reading

	active atomic.Bool
	stop   chan struct{}
	done   chan struct{}
}

// NewManager creates a delivery manager. The connection is established
// lazily on the first send.
func NewManager(dial Dialer, logger *slog.Logger) *Manager {
	return &Manager{
		BackoffBase:   time.Second,
		DrainInterval: time.Second,
		SendTimeout:   5 * time.Second,
		dial:          dial,
		logger:        logger,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the background drain loop.
func (m *Manager) Start() {
	if !m.active.CompareAndSwap(false, true) {
		return
	}
	go m.drainLoop()
}

// Send attempts to deliver a reading, retrying with exponential backoff.
// It never returns an error: a reading that cannot be delivered right now
// is queued for the drain loop. After the final failed attempt the
// connection is also torn down, since a handle that keeps failing is
// assumed stale.
func (m *Manager) Send(ctx context.Context, reading model.Reading) {
	payload, err := json.Marshal(reading)
	if err != nil {
		m.logger.Error("encode reading for sink", "error", err)
		return
	}

	for attempt := 0; attempt < sendAttempts; attempt++ {
		conn, ok := m.ensureConnected(ctx)
		if !ok {
			m.enqueue(reading)
			return
		}

		pubCtx, cancel := context.WithTimeout(ctx, m.SendTimeout)
		err := conn.Publish(pubCtx, payload)
		cancel()
		if err == nil {
			m.logger.Debug("reading delivered to sink")
			return
		}

		m.logger.Warn("sink publish failed",
			"attempt", attempt+1,
			"error", err,
		)

		select {
		case <-time.After(m.BackoffBase << attempt):
		case <-ctx.Done():
			m.enqueue(reading)
			return
		}
	}

	m.enqueue(reading)
	m.teardown()
}

// ensureConnected returns the live connection, dialing one if needed.
// Dial failure is not an error for the caller: it reports false and the
// reading goes to the queue.
func (m *Manager) ensureConnected(ctx context.Context) (Conn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		return m.conn, true
	}

	conn, err := m.dial(ctx)
	if err != nil {
		m.logger.Warn("sink connect failed", "error", err)
		return nil, false
	}

	m.logger.Info("sink connected")
	m.conn = conn
	return conn, true
}

// Connected reports whether a live session exists.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// QueueLen returns the number of readings awaiting delivery.
func (m *Manager) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Shutdown stops the drain loop, tears down the connection, and drops
// any undelivered readings. Best-effort delivery only: the queue is not
// flushed.
func (m *Manager) Shutdown() {
	if m.active.CompareAndSwap(true, false) {
		close(m.stop)
		<-m.done
	}

	m.mu.Lock()
	dropped := len(m.pending)
	m.pending = nil
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			m.logger.Warn("close sink connection", "error", err)
		}
	}
	if dropped > 0 {
		m.logger.Warn("dropping undelivered readings on shutdown", "count", dropped)
	}
}

func (m *Manager) drainLoop() {
	defer close(m.done)
	for {
		select {
		case <-m.stop:
			return
		case <-time.After(m.DrainInterval):
		}

		if reading, ok := m.dequeue(); ok {
			m.Send(context.Background(), reading)
		}
	}
}

func (m *Manager) enqueue(reading model.Reading) {
	m.mu.Lock()
	m.pending = append(m.pending, reading)
	queued := len(m.pending)
	m.mu.Unlock()

	m.logger.Info("reading queued for later delivery", "queued", queued)
}

func (m *Manager) dequeue() (model.Reading, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.pending) == 0 {
		return model.Reading{}, false
	}
	reading := m.pending[0]
	m.pending = m.pending[1:]
	return reading, true
}

func (m *Manager) teardown() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			m.logger.Warn("close sink connection", "error", err)
		}
		m.logger.Info("sink connection torn down after repeated failures")
	}
}
