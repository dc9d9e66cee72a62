package monitor

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/position"
)

// SnapshotMsg доставляет свежий снимок позиций в UI.
type SnapshotMsg struct {
	Snapshot position.Snapshot
}

// SnapshotThrottler limits how often snapshots reach the UI channel.
// Only the latest pending snapshot is kept.
type SnapshotThrottler struct {
	mu             sync.RWMutex
	updateInterval time.Duration
	lastUpdate     time.Time
	pending        *SnapshotMsg
	outputCh       chan<- tea.Msg
	logger         *zap.Logger

	droppedUpdates uint64
	sentUpdates    uint64
}

// NewSnapshotThrottler creates a throttler with the specified update interval.
func NewSnapshotThrottler(updateInterval time.Duration, outputCh chan<- tea.Msg, logger *zap.Logger) *SnapshotThrottler {
	return &SnapshotThrottler{
		updateInterval: updateInterval,
		outputCh:       outputCh,
		logger:         logger,
	}
}

// Send отправляет снимок либо откладывает его до FlushPending.
func (st *SnapshotThrottler) Send(snap position.Snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()

	msg := SnapshotMsg{Snapshot: snap}
	now := time.Now()

	if now.Sub(st.lastUpdate) < st.updateInterval {
		st.pending = &msg
		st.droppedUpdates++
		st.logger.Debug("Snapshot update throttled",
			zap.Uint16("subaccount", snap.SubAccount),
			zap.Duration("sinceLast", now.Sub(st.lastUpdate)))
		return
	}

	select {
	case st.outputCh <- msg:
		st.lastUpdate = now
		st.sentUpdates++
		st.pending = nil
	default:
		st.pending = &msg
		st.droppedUpdates++
		st.logger.Warn("UI channel full, snapshot kept as pending",
			zap.Uint16("subaccount", snap.SubAccount))
	}
}

// FlushPending sends the pending snapshot once the interval has passed.
func (st *SnapshotThrottler) FlushPending() {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.pending == nil {
		return
	}

	now := time.Now()
	if now.Sub(st.lastUpdate) < st.updateInterval {
		return
	}
	select {
	case st.outputCh <- *st.pending:
		st.lastUpdate = now
		st.sentUpdates++
		st.pending = nil
	default:
		st.logger.Debug("Cannot flush pending snapshot, channel still full")
	}
}

// Run периодически сбрасывает отложенный снимок, пока не закрыт done.
func (st *SnapshotThrottler) Run(done <-chan struct{}) {
	ticker := time.NewTicker(st.updateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			st.FlushPending()
		case <-done:
			return
		}
	}
}

// GetStats returns sent and throttled counts.
func (st *SnapshotThrottler) GetStats() (sent, dropped uint64) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sentUpdates, st.droppedUpdates
}

// HasPending returns true if a snapshot waits for delivery.
func (st *SnapshotThrottler) HasPending() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.pending != nil
}
