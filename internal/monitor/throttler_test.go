package monitor

import (
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/position"
)

func TestSnapshotThrottlerConcurrentAccess(t *testing.T) {
	logger := zap.NewNop()
	outputCh := make(chan tea.Msg, 100)
	throttler := NewSnapshotThrottler(100*time.Millisecond, outputCh, logger)

	var wg sync.WaitGroup
	numGoroutines := 10
	updatesPerGoroutine := 100

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < updatesPerGoroutine; j++ {
				throttler.Send(position.Snapshot{SubAccount: uint16(id)})
			}
		}(i)
	}

	go func() {
		for i := 0; i < 20; i++ {
			throttler.FlushPending()
			time.Sleep(10 * time.Millisecond)
		}
	}()

	wg.Wait()

	sent, dropped := throttler.GetStats()
	if sent == 0 {
		t.Error("Expected some snapshots to be sent")
	}
	if sent+dropped < uint64(numGoroutines*updatesPerGoroutine) {
		t.Errorf("Expected every Send to be counted, got sent=%d dropped=%d", sent, dropped)
	}
}

func TestSnapshotThrottlerKeepsLatest(t *testing.T) {
	outputCh := make(chan tea.Msg, 10)
	throttler := NewSnapshotThrottler(50*time.Millisecond, outputCh, zap.NewNop())

	for i := 0; i < 5; i++ {
		throttler.Send(position.Snapshot{SubAccount: uint16(i)})
	}

	sent, dropped := throttler.GetStats()
	if sent != 1 || dropped != 4 {
		t.Fatalf("Expected 1 sent and 4 throttled, got %d and %d", sent, dropped)
	}
	if !throttler.HasPending() {
		t.Fatal("Expected a pending snapshot")
	}

	time.Sleep(60 * time.Millisecond)
	throttler.FlushPending()

	first := (<-outputCh).(SnapshotMsg)
	last := (<-outputCh).(SnapshotMsg)
	if first.Snapshot.SubAccount != 0 || last.Snapshot.SubAccount != 4 {
		t.Errorf("Expected subaccounts 0 and 4, got %d and %d", first.Snapshot.SubAccount, last.Snapshot.SubAccount)
	}
	if throttler.HasPending() {
		t.Error("Pending snapshot should be flushed")
	}
}
