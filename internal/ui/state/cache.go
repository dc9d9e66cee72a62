package state

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/position"
)

// SnapshotCache keeps the last snapshot per (authority, subaccount) so the
// dashboard can render a switched-to subaccount before its refresh lands.
type SnapshotCache struct {
	snapshots map[key]entry
	mu        sync.RWMutex
	logger    *zap.Logger

	// Statistics (accessed atomically)
	reads  uint64
	hits   uint64
	writes uint64
}

type key struct {
	authority  string
	subAccount uint16
}

type entry struct {
	snapshot position.Snapshot
	storedAt time.Time
}

// NewSnapshotCache creates an empty cache
func NewSnapshotCache(logger *zap.Logger) *SnapshotCache {
	return &SnapshotCache{
		snapshots: make(map[key]entry),
		logger:    logger,
	}
}

func keyOf(snap position.Snapshot) key {
	return key{authority: snap.Authority.String(), subAccount: snap.SubAccount}
}

// Put stores the snapshot; an older snapshot never replaces a newer one.
func (c *SnapshotCache) Put(snap position.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := keyOf(snap)
	if cur, ok := c.snapshots[k]; ok && cur.snapshot.FetchedAt.After(snap.FetchedAt) {
		return
	}
	c.snapshots[k] = entry{snapshot: snap, storedAt: time.Now()}
	atomic.AddUint64(&c.writes, 1)
}

// Get returns the cached snapshot of a subaccount
func (c *SnapshotCache) Get(authority string, subAccount uint16) (position.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	atomic.AddUint64(&c.reads, 1)
	e, ok := c.snapshots[key{authority: authority, subAccount: subAccount}]
	if ok {
		atomic.AddUint64(&c.hits, 1)
	}
	return e.snapshot, ok
}

// ForAuthority returns copies of all cached snapshots of one authority
func (c *SnapshotCache) ForAuthority(authority string) []position.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	atomic.AddUint64(&c.reads, 1)
	out := make([]position.Snapshot, 0)
	for k, e := range c.snapshots {
		if k.authority == authority {
			out = append(out, e.snapshot)
		}
	}
	return out
}

// Clear removes everything, e.g. after a disconnect
func (c *SnapshotCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshots = make(map[key]entry)
	atomic.AddUint64(&c.writes, 1)
}

// GetStats returns cache statistics
func (c *SnapshotCache) GetStats() (entries, reads, hits, writes uint64) {
	c.mu.RLock()
	entries = uint64(len(c.snapshots))
	c.mu.RUnlock()

	reads = atomic.LoadUint64(&c.reads)
	hits = atomic.LoadUint64(&c.hits)
	writes = atomic.LoadUint64(&c.writes)
	return entries, reads, hits, writes
}

// CleanupStale removes snapshots stored longer than maxAge ago
func (c *SnapshotCache) CleanupStale(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for k, e := range c.snapshots {
		if e.storedAt.Before(cutoff) {
			delete(c.snapshots, k)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug("Cleaned up stale snapshots",
			zap.Int("removed", removed),
			zap.Int("remaining", len(c.snapshots)))
	}

	return removed
}
