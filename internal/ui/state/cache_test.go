package state

import (
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/position"
)

func snapshotFor(authority solana.PublicKey, sub uint16, at time.Time) position.Snapshot {
	return position.Snapshot{Authority: authority, SubAccount: sub, Exists: true, FetchedAt: at}
}

func TestSnapshotCacheConcurrentAccess(t *testing.T) {
	cache := NewSnapshotCache(zap.NewNop())
	authority := solana.NewWallet().PublicKey()

	var wg sync.WaitGroup
	numGoroutines := 10
	perGoroutine := 50

	wg.Add(numGoroutines * 2)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				cache.Put(snapshotFor(authority, uint16(j%8), time.Now()))
			}
		}(i)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				_, _ = cache.Get(authority.String(), uint16(j%8))
				_ = cache.ForAuthority(authority.String())
			}
		}(i)
	}
	wg.Wait()

	entries, reads, _, writes := cache.GetStats()
	if entries != 8 {
		t.Errorf("Expected 8 cached subaccounts, got %d", entries)
	}
	if reads == 0 || writes == 0 {
		t.Errorf("Expected reads and writes, got reads=%d writes=%d", reads, writes)
	}
}

func TestSnapshotCacheKeepsNewest(t *testing.T) {
	cache := NewSnapshotCache(zap.NewNop())
	authority := solana.NewWallet().PublicKey()
	now := time.Now()

	newer := snapshotFor(authority, 1, now)
	newer.BalanceText = "$20.00"
	older := snapshotFor(authority, 1, now.Add(-time.Minute))
	older.BalanceText = "$10.00"

	cache.Put(newer)
	cache.Put(older)

	got, ok := cache.Get(authority.String(), 1)
	if !ok {
		t.Fatal("snapshot should be cached")
	}
	if got.BalanceText != "$20.00" {
		t.Errorf("older snapshot replaced newer one: %s", got.BalanceText)
	}

	_, _, hits, _ := cache.GetStats()
	if hits != 1 {
		t.Errorf("Expected 1 hit, got %d", hits)
	}
}

func TestSnapshotCacheSeparatesAuthorities(t *testing.T) {
	cache := NewSnapshotCache(zap.NewNop())
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	cache.Put(snapshotFor(a, 0, time.Now()))
	cache.Put(snapshotFor(a, 1, time.Now()))
	cache.Put(snapshotFor(b, 0, time.Now()))

	if n := len(cache.ForAuthority(a.String())); n != 2 {
		t.Errorf("Expected 2 snapshots for a, got %d", n)
	}
	if _, ok := cache.Get(b.String(), 1); ok {
		t.Error("b has no subaccount 1")
	}

	cache.Clear()
	if n := len(cache.ForAuthority(a.String())); n != 0 {
		t.Errorf("Expected empty cache after Clear, got %d", n)
	}
}

func TestSnapshotCacheCleanup(t *testing.T) {
	cache := NewSnapshotCache(zap.NewNop())
	authority := solana.NewWallet().PublicKey()

	// старую запись кладём напрямую, в обход Put
	cache.mu.Lock()
	cache.snapshots[key{authority: authority.String(), subAccount: 0}] = entry{
		snapshot: snapshotFor(authority, 0, time.Now()),
		storedAt: time.Now().Add(-time.Hour),
	}
	cache.mu.Unlock()

	cache.Put(snapshotFor(authority, 1, time.Now()))

	removed := cache.CleanupStale(30 * time.Minute)
	if removed != 1 {
		t.Errorf("Expected 1 snapshot to be removed, got %d", removed)
	}
	if _, ok := cache.Get(authority.String(), 0); ok {
		t.Error("Old snapshot should have been removed")
	}
	if _, ok := cache.Get(authority.String(), 1); !ok {
		t.Error("New snapshot should still exist")
	}
}
