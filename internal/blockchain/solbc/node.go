// internal/blockchain/solbc/node.go
package solbc

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

// node представляет отдельный RPC узел
type node struct {
	client *rpc.Client
	url    string

	mu           sync.Mutex
	successCount uint64
	errorCount   uint64
	latency      time.Duration
}

// NodeStats содержит метрики производительности RPC узла
type NodeStats struct {
	URL          string
	SuccessCount uint64
	ErrorCount   uint64
	Latency      time.Duration
}

func newNode(url string) *node {
	return &node{client: rpc.New(url), url: url}
}

// record обновляет метрики узла
func (n *node) record(success bool, latency time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if success {
		n.successCount++
	} else {
		n.errorCount++
	}
	if n.latency == 0 {
		n.latency = latency
		return
	}
	n.latency = (n.latency + latency) / 2
}

func (n *node) stats() NodeStats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return NodeStats{
		URL:          n.url,
		SuccessCount: n.successCount,
		ErrorCount:   n.errorCount,
		Latency:      n.latency,
	}
}
