// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 3

	// getMultipleAccounts принимает не больше 100 ключей за вызов
	maxAccountsPerRequest = 100
)

// Options настраивает таймауты и повторные попытки клиента.
type Options struct {
	Timeout    time.Duration
	Retries    int
	Commitment rpc.CommitmentType
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Retries <= 0 {
		o.Retries = DefaultRetries
	}
	if o.Commitment == "" {
		o.Commitment = rpc.CommitmentConfirmed
	}
	return o
}

// Client – тонкий адаптер над solana-go с ротацией узлов и exponential backoff.
type Client struct {
	nodes   []*node
	current int
	mu      sync.Mutex
	opts    Options
	logger  *zap.Logger
}

// NewClient создаёт клиент для списка RPC URL; первый URL считается основным.
func NewClient(urls []string, opts Options, logger *zap.Logger) (*Client, error) {
	if len(urls) == 0 {
		return nil, ErrNoRPCNodes
	}
	nodes := make([]*node, len(urls))
	for i, url := range urls {
		nodes[i] = newNode(url)
	}
	return &Client{
		nodes:  nodes,
		opts:   opts.withDefaults(),
		logger: logger.Named("solbc-client"),
	}, nil
}

// Endpoint возвращает основной RPC URL.
func (c *Client) Endpoint() string {
	return c.nodes[0].url
}

// Stats возвращает метрики всех узлов.
func (c *Client) Stats() []NodeStats {
	out := make([]NodeStats, len(c.nodes))
	for i, n := range c.nodes {
		out[i] = n.stats()
	}
	return out
}

// next возвращает текущий узел и сдвигает указатель для следующего запроса
func (c *Client) next() *node {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.nodes[c.current]
	c.current = (c.current + 1) % len(c.nodes)
	return n
}

// execute выполняет RPC-запрос с автоматическим переключением узлов при ошибке
func (c *Client) execute(ctx context.Context, method string, call func(context.Context, *rpc.Client) error) error {
	operation := func() (struct{}, error) {
		n := c.next()

		callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()

		start := time.Now()
		err := call(callCtx, n.client)
		n.record(err == nil, time.Since(start))
		if err == nil {
			return struct{}{}, nil
		}

		wrapped := NewRPCError(err, n.url, method)
		if !IsRetryable(err) {
			return struct{}{}, backoff.Permanent(wrapped)
		}
		c.logger.Debug("RPC request failed, trying next node",
			zap.String("method", method),
			zap.String("url", n.url),
			zap.Error(err))
		return struct{}{}, wrapped
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.opts.Retries)),
		backoff.WithMaxElapsedTime(c.opts.Timeout*time.Duration(c.opts.Retries)),
	)
	return err
}

// GetMultipleAccountsData получает данные нескольких аккаунтов; nil на позиции i значит, что аккаунта нет.
// Возвращаемый slot – минимальный из всех пачек.
func (c *Client) GetMultipleAccountsData(ctx context.Context, pubkeys []solana.PublicKey) (uint64, [][]byte, error) {
	data := make([][]byte, len(pubkeys))
	if len(pubkeys) == 0 {
		return 0, data, nil
	}

	var slot uint64
	for start := 0; start < len(pubkeys); start += maxAccountsPerRequest {
		end := start + maxAccountsPerRequest
		if end > len(pubkeys) {
			end = len(pubkeys)
		}
		chunk := pubkeys[start:end]

		var res *rpc.GetMultipleAccountsResult
		err := c.execute(ctx, "getMultipleAccounts", func(ctx context.Context, cl *rpc.Client) error {
			var err error
			res, err = cl.GetMultipleAccountsWithOpts(ctx, chunk, &rpc.GetMultipleAccountsOpts{
				Commitment: c.opts.Commitment,
				Encoding:   solana.EncodingBase64,
			})
			return err
		})
		if err != nil {
			c.logger.Debug("GetMultipleAccounts error",
				zap.Int("count", len(chunk)),
				zap.Error(err))
			return 0, nil, err
		}

		if res.Context.Slot < slot || slot == 0 {
			slot = res.Context.Slot
		}
		for i, acc := range res.Value {
			if acc == nil || acc.Data == nil {
				continue
			}
			data[start+i] = acc.Data.GetBinary()
		}
	}
	return slot, data, nil
}

// GetAccountData получает данные одного аккаунта.
func (c *Client) GetAccountData(ctx context.Context, pubkey solana.PublicKey) ([]byte, uint64, error) {
	var res *rpc.GetAccountInfoResult
	err := c.execute(ctx, "getAccountInfo", func(ctx context.Context, cl *rpc.Client) error {
		var err error
		res, err = cl.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: c.opts.Commitment,
		})
		return err
	})
	if err != nil {
		if IsAccountNotFoundError(err) {
			return nil, 0, ErrAccountNotFound
		}
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, 0, err
	}
	if res == nil || res.Value == nil || res.Value.Data == nil {
		return nil, 0, ErrAccountNotFound
	}
	return res.Value.Data.GetBinary(), res.Context.Slot, nil
}

// GetSlot возвращает текущий слот; используется как проверка доступности узла.
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	err := c.execute(ctx, "getSlot", func(ctx context.Context, cl *rpc.Client) error {
		var err error
		slot, err = cl.GetSlot(ctx, c.opts.Commitment)
		return err
	})
	return slot, err
}
