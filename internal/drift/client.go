// internal/drift/client.go
package drift

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/driftoor/internal/wallet"
)

// QuoteSpotMarketIndex – индекс спотового рынка USDC.
const QuoteSpotMarketIndex uint16 = 0

// ClientConfig описывает, к какому кошельку и каким рынкам привязан клиент.
type ClientConfig struct {
	Connection         Connection
	Wallet             *wallet.Adapter
	Env                string
	ProgramID          solana.PublicKey
	PerpMarketIndexes  []uint16
	SpotMarketIndexes  []uint16
	ActiveSubAccountID uint16
	PollInterval       time.Duration
}

type marketSubscription struct {
	pubkey solana.PublicKey
	id     string
}

// DriftClient держит подписку на рынки и указатель на активный субаккаунт.
type DriftClient struct {
	conn      Connection
	wallet    *wallet.Adapter
	authority solana.PublicKey
	env       string
	programID solana.PublicKey
	perpIdx   []uint16
	spotIdx   []uint16
	loader    *AccountLoader
	logger    *zap.Logger

	mu          sync.RWMutex
	activeSubID uint16
	subscribed  bool
	perpMarkets map[uint16]*PerpMarket
	spotMarkets map[uint16]*SpotMarket
	marketSlots map[solana.PublicKey]uint64
	marketSubs  []marketSubscription
}

// NewDriftClient проверяет конфигурацию и создаёт клиента без подписки.
func NewDriftClient(cfg ClientConfig, logger *zap.Logger) (*DriftClient, error) {
	if cfg.Connection == nil {
		return nil, errors.New("drift client requires a connection")
	}
	if !cfg.Wallet.Connected() {
		return nil, fmt.Errorf("%w: wallet has no public key", wallet.ErrMissingCapability)
	}
	if err := ValidateEnv(cfg.Env); err != nil {
		return nil, err
	}
	programID := cfg.ProgramID
	if programID.IsZero() {
		programID = ProgramID
	}
	perpIdx := cfg.PerpMarketIndexes
	if len(perpIdx) == 0 {
		perpIdx = []uint16{0}
	}
	spotIdx := cfg.SpotMarketIndexes
	if len(spotIdx) == 0 {
		spotIdx = []uint16{QuoteSpotMarketIndex}
	}

	logger = logger.Named("drift-client")
	return &DriftClient{
		conn:        cfg.Connection,
		wallet:      cfg.Wallet,
		authority:   cfg.Wallet.Authority(),
		env:         cfg.Env,
		programID:   programID,
		perpIdx:     append([]uint16(nil), perpIdx...),
		spotIdx:     append([]uint16(nil), spotIdx...),
		loader:      NewAccountLoader(cfg.Connection, cfg.PollInterval, logger),
		logger:      logger,
		activeSubID: cfg.ActiveSubAccountID,
		perpMarkets: make(map[uint16]*PerpMarket),
		spotMarkets: make(map[uint16]*SpotMarket),
		marketSlots: make(map[solana.PublicKey]uint64),
	}, nil
}

func (c *DriftClient) Env() string                 { return c.env }
func (c *DriftClient) Authority() solana.PublicKey { return c.authority }
func (c *DriftClient) ProgramID() solana.PublicKey { return c.programID }
func (c *DriftClient) Connection() Connection      { return c.conn }
func (c *DriftClient) PerpMarketIndexes() []uint16 { return append([]uint16(nil), c.perpIdx...) }
func (c *DriftClient) SpotMarketIndexes() []uint16 { return append([]uint16(nil), c.spotIdx...) }
func (c *DriftClient) Loader() *AccountLoader      { return c.loader }

func (c *DriftClient) IsSubscribed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscribed
}

// Subscribe загружает рынки и включает их опрос. Ошибка первой загрузки отменяет подписку.
func (c *DriftClient) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	if c.subscribed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	var subs []marketSubscription
	for _, idx := range c.perpIdx {
		pk, err := GetPerpMarketPublicKey(c.programID, idx)
		if err != nil {
			c.removeSubscriptions(subs)
			return err
		}
		subs = append(subs, marketSubscription{pubkey: pk, id: c.loader.AddAccount(pk, c.perpMarketCallback(idx, pk))})
	}
	for _, idx := range c.spotIdx {
		pk, err := GetSpotMarketPublicKey(c.programID, idx)
		if err != nil {
			c.removeSubscriptions(subs)
			return err
		}
		subs = append(subs, marketSubscription{pubkey: pk, id: c.loader.AddAccount(pk, c.spotMarketCallback(idx, pk))})
	}

	if err := c.loader.Load(ctx); err != nil {
		c.removeSubscriptions(subs)
		return fmt.Errorf("load market accounts: %w", err)
	}
	if err := c.checkMarketsLoaded(); err != nil {
		c.removeSubscriptions(subs)
		return err
	}

	c.mu.Lock()
	c.marketSubs = subs
	c.subscribed = true
	c.mu.Unlock()

	c.logger.Info("Drift client subscribed",
		zap.String("authority", c.authority.String()),
		zap.Int("perp_markets", len(c.perpIdx)),
		zap.Int("spot_markets", len(c.spotIdx)))
	return nil
}

func (c *DriftClient) checkMarketsLoaded() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, idx := range c.perpIdx {
		if _, ok := c.perpMarkets[idx]; !ok {
			return fmt.Errorf("%w: perp market %d", ErrMarketNotLoaded, idx)
		}
	}
	for _, idx := range c.spotIdx {
		if _, ok := c.spotMarkets[idx]; !ok {
			return fmt.Errorf("%w: spot market %d", ErrMarketNotLoaded, idx)
		}
	}
	return nil
}

func (c *DriftClient) removeSubscriptions(subs []marketSubscription) {
	for _, s := range subs {
		c.loader.RemoveAccount(s.pubkey, s.id)
	}
}

// Unsubscribe останавливает опрос рынков.
func (c *DriftClient) Unsubscribe() error {
	c.mu.Lock()
	subs := c.marketSubs
	c.marketSubs = nil
	c.subscribed = false
	c.mu.Unlock()

	c.removeSubscriptions(subs)
	c.logger.Debug("Drift client unsubscribed", zap.String("authority", c.authority.String()))
	return nil
}

func (c *DriftClient) perpMarketCallback(idx uint16, pk solana.PublicKey) AccountCallback {
	return func(data []byte, slot uint64) {
		if data == nil {
			return
		}
		m, err := DecodePerpMarket(data, idx)
		if err != nil {
			c.logger.Warn("Failed to decode perp market", zap.Uint16("market_index", idx), zap.Error(err))
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if slot < c.marketSlots[pk] {
			return
		}
		c.marketSlots[pk] = slot
		c.perpMarkets[idx] = m
	}
}

func (c *DriftClient) spotMarketCallback(idx uint16, pk solana.PublicKey) AccountCallback {
	return func(data []byte, slot uint64) {
		if data == nil {
			return
		}
		m, err := DecodeSpotMarket(data)
		if err != nil {
			c.logger.Warn("Failed to decode spot market", zap.Uint16("market_index", idx), zap.Error(err))
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if slot < c.marketSlots[pk] {
			return
		}
		c.marketSlots[pk] = slot
		c.spotMarkets[idx] = m
	}
}

func (c *DriftClient) ActiveSubAccountID() uint16 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeSubID
}

// SwitchActiveUser меняет субаккаунт по умолчанию для последующих вызовов.
func (c *DriftClient) SwitchActiveUser(ctx context.Context, subAccountID uint16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.GetUserAccountPublicKey(subAccountID); err != nil {
		return err
	}
	c.mu.Lock()
	prev := c.activeSubID
	c.activeSubID = subAccountID
	c.mu.Unlock()

	c.logger.Debug("Active subaccount switched",
		zap.Uint16("from", prev),
		zap.Uint16("to", subAccountID))
	return nil
}

func (c *DriftClient) GetUserAccountPublicKey(subAccountID uint16) (solana.PublicKey, error) {
	return GetUserAccountPublicKey(c.programID, c.authority, subAccountID)
}

// NewUser создаёт новый, ещё не подписанный handle субаккаунта. Владелец handle отвечает за Unsubscribe.
func (c *DriftClient) NewUser(subAccountID uint16) (User, error) {
	pk, err := c.GetUserAccountPublicKey(subAccountID)
	if err != nil {
		return nil, err
	}
	return newDriftUser(c.conn, c.loader, pk, subAccountID, c.logger), nil
}

func (c *DriftClient) GetSpotMarketAccount(marketIndex uint16) (*SpotMarket, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.spotMarkets[marketIndex]
	if !ok {
		return nil, fmt.Errorf("%w: spot market %d", ErrMarketNotLoaded, marketIndex)
	}
	return m, nil
}

func (c *DriftClient) GetPerpMarketAccount(marketIndex uint16) (*PerpMarket, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.perpMarkets[marketIndex]
	if !ok {
		return nil, fmt.Errorf("%w: perp market %d", ErrMarketNotLoaded, marketIndex)
	}
	return m, nil
}

// GetOracleDataForPerpMarket возвращает последнюю цену оракула, сохранённую в AMM рынка.
func (c *DriftClient) GetOracleDataForPerpMarket(marketIndex uint16) (OraclePriceData, error) {
	m, err := c.GetPerpMarketAccount(marketIndex)
	if err != nil {
		return OraclePriceData{}, err
	}
	pk, err := GetPerpMarketPublicKey(c.programID, marketIndex)
	if err != nil {
		return OraclePriceData{}, err
	}
	c.mu.RLock()
	slot := c.marketSlots[pk]
	c.mu.RUnlock()
	return OraclePriceData{Price: big.NewInt(m.LastOraclePrice), Slot: slot}, nil
}

var _ Client = (*DriftClient)(nil)
