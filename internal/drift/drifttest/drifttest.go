// Package drifttest содержит фейковые реализации drift.Client, drift.User
// и drift.Connection для тестов пакетов уровня выше.
package drifttest

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/driftoor/internal/drift"
)

// Tracker считает живые подписки клиентов и пользователей.
type Tracker struct {
	clients atomic.Int64
	users   atomic.Int64
}

func (t *Tracker) ActiveClients() int { return int(t.clients.Load()) }
func (t *Tracker) ActiveUsers() int   { return int(t.users.Load()) }

// Connection отдаёт данные аккаунтов из карты.
type Connection struct {
	mu       sync.Mutex
	Accounts map[solana.PublicKey][]byte
	Slot     uint64
	Err      error
	Calls    int
}

func NewConnection() *Connection {
	return &Connection{Accounts: make(map[solana.PublicKey][]byte), Slot: 1}
}

func (c *Connection) Set(pk solana.PublicKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pk] = data
}

func (c *Connection) GetMultipleAccountsData(ctx context.Context, keys []solana.PublicKey) (uint64, [][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls++
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	if c.Err != nil {
		return 0, nil, c.Err
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		if d, ok := c.Accounts[k]; ok {
			out[i] = d
		}
	}
	return c.Slot, out, nil
}

// Client – управляемая реализация drift.Client.
type Client struct {
	Tracker *Tracker

	mu         sync.Mutex
	authority  solana.PublicKey
	env        string
	active     uint16
	subscribed bool

	// Accounts задаёт существующие субаккаунты.
	Accounts map[uint16]*drift.UserAccount
	Spot     map[uint16]*drift.SpotMarket
	Perp     map[uint16]*drift.PerpMarket
	Oracle   map[uint16]drift.OraclePriceData

	SubscribeErr     error
	UserSubscribeErr error
	ExistsErr        error
	// SwitchHook вызывается внутри SwitchActiveUser до смены активного субаккаунта.
	SwitchHook func(ctx context.Context, subAccountID uint16) error

	SubscribeCalls   int
	UnsubscribeCalls int
}

func NewClient(authority solana.PublicKey, tracker *Tracker) *Client {
	if tracker == nil {
		tracker = &Tracker{}
	}
	return &Client{
		Tracker:   tracker,
		authority: authority,
		env:       drift.EnvMainnet,
		Accounts:  make(map[uint16]*drift.UserAccount),
		Spot:      make(map[uint16]*drift.SpotMarket),
		Perp:      make(map[uint16]*drift.PerpMarket),
		Oracle:    make(map[uint16]drift.OraclePriceData),
	}
}

func (c *Client) Subscribe(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SubscribeCalls++
	if c.SubscribeErr != nil {
		return c.SubscribeErr
	}
	if !c.subscribed {
		c.subscribed = true
		c.Tracker.clients.Add(1)
	}
	return nil
}

func (c *Client) Unsubscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.UnsubscribeCalls++
	if c.subscribed {
		c.subscribed = false
		c.Tracker.clients.Add(-1)
	}
	return nil
}

func (c *Client) IsSubscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribed
}

func (c *Client) Env() string                 { return c.env }
func (c *Client) Authority() solana.PublicKey { return c.authority }

func (c *Client) ActiveSubAccountID() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Client) SwitchActiveUser(ctx context.Context, subAccountID uint16) error {
	if c.SwitchHook != nil {
		if err := c.SwitchHook(ctx, subAccountID); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = subAccountID
	return nil
}

func (c *Client) NewUser(subAccountID uint16) (drift.User, error) {
	pk, err := c.GetUserAccountPublicKey(subAccountID)
	if err != nil {
		return nil, err
	}
	return &User{client: c, id: subAccountID, pk: pk}, nil
}

func (c *Client) GetUserAccountPublicKey(subAccountID uint16) (solana.PublicKey, error) {
	return drift.GetUserAccountPublicKey(drift.ProgramID, c.authority, subAccountID)
}

func (c *Client) GetSpotMarketAccount(marketIndex uint16) (*drift.SpotMarket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.Spot[marketIndex]
	if !ok {
		return nil, drift.ErrMarketNotLoaded
	}
	return m, nil
}

func (c *Client) GetPerpMarketAccount(marketIndex uint16) (*drift.PerpMarket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.Perp[marketIndex]
	if !ok {
		return nil, drift.ErrMarketNotLoaded
	}
	return m, nil
}

func (c *Client) GetOracleDataForPerpMarket(marketIndex uint16) (drift.OraclePriceData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.Oracle[marketIndex]
	if !ok {
		return drift.OraclePriceData{}, drift.ErrMarketNotLoaded
	}
	return o, nil
}

func (c *Client) PerpMarketIndexes() []uint16 { return []uint16{0} }
func (c *Client) SpotMarketIndexes() []uint16 { return []uint16{0} }

func (c *Client) account(id uint16) *drift.UserAccount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Accounts[id]
}

// User читает аккаунт из карты Client.Accounts.
type User struct {
	client *Client
	id     uint16
	pk     solana.PublicKey

	mu         sync.Mutex
	subscribed bool
}

func (u *User) SubAccountID() uint16        { return u.id }
func (u *User) PublicKey() solana.PublicKey { return u.pk }

func (u *User) Subscribe(context.Context) error {
	if u.client.UserSubscribeErr != nil {
		return u.client.UserSubscribeErr
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.subscribed {
		u.subscribed = true
		u.client.Tracker.users.Add(1)
	}
	return nil
}

func (u *User) Unsubscribe() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.subscribed {
		u.subscribed = false
		u.client.Tracker.users.Add(-1)
	}
	return nil
}

func (u *User) IsSubscribed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.subscribed
}

func (u *User) FetchAccounts(context.Context) error { return u.client.ExistsErr }

func (u *User) Exists(ctx context.Context) (bool, error) {
	if err := u.FetchAccounts(ctx); err != nil {
		return false, err
	}
	return u.client.account(u.id) != nil, nil
}

func (u *User) GetUserAccount() (*drift.UserAccount, error) {
	acc := u.client.account(u.id)
	if acc == nil {
		return nil, drift.ErrUserAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

func (u *User) GetPerpPosition(marketIndex uint16) (*drift.PerpPosition, bool) {
	acc := u.client.account(u.id)
	if acc == nil {
		return nil, false
	}
	for _, p := range acc.PerpPositions {
		if p.MarketIndex == marketIndex && !p.IsAvailable() {
			pos := p
			return &pos, true
		}
	}
	return nil, false
}

func (u *User) GetSpotPosition(marketIndex uint16) (*drift.SpotPosition, bool) {
	acc := u.client.account(u.id)
	if acc == nil {
		return nil, false
	}
	for _, p := range acc.SpotPositions {
		if p.MarketIndex == marketIndex && !p.IsAvailable() {
			pos := p
			return &pos, true
		}
	}
	return nil, false
}

func (u *User) GetOpenOrders() []drift.Order {
	acc := u.client.account(u.id)
	if acc == nil {
		return nil
	}
	var out []drift.Order
	for _, o := range acc.Orders {
		if o.Status == drift.OrderStatusOpen {
			out = append(out, o)
		}
	}
	return out
}

func (u *User) QuoteBalance(spotMarket *drift.SpotMarket) (*big.Int, error) {
	if _, err := u.GetUserAccount(); err != nil {
		return nil, err
	}
	pos, ok := u.GetSpotPosition(drift.QuoteSpotMarketIndex)
	if !ok {
		return new(big.Int), nil
	}
	amount := drift.GetTokenAmount(new(big.Int).SetUint64(pos.ScaledBalance), spotMarket, pos.BalanceType)
	return drift.GetSignedTokenAmount(amount, pos.BalanceType), nil
}

// USDCMarket – спотовый рынок 0 с единичными процентами и 6 знаками.
func USDCMarket() *drift.SpotMarket {
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(10), nil)
	return &drift.SpotMarket{
		MarketIndex:               0,
		Decimals:                  6,
		CumulativeDepositInterest: one,
		CumulativeBorrowInterest:  new(big.Int).Set(one),
	}
}

var (
	_ drift.Client     = (*Client)(nil)
	_ drift.User       = (*User)(nil)
	_ drift.Connection = (*Connection)(nil)
)
