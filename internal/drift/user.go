// internal/drift/user.go
package drift

import (
	"context"
	"math/big"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// DriftUser – зеркало одного аккаунта User. Данные обновляются либо опросом (после Subscribe),
// либо явным FetchAccounts.
type DriftUser struct {
	conn         Connection
	loader       *AccountLoader
	pubkey       solana.PublicKey
	subAccountID uint16
	logger       *zap.Logger

	mu         sync.RWMutex
	account    *UserAccount
	fetched    bool
	slot       uint64
	subID      string
	subscribed bool
}

func newDriftUser(conn Connection, loader *AccountLoader, pk solana.PublicKey, subAccountID uint16, logger *zap.Logger) *DriftUser {
	return &DriftUser{
		conn:         conn,
		loader:       loader,
		pubkey:       pk,
		subAccountID: subAccountID,
		logger: logger.Named("drift-user").With(
			zap.Uint16("subaccount", subAccountID)),
	}
}

func (u *DriftUser) SubAccountID() uint16        { return u.subAccountID }
func (u *DriftUser) PublicKey() solana.PublicKey { return u.pubkey }

func (u *DriftUser) IsSubscribed() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.subscribed
}

// Subscribe делает первичную загрузку и ставит аккаунт на опрос.
// Отсутствие аккаунта в сети не ошибка: Exists вернёт false.
func (u *DriftUser) Subscribe(ctx context.Context) error {
	u.mu.Lock()
	if u.subscribed {
		u.mu.Unlock()
		return nil
	}
	u.mu.Unlock()

	if err := u.FetchAccounts(ctx); err != nil {
		return err
	}

	id := u.loader.AddAccount(u.pubkey, u.applyUpdate)

	u.mu.Lock()
	u.subID = id
	u.subscribed = true
	u.mu.Unlock()
	return nil
}

func (u *DriftUser) Unsubscribe() error {
	u.mu.Lock()
	id := u.subID
	was := u.subscribed
	u.subID = ""
	u.subscribed = false
	u.mu.Unlock()

	if was {
		u.loader.RemoveAccount(u.pubkey, id)
	}
	return nil
}

// FetchAccounts обновляет зеркало одним запросом к RPC.
func (u *DriftUser) FetchAccounts(ctx context.Context) error {
	slot, data, err := u.conn.GetMultipleAccountsData(ctx, []solana.PublicKey{u.pubkey})
	if err != nil {
		return err
	}
	var buf []byte
	if len(data) > 0 {
		buf = data[0]
	}
	u.applyUpdate(buf, slot)
	return nil
}

func (u *DriftUser) applyUpdate(data []byte, slot uint64) {
	var acc *UserAccount
	if data != nil {
		decoded, err := DecodeUserAccount(data)
		if err != nil {
			u.logger.Warn("Failed to decode user account", zap.Error(err))
			return
		}
		acc = decoded
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.fetched && slot < u.slot {
		return
	}
	u.account = acc
	u.slot = slot
	u.fetched = true
}

// Exists обновляет зеркало и сообщает, создан ли аккаунт в сети.
func (u *DriftUser) Exists(ctx context.Context) (bool, error) {
	if err := u.FetchAccounts(ctx); err != nil {
		return false, err
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.account != nil, nil
}

func (u *DriftUser) GetUserAccount() (*UserAccount, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.account == nil {
		return nil, ErrUserAccountNotFound
	}
	acc := *u.account
	return &acc, nil
}

// GetPerpPosition возвращает занятый слот позиции для рынка.
func (u *DriftUser) GetPerpPosition(marketIndex uint16) (*PerpPosition, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.account == nil {
		return nil, false
	}
	for _, p := range u.account.PerpPositions {
		if p.MarketIndex == marketIndex && !p.IsAvailable() {
			pos := p
			return &pos, true
		}
	}
	return nil, false
}

func (u *DriftUser) GetSpotPosition(marketIndex uint16) (*SpotPosition, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.account == nil {
		return nil, false
	}
	for _, p := range u.account.SpotPositions {
		if p.MarketIndex == marketIndex && !p.IsAvailable() {
			pos := p
			return &pos, true
		}
	}
	return nil, false
}

// GetOpenOrders возвращает ордера в статусе open.
func (u *DriftUser) GetOpenOrders() []Order {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.account == nil {
		return nil
	}
	var out []Order
	for _, o := range u.account.Orders {
		if o.Status == OrderStatusOpen {
			out = append(out, o)
		}
	}
	return out
}

// QuoteBalance – знаковый баланс USDC в QUOTE_PRECISION.
func (u *DriftUser) QuoteBalance(spotMarket *SpotMarket) (*big.Int, error) {
	if _, err := u.GetUserAccount(); err != nil {
		return nil, err
	}
	pos, ok := u.GetSpotPosition(QuoteSpotMarketIndex)
	if !ok {
		return new(big.Int), nil
	}
	amount := GetTokenAmount(new(big.Int).SetUint64(pos.ScaledBalance), spotMarket, pos.BalanceType)
	return GetSignedTokenAmount(amount, pos.BalanceType), nil
}

var _ User = (*DriftUser)(nil)
