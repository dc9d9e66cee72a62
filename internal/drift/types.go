// internal/drift/types.go
package drift

import (
	"context"
	"errors"
	"math/big"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrUserAccountNotFound = errors.New("user account not found")
	ErrMarketNotLoaded     = errors.New("market account not loaded")
	ErrNotSubscribed       = errors.New("not subscribed")
	ErrInvalidAccountData  = errors.New("invalid account data")
	ErrUnknownEnv          = errors.New("unknown drift env")
)

// Connection – минимальный доступ к RPC, который нужен клиенту Drift.
// Элемент data равен nil, если аккаунта не существует.
type Connection interface {
	GetMultipleAccountsData(ctx context.Context, pubkeys []solana.PublicKey) (slot uint64, data [][]byte, err error)
}

// Client is the session-wide Drift client.
type Client interface {
	Subscribe(ctx context.Context) error
	Unsubscribe() error
	IsSubscribed() bool

	Env() string
	Authority() solana.PublicKey
	ActiveSubAccountID() uint16
	SwitchActiveUser(ctx context.Context, subAccountID uint16) error
	NewUser(subAccountID uint16) (User, error)
	GetUserAccountPublicKey(subAccountID uint16) (solana.PublicKey, error)

	GetSpotMarketAccount(marketIndex uint16) (*SpotMarket, error)
	GetPerpMarketAccount(marketIndex uint16) (*PerpMarket, error)
	GetOracleDataForPerpMarket(marketIndex uint16) (OraclePriceData, error)
	PerpMarketIndexes() []uint16
	SpotMarketIndexes() []uint16
}

// User is a handle on a single subaccount of the authority.
type User interface {
	SubAccountID() uint16
	PublicKey() solana.PublicKey

	Subscribe(ctx context.Context) error
	Unsubscribe() error
	IsSubscribed() bool

	// FetchAccounts обновляет зеркало аккаунта одним запросом.
	FetchAccounts(ctx context.Context) error
	Exists(ctx context.Context) (bool, error)

	GetUserAccount() (*UserAccount, error)
	GetPerpPosition(marketIndex uint16) (*PerpPosition, bool)
	GetSpotPosition(marketIndex uint16) (*SpotPosition, bool)
	GetOpenOrders() []Order
	QuoteBalance(spotMarket *SpotMarket) (*big.Int, error)
}

// OraclePriceData – цена оракула в PRICE_PRECISION.
type OraclePriceData struct {
	Price *big.Int
	Slot  uint64
}
