// internal/position/snapshot.go
package position

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/driftoor/internal/drift"
	"github.com/rovshanmuradov/driftoor/internal/format"
)

var ErrNoSession = errors.New("no drift client or user")

// Snapshot – всё, что дашборд показывает для активного субаккаунта.
type Snapshot struct {
	Authority   solana.PublicKey
	SubAccount  uint16
	UserPubkey  solana.PublicKey
	Name        string
	Exists      bool
	Balance     Field
	BalanceText string
	Spot        []SpotView
	Perps       []PerpView
	Orders      []OrderView
	PerpsErr    error
	OrdersErr   error
	Err         error
	// StaleErr – обновление зеркала не удалось, данные с прошлого опроса.
	StaleErr    error
	FetchedAt   time.Time
}

// Partial сообщает, что часть данных получить не удалось.
func (s Snapshot) Partial() bool {
	if s.Err != nil || s.PerpsErr != nil || s.OrdersErr != nil || s.Balance.Failed() {
		return true
	}
	for _, p := range s.Perps {
		if p.Partial() {
			return true
		}
	}
	for _, sp := range s.Spot {
		if sp.Partial() {
			return true
		}
	}
	return false
}

// TotalPnL – сумма PnL по позициям, которые удалось посчитать.
func (s Snapshot) TotalPnL() float64 {
	var total float64
	for _, p := range s.Perps {
		if p.PnL.OK() {
			total += p.PnL.Value
		}
	}
	return total
}

// FetchSnapshot обновляет зеркало один раз и собирает все view.
// Перп-рынки считаются параллельно.
func FetchSnapshot(ctx context.Context, client drift.Client, user drift.User) Snapshot {
	snap := Snapshot{FetchedAt: time.Now()}
	if client != nil {
		snap.Authority = client.Authority()
	}
	if user != nil {
		snap.SubAccount = user.SubAccountID()
		snap.UserPubkey = user.PublicKey()
	}

	stale, err := refresh(ctx, client, user)
	if err != nil {
		snap.Err = err
		snap.Balance = failed(err)
		snap.BalanceText = format.FormatBalance(nil, err)
		return snap
	}
	snap.StaleErr = stale

	acc, err := user.GetUserAccount()
	switch {
	case err == nil:
		snap.Exists = true
		snap.Name = acc.DisplayName()
	case errors.Is(err, drift.ErrUserAccountNotFound):
	default:
		snap.Err = err
	}

	snap.Balance, snap.BalanceText = balance(client, user, snap.Exists)

	for _, idx := range spotIndexes(client) {
		snap.Spot = append(snap.Spot, buildSpot(client, user, idx))
	}

	perpIdx := client.PerpMarketIndexes()
	snap.Perps = make([]PerpView, len(perpIdx))
	var g errgroup.Group
	for i, idx := range perpIdx {
		g.Go(func() error {
			v := buildPerp(client, user, idx)
			snap.Perps[i] = v
			if err := v.Err(); err != nil {
				return fmt.Errorf("perp market %d: %w", idx, err)
			}
			return nil
		})
	}
	snap.PerpsErr = g.Wait()

	snap.Orders, snap.OrdersErr = buildOrders(user)
	return snap
}

// FetchBalance – баланс субаккаунта в виде "$X.XX" или "N/A".
func FetchBalance(ctx context.Context, client drift.Client, user drift.User) string {
	if _, err := refresh(ctx, client, user); err != nil {
		return format.FormatBalance(nil, err)
	}
	found, err := exists(user)
	if err != nil || !found {
		return format.FormatBalance(nil, err)
	}
	_, text := balance(client, user, true)
	return text
}

func balance(client drift.Client, user drift.User, exists bool) (Field, string) {
	if !exists {
		return absent(), format.FormatBalance(nil, nil)
	}
	market, err := client.GetSpotMarketAccount(drift.QuoteSpotMarketIndex)
	if err != nil {
		return failed(err), format.FormatBalance(nil, err)
	}
	b, err := user.QuoteBalance(market)
	if err != nil {
		return failed(err), format.FormatBalance(nil, err)
	}
	return ok(format.FormatTokenAmount(b, 2, format.QuoteDivisor)), format.FormatBalance(b, nil)
}

// spotIndexes – USDC первым, затем остальные настроенные рынки.
func spotIndexes(client drift.Client) []uint16 {
	out := []uint16{drift.QuoteSpotMarketIndex}
	for _, idx := range client.SpotMarketIndexes() {
		if idx != drift.QuoteSpotMarketIndex {
			out = append(out, idx)
		}
	}
	return out
}

func bigU(v uint64) *big.Int { return new(big.Int).SetUint64(v) }
