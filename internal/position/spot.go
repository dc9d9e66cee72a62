// internal/position/spot.go
package position

import (
	"context"
	"fmt"
	"math/big"

	"github.com/rovshanmuradov/driftoor/internal/drift"
	"github.com/rovshanmuradov/driftoor/internal/format"
)

// SpotView – спотовый баланс субаккаунта.
type SpotView struct {
	MarketIndex        uint16
	Symbol             string
	Balance            Field // знаковый: займ отрицательный
	IsBorrow           bool
	CumulativeDeposits Field
}

func (v SpotView) Partial() bool {
	return v.Balance.Failed() || v.CumulativeDeposits.Failed()
}

// FetchSpotUSDC – спотовая позиция USDC (рынок 0).
func FetchSpotUSDC(ctx context.Context, client drift.Client, user drift.User) SpotView {
	return FetchSpot(ctx, client, user, drift.QuoteSpotMarketIndex)
}

// FetchSpot обновляет зеркало пользователя и строит SpotView для рынка.
func FetchSpot(ctx context.Context, client drift.Client, user drift.User, marketIndex uint16) SpotView {
	if _, err := refresh(ctx, client, user); err != nil {
		view := SpotView{MarketIndex: marketIndex, Symbol: drift.SpotMarketSymbol(marketIndex)}
		view.Balance, view.CumulativeDeposits = failed(err), failed(err)
		return view
	}
	return buildSpot(client, user, marketIndex)
}

func buildSpot(client drift.Client, user drift.User, marketIndex uint16) SpotView {
	view := SpotView{MarketIndex: marketIndex, Symbol: drift.SpotMarketSymbol(marketIndex)}

	found, err := exists(user)
	if err != nil {
		view.Balance, view.CumulativeDeposits = failed(err), failed(err)
		return view
	}
	if !found {
		view.Balance, view.CumulativeDeposits = absent(), absent()
		return view
	}

	market, err := client.GetSpotMarketAccount(marketIndex)
	if err != nil {
		err = fmt.Errorf("spot market %d: %w", marketIndex, err)
		view.Balance, view.CumulativeDeposits = failed(err), failed(err)
		return view
	}

	pos, hasPos := user.GetSpotPosition(marketIndex)
	if !hasPos {
		// пустой слот – нулевой баланс, а не отсутствие аккаунта
		view.Balance, view.CumulativeDeposits = ok(0), ok(0)
		return view
	}

	decimals := int32(market.Decimals)
	divisor := pow10(market.Decimals)

	amount := drift.GetTokenAmount(new(big.Int).SetUint64(pos.ScaledBalance), market, pos.BalanceType)
	signed := drift.GetSignedTokenAmount(amount, pos.BalanceType)
	view.IsBorrow = pos.BalanceType == drift.SpotBalanceTypeBorrow
	view.Balance = ok(format.FormatTokenAmount(signed, decimals, divisor))
	view.CumulativeDeposits = ok(format.FormatTokenAmountInt(pos.CumulativeDeposits, decimals, divisor))
	return view
}

func pow10(n uint32) int64 {
	v := int64(1)
	for i := uint32(0); i < n && i < 18; i++ {
		v *= 10
	}
	return v
}
