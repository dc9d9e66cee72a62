// internal/position/perp.go
package position

import (
	"context"
	"errors"
	"fmt"

	"github.com/rovshanmuradov/driftoor/internal/drift"
	"github.com/rovshanmuradov/driftoor/internal/format"
)

// PerpView – позиция на перп-рынке в отображаемых единицах.
type PerpView struct {
	MarketIndex       uint16
	Market            string
	Direction         string
	TotalDeposit      Field
	CostBasis         Field
	PositionSizeBase  Field
	PositionSizeQuote Field
	EntryPrice        Field
	PnL               Field
	PnLPercent        Field
	CurrentPrice      Field
}

func (v *PerpView) fields() []*Field {
	return []*Field{
		&v.TotalDeposit, &v.CostBasis, &v.PositionSizeBase, &v.PositionSizeQuote,
		&v.EntryPrice, &v.PnL, &v.PnLPercent, &v.CurrentPrice,
	}
}

func (v *PerpView) setAll(f Field) {
	for _, p := range v.fields() {
		*p = f
	}
}

// Partial сообщает, что хотя бы одно поле не удалось получить.
func (v PerpView) Partial() bool {
	for _, p := range v.fields() {
		if p.Failed() {
			return true
		}
	}
	return false
}

// Err – первая ошибка среди полей.
func (v PerpView) Err() error {
	for _, p := range v.fields() {
		if p.Failed() {
			return p.Err
		}
	}
	return nil
}

// HasPosition – есть ли открытая позиция на рынке.
func (v PerpView) HasPosition() bool {
	return v.PositionSizeBase.OK()
}

// FetchPerp обновляет зеркало пользователя и строит PerpView.
func FetchPerp(ctx context.Context, client drift.Client, user drift.User, marketIndex uint16) PerpView {
	view := PerpView{MarketIndex: marketIndex, Market: drift.PerpMarketName(marketIndex)}
	if _, err := refresh(ctx, client, user); err != nil {
		view.setAll(failed(err))
		return view
	}
	return buildPerp(client, user, marketIndex)
}

// refresh – общие первые шаги: проверка handle и обновление зеркала.
// У подписанного пользователя зеркало уже загружено опросом, поэтому ошибка
// обновления не прерывает чтение и возвращается как stale.
func refresh(ctx context.Context, client drift.Client, user drift.User) (stale, err error) {
	if client == nil || user == nil {
		return nil, ErrNoSession
	}
	if fetchErr := user.FetchAccounts(ctx); fetchErr != nil {
		fetchErr = fmt.Errorf("fetch user accounts: %w", fetchErr)
		if user.IsSubscribed() {
			return fetchErr, nil
		}
		return nil, fetchErr
	}
	return nil, nil
}

// exists – Absent без ошибки, если аккаунта нет в сети.
func exists(user drift.User) (bool, error) {
	_, err := user.GetUserAccount()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, drift.ErrUserAccountNotFound):
		return false, nil
	default:
		return false, err
	}
}

func buildPerp(client drift.Client, user drift.User, marketIndex uint16) PerpView {
	view := PerpView{MarketIndex: marketIndex, Market: drift.PerpMarketName(marketIndex)}

	found, err := exists(user)
	if err != nil {
		view.setAll(failed(err))
		return view
	}
	if !found {
		view.setAll(absent())
		return view
	}

	pos, hasPos := user.GetPerpPosition(marketIndex)
	if !hasPos {
		view.setAll(absent())
		view.TotalDeposit = totalDeposit(user)
		view.CurrentPrice = currentPrice(client, marketIndex)
		return view
	}
	view.TotalDeposit = totalDeposit(user)
	if pos.BaseAssetAmount < 0 {
		view.Direction = drift.PositionDirectionShort.String()
	} else {
		view.Direction = drift.PositionDirectionLong.String()
	}

	view.CostBasis = ok(format.FormatTokenAmountInt(pos.QuoteEntryAmount, 2, format.QuoteDivisor))
	view.PositionSizeBase = ok(format.FormatTokenAmountInt(pos.BaseAssetAmount, 4, format.BaseDivisor))
	view.EntryPrice = ok(format.FormatTokenAmount(drift.CalculateEntryPrice(pos), 2, format.PriceDivisor))

	oracle, err := client.GetOracleDataForPerpMarket(marketIndex)
	if err != nil {
		err = fmt.Errorf("oracle for perp market %d: %w", marketIndex, err)
		view.CurrentPrice = failed(err)
		view.PositionSizeQuote = failed(err)
		view.PnL = failed(err)
		view.PnLPercent = failed(err)
		return view
	}

	view.CurrentPrice = ok(format.FormatTokenAmount(oracle.Price, 2, format.PriceDivisor))
	view.PositionSizeQuote = ok(format.FormatTokenAmount(drift.CalculateNotional(pos, oracle), 2, format.NotionalDivisor))
	view.PnL = ok(format.FormatTokenAmount(drift.CalculatePositionPNL(pos, oracle), 2, format.QuoteDivisor))
	view.PnLPercent = ok(format.PnLPercent(view.PnL.Value, view.CostBasis.Value))
	return view
}

// totalDeposit – cumulativeDeposits USDC позиции, 6 знаков.
func totalDeposit(user drift.User) Field {
	spot, found := user.GetSpotPosition(drift.QuoteSpotMarketIndex)
	if !found {
		return ok(0)
	}
	return ok(format.FormatTokenAmountInt(spot.CumulativeDeposits, 6, format.QuoteDivisor))
}

func currentPrice(client drift.Client, marketIndex uint16) Field {
	oracle, err := client.GetOracleDataForPerpMarket(marketIndex)
	if err != nil {
		return failed(fmt.Errorf("oracle for perp market %d: %w", marketIndex, err))
	}
	return ok(format.FormatTokenAmount(oracle.Price, 2, format.PriceDivisor))
}
