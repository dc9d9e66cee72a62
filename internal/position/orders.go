// internal/position/orders.go
package position

import (
	"context"

	"github.com/rovshanmuradov/driftoor/internal/drift"
	"github.com/rovshanmuradov/driftoor/internal/format"
)

// OrderView – открытый ордер в отображаемых единицах.
type OrderView struct {
	OrderID    uint32
	Market     string
	MarketType string
	Direction  string
	OrderType  string
	Size       float64 // 3 знака
	Price      float64 // 2 знака
	Filled     float64
	Status     string
}

// FetchOrders обновляет зеркало и возвращает открытые ордера.
// Несуществующий аккаунт даёт пустой список без ошибки.
func FetchOrders(ctx context.Context, client drift.Client, user drift.User) ([]OrderView, error) {
	if _, err := refresh(ctx, client, user); err != nil {
		return nil, err
	}
	return buildOrders(user)
}

func buildOrders(user drift.User) ([]OrderView, error) {
	found, err := exists(user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	orders := user.GetOpenOrders()
	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderView{
			OrderID:    o.OrderID,
			Market:     drift.MarketName(o.MarketType, o.MarketIndex),
			MarketType: o.MarketType.String(),
			Direction:  o.Direction.String(),
			OrderType:  o.OrderType.String(),
			Size:       format.FormatTokenAmount(bigU(o.BaseAssetAmount), 3, format.BaseDivisor),
			Price:      format.FormatTokenAmount(bigU(o.Price), 2, format.PriceDivisor),
			Filled:     format.FormatTokenAmount(bigU(o.BaseAssetAmountFilled), 3, format.BaseDivisor),
			Status:     o.Status.String(),
		})
	}
	return out, nil
}
