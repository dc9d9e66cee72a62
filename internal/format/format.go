// internal/format/format.go
package format

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Делители фиксированной точки, которыми Drift хранит суммы.
const (
	QuoteDivisor    int64 = 1_000_000             // QUOTE_PRECISION
	PriceDivisor    int64 = 1_000_000             // PRICE_PRECISION
	BaseDivisor     int64 = 1_000_000_000         // BASE_PRECISION
	NotionalDivisor int64 = 1_000_000_000_000_000 // BASE_PRECISION * PRICE_PRECISION
)

const notAvailable = "N/A"

// FormatTokenAmount делит сырое целое значение на divisor и округляет до decimals знаков.
// nil трактуется как ноль.
func FormatTokenAmount(amount *big.Int, decimals int32, divisor int64) float64 {
	if amount == nil || divisor == 0 {
		return 0
	}
	v := decimal.NewFromBigInt(amount, 0).
		Div(decimal.NewFromInt(divisor)).
		Round(decimals)
	return v.InexactFloat64()
}

// FormatTokenAmountInt is FormatTokenAmount for values already held in int64.
func FormatTokenAmountInt(amount int64, decimals int32, divisor int64) float64 {
	return FormatTokenAmount(big.NewInt(amount), decimals, divisor)
}

// FormatBalance renders a quote-precision balance as "$X.XX".
// A missing balance or a failed read yields "N/A".
func FormatBalance(balance *big.Int, err error) string {
	if err != nil || balance == nil {
		return notAvailable
	}
	return "$" + decimal.NewFromBigInt(balance, 0).
		Div(decimal.NewFromInt(QuoteDivisor)).
		StringFixed(2)
}

// FormatUSD renders an already scaled amount with a dollar sign and two decimals.
func FormatUSD(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// PnLPercent возвращает pnl / |costBasis| * 100 с точностью до сотых; 0 при нулевой базе.
func PnLPercent(pnl, costBasis float64) float64 {
	if costBasis == 0 {
		return 0
	}
	p := decimal.NewFromFloat(pnl).
		Div(decimal.NewFromFloat(costBasis).Abs()).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	return p.InexactFloat64()
}

// FormatPublicKey returns the base58 form of the key, or an empty string for nil.
func FormatPublicKey(pk *solana.PublicKey) string {
	if pk == nil {
		return ""
	}
	return pk.String()
}

// ShortenAddress сокращает адрес до вида "abcd...wxyz".
func ShortenAddress(addr string) string {
	if len(addr) > 8 {
		return addr[:4] + "..." + addr[len(addr)-4:]
	}
	return addr
}
