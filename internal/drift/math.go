// internal/drift/math.go
package drift

import "math/big"

var (
	PricePrecision           = big.NewInt(1_000_000)
	QuotePrecision           = big.NewInt(1_000_000)
	BasePrecision            = big.NewInt(1_000_000_000)
	AmmToQuotePrecisionRatio = big.NewInt(1_000)
)

// CalculateEntryPrice возвращает цену входа в PRICE_PRECISION.
func CalculateEntryPrice(pos *PerpPosition) *big.Int {
	if pos == nil || pos.BaseAssetAmount == 0 {
		return new(big.Int)
	}
	v := new(big.Int).Mul(big.NewInt(pos.QuoteEntryAmount), PricePrecision)
	v.Mul(v, AmmToQuotePrecisionRatio)
	v.Quo(v, big.NewInt(pos.BaseAssetAmount))
	return v.Abs(v)
}

// CalculateBaseAssetValueWithOracle возвращает |base| * oraclePrice в QUOTE_PRECISION.
func CalculateBaseAssetValueWithOracle(pos *PerpPosition, oracle OraclePriceData) *big.Int {
	if pos == nil || oracle.Price == nil {
		return new(big.Int)
	}
	v := new(big.Int).Abs(big.NewInt(pos.BaseAssetAmount))
	v.Mul(v, oracle.Price)
	return v.Quo(v, BasePrecision)
}

// CalculateNotional возвращает |base * oraclePrice| без деления (BASE_PRECISION * PRICE_PRECISION).
func CalculateNotional(pos *PerpPosition, oracle OraclePriceData) *big.Int {
	if pos == nil || oracle.Price == nil {
		return new(big.Int)
	}
	v := new(big.Int).Mul(big.NewInt(pos.BaseAssetAmount), oracle.Price)
	return v.Abs(v)
}

// CalculatePositionPNL возвращает нереализованный PnL без учёта фандинга, QUOTE_PRECISION.
func CalculatePositionPNL(pos *PerpPosition, oracle OraclePriceData) *big.Int {
	if pos == nil {
		return new(big.Int)
	}
	if pos.BaseAssetAmount == 0 {
		return big.NewInt(pos.QuoteAssetAmount)
	}
	value := CalculateBaseAssetValueWithOracle(pos, oracle)
	if pos.BaseAssetAmount < 0 {
		value.Neg(value)
	}
	return value.Add(value, big.NewInt(pos.QuoteAssetAmount))
}

func spotPrecisionDecrease(decimals uint32) *big.Int {
	exp := int64(19) - int64(decimals)
	if exp < 0 {
		exp = 0
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil)
}

// GetTokenAmount переводит scaled balance в токены с учётом накопленного процента.
func GetTokenAmount(scaledBalance *big.Int, market *SpotMarket, balanceType SpotBalanceType) *big.Int {
	if scaledBalance == nil || market == nil {
		return new(big.Int)
	}
	div := spotPrecisionDecrease(market.Decimals)
	if balanceType == SpotBalanceTypeDeposit {
		v := new(big.Int).Mul(scaledBalance, market.CumulativeDepositInterest)
		return v.Quo(v, div)
	}
	v := new(big.Int).Mul(scaledBalance, market.CumulativeBorrowInterest)
	return divCeil(v, div)
}

// GetSignedTokenAmount: депозит положительный, заём отрицательный.
func GetSignedTokenAmount(amount *big.Int, balanceType SpotBalanceType) *big.Int {
	v := new(big.Int).Abs(amount)
	if balanceType == SpotBalanceTypeBorrow {
		return v.Neg(v)
	}
	return v
}

func divCeil(a, b *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}
