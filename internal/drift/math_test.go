package drift

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateEntryPrice(t *testing.T) {
	// 2 SOL куплены за 300 USDC -> 150.000000
	pos := &PerpPosition{BaseAssetAmount: 2_000_000_000, QuoteEntryAmount: -300_000_000}
	assert.Equal(t, big.NewInt(150_000_000), CalculateEntryPrice(pos))

	short := &PerpPosition{BaseAssetAmount: -1_000_000_000, QuoteEntryAmount: 99_500_000}
	assert.Equal(t, big.NewInt(99_500_000), CalculateEntryPrice(short))

	assert.Equal(t, int64(0), CalculateEntryPrice(&PerpPosition{}).Int64())
	assert.Equal(t, int64(0), CalculateEntryPrice(nil).Int64())
}

func TestCalculatePositionPNL(t *testing.T) {
	oracle := OraclePriceData{Price: big.NewInt(160_000_000)}

	tests := []struct {
		name string
		pos  *PerpPosition
		want int64
	}{
		{"long in profit", &PerpPosition{BaseAssetAmount: 2_000_000_000, QuoteAssetAmount: -300_000_000}, 20_000_000},
		{"short in loss", &PerpPosition{BaseAssetAmount: -1_000_000_000, QuoteAssetAmount: 150_000_000}, -10_000_000},
		{"flat returns quote", &PerpPosition{QuoteAssetAmount: 5_000_000}, 5_000_000},
		{"nil", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculatePositionPNL(tt.pos, oracle).Int64())
		})
	}
}

func TestCalculateNotional(t *testing.T) {
	pos := &PerpPosition{BaseAssetAmount: -2_000_000_000}
	got := CalculateNotional(pos, OraclePriceData{Price: big.NewInt(150_000_000)})
	want := new(big.Int).Mul(big.NewInt(2_000_000_000), big.NewInt(150_000_000))
	assert.Equal(t, want, got)
	assert.Equal(t, int64(0), CalculateNotional(pos, OraclePriceData{}).Int64())
}

func TestGetTokenAmount(t *testing.T) {
	interest := new(big.Int).Exp(big.NewInt(10), big.NewInt(10), nil) // 1.0 в SPOT_CUMULATIVE_INTEREST_PRECISION
	market := &SpotMarket{
		Decimals:                  6,
		CumulativeDepositInterest: new(big.Int).Mul(interest, big.NewInt(2)),
		CumulativeBorrowInterest:  interest,
	}

	// scaled balance в 1e9; 5 USDC при множителе 2.0 -> 10 USDC
	deposit := GetTokenAmount(big.NewInt(5_000_000_000), market, SpotBalanceTypeDeposit)
	assert.Equal(t, big.NewInt(10_000_000), deposit)

	borrow := GetTokenAmount(big.NewInt(1_000_000_001), market, SpotBalanceTypeBorrow)
	assert.Equal(t, big.NewInt(1_000_001), borrow, "borrow rounds up")

	assert.Equal(t, big.NewInt(-3), GetSignedTokenAmount(big.NewInt(3), SpotBalanceTypeBorrow))
	assert.Equal(t, big.NewInt(3), GetSignedTokenAmount(big.NewInt(3), SpotBalanceTypeDeposit))
	assert.Equal(t, int64(0), GetTokenAmount(nil, market, SpotBalanceTypeDeposit).Int64())
}
