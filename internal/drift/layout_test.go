package drift

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserAccountLayout(t *testing.T) {
	authority := solana.NewWallet().PublicKey()
	acc := &UserAccount{Authority: authority, SubAccountID: 7}
	copy(acc.Name[:], "Main Account")
	acc.SpotPositions[0] = SpotPosition{ScaledBalance: 5_000_000_000, CumulativeDeposits: 12_340_000, MarketIndex: 0}
	acc.PerpPositions[1] = PerpPosition{BaseAssetAmount: -1_000_000_000, QuoteEntryAmount: 150_000_000, MarketIndex: 2}
	acc.Orders[3] = Order{OrderID: 42, Price: 151_000_000, Status: OrderStatusOpen, MarketType: MarketTypePerp, Direction: PositionDirectionShort}

	data := encodeUserAccount(t, acc)
	require.Len(t, data, UserAccountSize)

	assert.Equal(t, authority[:], data[8:40])
	assert.Equal(t, uint16(7), binary.LittleEndian.Uint16(data[4346:]))
	// первый спотовый слот начинается на 104, первый перп – на 424, ордера – на 1192
	assert.Equal(t, uint64(5_000_000_000), binary.LittleEndian.Uint64(data[104:]))
	assert.Equal(t, int64(-1_000_000_000), int64(binary.LittleEndian.Uint64(data[424+96+8:])))
	assert.Equal(t, uint32(42), binary.LittleEndian.Uint32(data[1192+3*96+76:]))

	decoded, err := DecodeUserAccount(data)
	require.NoError(t, err)
	assert.Equal(t, authority, decoded.Authority)
	assert.Equal(t, uint16(7), decoded.SubAccountID)
	assert.Equal(t, "Main Account", decoded.DisplayName())
	assert.Equal(t, int64(12_340_000), decoded.SpotPositions[0].CumulativeDeposits)
	assert.Equal(t, uint16(2), decoded.PerpPositions[1].MarketIndex)
	assert.Equal(t, OrderStatusOpen, decoded.Orders[3].Status)
	assert.Equal(t, PositionDirectionShort, decoded.Orders[3].Direction)
}

func TestDecodeUserAccountRejectsBadData(t *testing.T) {
	_, err := DecodeUserAccount(make([]byte, 10))
	assert.ErrorIs(t, err, ErrInvalidAccountData)

	_, err = DecodeUserAccount(make([]byte, UserAccountSize))
	assert.ErrorIs(t, err, ErrInvalidAccountData)
}

func TestDecodeSpotMarket(t *testing.T) {
	pk := solana.NewWallet().PublicKey()
	deposit := new(big.Int).Mul(oneInterest(), big.NewInt(3))
	borrow := new(big.Int).Lsh(big.NewInt(1), 70)

	m, err := DecodeSpotMarket(encodeSpotMarket(pk, 1, 9, deposit, borrow))
	require.NoError(t, err)
	assert.Equal(t, pk, m.PubKey)
	assert.Equal(t, uint16(1), m.MarketIndex)
	assert.Equal(t, uint32(9), m.Decimals)
	assert.Equal(t, 0, deposit.Cmp(m.CumulativeDepositInterest))
	assert.Equal(t, 0, borrow.Cmp(m.CumulativeBorrowInterest))

	_, err = DecodeSpotMarket(make([]byte, 100))
	assert.ErrorIs(t, err, ErrInvalidAccountData)
}

func TestDecodePerpMarket(t *testing.T) {
	pk := solana.NewWallet().PublicKey()
	oracle := solana.NewWallet().PublicKey()

	m, err := DecodePerpMarket(encodePerpMarket(pk, oracle, 142_500_000), 0)
	require.NoError(t, err)
	assert.Equal(t, oracle, m.Oracle)
	assert.Equal(t, int64(142_500_000), m.LastOraclePrice)

	_, err = DecodePerpMarket(make([]byte, 16), 0)
	assert.ErrorIs(t, err, ErrInvalidAccountData)
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "limit", OrderTypeLimit.String())
	assert.Equal(t, "open", OrderStatusOpen.String())
	assert.Equal(t, "perp", MarketTypePerp.String())
	assert.Equal(t, "short", PositionDirectionShort.String())
	assert.Equal(t, "borrow", SpotBalanceTypeBorrow.String())
	assert.Equal(t, "SOL-PERP", PerpMarketName(0))
	assert.Equal(t, "PERP-99", PerpMarketName(99))
	assert.Equal(t, "USDC", MarketName(MarketTypeSpot, 0))
}
