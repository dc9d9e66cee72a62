// internal/drift/layout.go
package drift

import (
	"encoding/binary"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// UserAccountSize – полный размер аккаунта User вместе с дискриминатором.
const UserAccountSize = 4376

var userAccountDiscriminator = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "User")

type SpotBalanceType uint8

const (
	SpotBalanceTypeDeposit SpotBalanceType = iota
	SpotBalanceTypeBorrow
)

func (t SpotBalanceType) String() string {
	if t == SpotBalanceTypeBorrow {
		return "borrow"
	}
	return "deposit"
}

type OrderStatus uint8

const (
	OrderStatusInit OrderStatus = iota
	OrderStatusOpen
	OrderStatusFilled
	OrderStatusCanceled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusInit:
		return "init"
	case OrderStatusOpen:
		return "open"
	case OrderStatusFilled:
		return "filled"
	case OrderStatusCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

type OrderType uint8

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeTriggerMarket
	OrderTypeTriggerLimit
	OrderTypeOracle
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "market"
	case OrderTypeLimit:
		return "limit"
	case OrderTypeTriggerMarket:
		return "triggerMarket"
	case OrderTypeTriggerLimit:
		return "triggerLimit"
	case OrderTypeOracle:
		return "oracle"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

type MarketType uint8

const (
	MarketTypeSpot MarketType = iota
	MarketTypePerp
)

func (t MarketType) String() string {
	if t == MarketTypePerp {
		return "perp"
	}
	return "spot"
}

type PositionDirection uint8

const (
	PositionDirectionLong PositionDirection = iota
	PositionDirectionShort
)

func (d PositionDirection) String() string {
	if d == PositionDirectionShort {
		return "short"
	}
	return "long"
}

// SpotPosition – 40 байт.
type SpotPosition struct {
	ScaledBalance      uint64
	OpenBids           int64
	OpenAsks           int64
	CumulativeDeposits int64
	MarketIndex        uint16
	BalanceType        SpotBalanceType
	OpenOrders         uint8
	Padding            [4]uint8
}

// IsAvailable сообщает, что слот позиции не используется.
func (p *SpotPosition) IsAvailable() bool {
	return p.ScaledBalance == 0 && p.OpenOrders == 0
}

// PerpPosition – 96 байт.
type PerpPosition struct {
	LastCumulativeFundingRate int64
	BaseAssetAmount           int64
	QuoteAssetAmount          int64
	QuoteBreakEvenAmount      int64
	QuoteEntryAmount          int64
	OpenBids                  int64
	OpenAsks                  int64
	SettledPnl                int64
	LpShares                  uint64
	LastBaseAssetAmountPerLp  int64
	LastQuoteAssetAmountPerLp int64
	RemainderBaseAssetAmount  int32
	MarketIndex               uint16
	OpenOrders                uint8
	PerLpBase                 int8
}

func (p *PerpPosition) IsAvailable() bool {
	return p.BaseAssetAmount == 0 &&
		p.OpenOrders == 0 &&
		p.QuoteAssetAmount == 0 &&
		p.LpShares == 0
}

// Order – 96 байт.
type Order struct {
	Slot                      uint64
	Price                     uint64
	BaseAssetAmount           uint64
	BaseAssetAmountFilled     uint64
	QuoteAssetAmountFilled    uint64
	TriggerPrice              uint64
	AuctionStartPrice         int64
	AuctionEndPrice           int64
	MaxTs                     int64
	OraclePriceOffset         int32
	OrderID                   uint32
	MarketIndex               uint16
	Status                    OrderStatus
	OrderType                 OrderType
	MarketType                MarketType
	UserOrderID               uint8
	ExistingPositionDirection PositionDirection
	Direction                 PositionDirection
	ReduceOnly                bool
	PostOnly                  bool
	ImmediateOrCancel         bool
	TriggerCondition          uint8
	AuctionDuration           uint8
	Padding                   [3]uint8
}

// UserAccount – раскладка аккаунта User программы Drift v2.
type UserAccount struct {
	Discriminator          bin.TypeID
	Authority              solana.PublicKey
	Delegate               solana.PublicKey
	Name                   [32]uint8
	SpotPositions          [8]SpotPosition
	PerpPositions          [8]PerpPosition
	Orders                 [32]Order
	LastAddPerpLpSharesTs  int64
	TotalDeposits          uint64
	TotalWithdraws         uint64
	TotalSocialLoss        uint64
	SettledPerpPnl         int64
	CumulativeSpotFees     int64
	CumulativePerpFunding  int64
	LiquidationMarginFreed uint64
	LastActiveSlot         uint64
	NextOrderID            uint32
	MaxMarginRatio         uint32
	NextLiquidationID      uint16
	SubAccountID           uint16
	Status                 uint8
	IsMarginTradingEnabled bool
	Idle                   bool
	OpenOrders             uint8
	HasOpenOrder           bool
	OpenAuctions           uint8
	HasOpenAuction         bool
	Padding                [21]uint8
}

// DecodeUserAccount проверяет дискриминатор и размер и декодирует аккаунт.
func DecodeUserAccount(data []byte) (*UserAccount, error) {
	if len(data) < UserAccountSize {
		return nil, fmt.Errorf("%w: user account is %d bytes, want %d", ErrInvalidAccountData, len(data), UserAccountSize)
	}
	var acc UserAccount
	if err := bin.NewBinDecoder(data).Decode(&acc); err != nil {
		return nil, fmt.Errorf("decode user account: %w", err)
	}
	if acc.Discriminator != userAccountDiscriminator {
		return nil, fmt.Errorf("%w: not a user account", ErrInvalidAccountData)
	}
	return &acc, nil
}

// DisplayName возвращает имя субаккаунта без нулевых байт в хвосте.
func (u *UserAccount) DisplayName() string {
	n := len(u.Name)
	for n > 0 && (u.Name[n-1] == 0 || u.Name[n-1] == ' ') {
		n--
	}
	return string(u.Name[:n])
}

// Смещения полей в аккаунтах рынков; полная раскладка не нужна дашборду.
const (
	spotMarketCumulativeDepositInterestOffset = 464
	spotMarketCumulativeBorrowInterestOffset  = 480
	spotMarketDecimalsOffset                  = 680
	spotMarketIndexOffset                     = 684
	spotMarketMinSize                         = 686

	perpMarketOracleOffset          = 40
	perpMarketLastOraclePriceOffset = 72
	perpMarketMinSize               = 80
)

// SpotMarket – поля спотового рынка, нужные для пересчёта scaled balance в токены.
type SpotMarket struct {
	PubKey                    solana.PublicKey
	MarketIndex               uint16
	Decimals                  uint32
	CumulativeDepositInterest *big.Int
	CumulativeBorrowInterest  *big.Int
}

// PerpMarket – поля перп-рынка, нужные для оценки позиции.
type PerpMarket struct {
	PubKey          solana.PublicKey
	MarketIndex     uint16
	Oracle          solana.PublicKey
	LastOraclePrice int64
}

// offsetReader читает little-endian значения по абсолютным смещениям.
type offsetReader struct {
	data []byte
	err  error
}

func (r *offsetReader) decoderAt(offset int) *bin.Decoder {
	dec := bin.NewBinDecoder(r.data)
	if err := dec.SkipBytes(uint(offset)); err != nil && r.err == nil {
		r.err = err
	}
	return dec
}

func (r *offsetReader) publicKey(offset int) solana.PublicKey {
	var pk solana.PublicKey
	if r.err != nil {
		return pk
	}
	b, err := r.decoderAt(offset).ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		r.err = err
		return pk
	}
	copy(pk[:], b)
	return pk
}

func (r *offsetReader) uint128(offset int) *big.Int {
	if r.err != nil {
		return new(big.Int)
	}
	v, err := r.decoderAt(offset).ReadUint128(binary.LittleEndian)
	if err != nil {
		r.err = err
		return new(big.Int)
	}
	return v.BigInt()
}

func (r *offsetReader) uint32(offset int) uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.decoderAt(offset).ReadUint32(binary.LittleEndian)
	if err != nil {
		r.err = err
	}
	return v
}

func (r *offsetReader) uint16(offset int) uint16 {
	if r.err != nil {
		return 0
	}
	v, err := r.decoderAt(offset).ReadUint16(binary.LittleEndian)
	if err != nil {
		r.err = err
	}
	return v
}

func (r *offsetReader) int64(offset int) int64 {
	if r.err != nil {
		return 0
	}
	v, err := r.decoderAt(offset).ReadInt64(binary.LittleEndian)
	if err != nil {
		r.err = err
	}
	return v
}

// DecodeSpotMarket читает спотовый рынок по известным смещениям.
func DecodeSpotMarket(data []byte) (*SpotMarket, error) {
	if len(data) < spotMarketMinSize {
		return nil, fmt.Errorf("%w: spot market is %d bytes", ErrInvalidAccountData, len(data))
	}
	r := &offsetReader{data: data}
	m := &SpotMarket{
		PubKey:                    r.publicKey(8),
		CumulativeDepositInterest: r.uint128(spotMarketCumulativeDepositInterestOffset),
		CumulativeBorrowInterest:  r.uint128(spotMarketCumulativeBorrowInterestOffset),
		Decimals:                  r.uint32(spotMarketDecimalsOffset),
		MarketIndex:               r.uint16(spotMarketIndexOffset),
	}
	if r.err != nil {
		return nil, fmt.Errorf("decode spot market: %w", r.err)
	}
	return m, nil
}

// DecodePerpMarket читает перп-рынок; marketIndex берётся из PDA, по которому рынок загружен.
func DecodePerpMarket(data []byte, marketIndex uint16) (*PerpMarket, error) {
	if len(data) < perpMarketMinSize {
		return nil, fmt.Errorf("%w: perp market is %d bytes", ErrInvalidAccountData, len(data))
	}
	r := &offsetReader{data: data}
	m := &PerpMarket{
		PubKey:          r.publicKey(8),
		MarketIndex:     marketIndex,
		Oracle:          r.publicKey(perpMarketOracleOffset),
		LastOraclePrice: r.int64(perpMarketLastOraclePriceOffset),
	}
	if r.err != nil {
		return nil, fmt.Errorf("decode perp market: %w", r.err)
	}
	return m, nil
}
