package drift

import (
	"bytes"
	"context"
	"encoding/binary"
	"math/big"
	"sync"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

// fakeConnection отдаёт данные из карты; отсутствующий ключ – несуществующий аккаунт.
type fakeConnection struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey][]byte
	slot     uint64
	err      error
	calls    int
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{accounts: make(map[solana.PublicKey][]byte), slot: 100}
}

func (f *fakeConnection) set(pk solana.PublicKey, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[pk] = data
}

func (f *fakeConnection) setSlot(slot uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slot = slot
}

func (f *fakeConnection) GetMultipleAccountsData(_ context.Context, keys []solana.PublicKey) (uint64, [][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, nil, f.err
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		if d, ok := f.accounts[k]; ok {
			out[i] = append([]byte(nil), d...)
		}
	}
	return f.slot, out, nil
}

func encodeUserAccount(t *testing.T, acc *UserAccount) []byte {
	t.Helper()
	acc.Discriminator = userAccountDiscriminator
	var buf bytes.Buffer
	require.NoError(t, bin.NewBinEncoder(&buf).Encode(acc))
	return buf.Bytes()
}

func putUint128(b []byte, offset int, v *big.Int) {
	lo := new(big.Int).And(v, new(big.Int).SetUint64(^uint64(0))).Uint64()
	hi := new(big.Int).Rsh(v, 64).Uint64()
	binary.LittleEndian.PutUint64(b[offset:], lo)
	binary.LittleEndian.PutUint64(b[offset+8:], hi)
}

func encodeSpotMarket(pk solana.PublicKey, idx uint16, decimals uint32, depositInterest, borrowInterest *big.Int) []byte {
	b := make([]byte, 776)
	copy(b[8:], pk[:])
	putUint128(b, spotMarketCumulativeDepositInterestOffset, depositInterest)
	putUint128(b, spotMarketCumulativeBorrowInterestOffset, borrowInterest)
	binary.LittleEndian.PutUint32(b[spotMarketDecimalsOffset:], decimals)
	binary.LittleEndian.PutUint16(b[spotMarketIndexOffset:], idx)
	return b
}

func encodePerpMarket(pk, oracle solana.PublicKey, price int64) []byte {
	b := make([]byte, 1216)
	copy(b[8:], pk[:])
	copy(b[perpMarketOracleOffset:], oracle[:])
	binary.LittleEndian.PutUint64(b[perpMarketLastOraclePriceOffset:], uint64(price))
	return b
}

func oneInterest() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(10), nil)
}
