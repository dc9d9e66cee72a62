// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

var (
	// ErrMissingCapability возвращается, когда адаптеру не хватает ключа или метода подписи.
	ErrMissingCapability = errors.New("wallet is missing a required capability")
	// ErrNoKeySource означает, что не задан ни приватный ключ, ни файл, ни адрес для наблюдения.
	ErrNoKeySource = errors.New("no wallet key source configured")
)

// Wallet представляет кошелёк Solana.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

// NewWallet создаёт новый кошелёк из base58-encoded приватного ключа.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(strings.TrimSpace(privateKeyBase58))
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	return fromBytes(privateKeyBytes)
}

// LoadKeypairFile читает keypair в формате solana-keygen (JSON массив из 64 байт).
func LoadKeypairFile(path string) (*Wallet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keypair file: %w", err)
	}
	var bytes []byte
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return nil, fmt.Errorf("failed to parse keypair file: %w", err)
	}
	for _, b := range ints {
		if b < 0 || b > 255 {
			return nil, fmt.Errorf("invalid byte %d in keypair file", b)
		}
		bytes = append(bytes, byte(b))
	}
	return fromBytes(bytes)
}

func fromBytes(privateKeyBytes []byte) (*Wallet, error) {
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}, nil
}

// SignTransaction подписывает транзакцию с помощью приватного ключа кошелька.
func (w *Wallet) SignTransaction(tx *solana.Transaction) (*solana.Transaction, error) {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// SignAllTransactions подписывает пачку транзакций, останавливаясь на первой ошибке.
func (w *Wallet) SignAllTransactions(txs []*solana.Transaction) ([]*solana.Transaction, error) {
	out := make([]*solana.Transaction, 0, len(txs))
	for i, tx := range txs {
		signed, err := w.SignTransaction(tx)
		if err != nil {
			return nil, fmt.Errorf("sign transaction %d: %w", i, err)
		}
		out = append(out, signed)
	}
	return out, nil
}

// Adapter возвращает объект возможностей кошелька, который потребляет Drift-клиент.
func (w *Wallet) Adapter() *Adapter {
	pk := w.PublicKey
	return &Adapter{
		PublicKey:           &pk,
		SignTransaction:     w.SignTransaction,
		SignAllTransactions: w.SignAllTransactions,
	}
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
