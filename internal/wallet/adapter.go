package wallet

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Adapter is the capability object a connected wallet exposes.
// Any field may be nil; Validate reports which one is missing.
type Adapter struct {
	PublicKey           *solana.PublicKey
	SignTransaction     func(tx *solana.Transaction) (*solana.Transaction, error)
	SignAllTransactions func(txs []*solana.Transaction) ([]*solana.Transaction, error)
}

// WatchOnly builds an adapter that knows the public key but cannot sign.
func WatchOnly(pk solana.PublicKey) *Adapter {
	return &Adapter{PublicKey: &pk}
}

// Connected сообщает, есть ли у адаптера публичный ключ.
func (a *Adapter) Connected() bool {
	return a != nil && a.PublicKey != nil
}

// Validate проверяет наличие ключа и обоих методов подписи.
func (a *Adapter) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: wallet not connected", ErrMissingCapability)
	}
	var missing []string
	if a.PublicKey == nil {
		missing = append(missing, "publicKey")
	}
	if a.SignTransaction == nil {
		missing = append(missing, "signTransaction")
	}
	if a.SignAllTransactions == nil {
		missing = append(missing, "signAllTransactions")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCapability, strings.Join(missing, ", "))
	}
	return nil
}

// Authority returns the public key or the zero key for a disconnected adapter.
func (a *Adapter) Authority() solana.PublicKey {
	if !a.Connected() {
		return solana.PublicKey{}
	}
	return *a.PublicKey
}

// Source describes where the wallet key comes from.
type Source struct {
	PrivateKey  string
	KeypairPath string
}

// Load resolves the first configured key source: private key, then keypair file.
// A watch-only adapter cannot pass Validate, so there is no public-key source.
func Load(src Source) (*Adapter, error) {
	switch {
	case src.PrivateKey != "":
		w, err := NewWallet(src.PrivateKey)
		if err != nil {
			return nil, err
		}
		return w.Adapter(), nil
	case src.KeypairPath != "":
		w, err := LoadKeypairFile(src.KeypairPath)
		if err != nil {
			return nil, err
		}
		return w.Adapter(), nil
	default:
		return nil, ErrNoKeySource
	}
}
