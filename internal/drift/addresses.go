// internal/drift/addresses.go
package drift

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	EnvMainnet = "mainnet-beta"
	EnvDevnet  = "devnet"
)

// ProgramID – адрес программы Drift v2 (одинаковый для mainnet-beta и devnet).
var ProgramID = solana.MustPublicKeyFromBase58("dRiftyHA39MWEi3m9aunc5MzRF1JYuBsbn6VPcn33UH")

// ValidateEnv проверяет имя окружения.
func ValidateEnv(env string) error {
	switch env {
	case EnvMainnet, EnvDevnet:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEnv, env)
	}
}

func u16Seed(v uint16) []byte {
	seed := make([]byte, 2)
	binary.LittleEndian.PutUint16(seed, v)
	return seed
}

// GetUserAccountPublicKey вычисляет PDA аккаунта пользователя: ["user", authority, subAccountID u16 LE].
func GetUserAccountPublicKey(programID, authority solana.PublicKey, subAccountID uint16) (solana.PublicKey, error) {
	address, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte("user"),
			authority.Bytes(),
			u16Seed(subAccountID),
		},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive user account for subaccount %d: %w", subAccountID, err)
	}
	return address, nil
}

func GetPerpMarketPublicKey(programID solana.PublicKey, marketIndex uint16) (solana.PublicKey, error) {
	address, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("perp_market"), u16Seed(marketIndex)},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive perp market %d: %w", marketIndex, err)
	}
	return address, nil
}

func GetSpotMarketPublicKey(programID solana.PublicKey, marketIndex uint16) (solana.PublicKey, error) {
	address, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("spot_market"), u16Seed(marketIndex)},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive spot market %d: %w", marketIndex, err)
	}
	return address, nil
}
