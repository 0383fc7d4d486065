package chain

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
)

// ValidateAddress checks that address is well formed for the given family.
func ValidateAddress(family Family, address string) error {
	switch family {
	case FamilyEVM:
		if !common.IsHexAddress(address) {
			return fmt.Errorf("invalid EVM address: %s", address)
		}
		return nil
	case FamilyBitcoin:
		if _, err := btcutil.DecodeAddress(address, &chaincfg.MainNetParams); err != nil {
			return fmt.Errorf("invalid bitcoin address %s: %w", address, err)
		}
		return nil
	case FamilySolana:
		return validateSolanaAddress(address)
	default:
		return fmt.Errorf("unknown wallet family for address %s", address)
	}
}

// validateSolanaAddress requires a base58 ed25519 public key on the curve.
// Program derived addresses are off curve and are rejected on purpose since
// they cannot belong to a wallet.
func validateSolanaAddress(address string) error {
	raw, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("invalid solana address %s: %w", address, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("invalid solana address length: %d", len(raw))
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return fmt.Errorf("solana address %s is not an ed25519 key: %w", address, err)
	}
	return nil
}

// SameAddress compares two addresses of the same family. EVM addresses are
// compared case-insensitively since EIP-55 only changes letter case.
func SameAddress(a, b string) bool {
	if a == b {
		return true
	}
	if common.IsHexAddress(a) && common.IsHexAddress(b) {
		return common.HexToAddress(a) == common.HexToAddress(b)
	}
	return false
}
