// Package wallet is a local wallet provider backed by a BIP39 keyring. It
// yields EVM, Bitcoin and Solana wallets implementing the provider
// capability interfaces, and a Manager holding the user's wallet set.
package wallet

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/tyler-smith/go-bip39"
)

// ErrInvalidMnemonic is returned for mnemonics failing the BIP39 checksum.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Keyring derives wallet keys from a BIP39 seed.
type Keyring struct {
	masterKey *hdkeychain.ExtendedKey
	seed      []byte

	mu    sync.Mutex
	cache map[string]*hdkeychain.ExtendedKey // path -> key
}

// GenerateMnemonic generates a new 24-word BIP39 mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}

	return mnemonic, nil
}

// ValidateMnemonic checks if a mnemonic is valid.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// NewKeyring creates a keyring from a BIP39 mnemonic and optional passphrase.
func NewKeyring(mnemonic, passphrase string) (*Keyring, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	return NewKeyringFromSeed(bip39.NewSeed(mnemonic, passphrase))
}

// NewKeyringFromSeed creates a keyring from a raw seed.
func NewKeyringFromSeed(seed []byte) (*Keyring, error) {
	// Mainnet version bytes only affect xprv serialization, never derivation.
	masterKey, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}

	return &Keyring{
		masterKey: masterKey,
		seed:      append([]byte(nil), seed...),
		cache:     make(map[string]*hdkeychain.ExtendedKey),
	}, nil
}

// DeriveKey derives the secp256k1 key at m/purpose'/coin'/account'/change/index.
func (k *Keyring) DeriveKey(purpose, coinType, account, change, index uint32) (*btcec.PrivateKey, error) {
	path := []uint32{
		hdkeychain.HardenedKeyStart + purpose,
		hdkeychain.HardenedKeyStart + coinType,
		hdkeychain.HardenedKeyStart + account,
		change,
		index,
	}

	ext, err := k.derive(path)
	if err != nil {
		return nil, err
	}

	priv, err := ext.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get private key: %w", err)
	}
	return priv, nil
}

// DeriveKeyForChain derives the external key of a chain's default path.
func (k *Keyring) DeriveKeyForChain(c *chain.Chain, account, index uint32) (*btcec.PrivateKey, error) {
	if c == nil {
		return nil, errors.New("chain required")
	}
	return k.DeriveKey(c.DefaultPurpose, c.CoinType, account, 0, index)
}

func (k *Keyring) derive(path []uint32) (*hdkeychain.ExtendedKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	cacheKey := fmt.Sprint(path)
	if key, ok := k.cache[cacheKey]; ok {
		return key, nil
	}

	key := k.masterKey
	for depth, child := range path {
		next, err := key.Derive(child)
		if err != nil {
			return nil, fmt.Errorf("failed to derive level %d: %w", depth+1, err)
		}
		key = next
	}

	k.cache[cacheKey] = key
	return key, nil
}

// DeriveSolanaKey derives the ed25519 key at m/44'/501'/account'/0', the
// path used by Phantom and Solflare.
func (k *Keyring) DeriveSolanaKey(account uint32) ed25519.PrivateKey {
	return slip10Ed25519(k.seed, []uint32{44, 501, account, 0})
}

// slip10Ed25519 implements SLIP-0010 for ed25519. Every level is hardened.
func slip10Ed25519(seed []byte, path []uint32) ed25519.PrivateKey {
	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	key, chainCode := sum[:32], sum[32:]

	for _, index := range path {
		data := make([]byte, 0, 37)
		data = append(data, 0)
		data = append(data, key...)
		data = binary.BigEndian.AppendUint32(data, index|hdkeychain.HardenedKeyStart)

		mac = hmac.New(sha512.New, chainCode)
		mac.Write(data)
		sum = mac.Sum(nil)
		key, chainCode = sum[:32], sum[32:]
	}

	return ed25519.NewKeyFromSeed(key)
}

// ClearCache drops cached extended keys.
func (k *Keyring) ClearCache() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.cache = make(map[string]*hdkeychain.ExtendedKey)
}
