// Package chain defines the chains a linked wallet can act on, the wallet
// family each chain belongs to, and the wallet filter hint shown when a user
// is asked to link a wallet for a chain.
// Chain IDs follow the Relay numbering, so non-EVM chains get synthetic IDs.
package chain

import (
	"sort"
	"strings"
)

// VMType is the virtual machine tag carried by a chain and by a linked wallet.
type VMType string

const (
	VMTypeEVM VMType = "evm" // Ethereum and EVM chains
	VMTypeBVM VMType = "bvm" // Bitcoin
	VMTypeSVM VMType = "svm" // Solana
)

// Family represents the signing model a wallet belongs to.
type Family string

const (
	FamilyUnknown Family = ""
	FamilyEVM     Family = "evm"     // account based, EVM
	FamilyBitcoin Family = "bitcoin" // UTXO
	FamilySolana  Family = "solana"  // account based, non-EVM
)

// VMType returns the VM tag used for wallets of this family.
func (f Family) VMType() VMType {
	switch f {
	case FamilyEVM:
		return VMTypeEVM
	case FamilyBitcoin:
		return VMTypeBVM
	case FamilySolana:
		return VMTypeSVM
	default:
		return ""
	}
}

// String returns the family name, or "unknown".
func (f Family) String() string {
	if f == FamilyUnknown {
		return "unknown"
	}
	return string(f)
}

// ParseFamily accepts a family name, a VM tag or a currency symbol.
func ParseFamily(s string) (Family, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "evm", "eth", "ethereum":
		return FamilyEVM, true
	case "bitcoin", "btc", "bvm":
		return FamilyBitcoin, true
	case "solana", "sol", "svm":
		return FamilySolana, true
	default:
		return FamilyUnknown, false
	}
}

// WalletFilter steers the link-wallet UI toward one kind of wallet.
type WalletFilter string

const (
	FilterNone WalletFilter = ""
	FilterEVM  WalletFilter = "EVM"
	FilterSOL  WalletFilter = "SOL"
	FilterBTC  WalletFilter = "BTC"
)

// Well known chain IDs.
const (
	EthereumChainID uint64 = 1
	BaseChainID     uint64 = 8453
	ArbitrumChainID uint64 = 42161
	ApeChainID      uint64 = 33139
	SolanaChainID   uint64 = 792703809
	BitcoinChainID  uint64 = 8253038
)

// Chain describes a chain a wallet can be linked for.
type Chain struct {
	ID          uint64
	Name        string // short name (ethereum, solana, ...)
	DisplayName string
	VMType      VMType

	// Native currency
	Currency Token

	// BIP44 derivation for locally held keys
	CoinType       uint32
	DefaultPurpose uint32

	// Bitcoin-like networks only
	Bech32HRP string
}

// Family returns the wallet family that can sign for this chain.
func (c *Chain) Family() Family {
	if c == nil {
		return FamilyUnknown
	}
	switch c.VMType {
	case VMTypeEVM:
		return FamilyEVM
	case VMTypeBVM:
		return FamilyBitcoin
	case VMTypeSVM:
		return FamilySolana
	default:
		return FamilyUnknown
	}
}

// DerivationPath returns the BIP44/84 derivation path for this chain.
// Format: m/purpose'/coin'/account'/change/index
func (c *Chain) DerivationPath(account, change, index uint32) []uint32 {
	return []uint32{
		c.DefaultPurpose + 0x80000000,
		c.CoinType + 0x80000000,
		account + 0x80000000,
		change,
		index,
	}
}

// DerivationPathString returns the derivation path as a string.
func (c *Chain) DerivationPathString(account, change, index uint32) string {
	return "m/" +
		itoa(c.DefaultPurpose) + "'/" +
		itoa(c.CoinType) + "'/" +
		itoa(account) + "'/" +
		itoa(change) + "/" +
		itoa(index)
}

func itoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// FilterFor picks the wallet filter for a link request targeting c.
// EVM chains match on VM type; Solana and Bitcoin match on their exact chain
// ID, so other SVM/BVM chains get no filter. A nil chain clears the filter.
func FilterFor(c *Chain) WalletFilter {
	switch {
	case c == nil:
		return FilterNone
	case c.VMType == VMTypeEVM:
		return FilterEVM
	case c.ID == SolanaChainID:
		return FilterSOL
	case c.ID == BitcoinChainID:
		return FilterBTC
	default:
		return FilterNone
	}
}

var registry = make(map[uint64]*Chain)

// Register adds a chain to the registry, replacing any chain with the same ID.
func Register(c *Chain) {
	registry[c.ID] = c
}

// Get returns the chain with the given ID.
func Get(id uint64) (*Chain, bool) {
	c, ok := registry[id]
	return c, ok
}

// IsSupported returns true if the chain is registered.
func IsSupported(id uint64) bool {
	_, ok := registry[id]
	return ok
}

// List returns all registered chains ordered by ID.
func List() []*Chain {
	chains := make([]*Chain, 0, len(registry))
	for _, c := range registry {
		chains = append(chains, c)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i].ID < chains[j].ID })
	return chains
}

// ListByVM returns all chains of a VM type ordered by ID.
func ListByVM(vm VMType) []*Chain {
	var chains []*Chain
	for _, c := range List() {
		if c.VMType == vm {
			chains = append(chains, c)
		}
	}
	return chains
}
