package link

import (
	"sync"

	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/klingon-exchange/walletlink/internal/provider"
)

// AddressTypePayment marks the payment address of a Bitcoin wallet.
const AddressTypePayment = "payment"

// LinkedWallet is the normalized view of a connected wallet handed to the
// swap widget.
type LinkedWallet struct {
	Address             string       `json:"address"`
	VMType              chain.VMType `json:"vmType"`
	Connector           string       `json:"connector"`
	WalletLogoURL       string       `json:"walletLogoUrl,omitempty"`
	AdditionalAddresses []string     `json:"additionalAddresses,omitempty"`
}

// logoProvider is implemented by wallets that expose a brand icon.
type logoProvider interface {
	LogoURL() string
}

// NewLinkedWallet derives the descriptor of w. Bitcoin wallets are reported
// with their payment address when they have one.
func NewLinkedWallet(w provider.Wallet) LinkedWallet {
	family := Classify(w)
	lw := LinkedWallet{
		Address:   w.Address(),
		VMType:    family.VMType(),
		Connector: w.Connector(),
	}

	if lp, ok := w.(logoProvider); ok {
		lw.WalletLogoURL = lp.LogoURL()
	}

	for _, extra := range w.AdditionalAddresses() {
		lw.AdditionalAddresses = append(lw.AdditionalAddresses, extra.Address)
		if family == chain.FamilyBitcoin && extra.Type == AddressTypePayment {
			lw.Address = extra.Address
		}
	}

	return lw
}

// DeriveLinkedWallets maps every wallet to its descriptor, keeping order.
func DeriveLinkedWallets(wallets []provider.Wallet) []LinkedWallet {
	linked := make([]LinkedWallet, 0, len(wallets))
	for _, w := range wallets {
		linked = append(linked, NewLinkedWallet(w))
	}
	return linked
}

// MatchesAddress reports whether address is the wallet's address or one of
// its additional addresses.
func MatchesAddress(w provider.Wallet, address string) bool {
	if chain.SameAddress(w.Address(), address) {
		return true
	}
	for _, extra := range w.AdditionalAddresses() {
		if chain.SameAddress(extra.Address, address) {
			return true
		}
	}
	return false
}

// Registry holds the latest known wallet set and the descriptors derived
// from it. Both are replaced together on every update.
type Registry struct {
	mu      sync.RWMutex
	wallets []provider.Wallet
	linked  []LinkedWallet
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Update replaces the wallet set and recomputes all descriptors.
func (r *Registry) Update(wallets []provider.Wallet) []LinkedWallet {
	snapshot := append([]provider.Wallet(nil), wallets...)
	linked := DeriveLinkedWallets(snapshot)

	r.mu.Lock()
	r.wallets = snapshot
	r.linked = linked
	r.mu.Unlock()

	return cloneLinked(linked)
}

// LinkedWallets returns a copy of the current descriptors.
func (r *Registry) LinkedWallets() []LinkedWallet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneLinked(r.linked)
}

// Wallets returns a copy of the current wallet set.
func (r *Registry) Wallets() []provider.Wallet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]provider.Wallet(nil), r.wallets...)
}

// Find returns the first wallet matching address, or nil.
func (r *Registry) Find(address string) provider.Wallet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if MatchesAddress(w, address) {
			return w
		}
	}
	return nil
}

func cloneLinked(in []LinkedWallet) []LinkedWallet {
	out := make([]LinkedWallet, len(in))
	for i, lw := range in {
		out[i] = lw
		out[i].AdditionalAddresses = append([]string(nil), lw.AdditionalAddresses...)
	}
	return out
}
