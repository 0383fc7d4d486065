package link

import (
	"context"
	"sync"

	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/klingon-exchange/walletlink/internal/provider"
	"github.com/klingon-exchange/walletlink/internal/signer"
	"github.com/klingon-exchange/walletlink/pkg/logging"
)

// Observer is optionally implemented by a UI that wants state pushes.
type Observer interface {
	SignerChanged(s signer.Signer)
	LinkedWalletsChanged(wallets []LinkedWallet)
}

// Config configures a Session.
type Config struct {
	Poller        PollerConfig
	SolanaChainID uint64
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Poller:        DefaultPollerConfig(),
		SolanaChainID: chain.SolanaChainID,
	}
}

// Session is the surface the swap widget talks to. Provider events come in
// through WalletAdded, WalletsChanged and PrimaryChanged.
type Session struct {
	ui       UI
	factory  *Factory
	registry *Registry
	broker   *Broker
	poller   *Poller
	log      *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	current    signer.Signer
	primaryKey string
	primarySet bool
	generation uint64
}

// NewSession wires the linking components around ui. switcher may be nil
// and set later with SetSwitcher.
func NewSession(cfg Config, ui UI, switcher provider.Switcher) *Session {
	registry := NewRegistry()
	poller := NewPoller(cfg.Poller, registry)
	poller.SetSwitcher(switcher)

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ui:       ui,
		factory:  NewFactory(cfg.SolanaChainID),
		registry: registry,
		broker:   NewBroker(ui),
		poller:   poller,
		log:      logging.GetDefault().Component("link"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetSwitcher sets the provider's switch capability.
func (s *Session) SetSwitcher(switcher provider.Switcher) {
	s.poller.SetSwitcher(switcher)
}

// Poller exposes the switch poller.
func (s *Session) Poller() *Poller { return s.poller }

// Broker exposes the link request broker.
func (s *Session) Broker() *Broker { return s.broker }

// Wallet returns the signer of the primary wallet, or nil.
func (s *Session) Wallet() signer.Signer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// LinkedWallets returns the descriptors of all connected wallets.
func (s *Session) LinkedWallets() []LinkedWallet {
	return s.registry.LinkedWallets()
}

// OnLinkNewWallet asks the user to link a wallet for c. The returned
// request settles with the linked wallet or ErrLinkCancelled.
func (s *Session) OnLinkNewWallet(c *chain.Chain, dir Direction) *Pending {
	return s.broker.RequestLink(c, dir)
}

// OnSetPrimaryWallet switches the primary wallet to the one owning address
// in the background.
func (s *Session) OnSetPrimaryWallet(address string) {
	s.poller.SetPrimary(address)
}

// OnConnectWallet shows the primary connect flow.
func (s *Session) OnConnectWallet() {
	s.ui.OpenConnect()
}

// WalletAdded handles the provider's wallet-added event.
func (s *Session) WalletAdded(w provider.Wallet) {
	s.broker.WalletAdded(w)
}

// WalletsChanged handles a new wallet set from the provider.
func (s *Session) WalletsChanged(wallets []provider.Wallet) {
	linked := s.registry.Update(wallets)
	s.log.Debug("Linked wallets updated", "count", len(linked))

	if o, ok := s.ui.(Observer); ok {
		o.LinkedWalletsChanged(linked)
	}
}

// PrimaryChanged re-adapts the primary wallet. Adaptation is keyed by
// address: a primary with the same address as the last one is ignored. If
// the primary changes again while adapting, the older result is dropped.
func (s *Session) PrimaryChanged(w provider.Wallet) {
	key := ""
	if w != nil {
		key = w.Address()
	}

	s.mu.Lock()
	if s.primarySet && key == s.primaryKey {
		s.mu.Unlock()
		return
	}
	s.primarySet = true
	s.primaryKey = key
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	adapted := s.factory.Adapt(s.ctx, w)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.log.Debug("Dropped stale wallet adaptation", "address", key)
		return
	}
	s.current = adapted
	s.mu.Unlock()

	if adapted != nil {
		s.log.Info("Primary wallet adapted", "address", adapted.Address(), "vm", adapted.VMType())
	} else {
		s.log.Info("No signer for primary wallet", "address", key)
	}

	if o, ok := s.ui.(Observer); ok {
		o.SignerChanged(adapted)
	}
}

// Close stops background work.
func (s *Session) Close() {
	s.cancel()
	s.poller.Stop()
}
