package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/klingon-exchange/walletlink/internal/provider"
	"github.com/klingon-exchange/walletlink/pkg/logging"
)

// ErrWalletNotFound is returned for unknown wallet IDs.
var ErrWalletNotFound = errors.New("wallet not found")

// Listener receives wallet set events. Calls are made without the manager
// lock held, in the order WalletsChanged, WalletAdded, PrimaryChanged.
// Events of one change are delivered before the next change is applied, so
// the last WalletsChanged and PrimaryChanged always carry the current state.
// A listener must not add, remove or switch wallets from a callback.
type Listener interface {
	WalletAdded(w provider.Wallet)
	WalletsChanged(wallets []provider.Wallet)
	PrimaryChanged(w provider.Wallet)
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Keyring        *Keyring
	EVMEndpoints   map[uint64]string // chain ID -> node URL
	SolanaEndpoint string
}

// Manager holds the user's connected wallets and the primary wallet.
type Manager struct {
	config ManagerConfig
	log    *logging.Logger

	// changeMu is held from a mutation until its events are delivered.
	changeMu sync.Mutex

	mu       sync.RWMutex
	wallets  []provider.Wallet
	primary  provider.Wallet
	accounts map[chain.Family]uint32 // next account index
	listener Listener
}

// NewManager creates an empty wallet set.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		config:   cfg,
		log:      logging.GetDefault().Component("wallet"),
		accounts: make(map[chain.Family]uint32),
	}
}

// SetListener sets the receiver of wallet events.
func (m *Manager) SetListener(l Listener) {
	m.mu.Lock()
	m.listener = l
	m.mu.Unlock()
}

// Add derives the next account of family, appends it to the wallet set and
// makes it primary when there is no primary yet.
func (m *Manager) Add(family chain.Family) (provider.Wallet, error) {
	if m.config.Keyring == nil {
		return nil, errors.New("keyring not loaded")
	}

	m.changeMu.Lock()
	defer m.changeMu.Unlock()

	m.mu.Lock()
	account := m.accounts[family]
	w, err := m.newWallet(family, account)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}

	m.accounts[family] = account + 1
	m.wallets = append(m.wallets, w)
	becamePrimary := m.primary == nil
	if becamePrimary {
		m.primary = w
	}
	snapshot := m.snapshotLocked()
	listener := m.listener
	m.mu.Unlock()

	m.log.Info("Wallet added", "id", w.ID(), "family", family, "address", w.Address(), "account", account)

	if listener != nil {
		listener.WalletsChanged(snapshot)
		listener.WalletAdded(w)
		if becamePrimary {
			listener.PrimaryChanged(w)
		}
	}
	return w, nil
}

func (m *Manager) newWallet(family chain.Family, account uint32) (provider.Wallet, error) {
	id := uuid.NewString()

	switch family {
	case chain.FamilyEVM:
		return NewEVMWallet(id, m.config.Keyring, account, m.config.EVMEndpoints)
	case chain.FamilyBitcoin:
		return NewBitcoinWallet(id, m.config.Keyring, account)
	case chain.FamilySolana:
		return NewSolanaWallet(id, m.config.Keyring, account, m.config.SolanaEndpoint), nil
	default:
		return nil, fmt.Errorf("unsupported wallet family: %s", family)
	}
}

// Remove drops a wallet. If it was primary, the first remaining wallet
// becomes primary.
func (m *Manager) Remove(id string) error {
	m.changeMu.Lock()
	defer m.changeMu.Unlock()

	m.mu.Lock()
	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWalletNotFound, id)
	}

	removed := m.wallets[idx]
	m.wallets = append(m.wallets[:idx:idx], m.wallets[idx+1:]...)

	primaryChanged := m.primary == removed
	if primaryChanged {
		m.primary = nil
		if len(m.wallets) > 0 {
			m.primary = m.wallets[0]
		}
	}
	snapshot := m.snapshotLocked()
	primary := m.primary
	listener := m.listener
	m.mu.Unlock()

	m.log.Info("Wallet removed", "id", id)

	if listener != nil {
		listener.WalletsChanged(snapshot)
		if primaryChanged {
			listener.PrimaryChanged(primary)
		}
	}
	return nil
}

// SwitchWallet makes the wallet with the given ID primary.
func (m *Manager) SwitchWallet(ctx context.Context, walletID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.changeMu.Lock()
	defer m.changeMu.Unlock()

	m.mu.Lock()
	idx := m.indexLocked(walletID)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWalletNotFound, walletID)
	}
	w := m.wallets[idx]
	if m.primary == w {
		m.mu.Unlock()
		return nil
	}
	m.primary = w
	listener := m.listener
	m.mu.Unlock()

	m.log.Info("Primary wallet switched", "id", walletID, "address", w.Address())

	if listener != nil {
		listener.PrimaryChanged(w)
	}
	return nil
}

// Wallets returns the wallet set in insertion order.
func (m *Manager) Wallets() []provider.Wallet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Primary returns the primary wallet, or nil.
func (m *Manager) Primary() provider.Wallet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.primary
}

// Get returns the wallet with the given ID.
func (m *Manager) Get(id string) (provider.Wallet, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if idx := m.indexLocked(id); idx >= 0 {
		return m.wallets[idx], true
	}
	return nil, false
}

func (m *Manager) indexLocked(id string) int {
	for i, w := range m.wallets {
		if w.ID() == id {
			return i
		}
	}
	return -1
}

func (m *Manager) snapshotLocked() []provider.Wallet {
	out := make([]provider.Wallet, len(m.wallets))
	copy(out, m.wallets)
	return out
}

var _ provider.Switcher = (*Manager)(nil)
