package link

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/klingon-exchange/walletlink/internal/provider"
	"github.com/klingon-exchange/walletlink/pkg/logging"
)

// ErrLinkCancelled settles a link request that was superseded by a newer one
// or closed by the user. It carries no further reason.
var ErrLinkCancelled = errors.New("link request cancelled")

// Direction says which side of a swap the linked wallet is for.
type Direction string

const (
	DirectionFrom Direction = "from"
	DirectionTo   Direction = "to"
)

// UI is the modal layer the linking flow drives.
type UI interface {
	OpenConnect()
	OpenLinkWallet()
	SetWalletFilter(filter chain.WalletFilter)
}

// Pending is an outstanding link request. It settles exactly once.
type Pending struct {
	token     uuid.UUID
	chain     *chain.Chain
	direction Direction

	once   sync.Once
	done   chan struct{}
	wallet LinkedWallet
	err    error
}

func newPending(c *chain.Chain, dir Direction) *Pending {
	return &Pending{
		token:     uuid.New(),
		chain:     c,
		direction: dir,
		done:      make(chan struct{}),
	}
}

// Token identifies the request.
func (p *Pending) Token() uuid.UUID { return p.token }

// Chain returns the chain the wallet is requested for, or nil.
func (p *Pending) Chain() *chain.Chain { return p.chain }

// Direction returns the swap side the wallet is requested for.
func (p *Pending) Direction() Direction { return p.direction }

// Done is closed once the request settles.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the request settles or ctx is done.
func (p *Pending) Wait(ctx context.Context) (LinkedWallet, error) {
	select {
	case <-p.done:
		return p.wallet, p.err
	case <-ctx.Done():
		return LinkedWallet{}, ctx.Err()
	}
}

func (p *Pending) settle(w LinkedWallet, err error) bool {
	settled := false
	p.once.Do(func() {
		p.wallet = w
		p.err = err
		close(p.done)
		settled = true
	})
	return settled
}

// Broker holds at most one pending link request and resolves it from the
// next wallet-added event.
type Broker struct {
	ui  UI
	log *logging.Logger

	mu      sync.Mutex
	pending *Pending
}

// NewBroker creates a broker driving ui.
func NewBroker(ui UI) *Broker {
	return &Broker{
		ui:  ui,
		log: logging.GetDefault().Component("broker"),
	}
}

// RequestLink rejects any outstanding request, installs a new one, points
// the UI filter at the target chain and opens the link-wallet modal.
func (b *Broker) RequestLink(c *chain.Chain, dir Direction) *Pending {
	p := newPending(c, dir)

	b.mu.Lock()
	if prev := b.pending; prev != nil {
		prev.settle(LinkedWallet{}, ErrLinkCancelled)
		b.log.Debug("Superseded pending link request", "token", prev.token)
	}
	b.pending = p
	b.mu.Unlock()

	filter := chain.FilterFor(c)
	b.ui.SetWalletFilter(filter)
	b.ui.OpenLinkWallet()

	b.log.Info("Link wallet requested", "token", p.token, "direction", dir, "filter", filter)
	return p
}

// WalletAdded resolves the pending request with w's descriptor. Without a
// pending request the event is ignored. Returns true if a request settled.
func (b *Broker) WalletAdded(w provider.Wallet) bool {
	if w == nil {
		return false
	}

	b.mu.Lock()
	p := b.pending
	b.pending = nil
	b.mu.Unlock()

	if p == nil {
		b.log.Debug("Wallet added outside a link flow", "wallet", w.ID())
		return false
	}

	lw := NewLinkedWallet(w)
	p.settle(lw, nil)
	b.log.Info("Link request resolved", "token", p.token, "address", lw.Address, "vm", lw.VMType)
	return true
}

// Cancel rejects the pending request, if any.
func (b *Broker) Cancel() bool {
	b.mu.Lock()
	p := b.pending
	b.pending = nil
	b.mu.Unlock()

	if p == nil {
		return false
	}
	p.settle(LinkedWallet{}, ErrLinkCancelled)
	b.log.Info("Link request cancelled", "token", p.token)
	return true
}

// Withdraw rejects p if it is still the outstanding request. Used when the
// caller waiting on p has gone away, so a later wallet-added event is not
// consumed by a request nobody is waiting for.
func (b *Broker) Withdraw(p *Pending) bool {
	b.mu.Lock()
	if p == nil || b.pending != p {
		b.mu.Unlock()
		return false
	}
	b.pending = nil
	b.mu.Unlock()

	p.settle(LinkedWallet{}, ErrLinkCancelled)
	b.log.Info("Link request withdrawn", "token", p.token)
	return true
}

// Pending returns the outstanding request, or nil.
func (b *Broker) Pending() *Pending {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}
