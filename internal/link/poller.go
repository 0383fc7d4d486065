package link

import (
	"context"
	"sync"
	"time"

	"github.com/klingon-exchange/walletlink/internal/provider"
	"github.com/klingon-exchange/walletlink/pkg/logging"
)

// Outcome is how a primary wallet switch ended.
type Outcome int

const (
	OutcomeDone Outcome = iota
	OutcomeGaveUp
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeGaveUp:
		return "gave_up"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Clock schedules poller ticks.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// WalletFinder looks up a wallet by any of its addresses.
type WalletFinder interface {
	Find(address string) provider.Wallet
}

// PollerConfig configures the primary wallet switch poller.
type PollerConfig struct {
	MaxAttempts int           // Attempts before giving up
	Interval    time.Duration // Spacing between attempts
	Clock       Clock         // nil uses the wall clock
}

// DefaultPollerConfig returns the default configuration.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		MaxAttempts: 20,
		Interval:    200 * time.Millisecond,
	}
}

// Poller switches the primary wallet to a freshly linked one. A wallet can
// be reported as connected before it shows up in the wallet set or before a
// switcher is available, so the poller retries on a fixed interval within a
// fixed attempt budget.
type Poller struct {
	config PollerConfig
	finder WalletFinder
	clock  Clock
	log    *logging.Logger

	mu       sync.RWMutex
	switcher provider.Switcher
	onFinish func(address string, outcome Outcome)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller creates a poller looking wallets up in finder.
func NewPoller(cfg PollerConfig, finder WalletFinder) *Poller {
	defaults := DefaultPollerConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		config: cfg,
		finder: finder,
		clock:  clock,
		log:    logging.GetDefault().Component("poller"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetSwitcher sets the switch capability. Until one is set every tick is a
// miss.
func (p *Poller) SetSwitcher(s provider.Switcher) {
	p.mu.Lock()
	p.switcher = s
	p.mu.Unlock()
}

// OnFinish registers a callback invoked when a background switch ends.
func (p *Poller) OnFinish(fn func(address string, outcome Outcome)) {
	p.mu.Lock()
	p.onFinish = fn
	p.mu.Unlock()
}

func (p *Poller) currentSwitcher() provider.Switcher {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.switcher
}

// SetPrimary starts switching to the wallet owning address in the
// background. It returns immediately; the outcome goes to the OnFinish
// callback.
func (p *Poller) SetPrimary(address string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		outcome := p.Run(p.ctx, address)

		p.mu.RLock()
		fn := p.onFinish
		p.mu.RUnlock()
		if fn != nil {
			fn(address, outcome)
		}
	}()
}

// Run polls until the wallet owning address is switched to, the attempt
// budget is spent or ctx is done. Switch errors are swallowed and retried.
//
// Attempt n is due at (n-1)*Interval from the start and the run ends by
// MaxAttempts*Interval. Every attempt, the last included, does a lookup and
// a switch, so there are up to MaxAttempts switch calls. A switch call may
// run until the end of the budget; ticks it overruns are skipped, not
// queued.
func (p *Poller) Run(ctx context.Context, address string) Outcome {
	interval := p.config.Interval
	start := p.clock.Now()
	deadline := start.Add(time.Duration(p.config.MaxAttempts) * interval)

	for attempt := 1; ; {
		if ctx.Err() != nil {
			return OutcomeCancelled
		}

		if p.tryOnce(ctx, address, attempt, deadline) {
			p.log.Info("Primary wallet switched", "address", address, "attempts", attempt)
			return OutcomeDone
		}

		now := p.clock.Now()
		next := int(now.Sub(start)/interval) + 2
		if next > p.config.MaxAttempts {
			p.log.Info("Gave up switching primary wallet", "address", address, "attempts", attempt)
			return OutcomeGaveUp
		}

		due := start.Add(time.Duration(next-1) * interval)
		select {
		case <-ctx.Done():
			return OutcomeCancelled
		case <-p.clock.After(due.Sub(now)):
		}
		attempt = next
	}
}

func (p *Poller) tryOnce(ctx context.Context, address string, attempt int, deadline time.Time) bool {
	w := p.finder.Find(address)
	s := p.currentSwitcher()
	if w == nil || s == nil {
		p.log.Debug("Wallet not switchable yet", "address", address, "attempt", attempt,
			"found", w != nil, "switcher", s != nil)
		return false
	}

	// Measured on the poller clock so the switch shares the run's budget.
	switchCtx, cancel := context.WithTimeout(ctx, deadline.Sub(p.clock.Now()))
	defer cancel()

	if err := s.SwitchWallet(switchCtx, w.ID()); err != nil {
		p.log.Debug("Switch attempt failed", "wallet", w.ID(), "attempt", attempt, "error", err)
		return false
	}
	return true
}

// Wait blocks until all background switches have ended.
func (p *Poller) Wait() {
	p.wg.Wait()
}

// Stop cancels background switches and waits for them to end.
func (p *Poller) Stop() {
	p.cancel()
	p.wg.Wait()
}
