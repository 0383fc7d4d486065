package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/klingon-exchange/walletlink/internal/provider"
)

type recordingListener struct {
	mu     sync.Mutex
	events []string
	last   provider.Wallet
	sets   [][]provider.Wallet
}

func (l *recordingListener) WalletAdded(w provider.Wallet) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, "added")
}

func (l *recordingListener) WalletsChanged(ws []provider.Wallet) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, "changed")
	l.sets = append(l.sets, ws)
}

func (l *recordingListener) PrimaryChanged(w provider.Wallet) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, "primary")
	l.last = w
}

func (l *recordingListener) take() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.events
	l.events = nil
	return out
}

func equalEvents(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func testManager(t *testing.T) (*Manager, *recordingListener) {
	t.Helper()
	m := NewManager(ManagerConfig{Keyring: testKeyring(t)})
	l := &recordingListener{}
	m.SetListener(l)
	return m, l
}

func TestManagerAdd(t *testing.T) {
	m, l := testManager(t)

	evm, err := m.Add(chain.FamilyEVM)
	if err != nil {
		t.Fatalf("Add(evm) error = %v", err)
	}
	if got := l.take(); !equalEvents(got, []string{"changed", "added", "primary"}) {
		t.Errorf("events = %v", got)
	}
	if m.Primary() != evm {
		t.Error("first wallet should become primary")
	}

	btc, err := m.Add(chain.FamilyBitcoin)
	if err != nil {
		t.Fatalf("Add(bitcoin) error = %v", err)
	}
	if got := l.take(); !equalEvents(got, []string{"changed", "added"}) {
		t.Errorf("events = %v", got)
	}
	if m.Primary() != evm {
		t.Error("primary should not change when a second wallet is added")
	}

	wallets := m.Wallets()
	if len(wallets) != 2 || wallets[0] != evm || wallets[1] != btc {
		t.Errorf("Wallets() = %v", wallets)
	}
	if evm.ID() == btc.ID() {
		t.Error("wallet IDs should be unique")
	}
}

func TestManagerAddNextAccount(t *testing.T) {
	m, _ := testManager(t)

	first, _ := m.Add(chain.FamilyEVM)
	second, _ := m.Add(chain.FamilyEVM)
	if first.Address() == second.Address() {
		t.Error("second wallet of a family should use the next account")
	}
}

func TestManagerAddUnsupported(t *testing.T) {
	m, l := testManager(t)

	if _, err := m.Add(chain.FamilyUnknown); err == nil {
		t.Fatal("expected error for unknown family")
	}
	if len(l.take()) != 0 || len(m.Wallets()) != 0 {
		t.Error("failed add should not change the wallet set")
	}

	empty := NewManager(ManagerConfig{})
	if _, err := empty.Add(chain.FamilyEVM); err == nil {
		t.Error("expected error without keyring")
	}
}

func TestManagerSwitchWallet(t *testing.T) {
	m, l := testManager(t)
	ctx := context.Background()

	m.Add(chain.FamilyEVM)
	sol, _ := m.Add(chain.FamilySolana)
	l.take()

	if err := m.SwitchWallet(ctx, sol.ID()); err != nil {
		t.Fatalf("SwitchWallet() error = %v", err)
	}
	if m.Primary() != sol || l.last != sol {
		t.Error("solana wallet should be primary")
	}
	if got := l.take(); !equalEvents(got, []string{"primary"}) {
		t.Errorf("events = %v", got)
	}

	// Switching to the current primary is a no-op.
	if err := m.SwitchWallet(ctx, sol.ID()); err != nil {
		t.Fatal(err)
	}
	if got := l.take(); len(got) != 0 {
		t.Errorf("events = %v, want none", got)
	}

	if err := m.SwitchWallet(ctx, "missing"); !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("error = %v, want ErrWalletNotFound", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := m.SwitchWallet(cancelled, sol.ID()); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestManagerRemove(t *testing.T) {
	m, l := testManager(t)

	evm, _ := m.Add(chain.FamilyEVM)
	btc, _ := m.Add(chain.FamilyBitcoin)
	l.take()

	if err := m.Remove(evm.ID()); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if got := l.take(); !equalEvents(got, []string{"changed", "primary"}) {
		t.Errorf("events = %v", got)
	}
	if m.Primary() != btc {
		t.Error("remaining wallet should become primary")
	}
	if _, ok := m.Get(evm.ID()); ok {
		t.Error("removed wallet still found")
	}

	m.Remove(btc.ID())
	if m.Primary() != nil || l.last != nil {
		t.Error("primary should be cleared when the last wallet is removed")
	}

	if err := m.Remove("missing"); !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("error = %v, want ErrWalletNotFound", err)
	}
}

func TestManagerWalletsIsCopy(t *testing.T) {
	m, _ := testManager(t)
	m.Add(chain.FamilyEVM)

	ws := m.Wallets()
	ws[0] = nil
	if m.Wallets()[0] == nil {
		t.Error("Wallets() should return a copy")
	}
}

func TestManagerConcurrentChangesDeliverLatestState(t *testing.T) {
	m, l := testManager(t)
	ctx := context.Background()

	families := []chain.Family{chain.FamilyEVM, chain.FamilyBitcoin, chain.FamilySolana}
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(family chain.Family) {
			defer wg.Done()
			w, err := m.Add(family)
			if err != nil {
				t.Errorf("Add(%s) error = %v", family, err)
				return
			}
			if err := m.SwitchWallet(ctx, w.ID()); err != nil {
				t.Errorf("SwitchWallet() error = %v", err)
			}
		}(families[i%len(families)])
	}
	wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()

	last := l.sets[len(l.sets)-1]
	want := m.Wallets()
	if len(last) != len(want) {
		t.Fatalf("last delivered set has %d wallets, want %d", len(last), len(want))
	}
	for i := range want {
		if last[i] != want[i] {
			t.Errorf("wallet %d: delivered %s, want %s", i, last[i].ID(), want[i].ID())
		}
	}
	for i := 1; i < len(l.sets); i++ {
		if len(l.sets[i]) != len(l.sets[i-1])+1 {
			t.Errorf("set %d has %d wallets after %d", i, len(l.sets[i]), len(l.sets[i-1]))
		}
	}
	if l.last != m.Primary() {
		t.Error("last delivered primary is not the manager's primary")
	}
}
