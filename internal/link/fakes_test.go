package link

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/klingon-exchange/walletlink/internal/provider"
	"github.com/klingon-exchange/walletlink/internal/signer"
)

type baseWallet struct {
	id        string
	address   string
	connector string
	extra     []provider.AdditionalAddress
}

func (w *baseWallet) ID() string                                        { return w.id }
func (w *baseWallet) Address() string                                   { return w.address }
func (w *baseWallet) AdditionalAddresses() []provider.AdditionalAddress { return w.extra }
func (w *baseWallet) Connector() string                                 { return w.connector }

type evmClient struct {
	account common.Address
}

func (c *evmClient) Account() common.Address { return c.account }
func (c *evmClient) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}
func (c *evmClient) SwitchChain(ctx context.Context, chainID uint64) error { return nil }
func (c *evmClient) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	return message, nil
}
func (c *evmClient) SendTransaction(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	return tx.Hash(), nil
}

type evmWallet struct {
	baseWallet
	client provider.EVMClient
	err    error
	calls  int
}

func (w *evmWallet) WalletClient(ctx context.Context) (provider.EVMClient, error) {
	w.calls++
	if w.err != nil {
		return nil, w.err
	}
	return w.client, nil
}

func newEVMWallet(id, address string) *evmWallet {
	return &evmWallet{
		baseWallet: baseWallet{id: id, address: address, connector: "metamask"},
		client:     &evmClient{account: common.HexToAddress(address)},
	}
}

type btcWallet struct {
	baseWallet
	resp    *provider.SignPSBTResponse
	err     error
	lastReq *provider.SignPSBTRequest
}

func (w *btcWallet) SignPSBT(ctx context.Context, req *provider.SignPSBTRequest) (*provider.SignPSBTResponse, error) {
	w.lastReq = req
	return w.resp, w.err
}

func (w *btcWallet) SignMessage(ctx context.Context, message string) (string, error) {
	return "signed:" + message, nil
}

func newBTCWallet(id, ordinals, payment string) *btcWallet {
	return &btcWallet{
		baseWallet: baseWallet{
			id:        id,
			address:   ordinals,
			connector: "xverse",
			extra: []provider.AdditionalAddress{
				{Address: ordinals, Type: "ordinals"},
				{Address: payment, Type: AddressTypePayment},
			},
		},
	}
}

type solConn string

func (c solConn) Endpoint() string { return string(c) }

type solSigner struct{}

func (solSigner) SignAndSendTransaction(ctx context.Context, tx []byte) (string, error) {
	return "sig", nil
}
func (solSigner) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	return message, nil
}

type solWallet struct {
	baseWallet
	connErr error
}

func (w *solWallet) Connection(ctx context.Context) (provider.SolanaConnection, error) {
	if w.connErr != nil {
		return nil, w.connErr
	}
	return solConn("https://api.mainnet-beta.solana.com"), nil
}

func (w *solWallet) Signer(ctx context.Context) (provider.SolanaSigner, error) {
	return solSigner{}, nil
}

func newSolWallet(id, address string) *solWallet {
	return &solWallet{baseWallet: baseWallet{id: id, address: address, connector: "phantom"}}
}

// hybridWallet is both an EVM and a Bitcoin wallet.
type hybridWallet struct {
	evmWallet
}

func (w *hybridWallet) SignPSBT(ctx context.Context, req *provider.SignPSBTRequest) (*provider.SignPSBTResponse, error) {
	return nil, errors.New("not used")
}

func (w *hybridWallet) SignMessage(ctx context.Context, message string) (string, error) {
	return "", nil
}

// panicWallet panics when asked for a client.
type panicWallet struct {
	baseWallet
}

func (w *panicWallet) WalletClient(ctx context.Context) (provider.EVMClient, error) {
	panic("provider exploded")
}

type fakeUI struct {
	mu        sync.Mutex
	connects  int
	links     int
	filters   []chain.WalletFilter
	signers   []signer.Signer
	linkLists [][]LinkedWallet
}

func (u *fakeUI) OpenConnect() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.connects++
}

func (u *fakeUI) OpenLinkWallet() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.links++
}

func (u *fakeUI) SetWalletFilter(filter chain.WalletFilter) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.filters = append(u.filters, filter)
}

func (u *fakeUI) SignerChanged(s signer.Signer) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.signers = append(u.signers, s)
}

func (u *fakeUI) LinkedWalletsChanged(wallets []LinkedWallet) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.linkLists = append(u.linkLists, wallets)
}

func (u *fakeUI) lastFilter() chain.WalletFilter {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.filters) == 0 {
		return "unset"
	}
	return u.filters[len(u.filters)-1]
}

// fakeSwitcher fails the first failures calls.
type fakeSwitcher struct {
	mu       sync.Mutex
	failures int
	calls    []string
}

func (s *fakeSwitcher) SwitchWallet(ctx context.Context, walletID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, walletID)
	if len(s.calls) <= s.failures {
		return errors.New("switch unavailable")
	}
	return nil
}

func (s *fakeSwitcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// slowSwitcher fails every call after spending cost on clock, or less
// when its context expires first. It records
// the time each call was given.
type slowSwitcher struct {
	mu      sync.Mutex
	clock   *fakeClock
	cost    time.Duration
	budgets []time.Duration
}

func (s *slowSwitcher) SwitchWallet(ctx context.Context, walletID string) error {
	deadline, _ := ctx.Deadline()
	left := time.Until(deadline)
	s.mu.Lock()
	s.budgets = append(s.budgets, left)
	s.mu.Unlock()

	s.clock.advance(min(s.cost, left))
	return errors.New("switch timed out")
}

func (s *slowSwitcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.budgets)
}

// blockingSwitcher never completes a switch on its own.
type blockingSwitcher struct{}

func (blockingSwitcher) SwitchWallet(ctx context.Context, walletID string) error {
	<-ctx.Done()
	return ctx.Err()
}

// fakeClock fires every tick immediately, advancing its time by the
// requested delay, and counts them.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	ticks  int
	onTick func(n int)
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.ticks++
	c.now = c.now.Add(d)
	n := c.ticks
	c.mu.Unlock()

	if c.onTick != nil {
		c.onTick(n)
	}

	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

func (c *fakeClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// staticFinder serves a fixed wallet list.
type staticFinder struct {
	mu      sync.Mutex
	wallets []provider.Wallet
}

func (f *staticFinder) Find(address string) provider.Wallet {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.wallets {
		if MatchesAddress(w, address) {
			return w
		}
	}
	return nil
}

func (f *staticFinder) add(w provider.Wallet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wallets = append(f.wallets, w)
}

const (
	evmAddr     = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	evmAddr2    = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	btcOrdinals = "bc1p5cyxnuxmeuwuvkwfem96lqzszd02n6xdcjrs20cac6yqjjwudpxqkedrcr"
	btcPayment  = "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu"
	solAddr     = "HAgk14JpMQLgt6rVgv7cBQFJWFto5Dqxi472uT3DKpqk"
)
