package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/klingon-exchange/walletlink/internal/provider"
)

// Connector is the brand reported by locally held wallets.
const Connector = "walletlink"

var (
	// ErrNoEndpoint is returned when a wallet has to reach a node that is
	// not configured.
	ErrNoEndpoint = errors.New("no rpc endpoint configured")
	// ErrUnknownChain is returned when switching to an unregistered chain.
	ErrUnknownChain = errors.New("unknown chain")
)

// txBroadcaster is the part of an EVM node client used to submit
// transactions. *ethclient.Client implements it.
type txBroadcaster interface {
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	Close()
}

type dialFunc func(ctx context.Context, url string) (txBroadcaster, error)

func dialEthclient(ctx context.Context, url string) (txBroadcaster, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// EVMWallet is a locally held EVM account.
type EVMWallet struct {
	id        string
	key       *ecdsa.PrivateKey
	address   common.Address
	endpoints map[uint64]string
	dial      dialFunc

	mu      sync.Mutex
	chainID uint64
}

// NewEVMWallet derives the EVM account at m/44'/60'/account'/0/0.
// endpoints maps chain IDs to node URLs used to broadcast transactions.
func NewEVMWallet(id string, k *Keyring, account uint32, endpoints map[uint64]string) (*EVMWallet, error) {
	eth, ok := chain.Get(chain.EthereumChainID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChain, chain.EthereumChainID)
	}

	priv, err := k.DeriveKeyForChain(eth, account, 0)
	if err != nil {
		return nil, err
	}
	key, err := crypto.ToECDSA(priv.Serialize())
	if err != nil {
		return nil, fmt.Errorf("failed to convert key: %w", err)
	}

	return &EVMWallet{
		id:        id,
		key:       key,
		address:   crypto.PubkeyToAddress(key.PublicKey),
		endpoints: endpoints,
		dial:      dialEthclient,
		chainID:   chain.EthereumChainID,
	}, nil
}

func (w *EVMWallet) ID() string                                        { return w.id }
func (w *EVMWallet) Address() string                                   { return w.address.Hex() }
func (w *EVMWallet) AdditionalAddresses() []provider.AdditionalAddress { return nil }
func (w *EVMWallet) Connector() string                                 { return Connector }

// WalletClient returns the signing client of the account.
func (w *EVMWallet) WalletClient(ctx context.Context) (provider.EVMClient, error) {
	return &evmClient{w: w}, nil
}

type evmClient struct {
	w *EVMWallet
}

func (c *evmClient) Account() common.Address { return c.w.address }

func (c *evmClient) ChainID(ctx context.Context) (*big.Int, error) {
	c.w.mu.Lock()
	defer c.w.mu.Unlock()
	return new(big.Int).SetUint64(c.w.chainID), nil
}

func (c *evmClient) SwitchChain(ctx context.Context, chainID uint64) error {
	target, ok := chain.Get(chainID)
	if !ok || target.VMType != chain.VMTypeEVM {
		return fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}

	c.w.mu.Lock()
	c.w.chainID = chainID
	c.w.mu.Unlock()
	return nil
}

// SignMessage produces a personal_sign signature (r || s || v, v = 27/28).
func (c *evmClient) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(message), c.w.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// SendTransaction signs tx for the current chain and broadcasts it.
func (c *evmClient) SendTransaction(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	c.w.mu.Lock()
	chainID := c.w.chainID
	c.w.mu.Unlock()

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(new(big.Int).SetUint64(chainID)), c.w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	url := c.w.endpoints[chainID]
	if url == "" {
		return common.Hash{}, fmt.Errorf("%w: chain %d", ErrNoEndpoint, chainID)
	}

	client, err := c.w.dial(ctx, url)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to connect to chain %d: %w", chainID, err)
	}
	defer client.Close()

	if err := client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to broadcast transaction: %w", err)
	}
	return signed.Hash(), nil
}

var _ provider.EVMWallet = (*EVMWallet)(nil)
