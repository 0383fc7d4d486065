package signer

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/klingon-exchange/walletlink/internal/provider"
)

// EVMSigner wraps an EVM wallet client.
type EVMSigner struct {
	client provider.EVMClient
}

// NewEVM wraps client directly.
func NewEVM(client provider.EVMClient) *EVMSigner {
	return &EVMSigner{client: client}
}

// VMType returns evm.
func (s *EVMSigner) VMType() chain.VMType { return chain.VMTypeEVM }

// Address returns the checksummed account address.
func (s *EVMSigner) Address() string { return s.client.Account().Hex() }

// ChainID returns the chain the wallet client is currently on.
func (s *EVMSigner) ChainID(ctx context.Context) (uint64, error) {
	id, err := s.client.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain id: %w", err)
	}
	return id.Uint64(), nil
}

// SwitchChain asks the wallet to move to chainID.
func (s *EVMSigner) SwitchChain(ctx context.Context, chainID uint64) error {
	if c, ok := chain.Get(chainID); ok && c.VMType != chain.VMTypeEVM {
		return fmt.Errorf("%w: %d is not an EVM chain", ErrWrongChain, chainID)
	}
	return s.client.SwitchChain(ctx, chainID)
}

// SignMessage signs with personal_sign semantics.
func (s *EVMSigner) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	return s.client.SignMessage(ctx, message)
}

// SendTransaction decodes the payload, moves the wallet to the requested
// chain if needed and submits the transaction through the wallet.
func (s *EVMSigner) SendTransaction(ctx context.Context, req *TxRequest) (*TxResult, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(req.Payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPayload, err)
	}

	chainID := req.ChainID
	if chainID != 0 {
		current, err := s.ChainID(ctx)
		if err != nil {
			return nil, err
		}
		if current != chainID {
			if err := s.SwitchChain(ctx, chainID); err != nil {
				return nil, fmt.Errorf("failed to switch to chain %d: %w", chainID, err)
			}
		}
	}

	hash, err := s.client.SendTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}

	return &TxResult{ChainID: chainID, Hash: hash.Hex()}, nil
}

var _ Signer = (*EVMSigner)(nil)
