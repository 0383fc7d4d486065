package signer

import (
	"context"
	"errors"
	"fmt"

	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/klingon-exchange/walletlink/internal/provider"
)

// SignAndSendFunc signs and submits a serialized Solana transaction and
// returns its signature.
type SignAndSendFunc func(ctx context.Context, tx []byte) (string, error)

// SignBytesFunc signs an arbitrary message.
type SignBytesFunc func(ctx context.Context, message []byte) ([]byte, error)

// SolanaSigner is bound to a single chain ID and a wallet connection.
type SolanaSigner struct {
	address     string
	chainID     uint64
	conn        provider.SolanaConnection
	signAndSend SignAndSendFunc
	signMessage SignBytesFunc
}

// NewSolana creates a Solana signer bound to chainID. signMessage may be nil.
func NewSolana(address string, chainID uint64, conn provider.SolanaConnection, signAndSend SignAndSendFunc, signMessage SignBytesFunc) *SolanaSigner {
	return &SolanaSigner{
		address:     address,
		chainID:     chainID,
		conn:        conn,
		signAndSend: signAndSend,
		signMessage: signMessage,
	}
}

// VMType returns svm.
func (s *SolanaSigner) VMType() chain.VMType { return chain.VMTypeSVM }

// Address returns the base58 public key.
func (s *SolanaSigner) Address() string { return s.address }

// Endpoint returns the RPC endpoint of the wallet connection.
func (s *SolanaSigner) Endpoint() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.Endpoint()
}

// ChainID returns the bound chain.
func (s *SolanaSigner) ChainID(ctx context.Context) (uint64, error) {
	return s.chainID, nil
}

// SwitchChain only accepts the bound chain.
func (s *SolanaSigner) SwitchChain(ctx context.Context, chainID uint64) error {
	if chainID != s.chainID {
		return fmt.Errorf("%w: %d", ErrWrongChain, chainID)
	}
	return nil
}

// SignMessage signs message with the wallet key.
func (s *SolanaSigner) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	if s.signMessage == nil {
		return nil, ErrUnsupported
	}
	return s.signMessage(ctx, message)
}

// SendTransaction checks the wire layout of req.Payload and hands it to the
// wallet's sign-and-send operation.
func (s *SolanaSigner) SendTransaction(ctx context.Context, req *TxRequest) (*TxResult, error) {
	if req.ChainID != 0 && req.ChainID != s.chainID {
		return nil, fmt.Errorf("%w: %d", ErrWrongChain, req.ChainID)
	}
	if _, _, err := SplitSolanaTransaction(req.Payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPayload, err)
	}

	sig, err := s.signAndSend(ctx, req.Payload)
	if err != nil {
		return nil, err
	}

	return &TxResult{ChainID: s.chainID, Hash: sig}, nil
}

// SplitSolanaTransaction splits a serialized transaction into its signature
// slots and the message that is signed.
func SplitSolanaTransaction(tx []byte) (sigs [][]byte, message []byte, err error) {
	count, n, err := DecodeShortVec(tx)
	if err != nil {
		return nil, nil, err
	}
	if count == 0 {
		return nil, nil, errors.New("transaction has no signature slots")
	}

	offset := n
	for i := 0; i < count; i++ {
		if len(tx) < offset+64 {
			return nil, nil, errors.New("transaction truncated in signatures")
		}
		sigs = append(sigs, tx[offset:offset+64])
		offset += 64
	}

	if offset == len(tx) {
		return nil, nil, errors.New("transaction has no message")
	}
	return sigs, tx[offset:], nil
}

// DecodeShortVec decodes Solana's compact-u16 length prefix.
func DecodeShortVec(b []byte) (value int, size int, err error) {
	for size < 3 {
		if size >= len(b) {
			return 0, 0, errors.New("short vec truncated")
		}
		elem := int(b[size])
		value |= (elem & 0x7f) << (size * 7)
		size++
		if elem&0x80 == 0 {
			return value, size, nil
		}
	}
	return 0, 0, errors.New("short vec too long")
}

var _ Signer = (*SolanaSigner)(nil)
