package wallet

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/klingon-exchange/walletlink/internal/backend"
	"github.com/klingon-exchange/walletlink/internal/provider"
	"github.com/klingon-exchange/walletlink/internal/signer"
	"github.com/mr-tron/base58"
)

// ErrNotFeePayer is returned when the wallet is not the first signer of a
// transaction.
var ErrNotFeePayer = errors.New("wallet is not the fee payer")

// solanaBroadcaster submits signed transactions.
type solanaBroadcaster interface {
	Endpoint() string
	SendTransaction(ctx context.Context, tx []byte) (string, error)
}

// SolanaWallet is a locally held Solana account.
type SolanaWallet struct {
	id      string
	key     ed25519.PrivateKey
	address string
	node    solanaBroadcaster
}

// NewSolanaWallet derives the account at m/44'/501'/account'/0'. An empty
// endpoint leaves the wallet without a connection.
func NewSolanaWallet(id string, k *Keyring, account uint32, endpoint string) *SolanaWallet {
	key := k.DeriveSolanaKey(account)
	w := &SolanaWallet{
		id:      id,
		key:     key,
		address: base58.Encode(key.Public().(ed25519.PublicKey)),
	}
	if endpoint != "" {
		w.node = backend.NewSolanaClient(endpoint)
	}
	return w
}

func (w *SolanaWallet) ID() string                                        { return w.id }
func (w *SolanaWallet) Address() string                                   { return w.address }
func (w *SolanaWallet) AdditionalAddresses() []provider.AdditionalAddress { return nil }
func (w *SolanaWallet) Connector() string                                 { return Connector }

// Connection returns the node connection of the wallet.
func (w *SolanaWallet) Connection(ctx context.Context) (provider.SolanaConnection, error) {
	if w.node == nil {
		return nil, fmt.Errorf("%w: solana", ErrNoEndpoint)
	}
	return w.node, nil
}

// Signer returns the wallet's signing capability.
func (w *SolanaWallet) Signer(ctx context.Context) (provider.SolanaSigner, error) {
	return (*solanaSigner)(w), nil
}

type solanaSigner SolanaWallet

// SignAndSendTransaction fills the fee payer signature slot and submits
// the transaction.
func (s *solanaSigner) SignAndSendTransaction(ctx context.Context, tx []byte) (string, error) {
	if s.node == nil {
		return "", fmt.Errorf("%w: solana", ErrNoEndpoint)
	}

	signed, err := s.sign(tx)
	if err != nil {
		return "", err
	}
	return s.node.SendTransaction(ctx, signed)
}

func (s *solanaSigner) sign(tx []byte) ([]byte, error) {
	sigs, message, err := signer.SplitSolanaTransaction(tx)
	if err != nil {
		return nil, err
	}

	feePayer, err := firstAccountKey(message)
	if err != nil {
		return nil, err
	}
	pub := s.key.Public().(ed25519.PublicKey)
	if !pub.Equal(ed25519.PublicKey(feePayer)) {
		return nil, ErrNotFeePayer
	}

	// Signature slots sit right before the message.
	slot0 := len(tx) - len(message) - len(sigs)*ed25519.SignatureSize
	signed := append([]byte(nil), tx...)
	copy(signed[slot0:], ed25519.Sign(s.key, message))
	return signed, nil
}

// firstAccountKey returns the first static account key of a legacy or v0
// message, which is the fee payer.
func firstAccountKey(message []byte) ([]byte, error) {
	offset := 0
	if len(message) > 0 && message[0]&0x80 != 0 {
		offset = 1 // version prefix
	}
	offset += 3 // header
	if len(message) < offset {
		return nil, errors.New("message truncated in header")
	}

	count, size, err := signer.DecodeShortVec(message[offset:])
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, errors.New("message has no account keys")
	}
	offset += size

	if len(message) < offset+ed25519.PublicKeySize {
		return nil, errors.New("message truncated in account keys")
	}
	return message[offset : offset+ed25519.PublicKeySize], nil
}

// SignMessage signs an arbitrary message with the account key.
func (s *solanaSigner) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	return ed25519.Sign(s.key, message), nil
}

var _ provider.SolanaWallet = (*SolanaWallet)(nil)
