package signer

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/klingon-exchange/walletlink/internal/chain"
)

// SignPSBTFunc asks the wallet to sign packet for address and returns the
// signed PSBT base64 encoded.
type SignPSBTFunc func(ctx context.Context, address string, packet *psbt.Packet, params SignParams) (string, error)

// SignTextFunc signs a text message and returns the encoded signature.
type SignTextFunc func(ctx context.Context, message string) (string, error)

// BitcoinSigner signs PSBTs through a UTXO wallet. It never broadcasts; the
// signed packet is returned to the caller.
type BitcoinSigner struct {
	address     string
	signPSBT    SignPSBTFunc
	signMessage SignTextFunc
}

// NewBitcoin creates a Bitcoin signer for address. signMessage may be nil.
func NewBitcoin(address string, signPSBT SignPSBTFunc, signMessage SignTextFunc) *BitcoinSigner {
	return &BitcoinSigner{
		address:     address,
		signPSBT:    signPSBT,
		signMessage: signMessage,
	}
}

// VMType returns bvm.
func (s *BitcoinSigner) VMType() chain.VMType { return chain.VMTypeBVM }

// Address returns the payment address.
func (s *BitcoinSigner) Address() string { return s.address }

// ChainID always returns the Bitcoin chain.
func (s *BitcoinSigner) ChainID(ctx context.Context) (uint64, error) {
	return chain.BitcoinChainID, nil
}

// SwitchChain only accepts the Bitcoin chain.
func (s *BitcoinSigner) SwitchChain(ctx context.Context, chainID uint64) error {
	if chainID != chain.BitcoinChainID {
		return fmt.Errorf("%w: %d", ErrWrongChain, chainID)
	}
	return nil
}

// SignMessage signs a BIP-322/legacy message through the wallet.
func (s *BitcoinSigner) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	if s.signMessage == nil {
		return nil, ErrUnsupported
	}
	sig, err := s.signMessage(ctx, string(message))
	if err != nil {
		return nil, err
	}
	return []byte(sig), nil
}

// SendTransaction has the wallet sign the PSBT in req.Payload. Wallet errors
// are returned unchanged; an empty result is ErrMissingPSBTResponse.
func (s *BitcoinSigner) SendTransaction(ctx context.Context, req *TxRequest) (*TxResult, error) {
	if req.ChainID != 0 && req.ChainID != chain.BitcoinChainID {
		return nil, fmt.Errorf("%w: %d", ErrWrongChain, req.ChainID)
	}

	packet, err := psbt.NewFromRawBytes(bytes.NewReader(req.Payload), false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPayload, err)
	}

	signedB64, err := s.signPSBT(ctx, s.address, packet, req.Params)
	if err != nil {
		return nil, err
	}
	if signedB64 == "" {
		return nil, ErrMissingPSBTResponse
	}

	signed, err := psbt.NewFromRawBytes(strings.NewReader(signedB64), true)
	if err != nil {
		return nil, fmt.Errorf("wallet returned invalid psbt: %w", err)
	}

	var buf bytes.Buffer
	if err := signed.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize signed psbt: %w", err)
	}

	return &TxResult{
		ChainID: chain.BitcoinChainID,
		Hash:    signed.UnsignedTx.TxHash().String(),
		Signed:  buf.Bytes(),
	}, nil
}

var _ Signer = (*BitcoinSigner)(nil)
