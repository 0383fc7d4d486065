// Package signer provides the uniform signing interface handed to the swap
// widget, with one implementation per wallet family. Signers never hold keys:
// every operation delegates to the wallet that produced them.
package signer

import (
	"context"
	"errors"

	"github.com/btcsuite/btcd/txscript"
	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/klingon-exchange/walletlink/internal/provider"
)

var (
	// ErrMissingPSBTResponse is returned when a Bitcoin wallet answers a
	// signing request without a signed PSBT.
	ErrMissingPSBTResponse = errors.New("missing psbt response")

	// ErrUnsupportedPayload is returned when a transaction payload cannot be
	// decoded for the signer's VM.
	ErrUnsupportedPayload = errors.New("unsupported transaction payload")

	// ErrUnsupported is returned for operations a wallet does not offer.
	ErrUnsupported = errors.New("operation not supported by wallet")

	// ErrWrongChain is returned when a request targets a chain the signer
	// cannot act on.
	ErrWrongChain = errors.New("signer cannot act on chain")
)

// Signer is a chain appropriate signing capability for one wallet.
type Signer interface {
	VMType() chain.VMType
	Address() string
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
	SendTransaction(ctx context.Context, req *TxRequest) (*TxResult, error)
}

// SignParams carries the provider specific signing parameters of a step.
// Only Bitcoin signers use them today.
type SignParams struct {
	AllowedSighash  []txscript.SigHashType    `json:"allowedSighash,omitempty"`
	SignatureInputs []provider.SignatureInput `json:"signatureInputs,omitempty"`
}

// TxRequest is one transaction step of a swap.
//
// Payload encoding depends on the VM:
//   - evm: binary encoded types.Transaction (types.Transaction.MarshalBinary)
//   - bvm: raw PSBT bytes
//   - svm: serialized wire transaction with empty signature slots
type TxRequest struct {
	ChainID uint64     `json:"chainId"`
	Payload []byte     `json:"payload"`
	Params  SignParams `json:"params"`
}

// TxResult is the outcome of a transaction step.
type TxResult struct {
	ChainID uint64 `json:"chainId"`
	Hash    string `json:"hash"`
	// Signed holds the signed artifact when the signer does not broadcast
	// itself (the signed PSBT for Bitcoin).
	Signed []byte `json:"signed,omitempty"`
}
