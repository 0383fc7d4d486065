// Package provider declares the capabilities the linking layer consumes from
// a wallet provider SDK. A connected wallet only has to implement Wallet; the
// family specific interfaces are discovered with type assertions.
package provider

import (
	"context"
	"math/big"

	"github.com/btcsuite/btcd/txscript"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// AdditionalAddress is a secondary address exposed by a wallet, e.g. the
// payment and ordinals addresses of a Bitcoin wallet.
type AdditionalAddress struct {
	Address   string `json:"address"`
	PublicKey string `json:"publicKey,omitempty"`
	Type      string `json:"type,omitempty"`
}

// Wallet is an opaque connected wallet handle.
type Wallet interface {
	ID() string
	Address() string
	AdditionalAddresses() []AdditionalAddress
	// Connector is the wallet brand (metamask, phantom, xverse, ...).
	Connector() string
}

// =============================================================================
// EVM
// =============================================================================

// EVMWallet is an account based wallet that hands out a wallet client.
type EVMWallet interface {
	Wallet
	WalletClient(ctx context.Context) (EVMClient, error)
}

// EVMClient is the signing client of an EVM wallet.
type EVMClient interface {
	Account() common.Address
	ChainID(ctx context.Context) (*big.Int, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) (common.Hash, error)
}

// =============================================================================
// Bitcoin
// =============================================================================

// BitcoinWallet is a UTXO wallet that signs PSBTs.
type BitcoinWallet interface {
	Wallet
	SignPSBT(ctx context.Context, req *SignPSBTRequest) (*SignPSBTResponse, error)
	SignMessage(ctx context.Context, message string) (string, error)
}

// SignatureInput selects the inputs one address must sign.
type SignatureInput struct {
	Address        string `json:"address"`
	SigningIndexes []int  `json:"signingIndexes"`
}

// SignPSBTRequest is the provider side PSBT signing request.
type SignPSBTRequest struct {
	AllowedSighash     []txscript.SigHashType `json:"allowedSighash,omitempty"`
	UnsignedPSBTBase64 string                 `json:"unsignedPsbtBase64"`
	SignatureInputs    []SignatureInput       `json:"signature"`
}

// SignPSBTResponse carries the signed PSBT, base64 encoded.
type SignPSBTResponse struct {
	SignedPSBT string `json:"signedPsbt"`
}

// =============================================================================
// Solana
// =============================================================================

// SolanaWallet is a non-EVM account based wallet.
type SolanaWallet interface {
	Wallet
	Connection(ctx context.Context) (SolanaConnection, error)
	Signer(ctx context.Context) (SolanaSigner, error)
}

// SolanaConnection is the RPC connection the wallet is bound to.
type SolanaConnection interface {
	Endpoint() string
}

// SolanaSigner signs on behalf of a Solana wallet.
type SolanaSigner interface {
	// SignAndSendTransaction signs a serialized transaction, submits it and
	// returns the base58 transaction signature.
	SignAndSendTransaction(ctx context.Context, tx []byte) (string, error)
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// =============================================================================
// Session level
// =============================================================================

// Switcher activates a connected wallet as the primary wallet.
type Switcher interface {
	SwitchWallet(ctx context.Context, walletID string) error
}
