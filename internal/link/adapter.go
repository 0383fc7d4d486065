package link

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/klingon-exchange/walletlink/internal/provider"
	"github.com/klingon-exchange/walletlink/internal/signer"
	"github.com/klingon-exchange/walletlink/pkg/logging"
)

// Factory builds signers from connected wallets.
type Factory struct {
	solanaChainID uint64
	log           *logging.Logger
}

// NewFactory creates a factory. Solana signers are bound to solanaChainID.
func NewFactory(solanaChainID uint64) *Factory {
	if solanaChainID == 0 {
		solanaChainID = chain.SolanaChainID
	}
	return &Factory{
		solanaChainID: solanaChainID,
		log:           logging.GetDefault().Component("adapter"),
	}
}

// Adapt returns a signer for w, or nil when w is nil, of an unknown family,
// or when adaptation fails. Failures are logged and never returned.
func (f *Factory) Adapt(ctx context.Context, w provider.Wallet) (s signer.Signer) {
	if w == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			f.log.Warn("Wallet adaptation panicked", "wallet", w.ID(), "panic", r)
			s = nil
		}
	}()

	adapted, err := f.adapt(ctx, w)
	if err != nil {
		f.log.Warn("Failed to adapt wallet", "wallet", w.ID(), "address", w.Address(), "error", err)
		return nil
	}
	if adapted == nil {
		f.log.Debug("No signer for wallet family", "wallet", w.ID(), "family", Classify(w))
	}
	return adapted
}

func (f *Factory) adapt(ctx context.Context, w provider.Wallet) (signer.Signer, error) {
	switch Classify(w) {
	case chain.FamilyEVM:
		return f.adaptEVM(ctx, w.(provider.EVMWallet))
	case chain.FamilyBitcoin:
		return f.adaptBitcoin(w.(provider.BitcoinWallet)), nil
	case chain.FamilySolana:
		return f.adaptSolana(ctx, w.(provider.SolanaWallet))
	default:
		return nil, nil
	}
}

func (f *Factory) adaptEVM(ctx context.Context, w provider.EVMWallet) (signer.Signer, error) {
	client, err := w.WalletClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet client: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("wallet %s returned no client", w.ID())
	}
	return signer.NewEVM(client), nil
}

func (f *Factory) adaptBitcoin(w provider.BitcoinWallet) signer.Signer {
	lw := NewLinkedWallet(w)

	signPSBT := func(ctx context.Context, address string, packet *psbt.Packet, params signer.SignParams) (string, error) {
		unsigned, err := packet.B64Encode()
		if err != nil {
			return "", fmt.Errorf("failed to encode psbt: %w", err)
		}

		resp, err := w.SignPSBT(ctx, &provider.SignPSBTRequest{
			AllowedSighash:     params.AllowedSighash,
			UnsignedPSBTBase64: unsigned,
			SignatureInputs:    params.SignatureInputs,
		})
		if err != nil {
			return "", err
		}
		if resp == nil || resp.SignedPSBT == "" {
			return "", signer.ErrMissingPSBTResponse
		}
		return resp.SignedPSBT, nil
	}

	return signer.NewBitcoin(lw.Address, signPSBT, w.SignMessage)
}

func (f *Factory) adaptSolana(ctx context.Context, w provider.SolanaWallet) (signer.Signer, error) {
	conn, err := w.Connection(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	s, err := w.Signer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get signer: %w", err)
	}
	if s == nil {
		return nil, fmt.Errorf("wallet %s returned no signer", w.ID())
	}
	return signer.NewSolana(w.Address(), f.solanaChainID, conn, s.SignAndSendTransaction, s.SignMessage), nil
}
