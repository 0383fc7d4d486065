package rpc

import (
	"context"
	"encoding/json"

	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/klingon-exchange/walletlink/internal/link"
	"github.com/klingon-exchange/walletlink/internal/provider"
)

// WalletInfo describes a wallet held by the local provider.
type WalletInfo struct {
	ID                  string                       `json:"id"`
	Address             string                       `json:"address"`
	Family              chain.Family                 `json:"family"`
	VMType              chain.VMType                 `json:"vmType"`
	Connector           string                       `json:"connector"`
	Primary             bool                         `json:"primary"`
	AdditionalAddresses []provider.AdditionalAddress `json:"additionalAddresses,omitempty"`
}

func newWalletInfo(w provider.Wallet, primary provider.Wallet) WalletInfo {
	family := link.Classify(w)
	return WalletInfo{
		ID:                  w.ID(),
		Address:             w.Address(),
		Family:              family,
		VMType:              family.VMType(),
		Connector:           w.Connector(),
		Primary:             primary != nil && primary.ID() == w.ID(),
		AdditionalAddresses: w.AdditionalAddresses(),
	}
}

// WalletAddParams is the parameter for wallet_add.
type WalletAddParams struct {
	Family string `json:"family"`
}

// walletAdd derives the next wallet of a family from the keyring. The wallet
// added event it triggers resolves an outstanding link request.
func (s *Server) walletAdd(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p WalletAddParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	family, ok := chain.ParseFamily(p.Family)
	if !ok {
		return nil, invalidParams("unknown wallet family %q", p.Family)
	}

	w, err := s.wallets.Add(family)
	if err != nil {
		return nil, err
	}
	return newWalletInfo(w, s.wallets.Primary()), nil
}

// WalletRemoveParams is the parameter for wallet_remove.
type WalletRemoveParams struct {
	ID string `json:"id"`
}

// walletRemove disconnects a wallet.
func (s *Server) walletRemove(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p WalletRemoveParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, invalidParams("id is required")
	}

	if err := s.wallets.Remove(p.ID); err != nil {
		return nil, err
	}
	return map[string]bool{"removed": true}, nil
}

// walletList lists the provider's wallets in connection order.
func (s *Server) walletList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	primary := s.wallets.Primary()
	wallets := s.wallets.Wallets()

	out := make([]WalletInfo, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, newWalletInfo(w, primary))
	}
	return out, nil
}
