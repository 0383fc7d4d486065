package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/klingon-exchange/walletlink/internal/link"
	"github.com/klingon-exchange/walletlink/internal/signer"
	"github.com/klingon-exchange/walletlink/pkg/helpers"
	"github.com/klingon-exchange/walletlink/pkg/logging"
)

// ChainIDParam is a chain ID given as a JSON number, a decimal string or a
// 0x hex string.
type ChainIDParam uint64

// UnmarshalJSON implements json.Unmarshaler.
func (c *ChainIDParam) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := helpers.ParseUint64(s)
		if err != nil {
			return fmt.Errorf("chain id %q: %w", s, err)
		}
		*c = ChainIDParam(n)
		return nil
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("chain id %s: %w", data, helpers.ErrInvalidNumber)
	}
	*c = ChainIDParam(n)
	return nil
}

// SignerInfo describes the primary wallet's signer.
type SignerInfo struct {
	Connected bool         `json:"connected"`
	Address   string       `json:"address,omitempty"`
	VMType    chain.VMType `json:"vmType,omitempty"`
	ChainID   uint64       `json:"chainId,omitempty"`
	ChainHex  string       `json:"chainIdHex,omitempty"`
}

func newSignerInfo(s signer.Signer) SignerInfo {
	if s == nil {
		return SignerInfo{}
	}
	return SignerInfo{
		Connected: true,
		Address:   s.Address(),
		VMType:    s.VMType(),
	}
}

// errNoSigner is returned by signer methods when no primary wallet is set.
var errNoSigner = errors.New("no primary wallet")

func decodeParams(params json.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return invalidParams("missing params")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return invalidParams("%v", err)
	}
	return nil
}

// sessionWallet returns the primary wallet's signer.
func (s *Server) sessionWallet(ctx context.Context, params json.RawMessage) (interface{}, error) {
	sg := s.session.Wallet()
	info := newSignerInfo(sg)
	if sg == nil {
		return info, nil
	}

	chainID, err := sg.ChainID(ctx)
	if err != nil {
		s.log.Debug("Signer chain unavailable", "address", info.Address, "error", err)
		return info, nil
	}
	info.ChainID = chainID
	info.ChainHex = helpers.Uint64ToHex(chainID)
	return info, nil
}

// sessionLinkedWallets returns the linked wallet descriptors.
func (s *Server) sessionLinkedWallets(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return s.session.LinkedWallets(), nil
}

// LinkNewWalletParams is the parameter for session_linkNewWallet.
type LinkNewWalletParams struct {
	ChainID   *ChainIDParam `json:"chainId,omitempty"`
	Direction string        `json:"direction"`
}

// LinkResult is the outcome of a link request.
type LinkResult struct {
	Token  string             `json:"token"`
	Status string             `json:"status"` // linked, cancelled
	Wallet *link.LinkedWallet `json:"wallet,omitempty"`
}

const (
	linkStatusLinked    = "linked"
	linkStatusCancelled = "cancelled"
)

// sessionLinkNewWallet opens the link-wallet flow and blocks until the user
// links a wallet or the request is cancelled.
func (s *Server) sessionLinkNewWallet(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p LinkNewWalletParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, invalidParams("%v", err)
		}
	}

	dir := link.Direction(strings.ToLower(p.Direction))
	switch dir {
	case "":
		dir = link.DirectionFrom
	case link.DirectionFrom, link.DirectionTo:
	default:
		return nil, invalidParams("direction must be %q or %q", link.DirectionFrom, link.DirectionTo)
	}

	var target *chain.Chain
	if p.ChainID != nil {
		c, ok := chain.Get(uint64(*p.ChainID))
		if !ok {
			return nil, invalidParams("unsupported chain %d", uint64(*p.ChainID))
		}
		target = c
	}

	pending := s.session.OnLinkNewWallet(target, dir)
	go s.announceLink(pending)

	lw, err := pending.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		// Once withdrawn or taken by another path the request is settled
		// (or about to be), so report how it actually ended.
		s.session.Broker().Withdraw(pending)
		lw, err = pending.Wait(context.Background())
	}
	if err != nil {
		return nil, err
	}
	return LinkResult{
		Token:  pending.Token().String(),
		Status: linkStatusLinked,
		Wallet: &lw,
	}, nil
}

// announceLink broadcasts the outcome of a link request once it settles.
func (s *Server) announceLink(p *link.Pending) {
	select {
	case <-p.Done():
	case <-s.ctx.Done():
		return
	}

	res := LinkResult{Token: p.Token().String(), Status: linkStatusCancelled}
	if lw, err := p.Wait(s.ctx); err == nil {
		res.Status = linkStatusLinked
		res.Wallet = &lw
	}
	s.wsHub.Broadcast(EventLinkResolved, res)
}

// sessionCancelLink rejects the outstanding link request.
func (s *Server) sessionCancelLink(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return map[string]bool{"cancelled": s.session.Broker().Cancel()}, nil
}

// SetPrimaryWalletParams is the parameter for session_setPrimaryWallet.
type SetPrimaryWalletParams struct {
	Address string `json:"address"`
}

// sessionSetPrimaryWallet starts a background switch to the wallet owning
// address. The outcome is broadcast as a primary_switch event.
func (s *Server) sessionSetPrimaryWallet(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p SetPrimaryWalletParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Address) == "" {
		return nil, invalidParams("address is required")
	}

	s.session.OnSetPrimaryWallet(p.Address)
	return map[string]interface{}{"accepted": true, "address": p.Address}, nil
}

// sessionConnectWallet opens the primary connect flow.
func (s *Server) sessionConnectWallet(ctx context.Context, params json.RawMessage) (interface{}, error) {
	s.session.OnConnectWallet()
	return map[string]bool{"opened": true}, nil
}

// DefaultsResult carries the widget's default tokens.
type DefaultsResult struct {
	FromToken chain.Token `json:"fromToken"`
	ToToken   chain.Token `json:"toToken"`
}

// sessionDefaults returns the default token pair.
func (s *Server) sessionDefaults(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return DefaultsResult{
		FromToken: chain.DefaultFromToken(),
		ToToken:   chain.DefaultToToken(),
	}, nil
}

// SessionEventParams is the parameter for session_event.
type SessionEventParams struct {
	Name string                 `json:"name"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// Known widget event names.
const (
	eventSwapSuccess = "swap_success"
	eventSwapError   = "swap_error"
)

// sessionEvent records an analytic or swap lifecycle event from the widget.
func (s *Server) sessionEvent(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p SessionEventParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, invalidParams("name is required")
	}

	kv := make([]interface{}, 0, 2+2*len(p.Data))
	kv = append(kv, "event", p.Name)
	for k, v := range p.Data {
		kv = append(kv, k, v)
	}

	log := logging.GetDefault().Component("widget")
	switch p.Name {
	case eventSwapError:
		log.Error("Swap failed", kv...)
	case eventSwapSuccess:
		log.Info("Swap completed", kv...)
	default:
		log.Debug("Widget event", kv...)
	}
	return map[string]bool{"recorded": true}, nil
}
