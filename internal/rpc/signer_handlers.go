package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/klingon-exchange/walletlink/internal/chain"
	"github.com/klingon-exchange/walletlink/internal/signer"
	"github.com/klingon-exchange/walletlink/pkg/helpers"
	"github.com/mr-tron/base58"
)

// primarySigner returns the session's current signer.
func (s *Server) primarySigner() (signer.Signer, error) {
	sg := s.session.Wallet()
	if sg == nil {
		return nil, errNoSigner
	}
	return sg, nil
}

// SignMessageParams is the parameter for signer_signMessage.
type SignMessageParams struct {
	Message  string `json:"message"`
	Encoding string `json:"encoding,omitempty"` // utf8 (default) or hex
}

// SignMessageResult carries a signature in the VM's customary encoding:
// 0x hex for EVM, base64 for Bitcoin and base58 for Solana.
type SignMessageResult struct {
	Address   string       `json:"address"`
	VMType    chain.VMType `json:"vmType"`
	Signature string       `json:"signature"`
}

// signerSignMessage signs a message with the primary wallet.
func (s *Server) signerSignMessage(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p SignMessageParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	msg := []byte(p.Message)
	switch strings.ToLower(p.Encoding) {
	case "", "utf8", "utf-8":
	case "hex":
		b, err := helpers.HexToBytes(p.Message)
		if err != nil {
			return nil, invalidParams("message is not hex: %v", err)
		}
		msg = b
	default:
		return nil, invalidParams("unknown encoding %q", p.Encoding)
	}

	sg, err := s.primarySigner()
	if err != nil {
		return nil, err
	}

	sig, err := sg.SignMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("sign message: %w", err)
	}

	return SignMessageResult{
		Address:   sg.Address(),
		VMType:    sg.VMType(),
		Signature: encodeSignature(sg.VMType(), sig),
	}, nil
}

func encodeSignature(vm chain.VMType, sig []byte) string {
	switch vm {
	case chain.VMTypeEVM:
		return helpers.BytesToHex(sig)
	case chain.VMTypeSVM:
		return base58.Encode(sig)
	default:
		// Bitcoin wallets already return base64 text.
		return string(sig)
	}
}

// SendTransactionParams is the parameter for signer_sendTransaction.
type SendTransactionParams struct {
	ChainID ChainIDParam      `json:"chainId"`
	Payload string            `json:"payload"`
	Params  signer.SignParams `json:"params"`
}

// SendTransactionResult is the outcome of a transaction step.
type SendTransactionResult struct {
	ChainID uint64 `json:"chainId"`
	Hash    string `json:"hash"`
	Signed  string `json:"signed,omitempty"` // base64
}

// decodePayload reads a payload as 0x hex for EVM and base64 otherwise.
func decodePayload(vm chain.VMType, payload string) ([]byte, error) {
	if vm == chain.VMTypeEVM || strings.HasPrefix(payload, "0x") {
		return helpers.HexToBytes(payload)
	}
	return base64.StdEncoding.DecodeString(payload)
}

// signerSendTransaction executes one transaction step with the primary
// wallet.
func (s *Server) signerSendTransaction(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p SendTransactionParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Payload == "" {
		return nil, invalidParams("payload is required")
	}

	sg, err := s.primarySigner()
	if err != nil {
		return nil, err
	}

	payload, err := decodePayload(sg.VMType(), p.Payload)
	if err != nil {
		return nil, invalidParams("payload: %v", err)
	}

	res, err := sg.SendTransaction(ctx, &signer.TxRequest{
		ChainID: uint64(p.ChainID),
		Payload: payload,
		Params:  p.Params,
	})
	if err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	out := SendTransactionResult{ChainID: res.ChainID, Hash: res.Hash}
	if len(res.Signed) > 0 {
		out.Signed = base64.StdEncoding.EncodeToString(res.Signed)
	}
	s.log.Info("Transaction step completed", "vm", sg.VMType(), "chain", res.ChainID, "hash", res.Hash)
	return out, nil
}
