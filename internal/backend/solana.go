package backend

import (
	"context"
	"encoding/base64"
	"fmt"
)

// SolanaClient wraps the Solana node methods a wallet needs.
type SolanaClient struct {
	rpc *JSONRPCClient
}

// NewSolanaClient creates a client for the node at url.
func NewSolanaClient(url string) *SolanaClient {
	return &SolanaClient{rpc: NewJSONRPCClient(url)}
}

// Endpoint returns the node URL.
func (c *SolanaClient) Endpoint() string { return c.rpc.URL() }

// SendTransaction submits a signed wire transaction and returns its
// base58 signature.
func (c *SolanaClient) SendTransaction(ctx context.Context, tx []byte) (string, error) {
	var signature string
	err := c.rpc.Call(ctx, "sendTransaction", []interface{}{
		base64.StdEncoding.EncodeToString(tx),
		map[string]interface{}{"encoding": "base64"},
	}, &signature)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}
	return signature, nil
}

// Health returns nil when the node reports itself healthy.
func (c *SolanaClient) Health(ctx context.Context) error {
	var status string
	if err := c.rpc.Call(ctx, "getHealth", nil, &status); err != nil {
		return err
	}
	if status != "ok" {
		return fmt.Errorf("node unhealthy: %s", status)
	}
	return nil
}
