package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      uint64            `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

// newNode serves a single JSON-RPC method with a fixed response body.
func newNode(t *testing.T, handle func(req rpcRequest) map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
			return
		}
		if req.JSONRPC != "2.0" {
			t.Errorf("jsonrpc = %q, want 2.0", req.JSONRPC)
		}
		resp := handle(req)
		resp["jsonrpc"] = "2.0"
		resp["id"] = req.ID
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestJSONRPCClientCall(t *testing.T) {
	srv := newNode(t, func(req rpcRequest) map[string]interface{} {
		if req.Method != "getSlot" {
			t.Errorf("method = %s", req.Method)
		}
		return map[string]interface{}{"result": 42}
	})

	var slot uint64
	if err := NewJSONRPCClient(srv.URL).Call(context.Background(), "getSlot", nil, &slot); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if slot != 42 {
		t.Errorf("slot = %d, want 42", slot)
	}
}

func TestJSONRPCClientError(t *testing.T) {
	srv := newNode(t, func(req rpcRequest) map[string]interface{} {
		return map[string]interface{}{"error": map[string]interface{}{"code": -32601, "message": "method not found"}}
	})

	err := NewJSONRPCClient(srv.URL).Call(context.Background(), "nope", nil, nil)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error = %v, want *RPCError", err)
	}
	if rpcErr.Code != -32601 {
		t.Errorf("code = %d, want -32601", rpcErr.Code)
	}
}

func TestJSONRPCClientBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewJSONRPCClient(srv.URL).Call(context.Background(), "getSlot", nil, nil); err == nil {
		t.Error("expected error for non-JSON response")
	}
}

func TestSolanaSendTransaction(t *testing.T) {
	raw := []byte{1, 2, 3}
	srv := newNode(t, func(req rpcRequest) map[string]interface{} {
		if req.Method != "sendTransaction" {
			t.Errorf("method = %s", req.Method)
		}
		var encoded string
		if err := json.Unmarshal(req.Params[0], &encoded); err != nil {
			t.Fatalf("param 0: %v", err)
		}
		if encoded != base64.StdEncoding.EncodeToString(raw) {
			t.Errorf("tx param = %s", encoded)
		}
		return map[string]interface{}{"result": "5sig"}
	})

	client := NewSolanaClient(srv.URL)
	if client.Endpoint() != srv.URL {
		t.Errorf("Endpoint() = %s", client.Endpoint())
	}

	sig, err := client.SendTransaction(context.Background(), raw)
	if err != nil {
		t.Fatalf("SendTransaction() error = %v", err)
	}
	if sig != "5sig" {
		t.Errorf("signature = %s, want 5sig", sig)
	}
}

func TestSolanaSendTransactionRejected(t *testing.T) {
	srv := newNode(t, func(req rpcRequest) map[string]interface{} {
		return map[string]interface{}{"error": map[string]interface{}{"code": -32002, "message": "blockhash not found"}}
	})

	_, err := NewSolanaClient(srv.URL).SendTransaction(context.Background(), []byte{1})
	if !errors.Is(err, ErrBroadcastFailed) {
		t.Errorf("error = %v, want ErrBroadcastFailed", err)
	}
}

func TestSolanaHealth(t *testing.T) {
	tests := []struct {
		name    string
		result  string
		wantErr bool
	}{
		{"ok", "ok", false},
		{"behind", "behind", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newNode(t, func(req rpcRequest) map[string]interface{} {
				return map[string]interface{}{"result": tc.result}
			})
			err := NewSolanaClient(srv.URL).Health(context.Background())
			if (err != nil) != tc.wantErr {
				t.Errorf("Health() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
