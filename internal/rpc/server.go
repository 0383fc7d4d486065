// Package rpc provides a JSON-RPC 2.0 server for the walletlink daemon.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/klingon-exchange/walletlink/internal/link"
	"github.com/klingon-exchange/walletlink/internal/signer"
	"github.com/klingon-exchange/walletlink/internal/wallet"
	"github.com/klingon-exchange/walletlink/pkg/logging"
)

// Server is a JSON-RPC 2.0 server.
type Server struct {
	session *link.Session
	wallets *wallet.Manager
	log     *logging.Logger
	wsHub   *WSHub

	ctx    context.Context
	cancel context.CancelFunc

	server   *http.Server
	listener net.Listener

	handlers map[string]Handler
	mu       sync.RWMutex
}

// Handler is a JSON-RPC method handler.
type Handler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error represents a JSON-RPC 2.0 error.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Standard error codes.
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// Application error codes.
const (
	// UserRejected follows the EIP-1193 code for a request the user closed.
	UserRejected = 4001
	Unsupported  = 4200
	NotFound     = 4404
)

// errInvalidParams marks handler errors caused by bad input.
var errInvalidParams = errors.New("invalid params")

func invalidParams(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errInvalidParams, fmt.Sprintf(format, args...))
}

// NewServer creates a new JSON-RPC server around a linking session and the
// local wallet provider. hub receives UI signals; it is created when nil.
func NewServer(session *link.Session, wallets *wallet.Manager, hub *WSHub) *Server {
	if hub == nil {
		hub = NewWSHub()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		session:  session,
		wallets:  wallets,
		log:      logging.GetDefault().Component("rpc"),
		wsHub:    hub,
		ctx:      ctx,
		cancel:   cancel,
		handlers: make(map[string]Handler),
	}

	session.Poller().OnFinish(func(address string, outcome link.Outcome) {
		hub.Broadcast(EventPrimarySwitch, map[string]string{
			"address": address,
			"outcome": outcome.String(),
		})
	})

	s.registerHandlers()

	return s
}

// registerHandlers registers all JSON-RPC method handlers.
func (s *Server) registerHandlers() {
	// Session methods
	s.handlers["session_wallet"] = s.sessionWallet
	s.handlers["session_linkedWallets"] = s.sessionLinkedWallets
	s.handlers["session_linkNewWallet"] = s.sessionLinkNewWallet
	s.handlers["session_cancelLink"] = s.sessionCancelLink
	s.handlers["session_setPrimaryWallet"] = s.sessionSetPrimaryWallet
	s.handlers["session_connectWallet"] = s.sessionConnectWallet
	s.handlers["session_defaults"] = s.sessionDefaults
	s.handlers["session_event"] = s.sessionEvent

	// Signer methods (primary wallet)
	s.handlers["signer_signMessage"] = s.signerSignMessage
	s.handlers["signer_sendTransaction"] = s.signerSendTransaction

	// Local wallet provider
	s.handlers["wallet_add"] = s.walletAdd
	s.handlers["wallet_remove"] = s.walletRemove
	s.handlers["wallet_list"] = s.walletList
}

// Handler returns the HTTP handler serving JSON-RPC and the WebSocket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /", s.handleRPC)
	mux.HandleFunc("POST /{$}", s.handleRPC)
	mux.HandleFunc("OPTIONS /", s.handleCORS)
	mux.HandleFunc("OPTIONS /{$}", s.handleCORS)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /ws/", s.handleWS)
	return corsMiddleware(mux)
}

// Start starts the RPC server.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// No write timeout: session_linkNewWallet holds its response until
		// the user links a wallet or cancels.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("RPC server error", "error", err)
		}
	}()

	s.log.Info("RPC server started", "addr", listener.Addr().String(), "ws", "ws://"+listener.Addr().String()+"/ws")
	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop stops the RPC server and releases blocked link requests.
func (s *Server) Stop() error {
	s.session.Broker().Cancel()
	s.cancel()
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleRPC handles JSON-RPC requests.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, nil, ParseError, "Parse error", nil)
		return
	}

	if req.JSONRPC != "2.0" {
		s.writeError(w, req.ID, InvalidRequest, "Invalid Request", nil)
		return
	}

	s.mu.RLock()
	handler, ok := s.handlers[req.Method]
	s.mu.RUnlock()

	if !ok {
		s.writeError(w, req.ID, MethodNotFound, "Method not found", req.Method)
		return
	}

	// Handlers also end when the server stops.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	result, err := handler(ctx, req.Params)
	if err != nil {
		code := errorCode(err)
		if code == InternalError {
			s.log.Warn("RPC method failed", "method", req.Method, "error", err)
		}
		s.writeError(w, req.ID, code, err.Error(), nil)
		return
	}

	s.writeResult(w, req.ID, result)
}

// errorCode maps a handler error to a JSON-RPC error code.
func errorCode(err error) int {
	switch {
	case errors.Is(err, errInvalidParams):
		return InvalidParams
	case errors.Is(err, link.ErrLinkCancelled):
		return UserRejected
	case errors.Is(err, signer.ErrUnsupported), errors.Is(err, signer.ErrUnsupportedPayload):
		return Unsupported
	case errors.Is(err, wallet.ErrWalletNotFound), errors.Is(err, errNoSigner):
		return NotFound
	default:
		return InternalError
	}
}

// writeResult writes a successful response.
func (s *Server) writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, id interface{}, code int, message string, data interface{}) {
	resp := Response{
		JSONRPC: "2.0",
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

// handleCORS handles CORS preflight requests.
func (s *Server) handleCORS(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// corsMiddleware adds CORS headers to all responses.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
