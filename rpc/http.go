package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"nftescrow/core"
	"nftescrow/core/events"
	"nftescrow/indexer"
	"nftescrow/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeUnauthorized   = -32001
	codeRateLimited    = -32020
)

// ServerConfig carries the transport settings of the JSON-RPC server.
type ServerConfig struct {
	// AuthToken is the static bearer token accepted for mutating methods.
	AuthToken string
	// JWTSecret enables HS256 bearer tokens whose subject is the caller.
	JWTSecret          string
	RateLimitPerMinute float64
	RateLimitBurst     int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, req *RPCRequest)

type method struct {
	handler  handlerFunc
	mutating bool
}

type Server struct {
	node    *core.Node
	history *indexer.EventStore
	stream  *events.Broadcaster
	cfg     ServerConfig
	limiter *rateLimiter
	logger  *slog.Logger
	methods map[string]method
	http    *http.Server
}

// NewServer wires the RPC surface to node. history and stream may be nil, in
// which case market_listEvents and /ws/events report the feature unavailable.
func NewServer(node *core.Node, history *indexer.EventStore, stream *events.Broadcaster, cfg ServerConfig) (*Server, error) {
	if node == nil {
		return nil, fmt.Errorf("rpc: node must not be nil")
	}
	if strings.TrimSpace(cfg.AuthToken) == "" && strings.TrimSpace(cfg.JWTSecret) == "" {
		slog.Warn("rpc: no authentication configured, mutating methods will be rejected")
	}
	s := &Server{
		node:    node,
		history: history,
		stream:  stream,
		cfg:     cfg,
		limiter: newRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
		logger:  slog.Default().With("component", "rpc"),
	}
	s.methods = map[string]method{
		"market_list":                  {s.handleMarketList, true},
		"market_reprice":               {s.handleMarketReprice, true},
		"market_delist":                {s.handleMarketDelist, true},
		"market_purchase":              {s.handleMarketPurchase, true},
		"market_reportDeliverySuccess": {s.escrowAction("reportDeliverySuccess", node.MarketReportDeliverySuccess), true},
		"market_reportDispute":         {s.escrowAction("reportDispute", node.MarketReportDispute), true},
		"market_reportWithdraw":        {s.escrowAction("reportWithdraw", node.MarketReportWithdraw), true},
		"market_finalizeSettlement":    {s.escrowAction("finalizeSettlement", node.MarketFinalizeSettlement), true},
		"market_settleWithdrawal":      {s.escrowAction("settleWithdrawal", node.MarketSettleWithdrawal), true},
		"market_settleDispute":         {s.escrowAction("settleDispute", node.MarketSettleDispute), true},
		"market_setTreasury":           {s.handleMarketSetTreasury, true},
		"asset_mint":                   {s.handleAssetMint, true},
		"asset_authorizeOperator":      {s.handleAssetAuthorizeOperator, true},
		"asset_revokeOperator":         {s.handleAssetRevokeOperator, true},

		"market_isOnSale":         {s.handleMarketIsOnSale, false},
		"market_getListing":       {s.handleMarketGetListing, false},
		"market_totalEscrowItems": {s.handleMarketTotalEscrowItems, false},
		"market_escrowIdFor":      {s.handleMarketEscrowIDFor, false},
		"market_buyerSellerOf":    {s.handleMarketBuyerSellerOf, false},
		"market_statusOf":         {s.handleMarketStatusOf, false},
		"market_getEscrow":        {s.handleMarketGetEscrow, false},
		"market_heldBalance":      {s.handleMarketHeldBalance, false},
		"market_treasury":         {s.handleMarketTreasury, false},
		"market_listEvents":       {s.handleMarketListEvents, false},
		"asset_ownerOf":           {s.handleAssetOwnerOf, false},
		"bank_balance":            {s.handleBankBalance, false},
	}
	return s, nil
}

// Handler returns the routed HTTP handler: JSON-RPC on POST /, Prometheus on
// /metrics, a liveness probe on /healthz and the event stream on /ws/events.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/ws/events", s.handleEventsWS)
	router.With(s.limiter.middleware).Post("/", s.handle)
	return otelhttp.NewHandler(router, "marketd-rpc")
}

// Start serves the RPC surface on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting JSON-RPC server", "addr", addr)
		errCh <- s.http.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	w = recorder
	start := time.Now()
	m, ok := s.methods[req.Method]
	label := req.Method
	if !ok {
		label = "unknown"
	}
	defer func() {
		observability.ModuleMetrics().Observe(moduleOf(label), label, recorder.status, time.Since(start))
	}()
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
		return
	}
	if m.mutating {
		p, authErr := s.requireAuth(r)
		if authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		r = r.WithContext(withPrincipal(r.Context(), p))
	}
	m.handler(w, r, req)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func moduleOf(method string) string {
	if idx := strings.IndexByte(method, '_'); idx > 0 {
		return method[:idx]
	}
	return "unknown"
}
