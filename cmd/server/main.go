// Command server runs the liquidation auction engine as an HTTP service.
//
// It exposes the auction operations as a JSON API, broadcasts auction
// events over websocket for indexers and UIs, and serves Prometheus
// metrics. Storage is PostgreSQL (auction state, escrow) plus ClickHouse
// (event archive), or fully in-memory with --use-memory.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/siftal/erc20bank/internal/auction"
	"github.com/siftal/erc20bank/internal/bank"
	"github.com/siftal/erc20bank/internal/domain"
	"github.com/siftal/erc20bank/internal/events"
	"github.com/siftal/erc20bank/internal/observability"
	"github.com/siftal/erc20bank/internal/storage"
	"github.com/siftal/erc20bank/internal/storage/clickhouse"
	"github.com/siftal/erc20bank/internal/storage/memory"
	"github.com/siftal/erc20bank/internal/storage/migrations"
	"github.com/siftal/erc20bank/internal/storage/postgres"
	"github.com/siftal/erc20bank/internal/token"
)

// Server wires the engine to its HTTP surface.
type Server struct {
	engine *auction.Engine
	events storage.EventStore
	hub    *events.Hub
	cred   bank.Credential
	logger *log.Logger

	started time.Time
}

// allStores holds all storage implementations.
type allStores struct {
	liquidationStore storage.LiquidationStore
	escrowStore      storage.EscrowStore
	eventStore       storage.EventStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP API listen address")
	metricsAddr := flag.String("metrics-addr", envOr("METRICS_ADDR", ":9090"), "Prometheus metrics HTTP address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	tokenEndpoint := flag.String("token-endpoint", os.Getenv("TOKEN_ENDPOINT"), "Settlement token JSON-RPC endpoint")
	bankEndpoint := flag.String("bank-endpoint", os.Getenv("BANK_ENDPOINT"), "Bank settlement callback endpoint")
	engineAccount := flag.String("engine-account", os.Getenv("ENGINE_ACCOUNT"), "Engine custody address on the settlement token")
	bankCredential := flag.String("bank-credential", os.Getenv("BANK_CREDENTIAL"), "Credential required to open auctions")
	callTimeout := flag.Duration("call-timeout", 10*time.Second, "Timeout for token and bank calls")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *tokenEndpoint == "" {
		logger.Fatal("--token-endpoint is required")
	}
	if *bankEndpoint == "" {
		logger.Fatal("--bank-endpoint is required")
	}
	if *engineAccount == "" {
		logger.Fatal("--engine-account is required")
	}
	if *bankCredential == "" {
		logger.Fatal("--bank-credential is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Event fan-out: websocket broadcast + durable archive
	hub := events.NewHub(events.DefaultHubConfig(), log.New(os.Stdout, "[events] ", log.LstdFlags))
	archive := events.NewArchive(stores.eventStore, log.New(os.Stdout, "[archive] ", log.LstdFlags))
	sink := events.Multi{hub, archive}

	metrics := observability.NewMetrics("erc20bank")

	engine, err := auction.New(auction.Options{
		LiquidationStore: stores.liquidationStore,
		EscrowStore:      stores.escrowStore,
		Token:            token.NewHTTPClient(*tokenEndpoint, token.WithTimeout(*callTimeout)),
		Bank:             bank.NewHTTPClient(*bankEndpoint, bank.WithTimeout(*callTimeout)),
		EngineAccount:    *engineAccount,
		BankCredential:   bank.Credential(*bankCredential),
		Sink:             sink,
		Logger:           log.New(os.Stdout, "[auction] ", log.LstdFlags|log.Lshortfile),
		Metrics:          metrics,
	})
	if err != nil {
		logger.Fatalf("Failed to create engine: %v", err)
	}

	server := &Server{
		engine:  engine,
		events:  stores.eventStore,
		hub:     hub,
		cred:    bank.Credential(*bankCredential),
		logger:  logger,
		started: time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Metrics endpoint on its own listener
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		logger.Printf("Starting metrics server on %s", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
			logger.Printf("Metrics server error: %v", err)
		}
	}()

	err = server.run(ctx, *listenAddr)
	done <- err

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates storage implementations, either in-memory or
// backed by PostgreSQL and ClickHouse. Migrations run on startup.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		return &allStores{
			liquidationStore: memory.NewLiquidationStore(),
			escrowStore:      memory.NewEscrowStore(),
			eventStore:       memory.NewEventStore(),
		}, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	cleanup := func() {
		pool.Close()
		conn.Close()
	}

	return &allStores{
		liquidationStore: postgres.NewLiquidationStore(pool),
		escrowStore:      postgres.NewEscrowStore(pool),
		eventStore:       clickhouse.NewEventStore(conn),
	}, cleanup, nil
}

// run serves the JSON API until ctx is cancelled.
func (s *Server) run(ctx context.Context, addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", s.handleStatus)

	mux.HandleFunc("/liquidations", s.handleLiquidations)
	mux.HandleFunc("/liquidations/", s.handleLiquidation)
	mux.HandleFunc("/withdraw", s.handleWithdraw)
	mux.HandleFunc("/balances/", s.handleBalance)
	mux.Handle("/ws", s.hub)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown api server: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// openRequest is the JSON body for POST /liquidations.
type openRequest struct {
	Credential       string `json:"credential"`
	LoanID           string `json:"loanId"`
	CollateralAmount uint64 `json:"collateralAmount"`
	Amount           uint64 `json:"amount"`
	DurationMs       int64  `json:"durationMs"`
}

// bidRequest is the JSON body for POST /liquidations/{id}/bid.
type bidRequest struct {
	Bidder string `json:"bidder"`
	Amount uint64 `json:"amount"`
}

// withdrawRequest is the JSON body for POST /withdraw.
type withdrawRequest struct {
	Account string `json:"account"`
}

// liquidationResponse is the JSON shape of a liquidation record.
type liquidationResponse struct {
	ID               uint64 `json:"id"`
	LoanID           string `json:"loanId"`
	CollateralAmount uint64 `json:"collateralAmount"`
	Amount           uint64 `json:"amount"`
	EndTime          int64  `json:"endTime"`
	BestBid          uint64 `json:"bestBid"`
	BestBidder       string `json:"bestBidder"`
	State            string `json:"state"`
	CreatedAt        int64  `json:"createdAt"`
}

func toLiquidationResponse(l *domain.Liquidation) liquidationResponse {
	return liquidationResponse{
		ID:               l.ID,
		LoanID:           l.LoanID,
		CollateralAmount: l.CollateralAmount,
		Amount:           l.Amount,
		EndTime:          l.EndTime,
		BestBid:          l.BestBid,
		BestBidder:       l.BestBidder,
		State:            string(l.State),
		CreatedAt:        l.CreatedAt,
	}
}

// handleLiquidations serves GET (list) and POST (open) on /liquidations.
func (s *Server) handleLiquidations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.engine.Liquidations(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		resp := make([]liquidationResponse, 0, len(list))
		for _, l := range list {
			resp = append(resp, toLiquidationResponse(l))
		}
		writeJSON(w, http.StatusOK, resp)

	case http.MethodPost:
		var req openRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		id, err := s.engine.Open(r.Context(), bank.Credential(req.Credential), req.LoanID,
			req.CollateralAmount, req.Amount, time.Duration(req.DurationMs)*time.Millisecond)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]uint64{"id": id})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleLiquidation routes /liquidations/{id}, /liquidations/{id}/bid,
// /liquidations/{id}/close and /liquidations/{id}/events.
func (s *Server) handleLiquidation(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/liquidations/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		http.Error(w, "invalid liquidation id", http.StatusBadRequest)
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		l, err := s.engine.Liquidation(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toLiquidationResponse(l))

	case "bid":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req bidRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := s.engine.Bid(r.Context(), req.Bidder, id, req.Amount); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"accepted": true})

	case "close":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := s.engine.Close(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"closed": true})

	case "events":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		evs, err := s.events.GetByLiquidationID(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, evs)

	default:
		http.NotFound(w, r)
	}
}

// handleWithdraw serves POST /withdraw.
func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	amount, err := s.engine.Withdraw(r.Context(), req.Account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"amount": amount})
}

// handleBalance serves GET /balances/{account}.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	account := strings.TrimPrefix(r.URL.Path, "/balances/")
	if account == "" {
		http.Error(w, "account required", http.StatusBadRequest)
		return
	}
	balance, err := s.engine.Balance(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	Subscribers int    `json:"subscribers"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.started).String(),
		Subscribers: s.hub.ConnCount(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine rejections to HTTP status codes. Unrecognized
// errors are internal.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, auction.ErrUnauthorized):
		code = http.StatusForbidden
	case errors.Is(err, auction.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, auction.ErrNotActive),
		errors.Is(err, auction.ErrAuctionOpen),
		errors.Is(err, auction.ErrNoBids):
		code = http.StatusConflict
	case errors.Is(err, auction.ErrZeroValue),
		errors.Is(err, auction.ErrBidTooHigh),
		errors.Is(err, auction.ErrBidNotLower),
		errors.Is(err, domain.ErrInvalidAddress):
		code = http.StatusBadRequest
	case errors.Is(err, auction.ErrInsufficientFunds),
		errors.Is(err, auction.ErrNothingToWithdraw):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, auction.ErrSettleFailed):
		code = http.StatusBadGateway
	}
	http.Error(w, err.Error(), code)
}

// envOr returns the environment variable value or a default.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
