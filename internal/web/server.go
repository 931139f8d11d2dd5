package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DistributedCollective/sovryn-ops/internal/logger"
	"github.com/DistributedCollective/sovryn-ops/internal/metrics"
	"github.com/DistributedCollective/sovryn-ops/internal/state"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// Store is the read side of the ledger the API serves.
type Store interface {
	Ping() error
	ListSubmissions(ctx context.Context, limit int) ([]types.Submission, error)
	PendingSubmissions(ctx context.Context, required int) ([]state.PendingSummary, error)
	ListRuns(ctx context.Context, limit int) ([]types.DistributionRun, error)
	GetRun(ctx context.Context, runID int64) (*types.DistributionRun, error)
	ListEntries(ctx context.Context, runID int64) ([]types.DistributionEntry, error)
	DistributionSummary(ctx context.Context) (*state.DistributionSummary, error)
	ListCheckResults(ctx context.Context, batchID string, limit int) ([]types.CheckResult, error)
}

// dbStore serves the API from the global state.DB.
type dbStore struct {
	state.SubmissionLedger
	state.DistributionStore
	state.CheckStore
}

func (dbStore) Ping() error {
	return state.TestDBConnection()
}

func (dbStore) PendingSubmissions(ctx context.Context, required int) ([]state.PendingSummary, error) {
	return state.GetPendingSubmissions(ctx, required)
}

func (dbStore) DistributionSummary(ctx context.Context) (*state.DistributionSummary, error) {
	return state.GetDistributionSummary(ctx)
}

// WebServer serves the read-only status API.
type WebServer struct {
	router   *mux.Router
	port     string
	store    Store
	required int
	started  time.Time
}

// NewWebServer creates a server backed by the PostgreSQL ledger. required is the
// multisig confirmation threshold used to flag ready submissions.
func NewWebServer(port string, required int) *WebServer {
	return NewWebServerWithStore(port, required, dbStore{})
}

// NewWebServerWithStore creates a server backed by store.
func NewWebServerWithStore(port string, required int, store Store) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:   mux.NewRouter(),
		port:     port,
		store:    store,
		required: required,
		started:  time.Now(),
	}

	metrics.Register()
	server.setupRoutes()
	return server
}

// Handler exposes the router, mainly for tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	ws.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/submissions", ws.handleGetSubmissions).Methods("GET")
	api.HandleFunc("/submissions/pending", ws.handleGetPendingSubmissions).Methods("GET")
	api.HandleFunc("/distributions", ws.handleGetDistributions).Methods("GET")
	api.HandleFunc("/distributions/summary", ws.handleGetDistributionSummary).Methods("GET")
	api.HandleFunc("/distributions/{id:[0-9]+}", ws.handleGetDistribution).Methods("GET")
	api.HandleFunc("/checks", ws.handleGetChecks).Methods("GET")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server and shuts it down when ctx is done.
func (ws *WebServer) Start(ctx context.Context) error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			webLogger.Error().Err(err).Msg("Web server shutdown failed")
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleHealth reports process and database health
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := ws.store.Ping(); err != nil {
		dbHealthy = false
		webLogger.Warn().Err(err).Msg("Database health check failed")
	}

	pendingCount := 0
	if dbHealthy {
		if pending, err := ws.store.PendingSubmissions(r.Context(), ws.required); err == nil {
			for _, p := range pending {
				pendingCount += p.Count
			}
		}
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.started).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "sovops",
			"version": "1.0.0",
		},
		"ledger": map[string]interface{}{
			"database_healthy":       dbHealthy,
			"pending_submissions":    pendingCount,
			"confirmations_required": ws.required,
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetSubmissions returns recent multisig submissions
func (ws *WebServer) handleGetSubmissions(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)
	subs, err := ws.store.ListSubmissions(r.Context(), limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to list submissions")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve submissions")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"submissions": subs,
		"count":       len(subs),
		"limit":       limit,
	})
}

// handleGetPendingSubmissions returns unexecuted submissions grouped by wallet
func (ws *WebServer) handleGetPendingSubmissions(w http.ResponseWriter, r *http.Request) {
	pending, err := ws.store.PendingSubmissions(r.Context(), ws.required)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to list pending submissions")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve pending submissions")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"wallets": pending,
		"count":   len(pending),
	})
}

// handleGetDistributions returns recent distribution runs
func (ws *WebServer) handleGetDistributions(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)
	runs, err := ws.store.ListRuns(r.Context(), limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to list distribution runs")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve distributions")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
		"limit": limit,
	})
}

// handleGetDistribution returns one run with its entries
func (ws *WebServer) handleGetDistribution(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	run, err := ws.store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, state.ErrRunNotFound) {
			ws.writeErrorResponse(w, http.StatusNotFound, "Distribution run not found")
			return
		}
		webLogger.Error().Err(err).Int64("runId", id).Msg("Failed to get distribution run")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve distribution run")
		return
	}
	entries, err := ws.store.ListEntries(r.Context(), id)
	if err != nil {
		webLogger.Error().Err(err).Int64("runId", id).Msg("Failed to list distribution entries")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve distribution entries")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"run":     run,
		"entries": entries,
	})
}

// handleGetDistributionSummary returns aggregated distribution statistics
func (ws *WebServer) handleGetDistributionSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := ws.store.DistributionSummary(r.Context())
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get distribution summary")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve distribution summary")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, summary)
}

// handleGetChecks returns check results, optionally of one batch
func (ws *WebServer) handleGetChecks(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)
	batch := r.URL.Query().Get("batch")
	results, err := ws.store.ListCheckResults(r.Context(), batch, limit)
	if err != nil {
		webLogger.Error().Err(err).Str("batch", batch).Msg("Failed to list check results")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve check results")
		return
	}

	failed := 0
	for _, c := range results {
		if !c.Passed {
			failed++
		}
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"checks": results,
		"count":  len(results),
		"failed": failed,
		"limit":  limit,
	})
}

func parseLimit(r *http.Request) int {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}
	return limit
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		webLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
