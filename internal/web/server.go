package web

import (
	"embed"
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/yanisepfl/alphix-public-sub008/internal/engine"
	"github.com/yanisepfl/alphix-public-sub008/internal/logger"
	"github.com/yanisepfl/alphix-public-sub008/internal/state"
)

var webLogger = logger.GetForComponent("web_server")

//go:embed static/*
var staticFiles embed.FS

//go:embed static/index.html
var dashboardHTML []byte

// WebServer exposes the engine's status surface over HTTP.
type WebServer struct {
	router *mux.Router
	port   string
	engine *engine.Engine
}

// NewWebServer creates a new web server instance over one engine.
func NewWebServer(port string, eng *engine.Engine) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		port:   port,
		engine: eng,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Static files
	staticHandler := http.FileServer(http.FS(staticFiles))
	ws.router.PathPrefix("/static/").Handler(http.StripPrefix("/", staticHandler))

	// Dashboard routes
	ws.router.HandleFunc("/", ws.handleDashboard).Methods("GET")
	ws.router.HandleFunc("/dashboard", ws.handleDashboard).Methods("GET")

	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/status", ws.handleGetStatus).Methods("GET")
	api.HandleFunc("/holders/{address}", ws.handleGetHolder).Methods("GET")
	api.HandleFunc("/accruals", ws.handleGetAccruals).Methods("GET")
	api.HandleFunc("/tax-collections", ws.handleGetTaxCollections).Methods("GET")
	api.HandleFunc("/jit-events", ws.handleGetJitEvents).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server and engine health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snap := ws.engine.Status()

	dbHealthy := true
	hasErrors := false
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
		hasErrors = true
	}
	if !snap.Configured || !snap.Active {
		hasErrors = true
	}

	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":            runtime.Version(),
			"goroutines_count":   runtime.NumGoroutine(),
			"total_alloc_bytes":  memStats.TotalAlloc,
			"heap_objects_count": memStats.HeapObjects,
			"alloc_bytes":        memStats.Alloc,
			"sys_bytes":          memStats.Sys,
			"gc_cycles":          memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "alphix-rehypothecation-engine",
			"version": "1.0.0",
		},
		"engine_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"configured":       snap.Configured,
			"active":           snap.Active,
			"total_supply":     snap.TotalSupply.String(),
		},
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleDashboard serves the main dashboard HTML
func (ws *WebServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write(dashboardHTML)
}

// handleGetStatus returns the full engine snapshot
func (ws *WebServer) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	snap := ws.engine.Status()

	response := map[string]interface{}{
		"snapshot":  snap,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetHolder returns one holder's share balance
func (ws *WebServer) handleGetHolder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	address := vars["address"]
	if address == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Missing holder address")
		return
	}

	response := map[string]interface{}{
		"holder":       address,
		"shares":       ws.engine.BalanceOf(address).String(),
		"total_supply": ws.engine.TotalSupply().String(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetAccruals returns recent accrual events
func (ws *WebServer) handleGetAccruals(w http.ResponseWriter, r *http.Request) {
	limit := ws.queryLimit(r)

	events, err := state.RecentAccruals(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent accruals")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve accruals")
		return
	}

	response := map[string]interface{}{
		"accruals": events,
		"count":    len(events),
		"limit":    limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetTaxCollections returns recent treasury sweeps
func (ws *WebServer) handleGetTaxCollections(w http.ResponseWriter, r *http.Request) {
	limit := ws.queryLimit(r)

	collections, err := state.RecentTaxCollections(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent tax collections")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve tax collections")
		return
	}

	response := map[string]interface{}{
		"tax_collections": collections,
		"count":           len(collections),
		"limit":           limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetJitEvents returns recent JIT add/remove events
func (ws *WebServer) handleGetJitEvents(w http.ResponseWriter, r *http.Request) {
	limit := ws.queryLimit(r)

	events, err := state.RecentJitEvents(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent jit events")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve jit events")
		return
	}

	response := map[string]interface{}{
		"jit_events": events,
		"count":      len(events),
		"limit":      limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// queryLimit parses the limit query parameter, capped at 100.
func (ws *WebServer) queryLimit(r *http.Request) int {
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
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
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

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
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
