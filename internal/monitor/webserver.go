// Package monitor provides the HTTP interface for voxel grids: voxelize
// requests, slice/projection queries, snapshot persistence, and debug
// visualisations.
package monitor

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/banshee-data/voxgrid/internal/voxeldb"
)

// WebServer handles the HTTP interface for voxel grid exploration.
// It provides endpoints for health checks, voxelization, grid queries
// and snapshot management.
type WebServer struct {
	address        string
	datasetID      string
	db             *voxeldb.VoxDB
	maxUploadBytes int64
	workers        int
	server         *http.Server
}

// WebServerConfig contains configuration options for the web server
type WebServerConfig struct {
	Address        string
	DatasetID      string
	DB             *voxeldb.VoxDB
	MaxUploadBytes int64 // upload size cap for /api/voxelize bodies; 0 means 64 MiB
	Workers        int   // voxelization worker count; 0 picks a default
	AdminRoutes    bool  // mount /debug/ (tailsql, backup) on the same mux
}

// NewWebServer creates a new web server with the provided configuration
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:        config.Address,
		datasetID:      config.DatasetID,
		db:             config.DB,
		maxUploadBytes: config.MaxUploadBytes,
		workers:        config.Workers,
	}
	if ws.maxUploadBytes <= 0 {
		ws.maxUploadBytes = 64 << 20
	}

	mux := ws.setupRoutes()
	if config.AdminRoutes && ws.db != nil {
		ws.db.AttachAdminRoutes(mux)
	}
	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: mux,
	}

	return ws
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/", ws.handleStatus)
	mux.HandleFunc("/api/voxelize", ws.handleVoxelize)
	mux.HandleFunc("/api/grid/status", ws.handleGridStatus)
	mux.HandleFunc("/api/grid/slice", ws.handleGridSlice)
	mux.HandleFunc("/api/grid/mip", ws.handleGridMIP)
	mux.HandleFunc("/api/grid/points", ws.handleGridPoints)
	mux.HandleFunc("/api/grid/persist", ws.handleGridPersist)
	mux.HandleFunc("/api/grid/snapshots", ws.handleGridSnapshots)
	mux.HandleFunc("/api/grid/restore", ws.handleGridRestore)
	mux.HandleFunc("/charts/slice", ws.handleSliceChart)
	mux.HandleFunc("/charts/mip", ws.handleMIPChart)
	mux.HandleFunc("/plots/slice.png", ws.handleSlicePlot)

	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, map[string]string{"status": "ok"})
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	status := map[string]any{
		"dataset_id": ws.datasetID,
		"time":       time.Now().UTC().Format(time.RFC3339),
		"endpoints": []string{
			"/api/voxelize", "/api/grid/status", "/api/grid/slice",
			"/api/grid/mip", "/api/grid/points", "/api/grid/persist",
			"/api/grid/snapshots", "/api/grid/restore",
			"/charts/slice", "/charts/mip", "/plots/slice.png",
		},
	}
	ws.writeJSON(w, status)
}
