package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// MCP endpoint (JSON-RPC over HTTP)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}

	// API routes
	mux.HandleFunc("/api/health", s.app.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", s.app.VersionHandler.ServeHTTP)

	mux.HandleFunc("/api/schedules", s.app.SchedulesHandler.ServeCollection)
	mux.HandleFunc("/api/schedules/", s.app.SchedulesHandler.ServeItem)
	mux.HandleFunc("/api/run-once", s.app.RunOnceHandler.ServeHTTP)
	mux.HandleFunc("/api/runs", s.app.RunsHandler.ServeHTTP)
	mux.HandleFunc("/api/reports", s.app.ReportsHandler.ServeCollection)
	mux.HandleFunc("/api/reports/", s.app.ReportsHandler.ServeItem)
	mux.HandleFunc("/api/tracked-stocks", s.app.TrackedStocksHandler.ServeCollection)
	mux.HandleFunc("/api/tracked-stocks/", s.app.TrackedStocksHandler.ServeItem)
	mux.HandleFunc("/api/artifacts/", s.app.ArtifactsHandler.ServeHTTP)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}
