// Package api assembles the HTTP surface.
package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledgerplan/internal/api/handlers"
	"github.com/dvloznov/ledgerplan/internal/api/middleware"
)

// Handlers groups the endpoint handlers the router dispatches to.
type Handlers struct {
	Imports     *handlers.ImportsHandler
	Jobs        *handlers.JobsHandler
	Obligations *handlers.ObligationsHandler
	Statements  *handlers.StatementsHandler
}

// NewRouter registers every route and wraps them in the standard middleware.
func NewRouter(h Handlers, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Imports endpoints
	mux.HandleFunc("POST /api/imports", h.Imports.CreateImport)
	mux.HandleFunc("POST /api/imports/{id}/commit", func(w http.ResponseWriter, r *http.Request) {
		h.Imports.CommitImport(w, r, r.PathValue("id"))
	})

	// Jobs endpoints
	mux.HandleFunc("GET /api/jobs", h.Jobs.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.Jobs.GetJob(w, r, r.PathValue("id"))
	})

	// Obligations endpoints
	mux.HandleFunc("GET /api/obligations", h.Obligations.ListObligations)
	mux.HandleFunc("PUT /api/obligations/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		h.Obligations.UpdateStatus(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("DELETE /api/obligations/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.Obligations.DeleteObligation(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("GET /api/calendar", h.Obligations.Calendar)

	// Statements and transactions endpoints
	mux.HandleFunc("GET /api/statements", h.Statements.ListStatements)
	mux.HandleFunc("GET /api/statements/export", h.Statements.ExportStatement)
	mux.HandleFunc("PUT /api/transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.Statements.UpdateTransaction(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("DELETE /api/transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
		h.Statements.DeleteTransaction(w, r, r.PathValue("id"))
	})

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logger(log),
		middleware.Recovery(log),
		middleware.CORS,
	)
}
