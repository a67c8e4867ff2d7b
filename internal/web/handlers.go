package web

import (
	"net/http"

	"github.com/JonMunkholm/sourcefields/internal/logging"
	"github.com/JonMunkholm/sourcefields/internal/web/templates"
)

// handleFields classifies the source query parameter and returns its
// field list and sample records.
func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	ctx := withRequestMetadata(r.Context(), r)
	result, err := s.service.Sample(ctx, r.URL.Query().Get("source"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleIndex renders the preview page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := templates.Index(templates.IndexData{
		Limit:  s.service.Options().Limit,
		Source: r.URL.Query().Get("source"),
	})
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// healthResponse reports liveness and sampling capacity.
type healthResponse struct {
	Status    string `json:"status"`
	Active    int    `json:"active"`
	Max       int    `json:"max_concurrent"`
	Saturated bool   `json:"saturated"`
}

// handleHealth reports how many sampling slots are in use.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.service.LimiterStatus()
	writeJSON(w, r, http.StatusOK, healthResponse{
		Status:    "ok",
		Active:    status.Active,
		Max:       status.MaxConcurrent,
		Saturated: status.Available == 0,
	})
}
