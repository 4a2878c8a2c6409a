package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Pinger reports whether the backing content repository is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthHandler struct {
	encoder encoder
	pinger  Pinger
}

func newHealthHandler(encoder encoder, pinger Pinger) *healthHandler {
	return &healthHandler{
		encoder: encoder,
		pinger:  pinger,
	}
}

func (h healthHandler) Routes(r chi.Router) {
	r.Get("/liveness", h.handleLiveness)
	r.Get("/readiness", h.handleReadiness)
}

func (h healthHandler) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeHealthy(w)
}

// handleReadiness fails when the GitHub content repository cannot be
// reached with the configured credentials.
func (h healthHandler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.Ping(r.Context()); err != nil {
		writeUnhealthy(w)
		return
	}

	writeHealthy(w)
}

func writeHealthy(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func writeUnhealthy(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte("Unhealthy. Content repository unreachable"))
}
