package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type seeder interface {
	HasData(ctx context.Context) (bool, error)
	Seed(ctx context.Context) error
}

type cacheClearer interface {
	ClearCache(collections ...string)
}

type adminHandler struct {
	log     zerolog.Logger
	encoder encoder
	seeder  seeder
	cache   cacheClearer
}

func newAdminHandler(encoder encoder, log zerolog.Logger, seeder seeder, cache cacheClearer) *adminHandler {
	return &adminHandler{
		log:     log,
		encoder: encoder,
		seeder:  seeder,
		cache:   cache,
	}
}

func (h adminHandler) Routes(r chi.Router) {
	r.Post("/init-database", h.initDatabase)
	r.Post("/clear-cache", h.clearCache)
}

// initDatabase seeds the content repository with starter data. Collections
// that already hold records are left untouched.
func (h adminHandler) initDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hasData, err := h.seeder.HasData(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Admin: Failed to inspect collections before seeding")
		h.encoder.StatusInternalError(w)
		return
	}
	if hasData {
		h.encoder.StatusResponse(ctx, w, map[string]string{"status": "already initialized"}, http.StatusOK)
		return
	}

	if err := h.seeder.Seed(ctx); err != nil {
		h.log.Error().Err(err).Msg("Admin: Failed to seed database")
		h.encoder.StatusInternalError(w)
		return
	}

	h.encoder.StatusResponse(ctx, w, map[string]string{"status": "initialized"}, http.StatusOK)
}

func (h adminHandler) clearCache(w http.ResponseWriter, r *http.Request) {
	h.cache.ClearCache()
	h.encoder.NoContent(w)
}
