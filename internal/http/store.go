package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wesavefood/wesavefood/internal/domain"
	pkgErrors "github.com/wesavefood/wesavefood/pkg/errors"
)

type storeService interface {
	List(ctx context.Context) ([]domain.Store, error)
	FindByID(ctx context.Context, id string) (*domain.Store, error)
	FindWithinRadius(ctx context.Context, lat, lng, maxDistanceKm float64) ([]domain.Store, error)
	Store(ctx context.Context, store domain.Store) error
	Update(ctx context.Context, id string, fields domain.Document) error
	UpdateRating(ctx context.Context, id string, rating float64) error
	UpdateEcoRating(ctx context.Context, id string, ecoRating float64) error
	Delete(ctx context.Context, id string) error
}

type storeHandler struct {
	log     zerolog.Logger
	encoder encoder
	service storeService
}

func newStoreHandler(encoder encoder, log zerolog.Logger, service storeService) *storeHandler {
	return &storeHandler{
		log:     log,
		encoder: encoder,
		service: service,
	}
}

func (h storeHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.store)
	r.Get("/{storeID}", h.getByID)
	r.Patch("/{storeID}", h.update)
	r.Put("/{storeID}/rating", h.updateRating)
	r.Put("/{storeID}/eco-rating", h.updateEcoRating)
	r.Delete("/{storeID}", h.delete)
}

// list returns all stores, or only those within max_distance km of the
// given point when lat, lng and max_distance are supplied together.
func (h storeHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	latStr := r.URL.Query().Get("lat")
	lngStr := r.URL.Query().Get("lng")
	distStr := r.URL.Query().Get("max_distance")

	if latStr != "" || lngStr != "" || distStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lng, errLng := strconv.ParseFloat(lngStr, 64)
		dist, errDist := strconv.ParseFloat(distStr, 64)
		if errLat != nil || errLng != nil || errDist != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Message: "lat, lng and max_distance must all be valid numbers"})
			return
		}

		stores, err := h.service.FindWithinRadius(ctx, lat, lng, dist)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to query stores by distance")
			h.encoder.StatusInternalError(w)
			return
		}

		render.JSON(w, r, stores)
		return
	}

	stores, err := h.service.List(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list stores")
		h.encoder.StatusInternalError(w)
		return
	}

	render.JSON(w, r, stores)
}

func (h storeHandler) getByID(w http.ResponseWriter, r *http.Request) {
	var (
		ctx     = r.Context()
		storeID = chi.URLParam(r, "storeID")
	)

	s, err := h.service.FindByID(ctx, storeID)
	if err != nil {
		h.log.Error().Err(err).Str("store_id", storeID).Msg("Failed to fetch store")
		h.encoder.StatusInternalError(w)
		return
	}
	if s == nil {
		h.encoder.StatusNotFound(ctx, w)
		return
	}

	render.JSON(w, r, s)
}

func (h storeHandler) store(w http.ResponseWriter, r *http.Request) {
	var (
		ctx  = r.Context()
		data domain.Store
	)

	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Message: "invalid request body"})
		return
	}

	if data.Name == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Message: "store name is required"})
		return
	}

	if data.ID == "" {
		data.ID = uuid.NewString()
	}

	if err := h.service.Store(ctx, data); err != nil {
		if pkgErrors.Is(err, domain.ErrDuplicate) {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, errorResponse{Message: "store already exists"})
			return
		}
		h.log.Error().Err(err).Msg("Failed to create store")
		h.encoder.StatusInternalError(w)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, data)
}

func (h storeHandler) update(w http.ResponseWriter, r *http.Request) {
	var (
		ctx     = r.Context()
		storeID = chi.URLParam(r, "storeID")
		fields  domain.Document
	)

	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Message: "invalid request body"})
		return
	}

	if err := h.service.Update(ctx, storeID, fields); err != nil {
		if pkgErrors.Is(err, domain.ErrNotFound) {
			h.encoder.StatusNotFound(ctx, w)
			return
		}
		h.log.Error().Err(err).Str("store_id", storeID).Msg("Failed to update store")
		h.encoder.StatusInternalError(w)
		return
	}

	h.encoder.NoContent(w)
}

type ratingRequest struct {
	Rating float64 `json:"rating"`
}

func (h storeHandler) updateRating(w http.ResponseWriter, r *http.Request) {
	var (
		ctx     = r.Context()
		storeID = chi.URLParam(r, "storeID")
		data    ratingRequest
	)

	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Message: "invalid request body"})
		return
	}

	if err := h.service.UpdateRating(ctx, storeID, data.Rating); err != nil {
		if pkgErrors.Is(err, domain.ErrNotFound) {
			h.encoder.StatusNotFound(ctx, w)
			return
		}
		h.log.Error().Err(err).Str("store_id", storeID).Msg("Failed to update store rating")
		h.encoder.StatusInternalError(w)
		return
	}

	h.encoder.NoContent(w)
}

func (h storeHandler) updateEcoRating(w http.ResponseWriter, r *http.Request) {
	var (
		ctx     = r.Context()
		storeID = chi.URLParam(r, "storeID")
		data    ratingRequest
	)

	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Message: "invalid request body"})
		return
	}

	if err := h.service.UpdateEcoRating(ctx, storeID, data.Rating); err != nil {
		if pkgErrors.Is(err, domain.ErrNotFound) {
			h.encoder.StatusNotFound(ctx, w)
			return
		}
		h.log.Error().Err(err).Str("store_id", storeID).Msg("Failed to update store eco rating")
		h.encoder.StatusInternalError(w)
		return
	}

	h.encoder.NoContent(w)
}

func (h storeHandler) delete(w http.ResponseWriter, r *http.Request) {
	var (
		ctx     = r.Context()
		storeID = chi.URLParam(r, "storeID")
	)

	if err := h.service.Delete(ctx, storeID); err != nil {
		if pkgErrors.Is(err, domain.ErrNotFound) {
			h.encoder.StatusNotFound(ctx, w)
			return
		}
		h.log.Error().Err(err).Str("store_id", storeID).Msg("Failed to delete store")
		h.encoder.StatusInternalError(w)
		return
	}

	h.encoder.NoContent(w)
}
