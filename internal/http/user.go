package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/user"
)

type userHandler struct {
	log     zerolog.Logger
	encoder encoder
	service user.Service
}

func newUserHandler(encoder encoder, log zerolog.Logger, service user.Service) *userHandler {
	return &userHandler{
		log:     log,
		encoder: encoder,
		service: service,
	}
}

func (h userHandler) Routes(r chi.Router) {
	r.Get("/profile", h.getProfile)
	r.Patch("/profile", h.updateProfile)
	r.Put("/profile/preferences", h.updatePreferences)
	r.Post("/profile/api-token", h.resetAPIToken)
	r.Delete("/profile", h.deleteAccount)
}

func (h userHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u := userFromContext(ctx)
	if u == nil {
		http.Error(w, "Unauthorized: User not found in context", http.StatusUnauthorized)
		return
	}

	h.encoder.StatusResponse(ctx, w, sanitizeUser(u), http.StatusOK)
}

func (h userHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var (
		ctx    = r.Context()
		fields domain.Document
	)

	u := userFromContext(ctx)
	if u == nil {
		http.Error(w, "Unauthorized: User not found in context", http.StatusUnauthorized)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: "invalid request body"}, http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateProfile(ctx, u.ID, fields); err != nil {
		h.log.Error().Err(err).Str("user_id", u.ID).Msg("Failed to update profile")
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: "failed to update profile"}, http.StatusBadRequest)
		return
	}

	updated, err := h.service.FindByID(ctx, u.ID)
	if err != nil || updated == nil {
		h.encoder.StatusInternalError(w)
		return
	}

	h.encoder.StatusResponse(ctx, w, sanitizeUser(updated), http.StatusOK)
}

func (h userHandler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	var (
		ctx   = r.Context()
		prefs domain.Preferences
	)

	u := userFromContext(ctx)
	if u == nil {
		http.Error(w, "Unauthorized: User not found in context", http.StatusUnauthorized)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: "invalid request body"}, http.StatusBadRequest)
		return
	}

	if err := h.service.UpdatePreferences(ctx, u.ID, prefs); err != nil {
		h.log.Error().Err(err).Str("user_id", u.ID).Msg("Failed to update preferences")
		h.encoder.StatusInternalError(w)
		return
	}

	h.encoder.NoContent(w)
}

type apiTokenResponse struct {
	Token string `json:"token"`
}

// resetAPIToken rotates the user's API token. The plain token is shown
// exactly once in this response.
func (h userHandler) resetAPIToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u := userFromContext(ctx)
	if u == nil {
		http.Error(w, "Unauthorized: User not found in context", http.StatusUnauthorized)
		return
	}

	token, err := h.service.ResetAndRetrieveAPIToken(ctx, u.ID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", u.ID).Msg("Failed to reset API token")
		h.encoder.StatusInternalError(w)
		return
	}

	h.encoder.StatusResponse(ctx, w, apiTokenResponse{Token: token}, http.StatusOK)
}

func (h userHandler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u := userFromContext(ctx)
	if u == nil {
		http.Error(w, "Unauthorized: User not found in context", http.StatusUnauthorized)
		return
	}

	if err := h.service.Delete(ctx, u.ID); err != nil {
		h.log.Error().Err(err).Str("user_id", u.ID).Msg("Failed to delete account")
		h.encoder.StatusInternalError(w)
		return
	}

	h.encoder.NoContent(w)
}
