package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"github.com/wesavefood/wesavefood/internal/auth"
	"github.com/wesavefood/wesavefood/internal/domain"
)

const sessionName = "user_session"

type authService interface {
	RequestCode(ctx context.Context, phone string) error
	VerifyCode(ctx context.Context, phone string, code string) (*domain.User, error)
}

type authHandler struct {
	log     zerolog.Logger
	encoder encoder
	config  *domain.Config
	service authService

	cookieStore *sessions.CookieStore
}

func newAuthHandler(encoder encoder, log zerolog.Logger, config *domain.Config, cookieStore *sessions.CookieStore, service authService) *authHandler {
	return &authHandler{
		log:         log,
		encoder:     encoder,
		config:      config,
		service:     service,
		cookieStore: cookieStore,
	}
}

func (h authHandler) Routes(r chi.Router) {
	r.Post("/request-code", h.requestCode)
	r.Post("/verify-code", h.verifyCode)
	r.Post("/logout", h.logout)
	r.Get("/validate", h.validate)
}

type requestCodeRequest struct {
	Phone string `json:"phone"`
}

type verifyCodeRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// verifyCodeResponse carries the logged-in user on success. The user's
// token hash never leaves the server.
type verifyCodeResponse struct {
	User *domain.User `json:"user"`
}

func (h authHandler) requestCode(w http.ResponseWriter, r *http.Request) {
	var (
		ctx  = r.Context()
		data requestCodeRequest
	)

	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		h.log.Warn().Err(err).Msg("Auth: Failed to decode request-code body")
		h.encoder.StatusResponse(ctx, w, nil, http.StatusBadRequest)
		return
	}

	if err := h.service.RequestCode(ctx, data.Phone); err != nil {
		if errors.Is(err, auth.ErrInvalidPhone) {
			h.encoder.StatusResponse(ctx, w, errorResponse{Message: "invalid phone number format"}, http.StatusBadRequest)
			return
		}

		h.log.Error().Err(err).Msg("Auth: Failed to issue verification code")
		h.encoder.StatusInternalError(w)
		return
	}

	h.encoder.StatusResponse(ctx, w, nil, http.StatusAccepted)
}

func (h authHandler) verifyCode(w http.ResponseWriter, r *http.Request) {
	var (
		ctx  = r.Context()
		data verifyCodeRequest
	)

	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		h.log.Warn().Err(err).Msg("Auth: Failed to decode verify-code body")
		h.encoder.StatusResponse(ctx, w, nil, http.StatusBadRequest)
		return
	}

	authenticatedUser, err := h.service.VerifyCode(ctx, data.Phone, data.Code)
	if err != nil {
		h.log.Warn().Err(err).Msgf("Auth: Failed verification attempt ip: %s", ReadUserIP(r))

		switch {
		case errors.Is(err, auth.ErrInvalidPhone):
			h.encoder.StatusResponse(ctx, w, errorResponse{Message: "invalid phone number format"}, http.StatusBadRequest)
		case errors.Is(err, auth.ErrCodeNotFound):
			h.encoder.StatusResponse(ctx, w, errorResponse{Message: "no verification code requested"}, http.StatusUnauthorized)
		case errors.Is(err, auth.ErrCodeExpired):
			h.encoder.StatusResponse(ctx, w, errorResponse{Message: "verification code expired"}, http.StatusUnauthorized)
		case errors.Is(err, auth.ErrInvalidCode):
			h.encoder.StatusResponse(ctx, w, errorResponse{Message: "invalid verification code"}, http.StatusUnauthorized)
		case errors.Is(err, auth.ErrTooManyAttempts):
			h.encoder.StatusResponse(ctx, w, errorResponse{Message: "too many attempts"}, http.StatusTooManyRequests)
		default:
			h.encoder.StatusInternalError(w)
		}
		return
	}

	h.cookieStore.Options.HttpOnly = true
	h.cookieStore.Options.SameSite = http.SameSiteLaxMode
	h.cookieStore.Options.Path = h.config.Server.BaseURL

	fwdProto := r.Header.Get("X-Forwarded-Proto")
	if fwdProto == "https" {
		h.cookieStore.Options.Secure = true
		h.cookieStore.Options.SameSite = http.SameSiteStrictMode
	}

	session, _ := h.cookieStore.Get(r, sessionName)
	session.Values["authenticated"] = true
	session.Values["user_id"] = authenticatedUser.ID
	if err := session.Save(r, w); err != nil {
		h.log.Error().Err(err).Msg("Auth: Failed to save session")
		h.encoder.StatusInternalError(w)
		return
	}

	h.encoder.StatusResponse(ctx, w, verifyCodeResponse{User: sanitizeUser(authenticatedUser)}, http.StatusOK)
}

func (h authHandler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, _ := h.cookieStore.Get(r, sessionName)

	session.Values["authenticated"] = false
	delete(session.Values, "user_id")
	session.Save(r, w)

	h.encoder.StatusResponse(ctx, w, nil, http.StatusNoContent)
}

func (h authHandler) validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, _ := h.cookieStore.Get(r, sessionName)

	if auth, ok := session.Values["authenticated"].(bool); !ok || !auth {
		http.Error(w, "Forbidden", http.StatusUnauthorized)
		return
	}

	h.encoder.StatusResponse(ctx, w, nil, http.StatusNoContent)
}

func ReadUserIP(r *http.Request) string {
	IPAddress := r.Header.Get("X-Real-Ip")
	if IPAddress == "" {
		IPAddress = r.Header.Get("X-Forwarded-For")
	}
	if IPAddress == "" {
		IPAddress = r.RemoteAddr
	}
	return IPAddress
}

// sanitizeUser strips server-only fields before a user leaves over HTTP.
func sanitizeUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clean := *u
	clean.APITokenHash = ""
	return &clean
}
