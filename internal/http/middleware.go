package http

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/wesavefood/wesavefood/internal/domain"
	userService "github.com/wesavefood/wesavefood/internal/user"
	pkgErrors "github.com/wesavefood/wesavefood/pkg/errors"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// UserContextKey is the key for storing the authenticated user in the context.
const UserContextKey ContextKey = "user"

// IsAuthenticated checks if a user is authenticated via session cookie.
func (s *Server) IsAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, _ := s.cookieStore.Get(r, sessionName)

		if auth, ok := session.Values["authenticated"].(bool); !ok || !auth {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AuthenticateAPIToken expects a Bearer token in the Authorization header
// and validates it against the stored token hashes. Requests carrying a
// valid session cookie pass without a token.
func (s *Server) AuthenticateAPIToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := s.log.With().Str("middleware", "AuthenticateAPIToken").Logger()

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			// fall back to session auth for browser clients
			session, _ := s.cookieStore.Get(r, sessionName)
			if auth, ok := session.Values["authenticated"].(bool); ok && auth {
				if userID, ok := session.Values["user_id"].(string); ok && userID != "" {
					u, err := s.userService.FindByID(r.Context(), userID)
					if err == nil && u != nil {
						next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, u)))
						return
					}
				}
			}

			logger.Debug().Msg("Authorization header missing, denying access")
			http.Error(w, "Unauthorized: Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			logger.Debug().Msg("Authorization header format must be Bearer {token}")
			http.Error(w, "Unauthorized: Invalid Authorization header format", http.StatusUnauthorized)
			return
		}
		plainToken := parts[1]

		authenticatedUser, err := s.userService.AuthenticateByToken(r.Context(), plainToken)
		if err != nil {
			logger.Warn().Err(err).Msg("API token authentication failed")

			if pkgErrors.Is(err, userService.ErrAuthenticationFailed) {
				http.Error(w, "Unauthorized: Invalid API token", http.StatusUnauthorized)
			} else {
				http.Error(w, "Internal Server Error during authentication", http.StatusInternalServerError)
			}
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, authenticatedUser)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userFromContext returns the authenticated user put there by the auth
// middleware, or nil.
func userFromContext(ctx context.Context) *domain.User {
	if u, ok := ctx.Value(UserContextKey).(*domain.User); ok {
		return u
	}
	return nil
}

// LoggerMiddleware provides structured logging and panic recovery for
// HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			reqLogger := logger.With().Logger()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				reqID := middleware.GetReqID(r.Context())

				if rec := recover(); rec != nil {
					reqLogger.Error().
						Str("type", "error").
						Timestamp().
						Interface("recover_info", rec).
						Bytes("debug_stack", debug.Stack()).
						Str("request_id", reqID).
						Msg("Unhandled panic recovered by middleware")
					http.Error(ww, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
