package httputil

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tillsup/tillsup-backend/pkg/actor"
	"github.com/tillsup/tillsup-backend/pkg/errors"
	"github.com/tillsup/tillsup-backend/pkg/logger"
)

type contextKey string

const (
	RequestIDKey     contextKey = "request_id"
	ViewingBranchKey contextKey = "viewing_branch"
)

// ViewingBranchHeader carries an Owner's per-request branch selection.
// It is explicit request state, never a process-wide global.
const ViewingBranchHeader = "X-Viewing-Branch"

// RequestID middleware adds a request ID to each request
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger middleware logs HTTP requests
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			requestID := GetRequestID(r.Context())
			actorID := ""
			if ac := actor.FromContext(r.Context()); ac != nil {
				actorID = ac.ID
			}

			log.Info().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", duration).
				Str("actor_id", actorID).
				Str("remote_addr", r.RemoteAddr).
				Msg("HTTP request")
		})
	}
}

// Recoverer middleware recovers from panics
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().
						Interface("panic", err).
						Str("path", r.URL.Path).
						Msg("panic recovered")

					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetViewingBranch retrieves an Owner's viewing-branch selection from context
func GetViewingBranch(ctx context.Context) string {
	if id, ok := ctx.Value(ViewingBranchKey).(string); ok {
		return id
	}
	return ""
}

// ResolveFunc resolves a bearer token into an actor context.
// Resolution happens exactly once per request here; everything downstream
// reads the result from the context instead of re-querying the profile table.
type ResolveFunc func(ctx context.Context, token string) (*actor.Context, error)

// Authenticator middleware resolves the Authorization bearer token and
// attaches the actor context to the request. Requests without a valid
// token are rejected before reaching any handler.
func Authenticator(resolve ResolveFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				Error(w, errors.Authentication("missing bearer token"))
				return
			}

			ac, err := resolve(r.Context(), token)
			if err != nil {
				Error(w, err)
				return
			}

			ctx := actor.WithActor(r.Context(), ac)

			// Owner's explicit branch selection for this request, if any
			if vb := r.Header.Get(ViewingBranchHeader); vb != "" {
				ctx = context.WithValue(ctx, ViewingBranchKey, vb)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PasswordChangeGate blocks actors that still hold a provisional password.
// Mount it behind the Authenticator on every route except the auth surface
// itself, so a flagged actor can still log in, inspect itself and change
// the password.
func PasswordChangeGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ac := actor.FromContext(r.Context()); ac != nil && ac.MustChangePassword {
			Error(w, errors.PasswordChangeRequired())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
