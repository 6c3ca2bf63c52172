package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/ouf-ai/ouf-gateway/internal/auth"
	"github.com/ouf-ai/ouf-gateway/internal/domain"
)

type contextKey string

const admissionContextKey contextKey = "admission"

// Admission runs the auth decision engine and attaches the decision to the
// request context. Routes mounted without this middleware are public.
func Admission(engine *auth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds := auth.Credentials{
				Secret:    r.Header.Get("x-api-key"),
				ContextID: r.Header.Get("x-context-id"),
				Wallet:    r.Header.Get("x-wallet-address"),
			}

			decision, err := engine.Decide(r.Context(), creds)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					http.Error(w, `{"code":401,"message":"`+reason(err)+`"}`, http.StatusUnauthorized)
					return
				}
				http.Error(w, `{"code":500,"message":"internal server error"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), admissionContextKey, decision)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// reason extracts the human-readable part of an admission error. Secrets are
// never part of these messages.
func reason(err error) string {
	msg := err.Error()
	const prefix = "unauthorized: "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return "unauthorized"
}

// DecisionFromContext retrieves the admission decision from the request
// context. The zero Decision (deny) is returned for requests that never went
// through the middleware.
func DecisionFromContext(ctx context.Context) auth.Decision {
	decision, _ := ctx.Value(admissionContextKey).(auth.Decision)
	return decision
}

// IdentityFromContext returns the resolved API key, or nil for master and
// unadmitted requests.
func IdentityFromContext(ctx context.Context) *domain.APIKey {
	return DecisionFromContext(ctx).Key
}
