package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	pkgAuth "github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// ReadBearer seeds the request context with the caller's bearer token and, when the
// token decodes, its user id and role. Requests without a token pass through.
func ReadBearer(cfg config.AuthConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := pkgAuth.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r, cfg, token, logg)))
		})
	}
}

// RequireBearer rejects requests without a bearer token before any handler work runs.
// The token itself is validated by the backend; claims are decoded best-effort.
func RequireBearer(cfg config.AuthConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := pkgAuth.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r, cfg, token, logg)))
		})
	}
}

func withClaims(r *http.Request, cfg config.AuthConfig, token string, logg *logger.Logger) context.Context {
	ctx := WithToken(r.Context(), token)

	claims, err := pkgAuth.ParseClaims(cfg, token)
	if err != nil {
		if logg != nil {
			logg.Debug(logg.WithField(ctx, "reason", err.Error()), "auth.claims_unreadable")
		}
		return ctx
	}

	ctx = WithUserID(ctx, claims.Identity())
	ctx = WithRole(ctx, claims.Role)
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"user_id":    claims.Identity(),
			"actor_role": claims.Role,
		})
	}
	return ctx
}
