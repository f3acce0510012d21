package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/pkg/logger"
)

const (
	visitorCookie = "sf_visitor"
	visitorHeader = "X-Visitor-Id"
)

// Visitor resolves the caller's private storage namespace. The id is read from the
// sf_visitor cookie or the X-Visitor-Id header; a fresh one is issued otherwise.
func Visitor(ttl time.Duration, secureCookie bool, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			visitorID, ok := visitorFromRequest(r)
			if !ok {
				visitorID = uuid.NewString()
			}
			// refresh the cookie on every visit so the expiry slides with activity
			cookie := &http.Cookie{
				Name:     visitorCookie,
				Value:    visitorID,
				Path:     "/",
				HttpOnly: true,
				Secure:   secureCookie,
				SameSite: http.SameSiteLaxMode,
			}
			if ttl > 0 {
				cookie.MaxAge = int(ttl / time.Second)
			}
			http.SetCookie(w, cookie)
			w.Header().Set(visitorHeader, visitorID)

			ctx := WithVisitorID(r.Context(), visitorID)
			if logg != nil {
				ctx = logg.WithVisitorID(ctx, visitorID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func visitorFromRequest(r *http.Request) (string, bool) {
	if c, err := r.Cookie(visitorCookie); err == nil {
		if id, ok := parseVisitorID(c.Value); ok {
			return id, true
		}
	}
	return parseVisitorID(r.Header.Get(visitorHeader))
}

func parseVisitorID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
