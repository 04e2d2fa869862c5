// Package middleware holds per-IP request limiting for the credential endpoints.
package middleware

import (
	"net/http"
	"serwer-kart/internal/apperrors"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit rejects requests over limit per window with 429.
// Requests are keyed on the connection address; forwarding headers count
// only when trustProxy is set.
func RateLimit(limit int, window time.Duration, trustProxy bool) func(http.Handler) http.Handler {
	keyFunc := httprate.KeyByIP
	if trustProxy {
		keyFunc = httprate.KeyByRealIP
	}
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			apperrors.WriteError(w, r, apperrors.RateLimited())
		}),
	)
}
