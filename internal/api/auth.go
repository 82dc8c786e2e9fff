package api

import (
	"crypto/subtle"
	"net/http"
	"slices"

	"github.com/FocuswithJustin/Linegra/internal/logging"
)

// APIKeyHeader carries the API key.
const APIKeyHeader = "X-API-Key"

var publicPaths = []string{"/", "/health"}

// AuthMiddleware requires apiKey in the X-API-Key header when apiKey is
// set. Browsers cannot set headers on WebSocket upgrades, so /ws also
// accepts it as the api_key query parameter. The root and health
// endpoints are always public.
func AuthMiddleware(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiKey == "" || slices.Contains(publicPaths, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		given := r.Header.Get(APIKeyHeader)
		if given == "" && r.URL.Path == "/ws" {
			given = r.URL.Query().Get("api_key")
		}
		if given == "" {
			logging.WarnContext(r.Context(), "unauthorized request", "path", r.URL.Path, "reason", "missing API key")
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing X-API-Key header")
			return
		}
		if subtle.ConstantTimeCompare([]byte(given), []byte(apiKey)) != 1 {
			logging.WarnContext(r.Context(), "unauthorized request", "path", r.URL.Path, "reason", "invalid API key")
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
