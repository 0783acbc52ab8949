package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mddb/internal/logger"
)

// publicPaths skip authentication: health checks and metric scrapers carry no key.
var publicPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware checks "Authorization: Bearer <key>" against apiKeys.
// Empty keys are ignored; with no keys left the middleware is a pass-through.
// The index of the matched key is added to the request logger as api_key.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := publicPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized,
					"authorization header must be \"Bearer <api key>\"")
				return
			}

			idx := matchKey(keys, token)
			if idx < 0 {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
				return
			}

			ctx := logger.WithFields(r.Context(), zap.Int("api_key", idx))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// matchKey compares against every key in constant time. Returns -1 when none match.
func matchKey(keys [][]byte, token string) int {
	found := -1
	t := []byte(token)
	for i, k := range keys {
		if subtle.ConstantTimeCompare(k, t) == 1 && found < 0 {
			found = i
		}
	}
	return found
}
