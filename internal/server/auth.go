package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/me/actorrun/internal/workbench"
	"github.com/me/actorrun/pkg/model"
)

const ctxKeyToken ctxKey = "apify_token"

// TokenFromContext returns the Apify token of an authenticated API request.
func TokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(ctxKeyToken).(string)
	return tok
}

// apiAuthMiddleware requires an Apify token on the request. The token is
// checked by the platform on first use, not here.
func apiAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			respondError(w, RequestIDFromContext(r.Context()), http.StatusUnauthorized,
				model.NewUnauthorizedError(workbench.MsgNotAuth))
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyToken, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken reads the token from the x-apify-key header or from an
// Authorization bearer header. Returns "" if neither is present.
func extractToken(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-Apify-Key")); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return ""
}
