package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/prudhvinik1/nurseaide/internal/services"
)

type claimsKey struct{}

// requireCaregiver rejects requests without a valid bearer token and tags
// the request context with the caregiver for auditing.
func requireCaregiver(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := auth.VerifyToken(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			ctx = services.ContextWithCaregiver(ctx, claims.CaregiverID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requireDevice(deviceToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Device-Token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(deviceToken)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid device token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		// EventSource cannot set headers.
		if r.URL.Path != "" && strings.HasSuffix(r.URL.Path, "/stream") {
			if q := r.URL.Query().Get("access_token"); q != "" {
				return q, true
			}
		}
		return "", false
	}
	return token, true
}

func claimsFromContext(ctx context.Context) (*services.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*services.TokenClaims)
	return claims, ok
}
