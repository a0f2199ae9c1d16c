package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Auth guards the API behind a single static key, accepted either as
// "Authorization: Bearer <key>" or in the X-API-Key header. An empty key
// disables the check entirely, the default for local setups.
func Auth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		want := []byte(apiKey)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := requestKey(r)
			if got == "" {
				unauthorized(w, "missing API key")
				return
			}
			// Constant-time compare; the key doubles as a shared secret.
			if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				unauthorized(w, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestKey pulls the presented key from the Authorization Bearer scheme
// first, then the X-API-Key header.
func requestKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if scheme, token, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
