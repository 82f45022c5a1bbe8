// Package identity authenticates sandbox callers by API key.
package identity

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

const (
	// HeaderName carries the key on unary requests.
	HeaderName = "x-api-key"
	// QueryParam carries the key on WebSocket upgrades.
	QueryParam = "api_key"
)

type contextKey int

const (
	callerKey contextKey = iota
)

// Keyring holds the accepted API keys.
type Keyring struct {
	keys [][]byte
}

// NewKeyring creates a keyring. Blank keys are ignored.
func NewKeyring(keys []string) *Keyring {
	kr := &Keyring{}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			kr.keys = append(kr.keys, []byte(k))
		}
	}
	return kr
}

// Valid reports whether key is accepted. The comparison is constant-time.
func (kr *Keyring) Valid(key string) bool {
	if key == "" {
		return false
	}
	ok := 0
	for _, k := range kr.keys {
		ok |= subtle.ConstantTimeCompare(k, []byte(key))
	}
	return ok == 1
}

// Fingerprint returns a short, log-safe identifier for key.
func Fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:4])
}

// KeyFromRequest returns the key from the header, falling back to the query string.
func KeyFromRequest(r *http.Request) string {
	if key := r.Header.Get(HeaderName); key != "" {
		return key
	}
	return r.URL.Query().Get(QueryParam)
}

// CallerFromContext returns the fingerprint of the authenticated key.
func CallerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(callerKey).(string); ok {
		return v
	}
	return ""
}

// Middleware rejects requests without a valid API key and records the
// caller fingerprint in the request context.
func Middleware(kr *Keyring) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := KeyFromRequest(r)
			if !kr.Valid(key) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid API key"}`))
				return
			}

			ctx := context.WithValue(r.Context(), callerKey, Fingerprint(key))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
