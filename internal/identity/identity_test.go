package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestKeyringValid(t *testing.T) {
	kr := NewKeyring([]string{"alpha", " beta ", ""})

	tests := []struct {
		key  string
		want bool
	}{
		{"alpha", true},
		{"beta", true},
		{"", false},
		{"gamma", false},
		{"alph", false},
	}
	for _, tt := range tests {
		if got := kr.Valid(tt.key); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	kr := NewKeyring([]string{"secret"})
	var caller string
	h := Middleware(kr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller = CallerFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/poll", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/chat/poll", nil)
	req.Header.Set(HeaderName, "secret")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with header key, got %d", w.Code)
	}
	if caller != Fingerprint("secret") {
		t.Errorf("unexpected caller %q", caller)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/ws/chat/u?api_key=secret", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected query key to be accepted, got %d", w.Code)
	}
}

func TestIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := IPFromRequest(req); got != "10.0.0.1" {
		t.Errorf("unexpected ip %q", got)
	}
	req.RemoteAddr = "bare"
	if got := IPFromRequest(req); got != "bare" {
		t.Errorf("unexpected ip %q", got)
	}
}
