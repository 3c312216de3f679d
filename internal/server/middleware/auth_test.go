package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthDisabledWhenKeyEmpty(t *testing.T) {
	h := Auth("")(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthTokenChecks(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"no token", nil, http.StatusUnauthorized},
		{"bearer valid", map[string]string{"Authorization": "Bearer sekrit"}, http.StatusOK},
		{"bearer case-insensitive scheme", map[string]string{"Authorization": "bearer sekrit"}, http.StatusOK},
		{"bearer wrong token", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"api key header valid", map[string]string{"X-API-Key": "sekrit"}, http.StatusOK},
		{"api key header wrong", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"basic scheme rejected", map[string]string{"Authorization": "Basic sekrit"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Auth("sekrit")(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAuthUnauthorizedBodyIsJSON(t *testing.T) {
	h := Auth("sekrit")(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
}
