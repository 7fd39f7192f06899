package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveAuth(keys []string, method, path, authHeader string) *httptest.ResponseRecorder {
	handler := BearerAuthMiddleware(keys)(okHandler())
	req := httptest.NewRequest(method, path, http.NoBody)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		path   string
		header string
		want   int
	}{
		{"no keys disables auth", nil, "/api/v1/taxonomy", "", http.StatusOK},
		{"blank keys disable auth", []string{"", ""}, "/api/v1/taxonomy", "", http.StatusOK},
		{"missing header", []string{"secret"}, "/api/v1/taxonomy", "", http.StatusUnauthorized},
		{"basic scheme", []string{"secret"}, "/api/v1/usage", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"wrong token", []string{"secret"}, "/api/v1/recommendations", "Bearer wrong-key", http.StatusUnauthorized},
		{"valid token", []string{"secret"}, "/api/v1/recommendations", "Bearer secret", http.StatusOK},
		{"second key", []string{"key1", "key2"}, "/api/v1/taxonomy", "Bearer key2", http.StatusOK},
		{"health exempt", []string{"secret"}, "/health", "", http.StatusOK},
		{"metrics exempt", []string{"secret"}, "/metrics", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveAuth(tt.keys, http.MethodGet, tt.path, tt.header)
			if rr.Code != tt.want {
				t.Errorf("got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestAuthMiddleware_ErrorBody(t *testing.T) {
	rr := serveAuth([]string{"secret"}, http.MethodPost, "/api/v1/recommendations", "")

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != ErrorCodeUnauthorized {
		t.Errorf("error code: got %s, want %s", errResp.Code, ErrorCodeUnauthorized)
	}
	if errResp.Message != "missing authorization header" {
		t.Errorf("message: got %q", errResp.Message)
	}
}
