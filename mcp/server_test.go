package mcp

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireBearer(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		serverTok  string
		authHeader string
		wantStatus int
	}{
		{"valid token", "secret-token", "Bearer secret-token", http.StatusOK},
		{"missing header", "secret-token", "", http.StatusUnauthorized},
		{"wrong token", "secret-token", "Bearer wrong", http.StatusUnauthorized},
		{"missing Bearer prefix", "secret-token", "secret-token", http.StatusUnauthorized},
		{"basic auth scheme", "secret-token", "Basic c2VjcmV0", http.StatusUnauthorized},
		{"no token configured", "", "", http.StatusOK},
		{"no token configured ignores header", "", "Bearer anything", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestServer(t, &fakeDownloader{}, &fakeBackend{})
			s.authToken = tt.serverTok

			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			s.requireBearer(okHandler).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Error("missing WWW-Authenticate header on 401")
			}
		})
	}
}
