package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := CORSMiddleware("http://localhost:5173, https://app.mindtussle.dev")(next)

	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantAllow  string
	}{
		{name: "no origin", method: http.MethodGet, wantStatus: http.StatusTeapot},
		{name: "allowed origin", method: http.MethodGet, origin: "http://localhost:5173", wantStatus: http.StatusTeapot, wantAllow: "http://localhost:5173"},
		{name: "extension origin", method: http.MethodGet, origin: "chrome-extension://abcdef", wantStatus: http.StatusTeapot, wantAllow: "chrome-extension://abcdef"},
		{name: "unknown origin passes without headers", method: http.MethodGet, origin: "https://evil.example", wantStatus: http.StatusTeapot},
		{name: "unknown origin preflight", method: http.MethodOptions, origin: "https://evil.example", preflight: true, wantStatus: http.StatusForbidden},
		{name: "allowed preflight", method: http.MethodOptions, origin: "https://app.mindtussle.dev", preflight: true, wantStatus: http.StatusNoContent, wantAllow: "https://app.mindtussle.dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/mission-status", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSAllowAll(t *testing.T) {
	h := CORSMiddleware("*")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://anything.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://anything.test", rec.Header().Get("Access-Control-Allow-Origin"))
}
