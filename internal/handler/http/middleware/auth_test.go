package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestRequireUser(t *testing.T) {
	var seen string
	h := RequireUser("X-User-ID", zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
		wantID string
	}{
		{name: "present", header: "user-1", want: http.StatusNoContent, wantID: "user-1"},
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "blank", header: "   ", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("X-User-ID", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if seen != tt.wantID {
				t.Errorf("user id = %q, want %q", seen, tt.wantID)
			}
		})
	}
}
