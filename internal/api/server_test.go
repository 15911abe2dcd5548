package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"stockwatch/internal/api/health"
	"stockwatch/internal/metrics"
)

func TestServer_Routes(t *testing.T) {
	metrics.Init()
	h := health.New("stockwatch", "test").AddCheck("postgres", func(context.Context) error { return nil })
	srv := NewServer(ServerConfig{ServiceName: "stockwatch", Version: "test"}, h)

	tests := []struct {
		path string
		code int
	}{
		{"/live", http.StatusOK},
		{"/ready", http.StatusOK},
		{"/health", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/", http.StatusOK},
		{"/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}
