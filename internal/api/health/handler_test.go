package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/workers"
	"stockwatch/pkg/errors"
)

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.ErrUnavailable }

type fixedWorkers map[string]workers.WorkerHealth

func (f fixedWorkers) Health() map[string]workers.WorkerHealth { return f }

func serve(t *testing.T, handler http.HandlerFunc) (int, HealthStatus) {
	t.Helper()

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var body HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestReadiness(t *testing.T) {
	h := New("stockwatch", "test").AddCheck("postgres", ok).AddCheck("redis", ok)
	code, body := serve(t, h.HandleReadiness)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body.Status)
	assert.Len(t, body.Checks, 2)

	h.AddCheck("clickhouse", down)
	code, body = serve(t, h.HandleReadiness)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, errors.ErrUnavailable.Error(), body.Checks["clickhouse"].Error)
}

func TestHealth_DegradedAndWorkers(t *testing.T) {
	h := New("stockwatch", "test").
		AddCheck("postgres", ok).
		AddCheck("clickhouse", down).
		WithWorkers(fixedWorkers{"alert_sweep": {RunCount: 3, Enabled: true}})

	code, body := serve(t, h.HandleHealth)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, int64(3), body.Workers["alert_sweep"].RunCount)

	h = New("stockwatch", "test").AddCheck("postgres", down)
	code, body = serve(t, h.HandleHealth)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
}

func TestLiveness(t *testing.T) {
	rec := httptest.NewRecorder()
	New("stockwatch", "test").HandleLiveness(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}
