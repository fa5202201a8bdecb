package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(m *Monitor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/broken", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	router.GET("/health", m.HealthHandler())
	router.GET("/ready", m.ReadinessHandler())
	router.GET("/live", m.LivenessHandler())
	router.GET("/metrics", m.MetricsHandler())
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMiddleware_CountsRequests(t *testing.T) {
	m := NewMonitor()
	router := newRouter(m)

	get(router, "/ok")
	get(router, "/ok")
	get(router, "/missing")
	get(router, "/broken")

	snapshot := m.Snapshot()
	assert.Equal(t, int64(4), snapshot.RequestCount)
	assert.Equal(t, int64(0), snapshot.ActiveRequests)
	assert.Equal(t, int64(2), snapshot.ErrorCount)
	assert.Equal(t, int64(1), snapshot.ServerErrors)
	assert.Equal(t, int64(2), snapshot.StatusCodes[http.StatusOK])
	assert.Equal(t, int64(2), snapshot.Endpoints["GET /ok"])
	assert.False(t, snapshot.LastRequest.IsZero())
}

func TestSnapshot_IsACopy(t *testing.T) {
	m := NewMonitor()
	router := newRouter(m)
	get(router, "/ok")

	snapshot := m.Snapshot()
	snapshot.Endpoints["GET /ok"] = 100

	assert.Equal(t, int64(1), m.Snapshot().Endpoints["GET /ok"])
}

func TestHealthHandler(t *testing.T) {
	m := NewMonitor()
	m.RegisterHealthCheck("database", func(context.Context) error { return nil })
	router := newRouter(m)

	w := get(router, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string        `json:"status"`
		Checks []HealthCheck `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	require.Len(t, body.Checks, 1)
	assert.Equal(t, "database", body.Checks[0].Name)

	m.RegisterHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") })

	w = get(router, "/health")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	require.Len(t, body.Checks, 2)
	assert.Equal(t, "redis", body.Checks[1].Name)
	assert.Equal(t, "unhealthy", body.Checks[1].Status)
	assert.Equal(t, "connection refused", body.Checks[1].Message)
}

func TestHealthChecksRunOnEveryRequest(t *testing.T) {
	m := NewMonitor()
	healthy := true
	m.RegisterHealthCheck("database", func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("down")
	})
	router := newRouter(m)

	assert.Equal(t, http.StatusOK, get(router, "/ready").Code)
	healthy = false
	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/ready").Code)
}

func TestLivenessHandler(t *testing.T) {
	m := NewMonitor()
	m.RegisterHealthCheck("database", func(context.Context) error { return errors.New("down") })

	w := get(newRouter(m), "/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"alive"`)
}

func TestMetricsHandler_IncludesComponents(t *testing.T) {
	m := NewMonitor()
	m.RegisterStats("board_list_cache", func() interface{} {
		return map[string]int{"hits": 3}
	})
	router := newRouter(m)
	get(router, "/ok")

	w := get(router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Application Metrics                   `json:"application"`
		System      SystemMetrics             `json:"system"`
		Components  map[string]map[string]int `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Application.RequestCount)
	assert.NotEmpty(t, body.System.GoVersion)
	assert.Equal(t, 3, body.Components["board_list_cache"]["hits"])
}
