package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordCacheLookup(CacheHit)
		m.RecordCacheWrite(nil)
		m.IncModulesSkipped()
		m.IncPartsConstructed("singleton")
		m.AddStageParts("app-loaded", 2)
		m.RecordDispatch("launch", "handled")
		m.RecordNavigation("committed")
		m.IncWSConnections()
	})
	assert.Nil(t, m.Registry())
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestSeparateRegistries(t *testing.T) {
	// Two collectors must not collide on registration
	a := NewMetrics()
	b := NewMetrics()

	a.RecordCacheLookup(CacheHit)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.CacheLookups.WithLabelValues(CacheHit)))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CacheLookups.WithLabelValues(CacheHit)))
}

func TestSnapshot(t *testing.T) {
	m := NewMetrics()

	m.RecordCacheLookup(CacheHit)
	m.RecordCacheLookup(CacheStale)
	m.RecordCacheLookup(CacheCorrupt)
	m.IncModulesSkipped()
	m.IncPartsConstructed("singleton")
	m.IncPartsConstructed("per-request")
	m.RecordDispatch("file", "handled")
	m.RecordDispatch("launch", "unhandled")
	m.RecordNavigation("committed")
	m.RecordNavigation("vetoed")

	s := m.Snapshot()
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(2), s.CacheMisses)
	assert.Equal(t, int64(1), s.ModulesSkipped)
	assert.Equal(t, int64(2), s.PartsConstructed)
	assert.Equal(t, int64(2), s.Dispatches)
	assert.Equal(t, int64(1), s.Unhandled)
	assert.Equal(t, int64(2), s.Navigations)
	assert.Equal(t, int64(1), s.Vetoed)
	assert.GreaterOrEqual(t, s.UptimeSeconds, 0.0)
}

func TestCacheWriteStatus(t *testing.T) {
	m := NewMetrics()

	m.RecordCacheWrite(nil)
	m.RecordCacheWrite(errors.New("disk full"))
	m.RecordCacheWrite(errors.New("disk full"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheWrites.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheWrites.WithLabelValues("error")))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/api/frames/:guid", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/frames/abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/frames/:guid", "200")))
}
