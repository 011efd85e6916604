package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsIsolatedRegistries(t *testing.T) {
	// Two collectors in one process must not collide on registration.
	a := NewMetrics()
	b := NewMetrics()

	a.IncInterceptions()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Interceptions))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Interceptions))
}

func TestRecordImport(t *testing.T) {
	m := NewMetrics()

	m.RecordImport(OutcomeCompleted, time.Second)
	m.RecordImport(OutcomeCancelled, 0)
	m.RecordImport(OutcomeCompleted, 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Imports.WithLabelValues(OutcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Imports.WithLabelValues(OutcomeCancelled)))
	// Only completed and failed imports feed the latency histogram.
	assert.Equal(t, 1, testutil.CollectAndCount(m.ImportDuration))
}

func TestPanelGauges(t *testing.T) {
	m := NewMetrics()

	m.SetPanelActive(true)
	m.IncPanelsCreated()
	m.IncPanelReveals()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PanelsActive))

	m.SetPanelActive(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PanelsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PanelsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PanelReveals))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordProxyRequest("GET", "200", time.Millisecond)
		m.RecordHeaderStripped("X-Frame-Options")
		m.IncInterceptions()
		m.RecordImport(OutcomeFailed, time.Second)
		m.SetPanelActive(true)
		m.IncPanelsCreated()
		m.IncPanelReveals()
	})
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "204")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordHeaderStripped("X-Frame-Options")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `bridge_proxy_headers_stripped_total{header="X-Frame-Options"} 1`)
	assert.Contains(t, w.Body.String(), "bridge_uptime_seconds")
}
