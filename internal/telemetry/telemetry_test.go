package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetrics_RecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics("test", reg)

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for _, path := range []string{"/items/1", "/items/2", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/items/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "unmatched", "404")))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}

func TestBusiness_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := NewBusiness("test", reg)

	b.CartOperation("add", nil)
	b.CartOperation("add", errors.New("boom"))
	b.OrderPlaced(true, "USD", 1999)
	b.OrderRolledBack()
	b.Checkout("", "failed")

	assert.Equal(t, 1.0, testutil.ToFloat64(b.cartOperations.WithLabelValues("add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.cartOperations.WithLabelValues("add", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.ordersPlaced.WithLabelValues("guest")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.ordersRolledBack))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.checkouts.WithLabelValues("none", "failed")))
}

func TestBusiness_NilIsNoop(t *testing.T) {
	var b *Business
	assert.NotPanics(t, func() {
		b.CartOperation("add", nil)
		b.OrderPlaced(false, "USD", 1)
		b.OrderRolledBack()
		b.Checkout("bacs", "paid")
		b.MailSent(nil)
		b.EventPublished("x", nil)
	})
}
