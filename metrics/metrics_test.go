package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorRecords(t *testing.T) {
	c := NewCollector("treepilot")

	c.ObserveLayout("bidirectional", 9, 2*time.Millisecond)
	c.CacheHit()
	c.CacheMiss()
	c.CacheMiss()
	c.CacheFailure()
	c.ProviderRequest("tree", nil)
	c.ProviderRequest("tree", errors.New("boom"))
	c.ViewOpened()
	c.ObserveHTTP("GET", "/health", 200, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.LayoutPasses.WithLabelValues("bidirectional")))
	assert.Equal(t, 9.0, testutil.ToFloat64(c.LayoutNodes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.CacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ProviderRequests.WithLabelValues("tree", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ActiveViews))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/health", "200")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "treepilot_detail_cache_hits_total 1"))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveLayout("single", 1, time.Millisecond)
		c.CacheHit()
		c.CacheMiss()
		c.CacheFailure()
		c.ProviderRequest("detail", nil)
		c.ViewOpened()
		c.ViewClosed()
		c.ObserveHTTP("GET", "/", 200, 0)
	})
	assert.Nil(t, c.Registry())

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
