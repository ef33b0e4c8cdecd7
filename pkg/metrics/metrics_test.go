package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counts(t *testing.T) {
	c := NewCollector()

	c.ObserveRemote("list", StatusOK)
	c.ObserveRemote("list", StatusOK)
	c.ObserveRemote("update", StatusRejected)
	c.RemoteFallback()
	c.ImageFallback()
	c.ImageFallback()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.RemoteOperations.WithLabelValues("list", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RemoteOperations.WithLabelValues("update", StatusRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RemoteFallbacks))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.ImageUploadFallbacks))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveRemote("list", StatusError)
		c.RemoteFallback()
		c.ImageFallback()
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.RemoteFallback()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "wayfarer_remote_fallbacks_total 1"))
}
