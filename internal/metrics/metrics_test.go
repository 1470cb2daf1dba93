package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suPer8Hu/n8n-chat/internal/relay"
)

func TestObserveRelay(t *testing.T) {
	m := New(nil)

	m.ObserveRelay(context.Background(), relay.Event{Variant: relay.VariantChat, Reason: relay.ReasonOK, Latency: time.Second})
	m.ObserveRelay(context.Background(), relay.Event{Variant: relay.VariantChat, Reason: relay.ReasonTimeout, Latency: 30 * time.Second})
	m.ObserveRelay(context.Background(), relay.Event{Variant: relay.VariantAsk, Reason: relay.ReasonNotConfigured})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayCallsTotal.WithLabelValues("chat", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayCallsTotal.WithLabelValues("chat", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayCallsTotal.WithLabelValues("ask", "not_configured")))
	// unconfigured calls never left the process
	assert.Equal(t, 1, testutil.CollectAndCount(m.RelayCallDuration))
}

func TestGinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(nil)

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/ping", "200")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "n8nchat_http_requests_total")
}
