package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/todos/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, p := range []string{"/todos/1", "/todos/2", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/todos/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestObservers(t *testing.T) {
	m := New()
	m.ObserveStore("mutate", time.Millisecond, nil)
	m.ObserveStore("mutate", time.Millisecond, errors.New("x"))
	m.EventRecorded()
	m.EventDropped()
	m.EventDropped()
	m.SinkFailed("redis")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOps.WithLabelValues("mutate", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOps.WithLabelValues("mutate", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.activityEvents.WithLabelValues("dropped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sinkFailures.WithLabelValues("redis")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.EventRecorded()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "todos_activity_events_total"))
}
