package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyEndpointGatedManually(t *testing.T) {
	h := New()

	rec := httptest.NewRecorder()
	h.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.SetReady(true)
	rec = httptest.NewRecorder()
	h.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h.SetReady(false)
	rec = httptest.NewRecorder()
	h.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveEndpointHealthyByDefault(t *testing.T) {
	h := New()
	h.AddCheck(Liveness, "noop", time.Second, func(context.Context) error { return nil })

	rec := httptest.NewRecorder()
	h.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFailureThreshold(t *testing.T) {
	c := &check{
		name:      "flaky",
		timeout:   time.Second,
		failAfter: 3,
		okAfter:   1,
		fn: func(context.Context) error {
			return errors.New("down")
		},
	}
	c.healthy.Store(true)

	ctx := context.Background()
	// Two failures keep the check healthy; the third flips it.
	c.run(ctx)
	c.run(ctx)
	assert.True(t, c.healthy.Load())
	c.run(ctx)
	assert.False(t, c.healthy.Load())

	// One success recovers it.
	c.fn = func(context.Context) error { return nil }
	c.run(ctx)
	assert.True(t, c.healthy.Load())
}

func TestReadinessReportsFailedCheck(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddCheck(Readiness, "db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})

	// Drive the check past its failure threshold directly.
	c := h.checks[0]
	for range 3 {
		c.run(context.Background())
	}

	rec := httptest.NewRecorder()
	h.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
