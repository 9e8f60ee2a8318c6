package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/ptr"

	"github.com/walpredict/stock-optimizer/pkg/config"
	"github.com/walpredict/stock-optimizer/pkg/manager"
	"github.com/walpredict/stock-optimizer/pkg/rest"
)

var fastBackoff = &wait.Backoff{Duration: time.Millisecond, Factor: 1, Steps: 5}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := rest.NewStateLessServer(manager.NewManager(nil, nil), nil, rest.ServerOptions{})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_Optimize(t *testing.T) {
	ts := newTestServer(t)
	c := NewClient(ts.URL+"/", Options{Backoff: fastBackoff})
	assert.Equal(t, ts.URL, c.BaseURL())

	alloc, err := c.Optimize(context.Background(), map[string]float64{"North": 50, "South": 30, "East": 20}, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"North": 50, "South": 30, "East": 20}, alloc)

	_, err = c.Optimize(context.Background(), map[string]float64{"A": -1}, 10, nil)
	require.Error(t, err)
	assert.True(t, IsBadRequest(err))
	assert.Contains(t, err.Error(), "non-negative")
}

func TestClient_OptimizeBatch(t *testing.T) {
	c := NewClient(newTestServer(t).URL, Options{Backoff: fastBackoff})

	items, err := c.OptimizeBatch(context.Background(), []config.AllocationRequest{
		{Predictions: map[string]float64{"R": 5}, TotalStock: ptr.To(10.0)},
		{Predictions: map[string]float64{"A": 1}},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, map[string]int{"R": 10}, items[0].Allocation)
	assert.NotEmpty(t, items[1].Error)
}

func TestClient_GetOptimizer(t *testing.T) {
	c := NewClient(newTestServer(t).URL, Options{Backoff: fastBackoff})

	spec, err := c.GetOptimizer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, config.StrategyAuto, spec.Strategy)
}

func TestClient_RetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(config.AllocationResponse{Allocation: map[string]int{"R": 1}})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, Options{Backoff: fastBackoff})
	alloc, err := c.Optimize(context.Background(), map[string]float64{"R": 1}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"R": 1}, alloc)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_GivesUp(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, Options{Backoff: fastBackoff})
	_, err := c.Optimize(context.Background(), map[string]float64{"R": 1}, 1, nil)
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Greater(t, calls.Load(), int32(1))
}

func TestClient_NoRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "milp solver failed: status=Numerical"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, Options{Backoff: fastBackoff})
	_, err := c.Optimize(context.Background(), map[string]float64{"R": 1}, 1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=Numerical")
	assert.False(t, IsBadRequest(err))
	assert.EqualValues(t, 1, calls.Load())
}

func TestNewClientFromEnv(t *testing.T) {
	t.Setenv(OptimizerURLEnvName, "")
	t.Setenv(rest.RestHostEnvName, "optimizer.local")
	t.Setenv(rest.RestPortEnvName, "8080")
	assert.Equal(t, "http://optimizer.local:8080", NewClientFromEnv(Options{}).BaseURL())

	t.Setenv(OptimizerURLEnvName, "https://stock.example.com/")
	assert.Equal(t, "https://stock.example.com", NewClientFromEnv(Options{}).BaseURL())
}
