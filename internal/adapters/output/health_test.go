package output

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xoelrdgz/trafficradar/internal/domain"
)

type fakeSource struct {
	mu      sync.Mutex
	snap    domain.Snapshot
	running bool
}

func (f *fakeSource) Snapshot() domain.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSource) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func newChecker(src StateSource, now time.Time) *HealthChecker {
	h := NewHealthChecker(src, HealthCheckerConfig{StaleAfter: 6 * time.Second})
	h.now = func() time.Time { return now }
	return h
}

func TestHealthStates(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		src     *fakeSource
		status  string
		healthy bool
	}{
		{"stopped", &fakeSource{}, HealthOffline, false},
		{"never succeeded", &fakeSource{running: true}, HealthOffline, false},
		{"fresh", &fakeSource{running: true, snap: domain.Snapshot{LastSuccess: now.Add(-time.Second)}}, HealthHealthy, true},
		{"stale", &fakeSource{running: true, snap: domain.Snapshot{
			LastSuccess: now.Add(-10 * time.Second),
			LastError:   "GET x: connection refused",
		}}, HealthStale, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status := newChecker(tc.src, now).Check()
			assert.Equal(t, tc.status, status.Status)
			assert.Equal(t, tc.healthy, status.Healthy)
		})
	}
}

func TestHealthStaleReasonIncludesError(t *testing.T) {
	now := time.Now()
	src := &fakeSource{running: true, snap: domain.Snapshot{}.WithFailure(errors.New("boom"), now)}
	src.snap.LastSuccess = now.Add(-time.Minute)

	status := newChecker(src, now).Check()
	assert.Equal(t, HealthStale, status.Status)
	assert.Contains(t, status.Reason, "boom")
}

func TestHealthCachesResult(t *testing.T) {
	now := time.Now()
	src := &fakeSource{running: true, snap: domain.Snapshot{LastSuccess: now}}
	h := NewHealthChecker(src, HealthCheckerConfig{StaleAfter: time.Second, CheckInterval: time.Hour})
	h.now = func() time.Time { return now }

	assert.Equal(t, HealthHealthy, h.Check().Status)

	src.mu.Lock()
	src.running = false
	src.mu.Unlock()

	assert.Equal(t, HealthHealthy, h.Check().Status)
}

func TestHealthServeHTTP(t *testing.T) {
	now := time.Now()
	src := &fakeSource{running: true, snap: domain.Snapshot{LastSuccess: now, Generation: 7}}
	h := newChecker(src, now)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "HEALTHY", body["status"])
	assert.Equal(t, float64(7), body["generation"])

	offline := newChecker(&fakeSource{}, now)
	rec = httptest.NewRecorder()
	offline.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDefaultHealthCheckerConfig(t *testing.T) {
	assert.Equal(t, 6*time.Second, DefaultHealthCheckerConfig(2*time.Second).StaleAfter)
	assert.Equal(t, 6*time.Second, DefaultHealthCheckerConfig(0).StaleAfter)
}
