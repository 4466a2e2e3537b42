package output

import (
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/xoelrdgz/trafficradar/internal/domain"
)

const (
	HealthHealthy = "HEALTHY"
	HealthStale   = "STALE"
	HealthOffline = "OFFLINE"
)

// StateSource exposes the poller's current state.
type StateSource interface {
	Snapshot() domain.Snapshot
	IsRunning() bool
}

type HealthStatus struct {
	Healthy     bool          `json:"healthy"`
	Status      string        `json:"status"`
	Age         time.Duration `json:"age_ns"`
	LastSuccess time.Time     `json:"last_success"`
	Generation  uint64        `json:"generation"`
	Uptime      time.Duration `json:"uptime_ns"`
	Reason      string        `json:"reason,omitempty"`
}

// HealthChecker reports how fresh the dashboard data is. Data older than
// StaleAfter is STALE; no data at all, or a stopped poller, is OFFLINE.
type HealthChecker struct {
	source     StateSource
	staleAfter time.Duration
	startTime  time.Time
	now        func() time.Time

	lastCheck     HealthStatus
	lastCheckTime time.Time
	lastCheckMu   sync.RWMutex
	checkInterval time.Duration
}

type HealthCheckerConfig struct {
	StaleAfter    time.Duration
	CheckInterval time.Duration
}

// DefaultHealthCheckerConfig marks data stale after three missed cycles of
// pollInterval.
func DefaultHealthCheckerConfig(pollInterval time.Duration) HealthCheckerConfig {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return HealthCheckerConfig{
		StaleAfter:    3 * pollInterval,
		CheckInterval: time.Second,
	}
}

func NewHealthChecker(source StateSource, config HealthCheckerConfig) *HealthChecker {
	return &HealthChecker{
		source:        source,
		staleAfter:    config.StaleAfter,
		checkInterval: config.CheckInterval,
		startTime:     time.Now(),
		now:           time.Now,
	}
}

func (h *HealthChecker) Check() HealthStatus {
	h.lastCheckMu.RLock()
	if !h.lastCheckTime.IsZero() && h.now().Sub(h.lastCheckTime) < h.checkInterval {
		cached := h.lastCheck
		h.lastCheckMu.RUnlock()
		return cached
	}
	h.lastCheckMu.RUnlock()

	status := h.performCheck()

	h.lastCheckMu.Lock()
	h.lastCheck = status
	h.lastCheckTime = h.now()
	h.lastCheckMu.Unlock()

	return status
}

func (h *HealthChecker) performCheck() HealthStatus {
	now := h.now()
	status := HealthStatus{
		Uptime: now.Sub(h.startTime),
	}
	if h.source == nil || !h.source.IsRunning() {
		status.Status = HealthOffline
		status.Reason = "poller not running"
		return status
	}

	snap := h.source.Snapshot()
	status.Generation = snap.Generation
	status.LastSuccess = snap.LastSuccess

	if snap.LastSuccess.IsZero() {
		status.Status = HealthOffline
		status.Reason = "no successful poll cycle"
		if snap.LastError != "" {
			status.Reason += ": " + snap.LastError
		}
		return status
	}

	status.Age = now.Sub(snap.LastSuccess)
	if h.staleAfter > 0 && status.Age > h.staleAfter {
		status.Status = HealthStale
		status.Reason = "last successful poll " + status.Age.Round(time.Second).String() + " ago"
		if snap.LastError != "" {
			status.Reason += ": " + snap.LastError
		}
		return status
	}

	status.Healthy = true
	status.Status = HealthHealthy
	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check()

	w.Header().Set("Content-Type", "application/json")
	if status.Healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"healthy":        status.Healthy,
		"status":         status.Status,
		"age_seconds":    status.Age.Seconds(),
		"generation":     status.Generation,
		"uptime_seconds": status.Uptime.Seconds(),
		"reason":         status.Reason,
	})
}
