package output

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xoelrdgz/trafficradar/internal/domain"
)

func TestMetricsObservePoll(t *testing.T) {
	m := NewPrometheusMetrics("", nil)

	m.ObservePoll("success", 20*time.Millisecond)
	m.ObservePoll("success", 30*time.Millisecond)
	m.ObservePoll("failure", time.Millisecond)
	m.ObservePoll("stale", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.pollCycles.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pollCycles.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pollCycles.WithLabelValues("stale")))

	count, err := testutil.GatherAndCount(m.Registry(), "trafficradar_poll_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetricsOnSnapshot(t *testing.T) {
	m := NewPrometheusMetrics("trafficradar", nil)

	m.OnSnapshot(domain.Snapshot{
		Counts:   domain.NewPacketCounts(domain.IPCount{IP: "a", Count: 3}, domain.IPCount{IP: "b", Count: 7}),
		Blocked:  domain.NewBlockedIPs("b"),
		Total:    10,
		History:  []domain.HistoryPoint{{Count: 1}, {Count: 10}},
		Sniffing: true,
	})

	assert.Equal(t, 10.0, testutil.ToFloat64(m.totalPackets))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.blockedIPs))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.trackedIPs))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.historyPoints))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sniffing))
}

func TestMetricsOnNotification(t *testing.T) {
	m := NewPrometheusMetrics("", nil)

	m.OnNotification(domain.NewNotification(domain.NotificationSuccess, domain.ActionStartSniffing, "", "Packet sniffing started"))
	m.OnNotification(domain.NewNotification(domain.NotificationError, domain.ActionUnblock, "1.2.3.4", "Failed to unblock IP: 1.2.3.4"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("SUCCESS", "start_sniffing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("ERROR", "unblock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sniffing))
}

func TestMetricsBreakerState(t *testing.T) {
	m := NewPrometheusMetrics("", nil)

	m.SetBreakerState("detection-service", "open")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.breakerState.WithLabelValues("detection-service")))

	m.SetBreakerState("detection-service", "closed")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.breakerState.WithLabelValues("detection-service")))
}

func TestMetricsSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPrometheusMetrics("", nil)
		NewPrometheusMetrics("", nil)
	})
}
