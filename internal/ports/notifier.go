package ports

import (
	"time"

	"github.com/xoelrdgz/trafficradar/internal/domain"
)

// Notifier receives user-facing notifications about action outcomes.
//
// Implementations:
//   - output.MemoryNotifier: bounded ring buffer for the TUI and HTTP feed
//   - output.JSONNotifier: JSON lines to a file or stdout
//   - output.PrometheusMetrics: per level/action counters
//   - output.NotifierGroup: fan-out to several notifiers
//
// Thread Safety: OnNotification may be called from the poller loop and from
// any goroutine running an action at the same time.
type Notifier interface {
	// OnNotification is called synchronously. Implementations should return
	// quickly and must not retain n for mutation.
	OnNotification(n *domain.Notification)
}

// PollObserver records the outcome and duration of every poll cycle.
// Result is one of "success", "failure" or "stale".
type PollObserver interface {
	ObservePoll(result string, d time.Duration)
}
