package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xoelrdgz/trafficradar/internal/domain"
)

var errServiceDown = &domain.TransportError{Op: "GET", URL: "mock", Kind: domain.KindNetwork, Err: errors.New("connection refused")}

type mockService struct {
	mu      sync.Mutex
	counts  domain.PacketCounts
	blocked domain.BlockedIPs

	failCounts  atomic.Bool
	failBlocked atomic.Bool
	failActions atomic.Bool

	// gate, when set, blocks fetches until it is closed or receives.
	gate chan struct{}
	// ignoreCtx keeps a gated fetch blocked even after cancellation.
	ignoreCtx bool

	countCalls   atomic.Int64
	blockedCalls atomic.Int64
	sniffCalls   atomic.Int64
	unblockCalls atomic.Int64
	lastUnblock  atomic.Value
}

func newMockService(counts domain.PacketCounts, blocked domain.BlockedIPs) *mockService {
	return &mockService{counts: counts, blocked: blocked}
}

func (m *mockService) set(counts domain.PacketCounts, blocked domain.BlockedIPs) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts = counts
	m.blocked = blocked
}

func (m *mockService) wait(ctx context.Context) error {
	if m.gate == nil {
		return nil
	}
	if m.ignoreCtx {
		<-m.gate
		return nil
	}
	select {
	case <-m.gate:
		return nil
	case <-ctx.Done():
		return &domain.TransportError{Op: "GET", URL: "mock", Kind: domain.KindNetwork, Err: ctx.Err()}
	}
}

func (m *mockService) FetchPacketCounts(ctx context.Context) (domain.PacketCounts, error) {
	m.countCalls.Add(1)
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.failCounts.Load() {
		return nil, errServiceDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts.Clone(), nil
}

func (m *mockService) FetchBlockedIPs(ctx context.Context) (domain.BlockedIPs, error) {
	m.blockedCalls.Add(1)
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.failBlocked.Load() {
		return nil, errServiceDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blocked.Clone(), nil
}

func (m *mockService) StartSniffing(ctx context.Context) (domain.Ack, error) {
	m.sniffCalls.Add(1)
	if m.failActions.Load() {
		return domain.Ack{}, errServiceDown
	}
	return domain.Ack{Message: "Packet sniffing started."}, nil
}

func (m *mockService) UnblockIP(ctx context.Context, ip string) (domain.Ack, error) {
	m.unblockCalls.Add(1)
	m.lastUnblock.Store(ip)
	if m.failActions.Load() {
		return domain.Ack{}, errServiceDown
	}
	return domain.Ack{Message: "IP " + ip + " unblocked."}, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []*domain.Notification
}

func (r *recordingNotifier) OnNotification(n *domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recordingNotifier) all() []*domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Notification(nil), r.items...)
}

type recordingObserver struct {
	mu    sync.Mutex
	snaps []domain.Snapshot
}

func (r *recordingObserver) OnSnapshot(s domain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recordingObserver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

type recordingPollObserver struct {
	mu      sync.Mutex
	results []string
}

func (r *recordingPollObserver) ObservePoll(result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *recordingPollObserver) count(result string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, res := range r.results {
		if res == result {
			n++
		}
	}
	return n
}
