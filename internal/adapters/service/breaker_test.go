package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xoelrdgz/trafficradar/internal/domain"
)

type flakyService struct {
	fail  atomic.Bool
	calls atomic.Int32
}

func (f *flakyService) err() error {
	f.calls.Add(1)
	if f.fail.Load() {
		return &domain.TransportError{Op: "GET", URL: "fake", Kind: domain.KindNetwork, Err: errors.New("down")}
	}
	return nil
}

func (f *flakyService) FetchPacketCounts(ctx context.Context) (domain.PacketCounts, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	return domain.NewPacketCounts(domain.IPCount{IP: "a", Count: 1}), nil
}

func (f *flakyService) FetchBlockedIPs(ctx context.Context) (domain.BlockedIPs, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	return domain.NewBlockedIPs("b"), nil
}

func (f *flakyService) StartSniffing(ctx context.Context) (domain.Ack, error) {
	if err := f.err(); err != nil {
		return domain.Ack{}, err
	}
	return domain.Ack{Message: "started"}, nil
}

func (f *flakyService) UnblockIP(ctx context.Context, ip string) (domain.Ack, error) {
	if err := f.err(); err != nil {
		return domain.Ack{}, err
	}
	return domain.Ack{Message: "IP " + ip + " unblocked."}, nil
}

func TestBreakerPassesThrough(t *testing.T) {
	inner := &flakyService{}
	svc := NewCircuitBreakerService(inner, DefaultBreakerConfig())
	ctx := context.Background()

	counts, err := svc.FetchPacketCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[0].Count)

	blocked, err := svc.FetchBlockedIPs(ctx)
	require.NoError(t, err)
	assert.True(t, blocked.Contains("b"))

	ack, err := svc.UnblockIP(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "IP 1.2.3.4 unblocked.", ack.Message)

	ack, err = svc.StartSniffing(ctx)
	require.NoError(t, err)
	assert.Equal(t, "started", ack.Message)
	assert.Equal(t, "closed", svc.State())
}

func TestBreakerOpensAndRejectsAsTransportError(t *testing.T) {
	inner := &flakyService{}
	inner.fail.Store(true)

	var mu sync.Mutex
	var transitions []string
	svc := NewCircuitBreakerService(inner, BreakerConfig{
		FailureRatio: 0.5,
		MinRequests:  3,
		OpenTimeout:  time.Hour,
		OnStateChange: func(name, from, to string) {
			mu.Lock()
			transitions = append(transitions, from+"->"+to)
			mu.Unlock()
		},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.FetchPacketCounts(ctx)
		require.Error(t, err)
	}
	assert.Equal(t, "open", svc.State())
	assert.Equal(t, int32(3), inner.calls.Load())

	_, err := svc.FetchBlockedIPs(ctx)
	require.Error(t, err)
	te, ok := domain.AsTransportError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindNetwork, te.Kind)
	assert.Equal(t, int32(3), inner.calls.Load(), "open breaker must not reach the service")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"closed->open"}, transitions)
}
