package demo

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xoelrdgz/trafficradar/internal/adapters/service"
	"github.com/xoelrdgz/trafficradar/internal/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestService(threshold int64) (*Service, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc := NewService(Config{Threshold: threshold, Window: time.Minute})
	svc.now = clock.Now
	return svc, clock
}

func TestRecordCountsInFirstSeenOrder(t *testing.T) {
	svc, _ := newTestService(100)
	ctx := context.Background()

	svc.Record("10.0.0.2")
	svc.Record("10.0.0.1")
	svc.Record("10.0.0.2")

	counts, err := svc.FetchPacketCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PacketCounts{{IP: "10.0.0.2", Count: 2}, {IP: "10.0.0.1", Count: 1}}, counts)
}

func TestThresholdBlocksAndResets(t *testing.T) {
	svc, _ := newTestService(3)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		svc.Record("45.33.0.1")
	}

	blocked, err := svc.FetchBlockedIPs(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.BlockedIPs{"45.33.0.1"}, blocked)

	counts, err := svc.FetchPacketCounts(ctx)
	require.NoError(t, err)
	n, ok := counts.Get("45.33.0.1")
	assert.True(t, ok)
	assert.Equal(t, int64(0), n)
}

func TestWindowClearsCounters(t *testing.T) {
	svc, clock := newTestService(100)
	ctx := context.Background()

	svc.Record("10.0.0.1")
	clock.t = clock.t.Add(2 * time.Minute)
	svc.Record("10.0.0.2")

	counts, err := svc.FetchPacketCounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)

	svc.Record("10.0.0.3")
	counts, err = svc.FetchPacketCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PacketCounts{{IP: "10.0.0.3", Count: 1}}, counts)
}

func TestUnblockMessages(t *testing.T) {
	svc, _ := newTestService(1)
	ctx := context.Background()

	svc.Record("1.2.3.4")
	svc.Record("1.2.3.4")

	ack, err := svc.UnblockIP(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "IP 1.2.3.4 unblocked.", ack.Message)

	ack, err = svc.UnblockIP(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "IP 1.2.3.4 is not blocked.", ack.Message)

	blocked, err := svc.FetchBlockedIPs(ctx)
	require.NoError(t, err)
	assert.Empty(t, blocked)
}

func TestStartSniffingGeneratesTraffic(t *testing.T) {
	svc := NewService(Config{Rate: 1000, Tick: 10 * time.Millisecond})
	defer func() { _ = svc.Stop() }()
	ctx := context.Background()

	ack, err := svc.StartSniffing(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Packet sniffing started.", ack.Message)

	_, err = svc.StartSniffing(ctx)
	require.NoError(t, err)
	assert.True(t, svc.IsRunning())

	require.Eventually(t, func() bool {
		return svc.Generated() > 0
	}, 2*time.Second, 10*time.Millisecond)

	counts, err := svc.FetchPacketCounts(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, counts)

	require.NoError(t, svc.Stop())
	assert.False(t, svc.IsRunning())
}

func TestIPPoolsAreValid(t *testing.T) {
	svc := NewService(DefaultConfig())

	assert.Len(t, svc.normalIPs, 200)
	assert.Len(t, svc.attackerIPs, 5)
	for _, ip := range svc.normalIPs {
		assert.True(t, ip.Is4())
	}
}

func TestHandlerSpeaksServiceContract(t *testing.T) {
	svc, _ := newTestService(2)
	for i := 0; i < 3; i++ {
		svc.Record("9.9.9.9")
	}
	svc.Record("8.8.8.8")

	srv := httptest.NewServer(NewHandler(svc))
	defer srv.Close()

	client := service.NewHTTPClient(srv.URL)
	ctx := context.Background()

	counts, err := client.FetchPacketCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PacketCounts{{IP: "9.9.9.9", Count: 0}, {IP: "8.8.8.8", Count: 1}}, counts)

	blocked, err := client.FetchBlockedIPs(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.BlockedIPs{"9.9.9.9"}, blocked)

	ack, err := client.UnblockIP(ctx, "9.9.9.9")
	require.NoError(t, err)
	assert.Equal(t, "IP 9.9.9.9 unblocked.", ack.Message)

	blocked, err = client.FetchBlockedIPs(ctx)
	require.NoError(t, err)
	assert.Empty(t, blocked)
}
