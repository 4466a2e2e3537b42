package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xoelrdgz/trafficradar/internal/domain"
)

func TestRequestStartSniffing(t *testing.T) {
	svc := newMockService(domain.PacketCounts{}, domain.BlockedIPs{})
	notifier := &recordingNotifier{}
	obs := &recordingObserver{}
	p := slowPoller(svc)
	p.AddObserver(obs)
	d := NewDispatcher(svc, p, notifier)

	ack, err := d.RequestStartSniffing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Packet sniffing started.", ack.Message)

	assert.True(t, p.Snapshot().Sniffing)
	assert.Equal(t, int64(0), svc.countCalls.Load(), "start sniffing must not poll")
	assert.Equal(t, 1, obs.count())

	notes := notifier.all()
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationSuccess, notes[0].Level)
	assert.Equal(t, MsgSniffingStarted, notes[0].Message)

	_, err = p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, p.Snapshot().Sniffing, "sniffing survives later cycles")
}

func TestRequestStartSniffingFailure(t *testing.T) {
	svc := newMockService(domain.PacketCounts{}, domain.BlockedIPs{})
	svc.failActions.Store(true)
	notifier := &recordingNotifier{}
	p := slowPoller(svc)
	d := NewDispatcher(svc, p, notifier)

	_, err := d.RequestStartSniffing(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsTransportError(err))

	assert.False(t, p.Snapshot().Sniffing)
	notes := notifier.all()
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationError, notes[0].Level)
	assert.Equal(t, MsgSniffingFailed, notes[0].Message)
}

func TestRequestUnblockTriggersExactlyOneExtraCycle(t *testing.T) {
	svc := newMockService(
		domain.NewPacketCounts(domain.IPCount{IP: "1.2.3.4", Count: 2000}),
		domain.NewBlockedIPs("1.2.3.4"),
	)
	notifier := &recordingNotifier{}
	obs := &recordingObserver{}
	p := slowPoller(svc)
	p.AddObserver(obs)
	d := NewDispatcher(svc, p, notifier)

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	require.Eventually(t, func() bool { return obs.count() == 1 }, time.Second, time.Millisecond)

	svc.set(domain.NewPacketCounts(domain.IPCount{IP: "1.2.3.4", Count: 2000}), domain.BlockedIPs{})

	ack, err := d.RequestUnblock(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "IP 1.2.3.4 unblocked.", ack.Message)
	assert.Equal(t, "1.2.3.4", svc.lastUnblock.Load())

	require.Eventually(t, func() bool { return obs.count() == 2 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 2, obs.count())
	assert.Equal(t, int64(2), svc.countCalls.Load())
	assert.Empty(t, p.Snapshot().Blocked, "blocked set comes from the refreshed cycle")

	notes := notifier.all()
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationSuccess, notes[0].Level)
	assert.Equal(t, domain.ActionUnblock, notes[0].Action)
	assert.Equal(t, "1.2.3.4", notes[0].Target)
	assert.Equal(t, "IP 1.2.3.4 unblocked.", notes[0].Message)
}

func TestRequestUnblockFailureDoesNotRefresh(t *testing.T) {
	svc := newMockService(domain.PacketCounts{}, domain.NewBlockedIPs("1.2.3.4"))
	notifier := &recordingNotifier{}
	obs := &recordingObserver{}
	p := slowPoller(svc)
	p.AddObserver(obs)
	d := NewDispatcher(svc, p, notifier)

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()
	require.Eventually(t, func() bool { return obs.count() == 1 }, time.Second, time.Millisecond)

	svc.failActions.Store(true)
	_, err := d.RequestUnblock(context.Background(), "1.2.3.4")
	require.Error(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, obs.count())
	assert.True(t, p.Snapshot().Blocked.Contains("1.2.3.4"), "local state is never mutated by the dispatcher")

	notes := notifier.all()
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationError, notes[0].Level)
	assert.Equal(t, "Failed to unblock IP: 1.2.3.4", notes[0].Message)
}

func TestDispatcherWithoutPollerOrNotifier(t *testing.T) {
	svc := newMockService(nil, nil)
	d := NewDispatcher(svc, nil, nil)

	_, err := d.RequestStartSniffing(context.Background())
	assert.NoError(t, err)
	_, err = d.RequestUnblock(context.Background(), "1.1.1.1")
	assert.NoError(t, err)
}

func TestDispatcherLogsAckUnderOwnKey(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	svc := newMockService(domain.PacketCounts{}, domain.BlockedIPs{})
	d := NewDispatcher(svc, nil, nil)

	_, err := d.RequestStartSniffing(context.Background())
	require.NoError(t, err)
	_, err = d.RequestUnblock(context.Background(), "1.2.3.4")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	wantAck := []string{"Packet sniffing started.", "IP 1.2.3.4 unblocked."}
	wantMsg := []string{"Packet sniffing started", "Unblock acknowledged"}
	for i, line := range lines {
		assert.Equal(t, 1, strings.Count(line, `"message"`), line)

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, wantAck[i], entry["ack"])
		assert.Equal(t, wantMsg[i], entry["message"])
	}
}
