package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotification(t *testing.T) {
	n := NewNotification(NotificationSuccess, ActionUnblock, "1.2.3.4", "IP 1.2.3.4 unblocked.")

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, NotificationSuccess, n.Level)
	assert.Equal(t, ActionUnblock, n.Action)
	assert.Equal(t, "1.2.3.4", n.Target)
	assert.Equal(t, "IP 1.2.3.4 unblocked.", n.Message)
	assert.False(t, n.IsError())
	assert.WithinDuration(t, time.Now(), n.Timestamp, time.Second)
}

func TestNotificationIDsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		n := NewNotification(NotificationInfo, ActionPoll, "", "")
		_, dup := seen[n.ID]
		require.False(t, dup)
		seen[n.ID] = struct{}{}
	}
}

func TestNotificationToJSON(t *testing.T) {
	n := NewNotification(NotificationError, ActionStartSniffing, "", "Failed to start packet sniffing")

	data, err := n.ToJSON()
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "ERROR", parsed["level"])
	assert.Equal(t, "start_sniffing", parsed["action"])
	assert.NotContains(t, parsed, "target")
	assert.True(t, n.IsError())
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("poll: %w", &TransportError{
		Op:   "GET",
		URL:  "http://localhost:8000/packet_counts",
		Kind: KindNetwork,
		Err:  cause,
	})

	assert.True(t, IsTransportError(err))
	assert.ErrorIs(t, err, cause)

	te, ok := AsTransportError(err)
	require.True(t, ok)
	assert.Equal(t, KindNetwork, te.Kind)
	assert.Contains(t, err.Error(), "connection refused")

	assert.False(t, IsTransportError(cause))
}

func TestTransportErrorMessages(t *testing.T) {
	status := &TransportError{Op: "GET", URL: "u", StatusCode: 503, Kind: KindStatus}
	assert.Equal(t, "GET u: unexpected status 503", status.Error())

	decode := &TransportError{Op: "GET", URL: "u", Kind: KindDecode, Err: errors.New("bad")}
	assert.Equal(t, "GET u: malformed response: bad", decode.Error())
}
