package output

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xoelrdgz/trafficradar/internal/domain"
)

func note(msg string) *domain.Notification {
	return domain.NewNotification(domain.NotificationInfo, domain.ActionPoll, "", msg)
}

func TestMemoryNotifierRingBuffer(t *testing.T) {
	m := NewMemoryNotifier(3)

	for i := 1; i <= 5; i++ {
		m.OnNotification(note(fmt.Sprint(i)))
	}

	assert.Equal(t, 3, m.Count())
	all := m.All()
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].Message)
	assert.Equal(t, "5", all[2].Message)

	latest := m.Latest(2)
	require.Len(t, latest, 2)
	assert.Equal(t, "4", latest[0].Message)
	assert.Equal(t, "5", latest[1].Message)

	m.Clear()
	assert.Empty(t, m.All())
}

func TestMemoryNotifierDefaultCapacity(t *testing.T) {
	m := NewMemoryNotifier(0)
	for i := 0; i < DefaultNotificationBuffer+10; i++ {
		m.OnNotification(note("x"))
	}
	assert.Equal(t, DefaultNotificationBuffer, m.Count())
}

func TestMemoryNotifierConcurrent(t *testing.T) {
	m := NewMemoryNotifier(50)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.OnNotification(note("c"))
				_ = m.Latest(5)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, m.Count())
}

func TestJSONNotifierWritesLines(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewJSONNotifier(JSONNotifierConfig{Writer: &buf})
	require.NoError(t, err)

	n.OnNotification(domain.NewNotification(domain.NotificationSuccess, domain.ActionUnblock, "1.2.3.4", "IP 1.2.3.4 unblocked."))
	n.OnNotification(note("second"))
	require.NoError(t, n.Close())
	require.NoError(t, n.Close())

	scanner := bufio.NewScanner(&buf)
	var lines []map[string]interface{}
	for scanner.Scan() {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "SUCCESS", lines[0]["level"])
	assert.Equal(t, "1.2.3.4", lines[0]["target"])
	assert.Equal(t, "second", lines[1]["message"])
}

func TestJSONNotifierFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.jsonl")
	n, err := NewJSONNotifier(JSONNotifierConfig{FilePath: path})
	require.NoError(t, err)

	n.OnNotification(note("to file"))
	require.NoError(t, n.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"to file"`)
	require.NoError(t, n.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestJSONNotifierBadPath(t *testing.T) {
	_, err := NewJSONNotifier(JSONNotifierConfig{FilePath: filepath.Join(t.TempDir(), "missing", "x.jsonl")})
	assert.Error(t, err)
}

type countingNotifier struct {
	mu  sync.Mutex
	got []string
}

func (c *countingNotifier) OnNotification(n *domain.Notification) {
	c.mu.Lock()
	c.got = append(c.got, n.Message)
	c.mu.Unlock()
}

func TestNotifierGroupFansOut(t *testing.T) {
	a, b := &countingNotifier{}, &countingNotifier{}
	g := NewNotifierGroup(a, nil, b)
	assert.Equal(t, 2, g.Len())

	g.OnNotification(note("hello"))

	assert.Equal(t, []string{"hello"}, a.got)
	assert.Equal(t, []string{"hello"}, b.got)
}
