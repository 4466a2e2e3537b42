// Package output provides notification sinks, metrics and health adapters.
//
// This file implements notification destinations:
//   - JSONNotifier: Buffered JSON lines to file or stdout
//   - MemoryNotifier: In-memory ring buffer for the TUI and HTTP feed
//   - NotifierGroup: Fan-out to several notifiers
//
// Thread Safety: All implementations are safe for concurrent OnNotification() calls.
package output

import (
	"bufio"
	"io"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/internal/ports"
)

const DefaultNotificationBuffer = 100

var (
	_ ports.Notifier = (*JSONNotifier)(nil)
	_ ports.Notifier = (*MemoryNotifier)(nil)
	_ ports.Notifier = (*NotifierGroup)(nil)
)

// JSONNotifier writes notifications as JSON lines to a file or stdout.
//
// Writes are buffered (64KB) and flushed every second and on Close.
type JSONNotifier struct {
	bufWriter *bufio.Writer
	file      *os.File
	mu        sync.Mutex
	encoder   *json.Encoder
	stopFlush chan struct{}
	closeOnce sync.Once
}

// JSONNotifierConfig configures JSON notification output.
type JSONNotifierConfig struct {
	FilePath string // Output file path (empty for discard)
	Stdout   bool   // Write to stdout
	Writer   io.Writer
}

// NewJSONNotifier creates a JSON lines notification sink.
//
// Output Priority:
//  1. Writer if set
//  2. Stdout if config.Stdout is true
//  3. File if config.FilePath is set (mode 0600, append)
//  4. io.Discard otherwise
func NewJSONNotifier(config JSONNotifierConfig) (*JSONNotifier, error) {
	var writer io.Writer
	var file *os.File

	switch {
	case config.Writer != nil:
		writer = config.Writer
	case config.Stdout:
		writer = os.Stdout
	case config.FilePath != "":
		var err error
		file, err = os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, err
		}
		writer = file
	default:
		writer = io.Discard
	}

	const bufferSize = 64 * 1024
	bufWriter := bufio.NewWriterSize(writer, bufferSize)

	n := &JSONNotifier{
		bufWriter: bufWriter,
		file:      file,
		encoder:   json.NewEncoder(bufWriter),
		stopFlush: make(chan struct{}),
	}

	go n.periodicFlush()

	return n, nil
}

func (n *JSONNotifier) periodicFlush() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := n.Flush(); err != nil {
				log.Warn().Err(err).Msg("Failed to flush notification output")
			}
		case <-n.stopFlush:
			return
		}
	}
}

func (n *JSONNotifier) OnNotification(notification *domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.encoder.Encode(notification); err != nil {
		log.Warn().Err(err).Str("id", notification.ID).Msg("Failed to write notification")
	}
}

// Flush forces buffered data to the destination.
func (n *JSONNotifier) Flush() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.bufWriter.Flush(); err != nil {
		return err
	}
	if n.file != nil {
		return n.file.Sync()
	}
	return nil
}

// Close stops periodic flushing, flushes the buffer and closes the file.
func (n *JSONNotifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		close(n.stopFlush)

		n.mu.Lock()
		defer n.mu.Unlock()

		if err = n.bufWriter.Flush(); err != nil {
			return
		}
		if n.file != nil {
			if err = n.file.Sync(); err != nil {
				return
			}
			err = n.file.Close()
		}
	})
	return err
}

// MemoryNotifier stores notifications in a fixed-size ring buffer.
type MemoryNotifier struct {
	items    []*domain.Notification
	head     int
	count    int
	capacity int
	mu       sync.RWMutex
}

// NewMemoryNotifier creates a ring buffer holding at most capacity
// notifications (DefaultNotificationBuffer if <= 0).
func NewMemoryNotifier(capacity int) *MemoryNotifier {
	if capacity <= 0 {
		capacity = DefaultNotificationBuffer
	}
	return &MemoryNotifier{
		items:    make([]*domain.Notification, capacity),
		capacity: capacity,
	}
}

// OnNotification stores n, overwriting the oldest entry when full.
func (m *MemoryNotifier) OnNotification(n *domain.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[m.head] = n
	m.head = (m.head + 1) % m.capacity
	if m.count < m.capacity {
		m.count++
	}
}

// All returns the stored notifications, oldest first.
func (m *MemoryNotifier) All() []*domain.Notification {
	return m.Latest(0)
}

// Latest returns the n most recent notifications, oldest first. n <= 0
// returns everything stored.
func (m *MemoryNotifier) Latest(n int) []*domain.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n <= 0 || n > m.count {
		n = m.count
	}
	result := make([]*domain.Notification, n)
	for i := 0; i < n; i++ {
		idx := (m.head - n + i + m.capacity) % m.capacity
		result[i] = m.items[idx]
	}
	return result
}

func (m *MemoryNotifier) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

func (m *MemoryNotifier) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.head = 0
	m.count = 0
	for i := range m.items {
		m.items[i] = nil
	}
}

// NotifierGroup delivers each notification to every member in order.
type NotifierGroup struct {
	mu        sync.RWMutex
	notifiers []ports.Notifier
}

func NewNotifierGroup(notifiers ...ports.Notifier) *NotifierGroup {
	g := &NotifierGroup{}
	for _, n := range notifiers {
		g.Add(n)
	}
	return g
}

// Add appends n to the group. Nil notifiers are ignored.
func (g *NotifierGroup) Add(n ports.Notifier) {
	if n == nil {
		return
	}
	g.mu.Lock()
	g.notifiers = append(g.notifiers, n)
	g.mu.Unlock()
}

func (g *NotifierGroup) OnNotification(n *domain.Notification) {
	g.mu.RLock()
	notifiers := g.notifiers
	g.mu.RUnlock()

	for _, notifier := range notifiers {
		notifier.OnNotification(n)
	}
}

func (g *NotifierGroup) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.notifiers)
}
