package tui

import (
	"time"

	"github.com/xoelrdgz/trafficradar/internal/app"
	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/internal/tui/views"
)

type View int

const (
	ViewTopSources View = iota
	ViewTraffic
	ViewBlocked
	ViewEvents
	viewCount
)

var viewNames = [...]string{"TOP SOURCES", "TRAFFIC", "BLOCKED", "EVENTS"}

func (v View) String() string {
	if v < 0 || v >= viewCount {
		return "UNKNOWN"
	}
	return viewNames[v]
}

const (
	maxFeedItems     = 100
	visibleFeedItems = 4
	chromeLines      = 14
)

// Model is the dashboard state rendered by App. It is only touched from the
// bubbletea update loop.
type Model struct {
	Width  int
	Height int

	ActiveView View
	Snapshot   domain.Snapshot
	Theme      app.Theme

	classifier domain.Classifier
	now        func() time.Time

	History *views.History
	Top     *views.TopSources
	Traffic *views.TrafficTable
	Blocked *views.BlockedList
	Events  *views.EventLog
	Feed    *views.Feed
	Status  *views.Status
}

func NewModel(classifier domain.Classifier, pollInterval time.Duration) *Model {
	top := views.NewTopSources(100)
	top.Classify = classifier.Classify

	return &Model{
		Width:      120,
		Height:     40,
		Theme:      app.DefaultTheme,
		classifier: classifier,
		now:        time.Now,
		History:    views.NewHistory(80),
		Top:        top,
		Traffic:    views.NewTrafficTable(100),
		Blocked:    views.NewBlockedList(100),
		Events:     views.NewEventLog(100),
		Feed:       views.NewFeed(maxFeedItems, visibleFeedItems),
		Status:     views.NewStatus(100, pollInterval),
	}
}

// ApplySnapshot pushes a committed snapshot into every view.
func (m *Model) ApplySnapshot(s domain.Snapshot) {
	m.Snapshot = s
	m.History.Update(s.History)
	m.Top.Update(s.TopSources, s.Blocked)
	m.Traffic.Update(m.classifier.ClassifyAll(s))
	m.Blocked.Update(s.Blocked)
	m.Events.Update(m.classifier.DeriveEvents(s, m.now()))
	m.Status.Update(s)
}

func (m *Model) AddNotification(n *domain.Notification) {
	m.Feed.Add(n)
}

func (m *Model) SetTheme(t app.Theme) {
	m.Theme = t
	m.Status.Theme = string(t)
}

func (m *Model) Palette() views.Palette {
	return PaletteFor(m.Theme)
}

func (m *Model) SetDimensions(width, height int) {
	m.Width = width
	m.Height = height

	inner := width - 4
	m.History.SetWidth(inner)
	m.Top.Width = inner
	m.Traffic.Width = inner
	m.Blocked.Width = inner
	m.Events.Width = inner
	m.Feed.Width = inner
	m.Status.Width = width

	content := height - chromeLines - visibleFeedItems
	if content < 5 {
		content = 5
	}
	m.Traffic.VisibleCount = content
	m.Blocked.VisibleCount = content
	m.Events.VisibleCount = content
}

func (m *Model) NextView() {
	m.ActiveView = (m.ActiveView + 1) % viewCount
}

func (m *Model) ScrollUp() {
	switch m.ActiveView {
	case ViewTraffic:
		m.Traffic.ScrollUp()
	case ViewBlocked:
		m.Blocked.ScrollUp()
	case ViewEvents:
		m.Events.ScrollUp()
	}
}

func (m *Model) ScrollDown() {
	switch m.ActiveView {
	case ViewTraffic:
		m.Traffic.ScrollDown()
	case ViewBlocked:
		m.Blocked.ScrollDown()
	case ViewEvents:
		m.Events.ScrollDown()
	}
}

// SelectedBlocked is the unblock target.
func (m *Model) SelectedBlocked() (string, bool) {
	return m.Blocked.Selected()
}

func (m *Model) RenderActive() string {
	p := m.Palette()
	switch m.ActiveView {
	case ViewTraffic:
		return m.Traffic.Render(p)
	case ViewBlocked:
		return m.Blocked.Render(p)
	case ViewEvents:
		return m.Events.Render(p)
	default:
		return m.Top.Render(p)
	}
}
