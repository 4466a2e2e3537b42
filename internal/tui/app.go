package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/trafficradar/internal/app"
	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/internal/ports"
	"github.com/xoelrdgz/trafficradar/pkg/sanitize"
)

const (
	uiTickInterval       = time.Second
	notificationChanSize = 64
	defaultActionTimeout = 10 * time.Second
)

var (
	_ ports.StateObserver = (*App)(nil)
	_ ports.Notifier      = (*App)(nil)
)

type Actions interface {
	RequestStartSniffing(ctx context.Context) (domain.Ack, error)
	RequestUnblock(ctx context.Context, ip string) (domain.Ack, error)
}

type Refresher interface {
	Refresh() bool
}

type ThemeSwitcher interface {
	Theme() app.Theme
	Toggle() (app.Theme, error)
}

type Options struct {
	Source        string
	PollInterval  time.Duration
	ActionTimeout time.Duration
	// Classifier defaults to domain.NewClassifier when nil.
	Classifier    *domain.Classifier
}

// App is the terminal dashboard. It observes the poller and the notifier
// group and forwards user actions to the dispatcher.
type App struct {
	model   *Model
	opts    Options
	actions Actions
	poller  Refresher
	themes  ThemeSwitcher

	ready    bool
	quitting bool
	width    int
	height   int
	pending  int

	snapshotChan     chan domain.Snapshot
	notificationChan chan *domain.Notification
}

func NewApp(opts Options, actions Actions, poller Refresher, themes ThemeSwitcher) *App {
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = defaultActionTimeout
	}
	classifier := domain.NewClassifier()
	if opts.Classifier != nil {
		classifier = *opts.Classifier
	}

	a := &App{
		model:            NewModel(classifier, opts.PollInterval),
		opts:             opts,
		actions:          actions,
		poller:           poller,
		themes:           themes,
		snapshotChan:     make(chan domain.Snapshot, 1),
		notificationChan: make(chan *domain.Notification, notificationChanSize),
	}
	if themes != nil {
		a.model.SetTheme(themes.Theme())
	}
	return a
}

type tickMsg time.Time
type snapshotMsg domain.Snapshot
type notificationMsg struct{ n *domain.Notification }
type actionDoneMsg struct{ err error }

func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, a.tick(), a.listenForSnapshots(), a.listenForNotifications())
}

func (a *App) tick() tea.Cmd {
	return tea.Tick(uiTickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (a *App) listenForSnapshots() tea.Cmd {
	return func() tea.Msg { return snapshotMsg(<-a.snapshotChan) }
}

func (a *App) listenForNotifications() tea.Cmd {
	return func() tea.Msg { return notificationMsg{<-a.notificationChan} }
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a, a.handleKey(msg.String())
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.ready = true
		a.model.SetDimensions(msg.Width, msg.Height)
	case tickMsg:
		if a.themes != nil {
			a.model.SetTheme(a.themes.Theme())
		}
		return a, a.tick()
	case snapshotMsg:
		a.model.ApplySnapshot(domain.Snapshot(msg))
		return a, a.listenForSnapshots()
	case notificationMsg:
		a.model.AddNotification(msg.n)
		return a, a.listenForNotifications()
	case actionDoneMsg:
		if a.pending > 0 {
			a.pending--
		}
	}
	return a, nil
}

func (a *App) handleKey(key string) tea.Cmd {
	switch key {
	case "q", "ctrl+c":
		a.quitting = true
		return tea.Quit
	case "tab":
		a.model.NextView()
	case "up", "k":
		a.model.ScrollUp()
	case "down", "j":
		a.model.ScrollDown()
	case "s":
		return a.runAction(func(ctx context.Context) error {
			_, err := a.actions.RequestStartSniffing(ctx)
			return err
		})
	case "u":
		ip, ok := a.model.SelectedBlocked()
		if !ok {
			a.model.AddNotification(domain.NewNotification(domain.NotificationInfo, domain.ActionUnblock, "", "No blocked IP selected"))
			return nil
		}
		return a.runAction(func(ctx context.Context) error {
			_, err := a.actions.RequestUnblock(ctx, ip)
			return err
		})
	case "r":
		if a.poller != nil && !a.poller.Refresh() {
			log.Debug().Msg("Refresh already pending")
		}
	case "t":
		if a.themes == nil {
			return nil
		}
		t, err := a.themes.Toggle()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to persist theme")
		}
		a.model.SetTheme(t)
	}
	return nil
}

// runAction executes fn off the update loop. Its outcome reaches the feed
// through the dispatcher's notifications.
func (a *App) runAction(fn func(ctx context.Context) error) tea.Cmd {
	if a.actions == nil {
		return nil
	}
	a.pending++
	timeout := a.opts.ActionTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return actionDoneMsg{err: fn(ctx)}
	}
}

func (a *App) View() string {
	if a.quitting {
		return "\n  Session terminated.\n\n"
	}
	if !a.ready {
		return "\n  Initializing...\n\n"
	}

	p := a.model.Palette()
	dim := lipgloss.NewStyle().Foreground(p.Dim)
	muted := lipgloss.NewStyle().Foreground(p.Muted)

	var b strings.Builder

	b.WriteString(a.renderHeader())
	b.WriteString("\n")
	b.WriteString(dim.Render(strings.Repeat("─", a.width)))
	b.WriteString("\n")

	b.WriteString(a.model.History.Render(p))
	b.WriteString("\n\n")

	b.WriteString(muted.Render("  " + a.model.ActiveView.String()))
	b.WriteString("\n")
	b.WriteString(a.model.RenderActive())
	b.WriteString("\n\n")

	b.WriteString(muted.Render("  NOTIFICATIONS"))
	b.WriteString("\n")
	b.WriteString(a.model.Feed.Render(p))
	b.WriteString("\n\n")

	b.WriteString(a.model.Status.Render(p))
	b.WriteString("\n")
	b.WriteString(a.renderHelp())

	return b.String()
}

func (a *App) renderHeader() string {
	p := a.model.Palette()
	title := headerStyle(p).Render("TRAFFICRADAR")
	amber := lipgloss.NewStyle().Foreground(p.Amber).Bold(true)
	dim := lipgloss.NewStyle().Foreground(p.Dim)

	status := amber.Render("IDLE")
	if a.model.Snapshot.Sniffing {
		status = headerStyle(p).Render("SNIFFING")
	}
	if len(a.model.Snapshot.Blocked) > 0 {
		status += " " + lipgloss.NewStyle().Foreground(p.Red).Bold(true).Render("UNDER ATTACK")
	}

	busy := ""
	if a.pending > 0 {
		busy = "  " + amber.Render("…")
	}

	return fmt.Sprintf("  %s  %s  %s %s%s",
		title, status,
		dim.Render("SRC:"), sanitize.Terminal(a.opts.Source), busy)
}

func (a *App) renderHelp() string {
	p := a.model.Palette()
	dim := lipgloss.NewStyle().Foreground(p.Dim)
	key := lipgloss.NewStyle().Foreground(p.PrimaryDim)
	return dim.Render(fmt.Sprintf("  %s [%s]  %s scroll  %s sniff  %s unblock  %s refresh  %s theme  %s quit",
		key.Render("TAB"), a.model.ActiveView, key.Render("↑↓"), key.Render("s"),
		key.Render("u"), key.Render("r"), key.Render("t"), key.Render("q")))
}

// OnSnapshot keeps only the newest pending snapshot.
func (a *App) OnSnapshot(s domain.Snapshot) {
	for {
		select {
		case a.snapshotChan <- s:
			return
		default:
		}
		select {
		case <-a.snapshotChan:
		default:
		}
	}
}

func (a *App) OnNotification(n *domain.Notification) {
	select {
	case a.notificationChan <- n:
	default:
		log.Debug().Str("id", n.ID).Msg("TUI notification channel full, dropping")
	}
}

func (a *App) Model() *Model { return a.model }

func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
