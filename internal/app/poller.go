package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/internal/ports"
)

const DefaultPollInterval = 2 * time.Second

const (
	PollResultSuccess = "success"
	PollResultFailure = "failure"
	PollResultStale   = "stale"
)

var (
	// ErrPollerStopped is returned when a cycle is requested after Stop.
	ErrPollerStopped = errors.New("poller stopped")
	// ErrStaleCycle is returned by RunOnce when a newer cycle or Stop
	// superseded the result.
	ErrStaleCycle = errors.New("poll cycle superseded")
)

type PollerConfig struct {
	Interval time.Duration
	// CycleTimeout bounds one cycle's fetches. Zero means no bound.
	CycleTimeout     time.Duration
	HistorySize      int
	TopSources       int
	WarningThreshold int64
}

func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:         DefaultPollInterval,
		HistorySize:      domain.DefaultHistorySize,
		TopSources:       domain.DefaultTopSources,
		WarningThreshold: domain.DefaultWarningThreshold,
	}
}

// Poller drives the fetch cycle and owns the current snapshot.
//
// Cycles run one at a time. Ticks that fire during a cycle and Refresh calls
// made while one is pending coalesce. Every cycle takes a generation number
// and commits only if it is still the latest issued and the poller has not
// been stopped.
type Poller struct {
	svc        ports.DetectionService
	cfg        PollerConfig
	aggregator domain.Aggregator
	classifier domain.Classifier
	now        func() time.Time

	notifier  ports.Notifier
	pollObs   ports.PollObserver
	observers []ports.StateObserver

	cycleMu sync.Mutex

	mu      sync.RWMutex
	snap    domain.Snapshot
	issued  uint64
	running bool
	stopped bool
	cancel  context.CancelFunc

	refreshCh chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
}

func NewPoller(svc ports.DetectionService, cfg PollerConfig) *Poller {
	def := DefaultPollerConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.TopSources <= 0 {
		cfg.TopSources = def.TopSources
	}
	if cfg.WarningThreshold <= 0 {
		cfg.WarningThreshold = def.WarningThreshold
	}

	return &Poller{
		svc:        svc,
		cfg:        cfg,
		aggregator: domain.Aggregator{HistorySize: cfg.HistorySize, TopN: cfg.TopSources},
		classifier: domain.Classifier{WarningThreshold: cfg.WarningThreshold},
		now:        time.Now,
		refreshCh:  make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// SetNotifier sets where cycle failures are reported. Call before Start.
func (p *Poller) SetNotifier(n ports.Notifier) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifier = n
}

// SetPollObserver sets the cycle outcome observer. Call before Start.
func (p *Poller) SetPollObserver(o ports.PollObserver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pollObs = o
}

func (p *Poller) AddObserver(o ports.StateObserver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, o)
}

func (p *Poller) Config() PollerConfig {
	return p.cfg
}

func (p *Poller) Classifier() domain.Classifier {
	return p.classifier
}

// Start launches the loop. The first cycle runs immediately.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrPollerStopped
	}
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	go p.loop(loopCtx)

	log.Info().Dur("interval", p.cfg.Interval).Msg("Poller started")
	return nil
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.doneCh)
	defer func() {
		p.mu.Lock()
		p.running = false
		p.stopped = true
		p.issued++
		p.mu.Unlock()
	}()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.cycle(ctx)
		case <-p.refreshCh:
			p.cycle(ctx)
		}
	}
}

// cycle runs one scheduled cycle. Failures are already recorded and
// reported by RunOnce.
func (p *Poller) cycle(ctx context.Context) {
	_, _ = p.RunOnce(ctx)
}

// Refresh requests an out-of-schedule cycle. It does not reset the ticker.
// Requests made while one is already pending are merged; the return value
// reports whether a new request was queued.
func (p *Poller) Refresh() bool {
	p.mu.RLock()
	active := p.running && !p.stopped
	p.mu.RUnlock()
	if !active {
		return false
	}

	select {
	case p.refreshCh <- struct{}{}:
		return true
	default:
		return false
	}
}

// RunOnce performs one complete cycle on the calling goroutine and returns
// the committed snapshot. Fetch failures are returned after being recorded.
func (p *Poller) RunOnce(ctx context.Context) (domain.Snapshot, error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return domain.Snapshot{}, ErrPollerStopped
	}
	p.issued++
	gen := p.issued
	p.mu.Unlock()

	if p.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.CycleTimeout)
		defer cancel()
	}

	start := time.Now()
	counts, blocked, fetchErr := p.fetch(ctx)
	elapsed := time.Since(start)

	p.mu.Lock()
	if gen != p.issued || p.stopped {
		p.mu.Unlock()
		log.Debug().Uint64("generation", gen).Msg("Discarding stale poll result")
		p.observePoll(PollResultStale, elapsed)
		return domain.Snapshot{}, ErrStaleCycle
	}

	now := p.now()
	if fetchErr != nil {
		p.snap = p.snap.WithFailure(fetchErr, now)
	} else {
		next := p.aggregator.Derive(p.snap, counts, blocked, now)
		next.Generation = gen
		p.snap = next
	}
	committed := p.snap.Clone()
	observers := append([]ports.StateObserver(nil), p.observers...)
	notifier := p.notifier
	p.mu.Unlock()

	if fetchErr != nil {
		log.Warn().Err(fetchErr).Uint64("generation", gen).Msg("Poll cycle failed, keeping previous data")
		p.observePoll(PollResultFailure, elapsed)
		if notifier != nil {
			notifier.OnNotification(domain.NewNotification(
				domain.NotificationError,
				domain.ActionPoll,
				"",
				fmt.Sprintf("Failed to fetch traffic data: %v", fetchErr),
			))
		}
	} else {
		log.Debug().
			Uint64("generation", gen).
			Int64("total", committed.Total).
			Int("sources", len(committed.Counts)).
			Int("blocked", len(committed.Blocked)).
			Dur("elapsed", elapsed).
			Msg("Poll cycle committed")
		p.observePoll(PollResultSuccess, elapsed)
	}

	for _, o := range observers {
		o.OnSnapshot(committed.Clone())
	}

	return committed, fetchErr
}

// fetch issues both requests concurrently and waits for both.
func (p *Poller) fetch(ctx context.Context) (domain.PacketCounts, domain.BlockedIPs, error) {
	var counts domain.PacketCounts
	var blocked domain.BlockedIPs

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := p.svc.FetchPacketCounts(gctx)
		if err != nil {
			return err
		}
		counts = c
		return nil
	})
	g.Go(func() error {
		b, err := p.svc.FetchBlockedIPs(gctx)
		if err != nil {
			return err
		}
		blocked = b
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return counts, blocked, nil
}

func (p *Poller) observePoll(result string, d time.Duration) {
	p.mu.RLock()
	obs := p.pollObs
	p.mu.RUnlock()
	if obs != nil {
		obs.ObservePoll(result, d)
	}
}

// MarkSniffing records that capture was started. The flag never reverts.
func (p *Poller) MarkSniffing() {
	p.mu.Lock()
	if p.snap.Sniffing || p.stopped {
		p.mu.Unlock()
		return
	}
	p.snap.Sniffing = true
	committed := p.snap.Clone()
	observers := append([]ports.StateObserver(nil), p.observers...)
	p.mu.Unlock()

	for _, o := range observers {
		o.OnSnapshot(committed.Clone())
	}
}

// Snapshot returns a copy of the current state.
func (p *Poller) Snapshot() domain.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap.Clone()
}

// Rows returns the classified traffic table for the current state.
func (p *Poller) Rows() []domain.TrafficRow {
	return p.classifier.ClassifyAll(p.Snapshot())
}

// Events returns the system log for the current state.
func (p *Poller) Events() []domain.Event {
	return p.classifier.DeriveEvents(p.Snapshot(), p.now())
}

// Generation returns the number of the most recently issued cycle.
func (p *Poller) Generation() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.issued
}

func (p *Poller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running && !p.stopped
}

// Stop tears the poller down. It returns without waiting for an in-flight
// cycle; that cycle's result is discarded. Done reports when the loop exits.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.issued++
	cancel := p.cancel
	p.mu.Unlock()

	close(p.stopCh)
	if cancel != nil {
		cancel()
	} else {
		close(p.doneCh)
	}

	log.Info().Msg("Poller stopped")
}

// Done is closed once the loop has exited, or on Stop if it never started.
func (p *Poller) Done() <-chan struct{} {
	return p.doneCh
}

// Run starts the poller and blocks until ctx ends or SIGINT/SIGTERM arrives.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
	}

	p.Stop()
	return nil
}
