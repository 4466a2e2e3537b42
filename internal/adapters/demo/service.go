// Package demo provides an in-process detection service that simulates
// traffic, so the dashboard can run without a capture backend.
package demo

import (
	"context"
	"fmt"
	"math/rand"
	"net/netip"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/internal/ports"
)

const (
	DefaultThreshold = 1000
	DefaultWindow    = 60 * time.Second

	msgSniffingStarted = "Packet sniffing started."
)

type Config struct {
	// Rate is the number of synthetic packets generated per second.
	Rate int
	// AttackPercent is the share of packets sent from the attacker pool.
	AttackPercent int
	// Threshold is the per-window packet count above which an IP is blocked.
	Threshold int64
	// Window is how often all counters are cleared.
	Window time.Duration
	// Tick is the generation batch interval.
	Tick time.Duration
}

func DefaultConfig() Config {
	return Config{
		Rate:          400,
		AttackPercent: 30,
		Threshold:     DefaultThreshold,
		Window:        DefaultWindow,
		Tick:          100 * time.Millisecond,
	}
}

var _ ports.DetectionService = (*Service)(nil)

// Service counts packets per source IP once sniffing has started. An IP whose
// count exceeds the threshold is blocked and its counter reset; all counters
// clear when the window elapses.
type Service struct {
	cfg Config
	now func() time.Time

	mu          sync.Mutex
	counts      map[string]int64
	order       []string
	blocked     map[string]struct{}
	blockOrder  []string
	windowStart time.Time

	running   bool
	stopChan  chan struct{}
	generated atomic.Uint64

	normalIPs   []netip.Addr
	attackerIPs []netip.Addr
}

func NewService(cfg Config) *Service {
	def := DefaultConfig()
	if cfg.Rate <= 0 {
		cfg.Rate = def.Rate
	}
	if cfg.AttackPercent < 0 || cfg.AttackPercent > 100 {
		cfg.AttackPercent = def.AttackPercent
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Tick <= 0 {
		cfg.Tick = def.Tick
	}

	return &Service{
		cfg:     cfg,
		now:     time.Now,
		counts:  make(map[string]int64),
		blocked: make(map[string]struct{}),
		normalIPs: generateIPPool(200, []string{
			"192.168.", "10.0.", "172.16.", "203.0.", "198.51.",
		}),
		attackerIPs: generateIPPool(5, []string{
			"45.33.", "185.220.", "91.121.", "104.244.", "23.129.",
		}),
	}
}

// Record counts one packet from ip and applies the block and window rules.
func (s *Service) Record(ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordLocked(ip, s.now())
}

func (s *Service) recordLocked(ip string, now time.Time) {
	if s.windowStart.IsZero() {
		s.windowStart = now
	}

	if _, seen := s.counts[ip]; !seen {
		s.order = append(s.order, ip)
	}
	s.counts[ip]++

	if s.counts[ip] > s.cfg.Threshold {
		if _, already := s.blocked[ip]; !already {
			s.blocked[ip] = struct{}{}
			s.blockOrder = append(s.blockOrder, ip)
			log.Info().Str("ip", ip).Int64("threshold", s.cfg.Threshold).Msg("Demo service blocked IP")
		}
		s.counts[ip] = 0
	}

	if now.Sub(s.windowStart) > s.cfg.Window {
		s.counts = make(map[string]int64)
		s.order = nil
		s.windowStart = now
	}
}

func (s *Service) FetchPacketCounts(ctx context.Context) (domain.PacketCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(domain.PacketCounts, 0, len(s.order))
	for _, ip := range s.order {
		out = append(out, domain.IPCount{IP: ip, Count: s.counts[ip]})
	}
	return out, nil
}

func (s *Service) FetchBlockedIPs(ctx context.Context) (domain.BlockedIPs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(domain.BlockedIPs, len(s.blockOrder))
	copy(out, s.blockOrder)
	return out, nil
}

// StartSniffing starts the traffic generator. Further calls acknowledge
// without starting a second generator.
func (s *Service) StartSniffing(ctx context.Context) (domain.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.running = true
		s.stopChan = make(chan struct{})
		go s.generate(s.stopChan)
	}
	return domain.Ack{Message: msgSniffingStarted}, nil
}

func (s *Service) UnblockIP(ctx context.Context, ip string) (domain.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blocked[ip]; !ok {
		return domain.Ack{Message: fmt.Sprintf("IP %s is not blocked.", ip)}, nil
	}
	delete(s.blocked, ip)
	for i, b := range s.blockOrder {
		if b == ip {
			s.blockOrder = append(s.blockOrder[:i:i], s.blockOrder[i+1:]...)
			break
		}
	}
	log.Info().Str("ip", ip).Msg("Demo service unblocked IP")
	return domain.Ack{Message: fmt.Sprintf("IP %s unblocked.", ip)}, nil
}

// Stop halts the generator. Counters and blocks are kept.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	close(s.stopChan)
	s.running = false
	return nil
}

func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Service) Generated() uint64 {
	return s.generated.Load()
}

func (s *Service) generate(stop <-chan struct{}) {
	log.Info().Int("rate", s.cfg.Rate).Msg("Demo traffic generator started")

	perTick := int(float64(s.cfg.Rate) * s.cfg.Tick.Seconds())
	if perTick < 1 {
		perTick = 1
	}

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		select {
		case <-stop:
			log.Info().Uint64("total_generated", s.generated.Load()).Msg("Demo traffic generator stopped")
			return
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for i := 0; i < perTick; i++ {
				s.recordLocked(s.pickIP(rng), now)
			}
			s.mu.Unlock()
			s.generated.Add(uint64(perTick))
		}
	}
}

func (s *Service) pickIP(rng *rand.Rand) string {
	if rng.Intn(100) < s.cfg.AttackPercent {
		return s.attackerIPs[rng.Intn(len(s.attackerIPs))].String()
	}
	return s.normalIPs[rng.Intn(len(s.normalIPs))].String()
}

func generateIPPool(count int, prefixes []string) []netip.Addr {
	ips := make([]netip.Addr, 0, count)
	perPrefix := count / len(prefixes)
	remainder := count % len(prefixes)

	for i, prefix := range prefixes {
		n := perPrefix
		if i < remainder {
			n++
		}
		for j := 0; j < n; j++ {
			third := (j / 254) % 256
			fourth := j%254 + 1

			if addr, err := netip.ParseAddr(prefix + strconv.Itoa(third) + "." + strconv.Itoa(fourth)); err == nil {
				ips = append(ips, addr)
			}
		}
	}

	return ips
}
