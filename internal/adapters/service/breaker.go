package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/internal/ports"
)

type BreakerConfig struct {
	Name         string
	FailureRatio float64
	MinRequests  uint32
	OpenTimeout  time.Duration

	// OnStateChange is called after every transition, with lower-case state
	// names ("closed", "half-open", "open").
	OnStateChange func(name, from, to string)
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "detection-service",
		FailureRatio: 0.6,
		MinRequests:  10,
		OpenTimeout:  30 * time.Second,
	}
}

var _ ports.DetectionService = (*CircuitBreakerService)(nil)

// CircuitBreakerService guards a DetectionService with a circuit breaker.
// Rejected calls surface as network TransportErrors so the poller handles
// them like any unreachable service.
type CircuitBreakerService struct {
	next ports.DetectionService
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

func NewCircuitBreakerService(next ports.DetectionService, cfg BreakerConfig) *CircuitBreakerService {
	def := DefaultBreakerConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		cfg.FailureRatio = def.FailureRatio
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = def.MinRequests
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			trip := ratio >= cfg.FailureRatio
			if trip {
				log.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("Opening detection service circuit")
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state transition")
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from.String(), to.String())
			}
		},
	})

	return &CircuitBreakerService{next: next, cb: cb, name: cfg.Name}
}

// State returns the breaker state name.
func (s *CircuitBreakerService) State() string {
	return s.cb.State().String()
}

func (s *CircuitBreakerService) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := s.cb.Execute(fn)
	if err != nil && (errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)) {
		log.Debug().Str("breaker", s.name).Str("op", op).Msg("Request rejected by circuit breaker")
		return nil, &domain.TransportError{Op: op, URL: s.name, Kind: domain.KindNetwork, Err: err}
	}
	return result, err
}

func (s *CircuitBreakerService) FetchPacketCounts(ctx context.Context) (domain.PacketCounts, error) {
	result, err := s.execute("fetch packet counts", func() (interface{}, error) {
		return s.next.FetchPacketCounts(ctx)
	})
	if err != nil {
		return nil, err
	}
	counts, _ := result.(domain.PacketCounts)
	return counts, nil
}

func (s *CircuitBreakerService) FetchBlockedIPs(ctx context.Context) (domain.BlockedIPs, error) {
	result, err := s.execute("fetch blocked ips", func() (interface{}, error) {
		return s.next.FetchBlockedIPs(ctx)
	})
	if err != nil {
		return nil, err
	}
	blocked, _ := result.(domain.BlockedIPs)
	return blocked, nil
}

func (s *CircuitBreakerService) StartSniffing(ctx context.Context) (domain.Ack, error) {
	result, err := s.execute("start sniffing", func() (interface{}, error) {
		return s.next.StartSniffing(ctx)
	})
	if err != nil {
		return domain.Ack{}, err
	}
	ack, _ := result.(domain.Ack)
	return ack, nil
}

func (s *CircuitBreakerService) UnblockIP(ctx context.Context, ip string) (domain.Ack, error) {
	result, err := s.execute("unblock ip", func() (interface{}, error) {
		return s.next.UnblockIP(ctx, ip)
	})
	if err != nil {
		return domain.Ack{}, err
	}
	ack, _ := result.(domain.Ack)
	return ack, nil
}
