// Package ports defines the primary and secondary port interfaces following
// hexagonal architecture (ports and adapters pattern).
//
// This package contains interfaces that define the contract between the core
// aggregation logic and external infrastructure (the detection service,
// notification sinks, presentation layers, preference storage).
package ports

import (
	"context"

	"github.com/xoelrdgz/trafficradar/internal/domain"
)

// DetectionService defines the contract with the external detection service.
//
// Implementations:
//   - service.HTTPClient: JSON over HTTP to the detection service origin
//   - service.CircuitBreakerService: gobreaker decorator around any implementation
//   - demo.Service: in-process synthetic traffic for offline use
//
// Every failure is reported as a *domain.TransportError. No retries are made
// at this layer.
//
// Thread Safety: Implementations MUST be safe for concurrent calls. The poller
// issues both fetches of a cycle at the same time.
type DetectionService interface {
	// FetchPacketCounts returns the current per-IP packet counters.
	FetchPacketCounts(ctx context.Context) (domain.PacketCounts, error)

	// FetchBlockedIPs returns the set of currently blocked addresses.
	FetchBlockedIPs(ctx context.Context) (domain.BlockedIPs, error)

	// StartSniffing asks the service to begin capture. Whether a repeated
	// call is harmful is up to the service.
	StartSniffing(ctx context.Context) (domain.Ack, error)

	// UnblockIP asks the service to remove ip from its blocked set. Local
	// state is not touched; the next poll cycle reflects the change.
	UnblockIP(ctx context.Context, ip string) (domain.Ack, error)
}
