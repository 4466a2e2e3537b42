// Package service implements the detection service port over HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/internal/ports"
)

const (
	DefaultBaseURL = "http://localhost:8000"

	pathPacketCounts  = "/packet_counts"
	pathBlockedIPs    = "/blocked_ips"
	pathStartSniffing = "/start_sniffing"
	pathUnblockIP     = "/unblock_ip/"

	// maxErrorBody bounds how much of a non-2xx body is kept in the error.
	maxErrorBody = 512
)

var _ ports.DetectionService = (*HTTPClient)(nil)

var errMissingField = errors.New("missing or null field")

// HTTPClient talks to the detection service. It does not retry and sets no
// timeout of its own; callers bound requests through the context.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		if c != nil {
			h.httpClient = c
		}
	}
}

func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

type packetCountsResponse struct {
	PacketCounts *domain.PacketCounts `json:"packet_counts"`
}

type blockedIPsResponse struct {
	BlockedIPs *[]string `json:"blocked_ips"`
}

func (c *HTTPClient) FetchPacketCounts(ctx context.Context) (domain.PacketCounts, error) {
	var body packetCountsResponse
	if err := c.get(ctx, pathPacketCounts, &body); err != nil {
		return nil, err
	}
	if body.PacketCounts == nil {
		return nil, c.decodeError(pathPacketCounts, fmt.Errorf("packet_counts: %w", errMissingField))
	}
	return *body.PacketCounts, nil
}

func (c *HTTPClient) FetchBlockedIPs(ctx context.Context) (domain.BlockedIPs, error) {
	var body blockedIPsResponse
	if err := c.get(ctx, pathBlockedIPs, &body); err != nil {
		return nil, err
	}
	if body.BlockedIPs == nil {
		return nil, c.decodeError(pathBlockedIPs, fmt.Errorf("blocked_ips: %w", errMissingField))
	}
	return domain.NewBlockedIPs(*body.BlockedIPs...), nil
}

func (c *HTTPClient) StartSniffing(ctx context.Context) (domain.Ack, error) {
	var ack domain.Ack
	if err := c.get(ctx, pathStartSniffing, &ack); err != nil {
		return domain.Ack{}, err
	}
	return ack, nil
}

func (c *HTTPClient) UnblockIP(ctx context.Context, ip string) (domain.Ack, error) {
	var ack domain.Ack
	if err := c.get(ctx, pathUnblockIP+url.PathEscape(ip), &ack); err != nil {
		return domain.Ack{}, err
	}
	return ack, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, out interface{}) error {
	endpoint := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &domain.TransportError{Op: http.MethodGet, URL: endpoint, Kind: domain.KindNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.TransportError{Op: http.MethodGet, URL: endpoint, Kind: domain.KindNetwork, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		te := &domain.TransportError{
			Op:         http.MethodGet,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Kind:       domain.KindStatus,
		}
		if body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); readErr == nil && len(body) > 0 {
			te.Err = errors.New(strings.TrimSpace(string(body)))
		}
		log.Debug().Str("url", endpoint).Int("status", resp.StatusCode).Msg("Detection service returned error status")
		return te
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.TransportError{Op: http.MethodGet, URL: endpoint, Kind: domain.KindNetwork, Err: err}
	}
	if err := decodeObject(data, out); err != nil {
		return c.decodeError(path, err)
	}
	return nil
}

// decodeObject rejects anything but a JSON object before decoding, so a bare
// null or array is reported as malformed instead of yielding zero values.
func decodeObject(data []byte, out interface{}) error {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "{") {
		return fmt.Errorf("expected JSON object")
	}
	return json.Unmarshal([]byte(trimmed), out)
}

func (c *HTTPClient) decodeError(path string, err error) error {
	return &domain.TransportError{
		Op:   http.MethodGet,
		URL:  c.baseURL + path,
		Kind: domain.KindDecode,
		Err:  err,
	}
}
