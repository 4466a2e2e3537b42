package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	BaseURL string

	BreakerEnabled      bool
	BreakerFailureRatio float64
	BreakerMinRequests  int
	BreakerOpenTimeout  time.Duration

	PollInterval     time.Duration
	CycleTimeout     time.Duration
	HistorySize      int
	TopSources       int
	WarningThreshold int64

	NotificationBuffer int

	JSONEnabled    bool
	JSONPath       string
	MetricsEnabled bool
	MetricsPort    string
	WebEnabled     bool
	WebAddr        string

	WebAllowedOrigins []string
	WebRateLimit      int

	PreferencesPath string

	LogLevel string
	LogFile  string
}

// SetDefaults registers every configuration default on the global viper.
func SetDefaults() {
	viper.SetDefault("service.base_url", "http://localhost:8000")
	viper.SetDefault("service.breaker.enabled", false)
	viper.SetDefault("service.breaker.failure_ratio", 0.6)
	viper.SetDefault("service.breaker.min_requests", 10)
	viper.SetDefault("service.breaker.open_timeout", 30*time.Second)

	viper.SetDefault("poll.interval", DefaultPollInterval)
	viper.SetDefault("poll.cycle_timeout", time.Duration(0))
	viper.SetDefault("history.size", 20)
	viper.SetDefault("top_sources.count", 5)
	viper.SetDefault("classify.warning_threshold", 500)
	viper.SetDefault("notifications.buffer", 100)

	viper.SetDefault("output.json.enabled", false)
	viper.SetDefault("output.json.path", "")
	viper.SetDefault("output.metrics.enabled", true)
	viper.SetDefault("output.metrics.port", ":9090")
	viper.SetDefault("web.enabled", false)
	viper.SetDefault("web.addr", ":8080")
	viper.SetDefault("web.allowed_origins", []string{})
	viper.SetDefault("web.rate_limit", 10)

	viper.SetDefault("preferences.path", "./data/preferences.db")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "trafficradar.log")
}

// LoadConfig reads the current values from the global viper.
func LoadConfig() Config {
	return Config{
		BaseURL:             viper.GetString("service.base_url"),
		BreakerEnabled:      viper.GetBool("service.breaker.enabled"),
		BreakerFailureRatio: viper.GetFloat64("service.breaker.failure_ratio"),
		BreakerMinRequests:  viper.GetInt("service.breaker.min_requests"),
		BreakerOpenTimeout:  viper.GetDuration("service.breaker.open_timeout"),
		PollInterval:        viper.GetDuration("poll.interval"),
		CycleTimeout:        viper.GetDuration("poll.cycle_timeout"),
		HistorySize:         viper.GetInt("history.size"),
		TopSources:          viper.GetInt("top_sources.count"),
		WarningThreshold:    viper.GetInt64("classify.warning_threshold"),
		NotificationBuffer:  viper.GetInt("notifications.buffer"),
		JSONEnabled:         viper.GetBool("output.json.enabled"),
		JSONPath:            viper.GetString("output.json.path"),
		MetricsEnabled:      viper.GetBool("output.metrics.enabled"),
		MetricsPort:         viper.GetString("output.metrics.port"),
		WebEnabled:          viper.GetBool("web.enabled"),
		WebAddr:             viper.GetString("web.addr"),
		WebAllowedOrigins:   viper.GetStringSlice("web.allowed_origins"),
		WebRateLimit:        viper.GetInt("web.rate_limit"),
		PreferencesPath:     viper.GetString("preferences.path"),
		LogLevel:            viper.GetString("logging.level"),
		LogFile:             viper.GetString("logging.file"),
	}
}

// PollerConfig extracts the poller settings.
func (c Config) PollerConfig() PollerConfig {
	return PollerConfig{
		Interval:         c.PollInterval,
		CycleTimeout:     c.CycleTimeout,
		HistorySize:      c.HistorySize,
		TopSources:       c.TopSources,
		WarningThreshold: c.WarningThreshold,
	}
}

// ValidateConfig returns a *ConfigValidationError for the first bad field.
func ValidateConfig(c Config) error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigValidationError{Field: "service.base_url", Value: c.BaseURL, Reason: "must be an absolute http(s) URL"}
	}

	if c.PollInterval < 100*time.Millisecond {
		return &ConfigValidationError{Field: "poll.interval", Value: c.PollInterval, Reason: "must be at least 100ms"}
	}
	if c.CycleTimeout < 0 {
		return &ConfigValidationError{Field: "poll.cycle_timeout", Value: c.CycleTimeout, Reason: "must not be negative"}
	}
	if c.HistorySize < 1 || c.HistorySize > 10000 {
		return &ConfigValidationError{Field: "history.size", Value: c.HistorySize, Reason: "must be between 1 and 10000"}
	}
	if c.TopSources < 1 || c.TopSources > 1000 {
		return &ConfigValidationError{Field: "top_sources.count", Value: c.TopSources, Reason: "must be between 1 and 1000"}
	}
	if c.WarningThreshold < 1 {
		return &ConfigValidationError{Field: "classify.warning_threshold", Value: c.WarningThreshold, Reason: "must be positive"}
	}
	if c.NotificationBuffer < 1 || c.NotificationBuffer > 100000 {
		return &ConfigValidationError{Field: "notifications.buffer", Value: c.NotificationBuffer, Reason: "must be between 1 and 100000"}
	}

	if c.WebEnabled && c.WebRateLimit < 1 {
		return &ConfigValidationError{Field: "web.rate_limit", Value: c.WebRateLimit, Reason: "must be positive"}
	}

	if c.BreakerEnabled {
		if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
			return &ConfigValidationError{Field: "service.breaker.failure_ratio", Value: c.BreakerFailureRatio, Reason: "must be in (0, 1]"}
		}
		if c.BreakerMinRequests < 1 {
			return &ConfigValidationError{Field: "service.breaker.min_requests", Value: c.BreakerMinRequests, Reason: "must be positive"}
		}
		if c.BreakerOpenTimeout <= 0 {
			return &ConfigValidationError{Field: "service.breaker.open_timeout", Value: c.BreakerOpenTimeout, Reason: "must be positive"}
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigValidationError{Field: "logging.level", Value: c.LogLevel, Reason: "must be one of debug, info, warn, error"}
	}

	return nil
}

type ConfigValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s = %v - %s", e.Field, e.Value, e.Reason)
}

// HotReloadConfig re-reads the config file when it changes. Only settings
// that can change mid-session are handed to OnReload; the poll schedule is
// fixed once the poller starts.
type HotReloadConfig struct {
	current atomic.Pointer[Config]

	onReload   func(Config)
	configPath string
	mu         sync.Mutex
	stopChan   chan struct{}
	stopOnce   sync.Once
}

type HotReloadOptions struct {
	ConfigPath string
	Initial    Config
	OnReload   func(Config)
}

func NewHotReloadConfig(opts HotReloadOptions) *HotReloadConfig {
	h := &HotReloadConfig{
		onReload:   opts.OnReload,
		configPath: opts.ConfigPath,
		stopChan:   make(chan struct{}),
	}
	initial := opts.Initial
	h.current.Store(&initial)
	return h
}

func (h *HotReloadConfig) Current() Config {
	return *h.current.Load()
}

func (h *HotReloadConfig) StartWatching(ctx context.Context) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		select {
		case <-h.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		log.Info().
			Str("file", e.Name).
			Str("op", e.Op.String()).
			Msg("Config file changed, reloading...")

		h.reload()
	})

	viper.WatchConfig()
	log.Info().Str("config", h.configPath).Msg("Hot-reload config watching started")
}

func (h *HotReloadConfig) reload() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := viper.ReadInConfig(); err != nil {
		log.Error().Err(err).Msg("Failed to re-read config, keeping current configuration")
		return
	}
	h.apply(LoadConfig())
}

// apply validates next and, if valid, makes it current and runs OnReload.
func (h *HotReloadConfig) apply(next Config) bool {
	if err := ValidateConfig(next); err != nil {
		log.Error().Err(err).Msg("Invalid configuration, rejecting reload")
		return false
	}

	prev := h.Current()
	if next.PollInterval != prev.PollInterval {
		log.Warn().
			Dur("current", prev.PollInterval).
			Dur("requested", next.PollInterval).
			Msg("poll.interval change takes effect on next start")
	}

	h.current.Store(&next)
	if h.onReload != nil {
		h.onReload(next)
	}
	log.Info().Str("log_level", next.LogLevel).Msg("Configuration hot-reloaded successfully")
	return true
}

func (h *HotReloadConfig) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
		log.Info().Msg("Hot-reload config watcher stopped")
	})
}
