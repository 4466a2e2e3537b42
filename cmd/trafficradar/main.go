package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xoelrdgz/trafficradar/internal/adapters/demo"
	"github.com/xoelrdgz/trafficradar/internal/adapters/service"
	"github.com/xoelrdgz/trafficradar/internal/adapters/storage"
	"github.com/xoelrdgz/trafficradar/internal/app"
	"github.com/xoelrdgz/trafficradar/internal/ports"
)

var (
	cfgFile  string
	baseURL  string
	logLevel string

	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "trafficradar",
	Short: "Live dashboard client for a DDoS detection service",
	Long: `TrafficRadar polls a DDoS detection service for per-IP packet counts
and blocked IPs, derives totals, top sources, a rolling traffic history
and per-IP status, and lets the operator start capture or unblock IPs.

Presentation:
  - Terminal dashboard (default)
  - HTTP/WebSocket API (--web)
  - Console logs and JSON notifications (--no-tui, --json)`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("TrafficRadar %s\n", Version)
		fmt.Printf("Commit:  %s\n", Commit)
		fmt.Printf("Built:   %s\n", BuildTime)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "detection service base URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("service.base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(startSniffingCmd)
	rootCmd.AddCommand(unblockCmd)
	rootCmd.AddCommand(serveDemoCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/trafficradar")
	}

	app.SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn().Err(err).Msg("Error reading config file")
		}
	}

	viper.SetEnvPrefix("TRAFFICRADAR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// loadConfig resolves and validates the configuration.
func loadConfig() (app.Config, error) {
	cfg := app.LoadConfig()
	if err := app.ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func setLevel(level string) {
	zerolog.SetGlobalLevel(parseLevel(level))
}

// setupLogging configures the global logger. Console mode logs to stderr in
// human form; TUI mode sends JSON logs to logFile so the screen stays clean.
// The returned closer releases the log file.
func setupLogging(level string, console bool, logFile string) io.Closer {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	setLevel(level)

	if console {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
		return noopCloser
	}

	if logFile == "" {
		log.Logger = zerolog.New(io.Discard)
		return noopCloser
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		log.Logger = zerolog.New(io.Discard)
		fmt.Fprintf(os.Stderr, "warning: cannot open log file %s: %v\n", logFile, err)
		return noopCloser
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return f
}

// closer adapts a func to io.Closer.
type closer func() error

func (c closer) Close() error { return c() }

var noopCloser = closer(func() error { return nil })

// newService builds the detection service: the in-process demo service, or
// the HTTP client optionally behind a circuit breaker. onBreaker, when set,
// receives breaker state transitions.
func newService(cfg app.Config, useDemo bool, onBreaker func(name, from, to string)) (ports.DetectionService, io.Closer) {
	if useDemo {
		svc := demo.NewService(demo.DefaultConfig())
		log.Info().Msg("Using in-process demo detection service")
		return svc, closer(svc.Stop)
	}

	client := service.NewHTTPClient(cfg.BaseURL)
	if !cfg.BreakerEnabled {
		return client, noopCloser
	}

	breaker := service.NewCircuitBreakerService(client, service.BreakerConfig{
		FailureRatio:  cfg.BreakerFailureRatio,
		MinRequests:   uint32(cfg.BreakerMinRequests),
		OpenTimeout:   cfg.BreakerOpenTimeout,
		OnStateChange: onBreaker,
	})
	return breaker, noopCloser
}

// newPreferenceStore opens the bolt store, falling back to memory so a
// locked or unwritable file never blocks startup.
func newPreferenceStore(cfg app.Config, persist bool) ports.PreferenceStore {
	if !persist || cfg.PreferencesPath == "" {
		return storage.NewMemoryStore()
	}
	store, err := storage.NewBoltStore(cfg.PreferencesPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.PreferencesPath).Msg("Preferences unavailable, using in-memory store")
		return storage.NewMemoryStore()
	}
	return store
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
