package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xoelrdgz/trafficradar/internal/adapters/output"
	"github.com/xoelrdgz/trafficradar/internal/adapters/web"
	"github.com/xoelrdgz/trafficradar/internal/app"
	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/internal/ports"
	"github.com/xoelrdgz/trafficradar/internal/tui"
)

var (
	noTUI     bool
	jsonOut   bool
	webOn     bool
	demoMode  bool
	noPersist bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the detection service and show the live dashboard",
	Long: `Poll the detection service every interval and present the derived
state in the terminal dashboard, on the console, or over HTTP/WebSocket.

Examples:
  trafficradar watch
  trafficradar watch --base-url http://10.0.0.5:8000
  trafficradar watch --no-tui --json
  trafficradar watch --demo --web`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&noTUI, "no-tui", false, "disable TUI, log to the console")
	watchCmd.Flags().BoolVar(&jsonOut, "json", false, "write notifications as JSON lines to stdout")
	watchCmd.Flags().BoolVar(&webOn, "web", false, "serve the HTTP/WebSocket dashboard API")
	watchCmd.Flags().BoolVar(&demoMode, "demo", false, "use the in-process demo detection service")
	watchCmd.Flags().BoolVar(&noPersist, "no-persist", false, "keep preferences in memory only")

	_ = viper.BindPFlag("web.enabled", watchCmd.Flags().Lookup("web"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logCloser := setupLogging(cfg.LogLevel, noTUI, cfg.LogFile)
	defer logCloser.Close()

	source := cfg.BaseURL
	if demoMode {
		source = "DEMO"
	}
	log.Info().
		Str("source", source).
		Dur("interval", cfg.PollInterval).
		Bool("tui", !noTUI).
		Bool("web", cfg.WebEnabled).
		Msg("TrafficRadar started")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var metrics *output.PrometheusMetrics
	if cfg.MetricsEnabled {
		metrics = output.NewPrometheusMetrics("trafficradar", nil)
	}

	var onBreaker func(name, from, to string)
	if metrics != nil {
		onBreaker = func(name, _, to string) { metrics.SetBreakerState(name, to) }
	}
	svc, svcCloser := newService(cfg, demoMode, onBreaker)
	defer svcCloser.Close()

	store := newPreferenceStore(cfg, !noPersist)
	defer store.Close()
	themes := app.NewThemeStore(store)

	memory := output.NewMemoryNotifier(cfg.NotificationBuffer)
	notifiers := output.NewNotifierGroup(memory)

	if jsonOut || cfg.JSONEnabled {
		jsonConfig := output.JSONNotifierConfig{Stdout: jsonOut}
		if !jsonOut {
			jsonConfig.FilePath = cfg.JSONPath
		}
		jsonNotifier, err := output.NewJSONNotifier(jsonConfig)
		if err != nil {
			return fmt.Errorf("failed to create JSON notifier: %w", err)
		}
		defer jsonNotifier.Close()
		notifiers.Add(jsonNotifier)
	}

	poller := app.NewPoller(svc, cfg.PollerConfig())
	poller.SetNotifier(notifiers)
	dispatcher := app.NewDispatcher(svc, poller, notifiers)

	if metrics != nil {
		poller.SetPollObserver(metrics)
		poller.AddObserver(metrics)
		notifiers.Add(metrics)

		health := output.NewHealthChecker(poller, output.DefaultHealthCheckerConfig(cfg.PollInterval))
		metricsConfig := output.DefaultMetricsConfig()
		metricsConfig.Port = cfg.MetricsPort
		metricsConfig.Health = health
		if err := metrics.StartServer(metricsConfig); err != nil {
			log.Warn().Err(err).Msg("Failed to start metrics server")
		}
		defer metrics.StopServer()
	}

	themes.OnChange(func(t app.Theme) {
		log.Info().Str("theme", string(t)).Msg("Theme changed")
		notifiers.OnNotification(domain.NewNotification(domain.NotificationInfo, domain.ActionTheme, "", "Theme set to "+string(t)))
	})

	if cfg.WebEnabled {
		classifier := poller.Classifier()
		hub := web.NewHub(classifier, poller.Snapshot)
		poller.AddObserver(hub)
		notifiers.Add(hub)

		server := web.NewServer(web.ServerConfig{
			Addr:           cfg.WebAddr,
			AllowedOrigins: cfg.WebAllowedOrigins,
			RateLimit:      cfg.WebRateLimit,
		}, poller, dispatcher, themes, memory, hub)
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start web server: %w", err)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			if err := server.Stop(stopCtx); err != nil {
				log.Warn().Err(err).Msg("Web server shutdown error")
			}
		}()
	}

	if path := viper.ConfigFileUsed(); path != "" {
		reloader := app.NewHotReloadConfig(app.HotReloadOptions{
			ConfigPath: path,
			Initial:    cfg,
			OnReload: func(next app.Config) {
				setLevel(next.LogLevel)
			},
		})
		reloader.StartWatching(ctx)
		defer reloader.Stop()
	}

	if noTUI {
		log.Info().Msg("Running in console mode")
		poller.AddObserver(ports.StateObserverFunc(logSnapshot))
		return poller.Run(ctx)
	}

	classifier := poller.Classifier()
	tuiApp := tui.NewApp(tui.Options{
		Source:       source,
		PollInterval: cfg.PollInterval,
		Classifier:   &classifier,
	}, dispatcher, poller, themes)
	poller.AddObserver(tuiApp)
	notifiers.Add(tuiApp)

	if err := poller.Start(ctx); err != nil {
		return err
	}

	var tuiErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("TUI panic recovered")
				tuiErr = fmt.Errorf("TUI panic: %v", r)
			}
		}()
		tuiErr = tuiApp.Run()
	}()

	cancel()
	log.Info().Msg("Shutting down...")
	poller.Stop()

	select {
	case <-poller.Done():
		log.Debug().Msg("Shutdown complete")
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Shutdown timeout, forcing exit")
	}

	return tuiErr
}

func logSnapshot(s domain.Snapshot) {
	if s.LastError != "" {
		return
	}
	ev := log.Info().
		Uint64("generation", s.Generation).
		Int64("total", s.Total).
		Int("ips", len(s.Counts)).
		Int("blocked", len(s.Blocked)).
		Bool("sniffing", s.Sniffing)
	if len(s.TopSources) > 0 {
		ev = ev.Str("top_ip", s.TopSources[0].IP).Int64("top_count", s.TopSources[0].Count)
	}
	ev.Msg("Traffic snapshot")
}
