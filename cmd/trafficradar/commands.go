package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xoelrdgz/trafficradar/internal/adapters/demo"
	"github.com/xoelrdgz/trafficradar/internal/app"
	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/pkg/sanitize"
)

const commandTimeout = 10 * time.Second

var (
	statusJSON bool
	demoAddr   string
	demoSniff  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Run one poll cycle and print the classified traffic table",
	RunE:  runStatus,
}

var startSniffingCmd = &cobra.Command{
	Use:   "start-sniffing",
	Short: "Ask the detection service to start packet capture",
	Args:  cobra.NoArgs,
	RunE:  runStartSniffing,
}

var unblockCmd = &cobra.Command{
	Use:   "unblock IP",
	Short: "Ask the detection service to unblock an IP",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnblock,
}

var serveDemoCmd = &cobra.Command{
	Use:   "serve-demo",
	Short: "Serve the demo detection service over HTTP",
	Long: `Serve an in-process detection service with synthetic traffic on the
same HTTP endpoints the real service exposes. Useful for trying the
dashboard without packet capture privileges.

Examples:
  trafficradar serve-demo --addr :8000
  trafficradar serve-demo --sniff`,
	RunE: runServeDemo,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the snapshot as JSON")
	statusCmd.Flags().BoolVar(&demoMode, "demo", false, "use the in-process demo detection service")

	serveDemoCmd.Flags().StringVar(&demoAddr, "addr", ":8000", "listen address")
	serveDemoCmd.Flags().BoolVar(&demoSniff, "sniff", false, "start generating traffic immediately")
}

func commandSetup() (app.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, err
	}
	setupLogging(cfg.LogLevel, true, "")
	return cfg, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := commandSetup()
	if err != nil {
		return err
	}

	svc, svcCloser := newService(cfg, demoMode, nil)
	defer svcCloser.Close()

	poller := app.NewPoller(svc, cfg.PollerConfig())
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	snap, err := poller.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("poll failed: %w", err)
	}
	rows := poller.Rows()

	if statusJSON {
		data, err := json.MarshalIndent(struct {
			domain.Snapshot
			Rows []domain.TrafficRow `json:"rows"`
		}{snap, rows}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Print(renderStatus(snap, rows))
	return nil
}

func renderStatus(snap domain.Snapshot, rows []domain.TrafficRow) string {
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("#ff3333")).Bold(true)
	amber := lipgloss.NewStyle().Foreground(lipgloss.Color("#ffb000")).Bold(true)
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("#707070"))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("IP", "PACKETS", "STATUS")
	for _, r := range rows {
		t.Row(sanitize.IP(r.IP), strconv.FormatInt(r.Count, 10), r.Status.String())
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		style := lipgloss.NewStyle().Padding(0, 1)
		if row < 0 || row >= len(rows) || col != 2 {
			return style
		}
		switch rows[row].Status {
		case domain.StatusBlocked:
			return style.Inherit(red)
		case domain.StatusWarning:
			return style.Inherit(amber)
		}
		return style
	})

	sniffing := "no"
	if snap.Sniffing {
		sniffing = "yes"
	}

	out := fmt.Sprintf("%s %d   %s %d   %s %d   %s %s\n",
		muted.Render("Total packets:"), snap.Total,
		muted.Render("IPs:"), len(snap.Counts),
		muted.Render("Blocked:"), len(snap.Blocked),
		muted.Render("Sniffing:"), sniffing)
	if len(rows) == 0 {
		return out + muted.Render("No traffic recorded") + "\n"
	}
	return out + t.String() + "\n"
}

func runStartSniffing(cmd *cobra.Command, args []string) error {
	cfg, err := commandSetup()
	if err != nil {
		return err
	}

	svc, svcCloser := newService(cfg, false, nil)
	defer svcCloser.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	ack, err := app.NewDispatcher(svc, nil, nil).RequestStartSniffing(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", app.MsgSniffingFailed, err)
	}
	fmt.Println(sanitize.Message(ack.Message, 0))
	return nil
}

func runUnblock(cmd *cobra.Command, args []string) error {
	ip := args[0]
	if !sanitize.ValidIP(ip) {
		return fmt.Errorf("invalid IP address: %q", ip)
	}

	cfg, err := commandSetup()
	if err != nil {
		return err
	}

	svc, svcCloser := newService(cfg, false, nil)
	defer svcCloser.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	ack, err := app.NewDispatcher(svc, nil, nil).RequestUnblock(ctx, ip)
	if err != nil {
		return err
	}

	msg := ack.Message
	if msg == "" {
		msg = fmt.Sprintf("IP %s unblocked.", ip)
	}
	fmt.Println(sanitize.Message(msg, 0))
	return nil
}

func runServeDemo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel, true, "")

	svc := demo.NewService(demo.DefaultConfig())
	defer svc.Stop()

	if demoSniff {
		if _, err := svc.StartSniffing(cmd.Context()); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:              demoAddr,
		Handler:           demo.NewHandler(svc),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", demoAddr).Msg("Serving demo detection service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
