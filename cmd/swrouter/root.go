package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/oklabs/swrouter/internal/arpcache"
	"github.com/oklabs/swrouter/internal/config"
	"github.com/oklabs/swrouter/internal/dispatcher"
	"github.com/oklabs/swrouter/internal/iface"
	"github.com/oklabs/swrouter/internal/nat"
	"github.com/oklabs/swrouter/internal/routing"
)

// newRootCmd builds the swrouter cobra command, following
// malbeclabs/doublezero's cli.Run layout (controlplane/telemetry/internal/data/cli/root.go):
// a root command whose flags are bound straight into a Config struct and
// whose RunE does the actual bootstrap.
func newRootCmd() *cobra.Command {
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:   "swrouter",
		Short: "A learning software router: IPv4 forwarding, ARP, ICMP and NAT.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cfg.BindFlags(cmd.Flags())
	return cmd
}

// run wires every collaborator described in spec.md §5 ("one process, one
// dispatcher, shared maps guarded by locks") and blocks until ctx is
// cancelled.
func run(ctx context.Context, cfg config.Config) error {
	log := newLogger(cfg.Verbose)
	clock := clockwork.NewRealClock()
	reg := prometheus.NewRegistry()

	internalIface, err := resolveInterface(cfg.InternalInterface)
	if err != nil {
		return fmt.Errorf("internal interface: %w", err)
	}
	externalIface, err := resolveInterface(cfg.ExternalInterface)
	if err != nil {
		return fmt.Errorf("external interface: %w", err)
	}
	ifaces := iface.NewTable([]iface.Interface{internalIface, externalIface})

	routes, err := routing.Load(cfg.RoutesFile)
	if err != nil {
		return fmt.Errorf("routes: %w", err)
	}

	arpMetrics := arpcache.NewMetrics(reg)
	arp := arpcache.New(clock, []string{cfg.InternalInterface, cfg.ExternalInterface}, arpMetrics)
	arpSweeper := arpcache.NewSweeper(arp, clock, log)

	var natTable *nat.Table
	var natSweeper *nat.Sweeper
	if cfg.NATEnabled {
		natMetrics := nat.NewMetrics(reg)
		natTable = nat.New(externalIface.IP, cfg.Timeouts, clock, natMetrics)
		natSweeper = nat.NewSweeper(natTable, clock, log)
	}

	dispatcherMetrics := dispatcher.NewMetrics(reg)
	d := dispatcher.New(dispatcher.Config{
		Ifaces:        ifaces,
		Routes:        routes,
		ARP:           arp,
		NAT:           natTable,
		NATEnabled:    cfg.NATEnabled,
		InternalIface: cfg.InternalInterface,
		ExternalIface: cfg.ExternalInterface,
		Sender:        nil, // wired to the raw-socket link layer, out of scope (see internal/linklayer)
		Log:           log,
		Metrics:       dispatcherMetrics,
	})
	_ = d // Receive is driven by the link-layer goroutines this binary does not start

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		listener, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		go func() {
			log.Info("metrics server listening", "address", listener.Addr().String())
			if err := http.Serve(listener, mux); err != nil {
				log.Error("metrics server stopped", "error", err)
			}
		}()
	}

	go arpSweeper.Run()
	defer arpSweeper.Stop()
	if natSweeper != nil {
		go natSweeper.Run()
		defer natSweeper.Stop()
	}

	log.Info("swrouter started",
		"internal_interface", cfg.InternalInterface,
		"external_interface", cfg.ExternalInterface,
		"nat_enabled", cfg.NATEnabled,
	)

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// notifyContext returns a context cancelled on SIGINT/SIGTERM, matching
// global-monitor's shutdown signal set
// (telemetry/global-monitor/cmd/global-monitor/main.go).
func notifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
