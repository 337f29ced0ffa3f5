// Package config holds the router's flat, pflag-bound configuration
// (spec.md §1's "out of scope: configuration" collaborator, given a
// minimal real implementation here per SPEC_FULL.md's ambient stack),
// mirroring malbeclabs/doublezero's flag-wiring convention
// (telemetry/global-monitor/cmd/global-monitor/main.go).
package config

import (
	flag "github.com/spf13/pflag"

	"github.com/oklabs/swrouter/internal/nat"
)

// Config is every knob the CLI entrypoint exposes.
type Config struct {
	InternalInterface string
	ExternalInterface string
	RoutesFile        string

	NATEnabled bool
	Timeouts   nat.Timeouts

	MetricsAddr string
	Verbose     bool
}

// Default returns a Config with spec.md §4.5's default timeouts and no
// interfaces or routes file configured.
func Default() Config {
	return Config{
		NATEnabled:  true,
		Timeouts:    nat.DefaultTimeouts(),
		MetricsAddr: ":9090",
	}
}

// BindFlags registers cfg's fields as pflag flags on fs, following
// malbeclabs/doublezero's main.go flag-per-field convention. Call
// fs.Parse after this, then read cfg's fields.
func (cfg *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&cfg.InternalInterface, "internal-interface", cfg.InternalInterface, "name of the internal (NAT'd) interface")
	fs.StringVar(&cfg.ExternalInterface, "external-interface", cfg.ExternalInterface, "name of the external interface")
	fs.StringVar(&cfg.RoutesFile, "routes-file", cfg.RoutesFile, "path to the routing table file (destination gateway mask interface, one per line)")

	fs.BoolVar(&cfg.NATEnabled, "nat-enabled", cfg.NATEnabled, "enable the NAT engine")
	fs.DurationVar(&cfg.Timeouts.ICMPQueryIdle, "nat-icmp-idle-timeout", cfg.Timeouts.ICMPQueryIdle, "idle timeout for ICMP-query NAT mappings")
	fs.DurationVar(&cfg.Timeouts.TCPEstablished, "nat-tcp-established-timeout", cfg.Timeouts.TCPEstablished, "idle timeout for established TCP connections")
	fs.DurationVar(&cfg.Timeouts.TCPTransitory, "nat-tcp-transitory-timeout", cfg.Timeouts.TCPTransitory, "idle timeout for TCP connections not yet established")
	fs.DurationVar(&cfg.Timeouts.UnsolicitedSYN, "nat-unsolicited-syn-timeout", cfg.Timeouts.UnsolicitedSYN, "hold duration for an unsolicited inbound SYN before port-unreachable")

	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address to listen on for prometheus metrics")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "enable debug logging")
}

// Validate reports a descriptive error for any required field left unset.
func (cfg Config) Validate() error {
	if cfg.InternalInterface == "" {
		return errMissing("internal-interface")
	}
	if cfg.ExternalInterface == "" {
		return errMissing("external-interface")
	}
	if cfg.RoutesFile == "" {
		return errMissing("routes-file")
	}
	return nil
}

func errMissing(flagName string) error {
	return &missingFlagError{flagName: flagName}
}

type missingFlagError struct{ flagName string }

func (e *missingFlagError) Error() string {
	return "config: required flag --" + e.flagName + " not set"
}
