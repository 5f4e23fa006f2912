package config

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers the settings flags as persistent flags of cmd.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.PersistentFlags())
}

// configureFlags sets up the settings flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Mock flags
	flags.Bool("mock", false, "Answer requests with the configured mock functions")
	flags.String("network-delay", "light", "Simulated mock latency: light, medium, heavy or very-heavy")
	flags.StringSlice("auth-whitelist", nil, "Mock auth whitelist entries")
	flags.StringSlice("auth-blacklist", nil, "Mock auth blacklist entries")

	// Transport flags
	flags.Duration("timeout", 30*time.Second, "Per-request timeout")
	flags.String("user-agent", "confreq", "User-Agent header for network requests")

	// Catalog and replay
	flags.String("catalog", "", "Path to the endpoint catalog (YAML)")
	flags.String("replay-file", "confreq-replay.jsonl", "Path to the replay store")

	// Logging flags
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.String("log-format", "console", "Log format: console or json")
	flags.String("log-output", "stderr", "Log destination: stderr, stdout or a file path")

	// Tracing flags
	flags.String("trace-endpoint", "", "OTLP endpoint; enables tracing")
	flags.String("trace-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.Float64("trace-sample-rate", 1.0, "Trace sampling ratio between 0 and 1")
	flags.Bool("trace-insecure", false, "Disable TLS for the OTLP exporter")
}

// flagSettings maps flag names to setting keys.
var flagSettings = map[string]string{
	"mock":              "mock",
	"network-delay":     "network_delay",
	"auth-whitelist":    "auth_whitelist",
	"auth-blacklist":    "auth_blacklist",
	"timeout":           "timeout",
	"user-agent":        "user_agent",
	"catalog":           "catalog",
	"replay-file":       "replay_file",
	"log-level":         "log.level",
	"log-format":        "log.format",
	"log-output":        "log.output",
	"trace-endpoint":    "tracing.endpoint",
	"trace-protocol":    "tracing.protocol",
	"trace-sample-rate": "tracing.sample_rate",
	"trace-insecure":    "tracing.insecure",
}

// applyFlagOverrides applies flags that were set on the command line,
// overriding the config file and the environment.
func applyFlagOverrides(s *Settings, fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		key, ok := flagSettings[f.Name]
		if !ok {
			return
		}
		var value interface{} = f.Value.String()
		if sv, isSlice := f.Value.(pflag.SliceValue); isSlice {
			value = sv.GetSlice()
		}
		if applyErr := applySetting(s, key, value); applyErr != nil {
			err = fmt.Errorf("--%s: %w", f.Name, applyErr)
		}
	})
	return err
}
