package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envBindings maps setting keys to the environment variables that set them.
// The MOCK_API family keeps the names front-end builds already export.
var envBindings = map[string][]string{
	"mock":                 {"MOCK_API"},
	"alt_mock":             {"VUE_APP_MOCK_API"},
	"network_delay":        {"MOCK_API_NETWORK_DELAY", "CONFREQ_NETWORK_DELAY"},
	"auth_whitelist":       {"MOCK_API_AUTH_WHITELIST"},
	"auth_blacklist":       {"MOCK_API_AUTH_BLACKLIST"},
	"timeout":              {"CONFREQ_TIMEOUT"},
	"user_agent":           {"CONFREQ_USER_AGENT"},
	"catalog":              {"CONFREQ_CATALOG"},
	"replay_file":          {"CONFREQ_REPLAY_FILE"},
	"log.level":            {"CONFREQ_LOG_LEVEL"},
	"log.format":           {"CONFREQ_LOG_FORMAT"},
	"log.output":           {"CONFREQ_LOG_OUTPUT"},
	"tracing.endpoint":     {"CONFREQ_TRACING_ENDPOINT"},
	"tracing.protocol":     {"CONFREQ_TRACING_PROTOCOL"},
	"tracing.service_name": {"CONFREQ_TRACING_SERVICE_NAME"},
	"tracing.sample_rate":  {"CONFREQ_TRACING_SAMPLE_RATE"},
	"tracing.insecure":     {"CONFREQ_TRACING_INSECURE"},
	"tracing.propagate":    {"CONFREQ_TRACING_PROPAGATE"},
}

// Loader resolves Settings. Later sources win: defaults, config file,
// environment, flags.
type Loader struct{}

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads every source. fs may be nil when no flags are available.
func (Loader) Load(fs *pflag.FlagSet) (*Settings, error) {
	s := DefaultSettings()

	env := viper.New()
	for _, key := range sortedKeys(envBindings) {
		if err := env.BindEnv(append([]string{key}, envBindings[key]...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	if err := env.BindEnv("config", "CONFREQ_CONFIG"); err != nil {
		return nil, fmt.Errorf("bind config: %w", err)
	}

	configPath := env.GetString("config")
	if fs != nil && fs.Changed("config") {
		val, err := fs.GetString("config")
		if err != nil {
			return nil, err
		}
		configPath = val
	}
	configPath = strings.TrimSpace(configPath)

	if configPath != "" {
		file := viper.New()
		file.SetConfigFile(configPath)
		if err := file.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		keys := file.AllKeys()
		sort.Strings(keys)
		for _, key := range keys {
			if err := applySetting(s, key, file.Get(key)); err != nil {
				return nil, fmt.Errorf("%s: %s: %w", configPath, key, err)
			}
		}
		s.ConfigFile = configPath
	}

	for _, key := range sortedKeys(envBindings) {
		if !env.IsSet(key) {
			continue
		}
		if err := applySetting(s, key, env.Get(key)); err != nil {
			return nil, fmt.Errorf("%s: %w", strings.Join(envBindings[key], "/"), err)
		}
	}

	if fs != nil {
		if err := applyFlagOverrides(s, fs); err != nil {
			return nil, err
		}
	}

	s.NetworkDelay = strings.ToLower(strings.TrimSpace(s.NetworkDelay))
	return s, nil
}

// applySetting stores one value addressed by its dotted key. Unknown keys are
// ignored so config files can carry settings for other tools.
func applySetting(s *Settings, key string, value interface{}) error {
	var err error
	switch strings.ToLower(key) {
	case "mock":
		s.Mock, err = asBool(value)
	case "alt_mock":
		s.AltMock, err = asBool(value)
	case "network_delay":
		s.NetworkDelay, err = asString(value)
	case "auth_whitelist":
		s.AuthWhitelist, err = asStringSlice(value)
	case "auth_blacklist":
		s.AuthBlacklist, err = asStringSlice(value)
	case "timeout":
		s.Timeout, err = asDuration(value)
	case "user_agent":
		s.UserAgent, err = asString(value)
	case "catalog":
		s.CatalogPath, err = asString(value)
	case "replay_file":
		s.ReplayPath, err = asString(value)
	case "log.level":
		s.Log.Level, err = asString(value)
	case "log.format":
		s.Log.Format, err = asString(value)
	case "log.output":
		s.Log.Output, err = asString(value)
	case "tracing.endpoint":
		s.Tracing.Endpoint, err = asString(value)
	case "tracing.protocol":
		s.Tracing.Protocol, err = asString(value)
	case "tracing.service_name":
		s.Tracing.ServiceName, err = asString(value)
	case "tracing.sample_rate":
		s.Tracing.SampleRate, err = asFloat64(value)
	case "tracing.insecure":
		s.Tracing.Insecure, err = asBool(value)
	case "tracing.propagate":
		var on bool
		if on, err = asBool(value); err == nil {
			s.Tracing.Propagate = &on
		}
	}
	return err
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
