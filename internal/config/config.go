// Package config loads the process-wide settings of confreq from a config
// file, the environment and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/torosent/confreq/internal/logging"
	"github.com/torosent/confreq/internal/tracing"
	"github.com/torosent/confreq/pkg/request"
)

// Settings are read once at startup. Templates receive the mock part through
// Defaults; nothing below pkg/request reads the environment.
type Settings struct {
	// Mock and AltMock mirror MOCK_API and VUE_APP_MOCK_API.
	Mock          bool
	AltMock       bool
	NetworkDelay  string
	AuthWhitelist []string
	AuthBlacklist []string

	Timeout     time.Duration
	UserAgent   string
	CatalogPath string
	ReplayPath  string
	ConfigFile  string

	Log     logging.Config
	Tracing tracing.Config
}

// DefaultSettings returns the settings used when no source sets a value.
func DefaultSettings() *Settings {
	return &Settings{
		NetworkDelay: string(request.DelayLight),
		Timeout:      30 * time.Second,
		UserAgent:    "confreq",
		ReplayPath:   "confreq-replay.jsonl",
		Log:          logging.DefaultConfig(),
		Tracing:      tracing.Config{Protocol: "grpc", SampleRate: 1.0},
	}
}

// Defaults is the explicit mock configuration handed to template factories.
func (s Settings) Defaults() request.Defaults {
	return request.Defaults{
		Mock:          s.Mock,
		AltMock:       s.AltMock,
		NetworkDelay:  request.NetworkDelay(s.NetworkDelay),
		AuthWhitelist: append([]string(nil), s.AuthWhitelist...),
		AuthBlacklist: append([]string(nil), s.AuthBlacklist...),
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (s Settings) Validate() error {
	var issues []string

	if _, _, err := request.NetworkDelay(s.NetworkDelay).Range(); err != nil {
		issues = append(issues, fmt.Sprintf("network delay %q must be light, medium, heavy or very-heavy", s.NetworkDelay))
	}
	if s.Timeout < 0 {
		issues = append(issues, "timeout must be non-negative")
	}
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		issues = append(issues, err.Error())
	}
	switch strings.ToLower(s.Log.Format) {
	case "", "json", "console":
	default:
		issues = append(issues, fmt.Sprintf("log format %q must be json or console", s.Log.Format))
	}
	issues = append(issues, s.Tracing.Problems()...)
	for _, entry := range s.AuthWhitelist {
		for _, blocked := range s.AuthBlacklist {
			if entry == blocked {
				issues = append(issues, fmt.Sprintf("%q is both whitelisted and blacklisted", entry))
			}
		}
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}
