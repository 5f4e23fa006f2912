package request

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cast"
)

// Options is an option bag given at design time (Builder.Options) or per call.
// The mock keys below configure the mock path; every other key is passed to the
// transport as an overlay (the HTTP transport understands "timeout").
type Options map[string]any

// Mock-relevant option keys.
const (
	OptMock          = "mock"
	OptNetworkDelay  = "networkDelay"
	OptAuthWhitelist = "authWhitelist"
	OptAuthBlacklist = "authBlacklist"
	OptMockDB        = "db"
)

// MockConfig is the mock-path configuration resolved for one call.
type MockConfig struct {
	Mock          *bool        `json:"mock,omitempty"`
	NetworkDelay  NetworkDelay `json:"networkDelay"`
	AuthWhitelist []string     `json:"authWhitelist,omitempty"`
	AuthBlacklist []string     `json:"authBlacklist,omitempty"`
	DB            any          `json:"-"`
}

// Defaults are the process-wide mock settings a template is created with. They
// are supplied explicitly (see internal/config), never read from the
// environment during resolution.
type Defaults struct {
	// Mock and AltMock are the two process-wide mock toggles.
	Mock          bool
	AltMock       bool
	NetworkDelay  NetworkDelay
	AuthWhitelist []string
	AuthBlacklist []string
}

// isMock applies the precedence: explicit per-call or design-time flag, then
// the process-wide toggles.
func (d Defaults) isMock(mc MockConfig) bool {
	if mc.Mock != nil {
		return *mc.Mock
	}
	return d.Mock || d.AltMock
}

// splitOptions layers the option bags over the defaults (later layers win) and
// separates mock keys from the transport overlay.
func splitOptions(defaults Defaults, layers ...Options) (MockConfig, Options, error) {
	mc := MockConfig{
		NetworkDelay:  defaults.NetworkDelay,
		AuthWhitelist: append([]string(nil), defaults.AuthWhitelist...),
		AuthBlacklist: append([]string(nil), defaults.AuthBlacklist...),
	}
	if mc.NetworkDelay == "" {
		mc.NetworkDelay = DelayLight
	}
	transport := Options{}

	for _, layer := range layers {
		for _, key := range sortedKeys(layer) {
			value := layer[key]
			switch key {
			case OptMock:
				flag, err := cast.ToBoolE(value)
				if err != nil {
					return MockConfig{}, nil, newConfigError(CodeInvalidMockCall, http.StatusBadRequest, "option %q: %v", key, err)
				}
				mc.Mock = &flag
			case OptNetworkDelay:
				delay := NetworkDelay(formatScalar(value))
				if _, _, err := delay.Range(); err != nil {
					return MockConfig{}, nil, err
				}
				mc.NetworkDelay = delay
			case OptAuthWhitelist:
				list, err := stringList(value)
				if err != nil {
					return MockConfig{}, nil, newConfigError(CodeInvalidMockCall, http.StatusBadRequest, "option %q: %v", key, err)
				}
				mc.AuthWhitelist = list
			case OptAuthBlacklist:
				list, err := stringList(value)
				if err != nil {
					return MockConfig{}, nil, newConfigError(CodeInvalidMockCall, http.StatusBadRequest, "option %q: %v", key, err)
				}
				mc.AuthBlacklist = list
			case OptMockDB:
				mc.DB = value
			default:
				transport[key] = value
			}
		}
	}
	return mc, transport, nil
}

// stringList accepts a []string-like value or a comma separated string.
func stringList(v any) ([]string, error) {
	if s, ok := v.(string); ok {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
	list, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, fmt.Errorf("expected a list of strings: %w", err)
	}
	return list, nil
}
