package tracing

import (
	"fmt"
	"os"
	"strings"
)

const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http"

	defaultServiceName = "confreq"
)

// Config selects the OTLP exporter. Tracing is enabled when an endpoint is set
// here or through OTEL_EXPORTER_OTLP_ENDPOINT.
type Config struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	// Propagate overrides trace header injection; nil follows Enabled.
	Propagate *bool `mapstructure:"propagate"`
}

// Enabled reports whether an exporter endpoint was configured.
func (c Config) Enabled() bool {
	return c.endpoint() != ""
}

// ShouldPropagate reports whether outgoing requests carry W3C trace headers.
func (c Config) ShouldPropagate() bool {
	if c.Propagate != nil {
		return *c.Propagate
	}
	return c.Enabled()
}

// Problems lists what is wrong with c; nil means it can be used.
func (c Config) Problems() []string {
	var out []string
	if c.SampleRate < 0 || c.SampleRate > 1 {
		out = append(out, fmt.Sprintf("tracing sample rate must be between 0 and 1, got %g", c.SampleRate))
	}
	if _, ok := exporters[c.protocol()]; !ok {
		out = append(out, fmt.Sprintf("tracing protocol %q must be grpc or http", c.Protocol))
	}
	return out
}

func (c Config) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
}

func (c Config) protocol() string {
	if p := strings.ToLower(strings.TrimSpace(c.Protocol)); p != "" {
		return p
	}
	return ProtocolGRPC
}

func (c Config) serviceName() string {
	if c.ServiceName != "" {
		return c.ServiceName
	}
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		return name
	}
	return defaultServiceName
}
