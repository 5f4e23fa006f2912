// Package catalog loads endpoint declarations from YAML and compiles them into
// request templates.
//
// A catalog file looks like:
//
//	baseURL: https://api.example.com
//	endpoints:
//	  - name: getUser
//	    method: GET
//	    url: /users/{id}
//	    unwrap: data
//	    query:
//	      verbose: true
//	      page: {$dynamic: {default: 1}}
//	    headers:
//	      X-Request-Id: {$calc: 'uuid()'}
//	    mock:
//	      expr: '{"id": params.id, "name": "mock user"}'
//
// Property values are static unless they are a single-key mapping on $dynamic
// or $calc. Calculations and mock expressions are expr-lang programs.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is a set of endpoint declarations.
type Catalog struct {
	// BaseURL prefixes endpoint URLs that start with "/".
	BaseURL string `yaml:"baseURL"`
	// Options is the design-time option bag shared by every endpoint.
	Options   map[string]any `yaml:"options"`
	Endpoints []Endpoint     `yaml:"endpoints"`
}

// Endpoint declares one request template.
type Endpoint struct {
	Name          string              `yaml:"name"`
	Method        string              `yaml:"method"`
	URL           string              `yaml:"url"`
	Description   string              `yaml:"description"`
	BodyType      string              `yaml:"bodyType"`
	FormSeparator string              `yaml:"formSeparator"`
	Unwrap        string              `yaml:"unwrap"`
	Query         map[string]Property `yaml:"query"`
	Headers       map[string]Property `yaml:"headers"`
	Body          map[string]Property `yaml:"body"`
	Options       map[string]any      `yaml:"options"`
	Mock          *MockSpec           `yaml:"mock"`
}

// MockSpec is the answer of an endpoint on the mock path: a static payload or
// an expression evaluated against the resolved request.
type MockSpec struct {
	Data any    `yaml:"data"`
	Expr string `yaml:"expr"`
}

// Load reads and validates the catalog at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads one catalog document from r. Unknown keys are rejected.
func Decode(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var c Catalog
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog is empty")
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks endpoint names, methods and mock declarations.
func (c *Catalog) Validate() error {
	var issues []string
	seen := make(map[string]bool, len(c.Endpoints))
	for i, ep := range c.Endpoints {
		label := fmt.Sprintf("endpoints[%d]", i)
		name := strings.TrimSpace(ep.Name)
		switch {
		case name == "":
			issues = append(issues, label+": name is required")
		case seen[name]:
			issues = append(issues, fmt.Sprintf("%s: duplicate name %q", label, name))
		default:
			seen[name] = true
			label = fmt.Sprintf("endpoint %q", name)
		}
		if strings.TrimSpace(ep.URL) == "" {
			issues = append(issues, label+": url is required")
		}
		switch strings.ToUpper(ep.Method) {
		case "GET", "DELETE", "POST", "PUT", "PATCH":
		case "":
			issues = append(issues, label+": method is required")
		default:
			issues = append(issues, fmt.Sprintf("%s: unsupported method %q", label, ep.Method))
		}
		if ep.Mock != nil && ep.Mock.Data != nil && ep.Mock.Expr != "" {
			issues = append(issues, label+": mock takes data or expr, not both")
		}
	}
	if len(issues) > 0 {
		return fmt.Errorf("invalid catalog: %s", strings.Join(issues, "; "))
	}
	return nil
}

// Names lists the endpoint names in declaration order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Endpoints))
	for _, ep := range c.Endpoints {
		names = append(names, ep.Name)
	}
	return names
}

func (c *Catalog) url(ep Endpoint) string {
	if c.BaseURL != "" && strings.HasPrefix(ep.URL, "/") {
		return strings.TrimRight(c.BaseURL, "/") + ep.URL
	}
	return ep.URL
}
