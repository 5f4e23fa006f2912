package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/torosent/confreq/pkg/request"
)

// Compile builds every endpoint into a named template and registers it. opts
// apply to every template (defaults, transport, logger, tracer, observer).
func (c *Catalog) Compile(opts ...request.Option) (*request.Registry, error) {
	reg := request.NewRegistry()
	for _, ep := range c.Endpoints {
		t, err := c.build(ep, opts)
		if err != nil {
			return nil, fmt.Errorf("endpoint %q: %w", ep.Name, err)
		}
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (c *Catalog) build(ep Endpoint, opts []request.Option) (*request.Template, error) {
	b := request.New(strings.ToUpper(ep.Method), c.url(ep), opts...).Named(ep.Name)

	if ep.BodyType != "" {
		bt := request.BodyType(ep.BodyType)
		if bt == request.BodyForm && ep.FormSeparator != "" {
			b.BodyAsForm(ep.FormSeparator)
		} else {
			b.BodyType(bt)
		}
	}

	query, err := properties(ep.Query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	headers, err := properties(ep.Headers)
	if err != nil {
		return nil, fmt.Errorf("headers: %w", err)
	}
	body, err := properties(ep.Body)
	if err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}
	if len(query) > 0 {
		b.Query(query)
	}
	if len(headers) > 0 {
		b.Headers(headers)
	}
	if len(body) > 0 {
		b.Body(body)
	}

	if options := mergeOptions(c.Options, ep.Options); len(options) > 0 {
		b.Options(options)
	}
	if ep.Unwrap != "" {
		b.Unwrap(ep.Unwrap)
	}
	if ep.Mock != nil {
		fn, err := mockFunc(*ep.Mock)
		if err != nil {
			return nil, fmt.Errorf("mock: %w", err)
		}
		b.MockFn(fn)
	}
	return b.Build()
}

func properties(in map[string]Property) (request.Properties, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(request.Properties, len(in))
	for name, p := range in {
		switch {
		case p.Dynamic != nil:
			var dopts []request.DynamicOption
			if p.Dynamic.Required {
				dopts = append(dopts, request.Required())
			}
			if p.Dynamic.Default != nil {
				dopts = append(dopts, request.WithDefault(p.Dynamic.Default))
			}
			out[name] = request.Dynamic(dopts...)
		case p.Calc != "":
			program, err := compile(p.Calc)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out[name] = request.Calc(calcFunc(program))
		default:
			out[name] = p.Static
		}
	}
	return out, nil
}

func mockFunc(spec MockSpec) (request.MockFunc, error) {
	if spec.Expr == "" {
		data := spec.Data
		return func(context.Context, *request.ActiveRequest) (any, error) {
			return data, nil
		}, nil
	}
	program, err := compile(spec.Expr)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, a *request.ActiveRequest) (any, error) {
		return run(program, envFor(a))
	}, nil
}

func mergeOptions(layers ...map[string]any) request.Options {
	out := request.Options{}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}
