package catalog

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"

	"github.com/torosent/confreq/pkg/request"
)

// env is what calculation and mock expressions see.
type env struct {
	Params   map[string]any    `expr:"params"`
	Body     any               `expr:"body"`
	Method   string            `expr:"method"`
	URL      string            `expr:"url"`
	Headers  map[string]string `expr:"headers"`
	Query    map[string]any    `expr:"query"`
	BodyType string            `expr:"bodyType"`
}

var helpers = []expr.Option{
	expr.Function("uuid", func(...any) (any, error) {
		return uuid.NewString(), nil
	}, new(func() string)),
	expr.Function("now", func(...any) (any, error) {
		return time.Now().UTC().Format(time.RFC3339), nil
	}, new(func() string)),
}

func compile(src string) (*vm.Program, error) {
	opts := append([]expr.Option{expr.Env(env{})}, helpers...)
	program, err := expr.Compile(src, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	return program, nil
}

func run(program *vm.Program, e env) (any, error) {
	out, err := expr.Run(program, e)
	if err != nil {
		return nil, fmt.Errorf("eval: %w", err)
	}
	return out, nil
}

// calcFunc turns a compiled expression into a request calculation.
func calcFunc(program *vm.Program) request.CalcFunc {
	return func(in request.Input, ctx request.Context) (any, error) {
		return run(program, env{
			Params:   in.Params,
			Body:     ctx.Body,
			Method:   ctx.Method,
			URL:      ctx.URL,
			Headers:  ctx.Headers,
			Query:    ctx.Query,
			BodyType: string(ctx.BodyType),
		})
	}
}

func envFor(a *request.ActiveRequest) env {
	e := env{Params: a.Params(), Body: a.Input().Body}
	if r := a.Resolved(); r != nil {
		e.Body = r.Body
		e.Method = r.Method
		e.URL = r.URL
		e.Headers = r.Headers
		e.Query = r.Query
		e.BodyType = string(r.BodyType)
	}
	return e
}
