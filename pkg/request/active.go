package request

import (
	"context"
	"encoding/json"
	"net/http"
)

// ActiveRequest is one call of a template: the caller input, the per-call
// options and, once resolution succeeded, the resolved request. Mock functions
// receive it.
type ActiveRequest struct {
	template *Template
	input    Input
	options  Options
	resolved *Resolved
}

// Params returns the caller params.
func (a *ActiveRequest) Params() map[string]any { return a.input.Params }

// Input returns the whole caller input.
func (a *ActiveRequest) Input() Input { return a.input }

// Options returns the per-call options as given.
func (a *ActiveRequest) Options() Options { return a.options }

// Resolved returns the resolved request, or nil when resolution has not run.
func (a *ActiveRequest) Resolved() *Resolved { return a.resolved }

// Template returns the template the call was made against.
func (a *ActiveRequest) Template() *Template { return a.template }

// MockDB returns the mock database handle passed with the "db" option. It
// fails with CodeNotMock outside the mock path.
func (a *ActiveRequest) MockDB() (any, error) {
	if a.resolved == nil || !a.resolved.IsMock {
		return nil, newConfigError(CodeNotMock, http.StatusBadRequest,
			"the mock database is only available to mock requests")
	}
	return a.resolved.MockConfig.DB, nil
}

// Send dispatches the call again with its own input and options.
func (a *ActiveRequest) Send(ctx context.Context) (any, error) {
	return a.template.Request(ctx, a.input, a.options)
}

// Info resolves the call without dispatching it.
func (a *ActiveRequest) Info() (*Resolved, error) {
	if a.resolved != nil {
		return a.resolved, nil
	}
	return a.template.RequestInfo(a.input, a.options)
}

func (a *ActiveRequest) String() string {
	if r, err := a.Info(); err == nil {
		return r.Method + " " + r.URL
	}
	return a.template.String()
}

// MarshalJSON renders the template description together with the caller
// input. The mock database handle is never included.
func (a *ActiveRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Template *Template `json:"template"`
		Input    Input     `json:"input"`
		Options  Options   `json:"options,omitempty"`
	}{a.template, a.input, withoutDB(a.options)})
}

func withoutDB(opts Options) Options {
	if len(opts) == 0 {
		return nil
	}
	out := copyMap(opts)
	delete(out, OptMockDB)
	return out
}
