package request

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
)

// Serialized is a call captured for persistence: the JSON encoded caller input
// and options, and the name of the template that rebuilds it.
type Serialized struct {
	Data string `json:"data"`
	Ref  string `json:"constructorRef"`
}

type serializedCall struct {
	Input   Input   `json:"input"`
	Options Options `json:"options,omitempty"`
}

// Serialize captures a call against t. Only named templates can be serialized;
// the mock database handle is dropped.
func (t *Template) Serialize(in Input, opts Options) (Serialized, error) {
	if t.name == "" {
		return Serialized{}, newConfigError(CodeUnknownTemplate, http.StatusBadRequest,
			"template %s has no name; use Named before serializing", t.label())
	}
	raw, err := json.Marshal(serializedCall{Input: in, Options: withoutDB(opts)})
	if err != nil {
		return Serialized{}, fmt.Errorf("serialize %s: %w", t.name, err)
	}
	return Serialized{Data: string(raw), Ref: t.name}, nil
}

// Registry maps template names to templates so serialized calls can be
// rebuilt. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]*Template)}
}

// Register adds named templates. Registering the same template twice is a
// no-op; a different template under a taken name is an error.
func (r *Registry) Register(templates ...*Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range templates {
		if t == nil {
			continue
		}
		if t.name == "" {
			return newConfigError(CodeUnknownTemplate, http.StatusBadRequest,
				"template %s has no name", t.label())
		}
		if existing, ok := r.templates[t.name]; ok && existing != t {
			return fmt.Errorf("template %q is already registered", t.name)
		}
		r.templates[t.name] = t
	}
	return nil
}

// Lookup returns the template registered under name.
func (r *Registry) Lookup(name string) (*Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[name]
	return t, ok
}

// Names lists the registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Restore rebuilds the call captured in s.
func (r *Registry) Restore(s Serialized) (*ActiveRequest, error) {
	t, ok := r.Lookup(s.Ref)
	if !ok {
		return nil, newConfigError(CodeUnknownTemplate, http.StatusNotFound,
			"no template is registered as %q", s.Ref)
	}
	var call serializedCall
	if err := json.Unmarshal([]byte(s.Data), &call); err != nil {
		return nil, fmt.Errorf("restore %s: %w", s.Ref, err)
	}
	return &ActiveRequest{template: t, input: call.Input, options: call.Options}, nil
}

// Replay restores s and dispatches it.
func (r *Registry) Replay(ctx context.Context, s Serialized) (any, error) {
	a, err := r.Restore(s)
	if err != nil {
		return nil, err
	}
	return a.Send(ctx)
}
