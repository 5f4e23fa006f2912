package request

import (
	"context"
	"encoding/json"
)

// Sealed is the execution-only handle over a built template. It exposes no
// configuration; WithErrorHandler returns a new handle.
type Sealed struct {
	t       *Template
	handler ErrorHandler
}

// Name is the registry name of the underlying template.
func (s *Sealed) Name() string { return s.t.name }

// Request resolves and dispatches a call.
func (s *Sealed) Request(ctx context.Context, in Input, opts Options) (any, error) {
	resp, err := s.t.send(ctx, in, opts, s.handler)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Mock is Request with the mock path forced on.
func (s *Sealed) Mock(ctx context.Context, in Input, opts Options) (any, error) {
	return s.Request(ctx, in, forceMock(opts))
}

// Do is Request returning the whole response envelope.
func (s *Sealed) Do(ctx context.Context, in Input, opts Options) (*Response, error) {
	return s.t.send(ctx, in, opts, s.handler)
}

// RequestInfo resolves a call without dispatching it.
func (s *Sealed) RequestInfo(in Input, opts Options) (*Resolved, error) {
	return s.t.RequestInfo(in, opts)
}

// Serialize captures a call for later replay.
func (s *Sealed) Serialize(in Input, opts Options) (Serialized, error) {
	return s.t.Serialize(in, opts)
}

// WithErrorHandler returns a copy of s using h.
func (s *Sealed) WithErrorHandler(h ErrorHandler) *Sealed {
	return &Sealed{t: s.t, handler: h}
}

func (s *Sealed) String() string { return s.t.String() }

func (s *Sealed) MarshalJSON() ([]byte, error) { return json.Marshal(s.t) }
