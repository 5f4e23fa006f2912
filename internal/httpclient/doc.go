// Package httpclient sends resolved requests for the confreq engine.
//
// The package handles:
//   - Connection pooling and per-request timeouts
//   - Header validation (no CR/LF injection)
//   - W3C trace context propagation
//   - Response decoding: JSON documents are parsed, other bodies kept as text
//
// # Client
//
// Use [New] to create a client; [Client.Do] returns every received response,
// whatever its status, and errors only on transport failures:
//
//	client := httpclient.New(30*time.Second, httpclient.WithPropagation(true))
//	res, err := client.Do(ctx, httpclient.Request{Method: "GET", URL: url})
//
// [NewClient] returns the underlying pooled *http.Client.
package httpclient
