package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"strings"
)

// DefaultMaxBodySize caps response bodies at 10 MiB.
const DefaultMaxBodySize int64 = 10 << 20

// readBody reads at most limit bytes (all of them when limit <= 0) and fails
// when the body is larger.
func readBody(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return raw, nil
}

// decodeBody parses JSON responses and returns other bodies as text.
func decodeBody(contentType string, raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if !isJSON(contentType) {
		return string(raw), nil
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode JSON response: %w", err)
	}
	return data, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
