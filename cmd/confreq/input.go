package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/torosent/confreq/internal/extractor"
	"github.com/torosent/confreq/pkg/request"
)

// callFlags are the flags shared by commands that resolve a call.
type callFlags struct {
	params   []string
	options  []string
	body     string
	bodyFile string
}

func (f *callFlags) register(fs *pflag.FlagSet) {
	fs.StringArrayVarP(&f.params, "param", "p", nil, "Call param as key=value, or key:=<json> for typed values (repeatable)")
	fs.StringArrayVarP(&f.options, "option", "o", nil, "Per-call option as key=value or key:=<json> (repeatable)")
	fs.StringVar(&f.body, "body", "", "Caller body; JSON is decoded, anything else is sent as text")
	fs.StringVar(&f.bodyFile, "body-file", "", "Read the caller body from a file")
}

func (f *callFlags) input() (request.Input, error) {
	params, err := parseAssignments(f.params)
	if err != nil {
		return request.Input{}, fmt.Errorf("--param: %w", err)
	}
	in := request.Input{Params: params}

	raw := f.body
	if f.bodyFile != "" {
		if raw != "" {
			return request.Input{}, fmt.Errorf("--body and --body-file are mutually exclusive")
		}
		data, err := os.ReadFile(f.bodyFile)
		if err != nil {
			return request.Input{}, fmt.Errorf("read body file: %w", err)
		}
		raw = string(data)
	}
	if raw != "" {
		in.Body = decodeBody(raw)
	}
	return in, nil
}

func (f *callFlags) callOptions() (request.Options, error) {
	opts, err := parseAssignments(f.options)
	if err != nil {
		return nil, fmt.Errorf("--option: %w", err)
	}
	return request.Options(opts), nil
}

// parseAssignments reads key=value (string) and key:=json (typed) items.
func parseAssignments(items []string) (map[string]any, error) {
	if len(items) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(items))
	for _, item := range items {
		if idx := strings.Index(item, ":="); idx > 0 && idx < strings.Index(item+"=", "=") {
			key := strings.TrimSpace(item[:idx])
			var value any
			if err := json.Unmarshal([]byte(item[idx+2:]), &value); err != nil {
				return nil, fmt.Errorf("%q: invalid JSON value: %w", key, err)
			}
			out[key] = value
			continue
		}
		key, value, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%q must be key=value", item)
		}
		out[key] = value
	}
	return out, nil
}

func decodeBody(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return raw
}

func parseRules(items []string) ([]extractor.Rule, error) {
	rules := make([]extractor.Rule, 0, len(items))
	for _, item := range items {
		rule, err := extractor.ParseRule(item)
		if err != nil {
			return nil, fmt.Errorf("--extract: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
