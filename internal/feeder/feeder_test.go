package feeder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestCSVDatasetRoundRobin(t *testing.T) {
	path := writeFile(t, "users.csv", `user_id,email,name
1,alice@example.com,Alice
2,bob@example.com,Bob
3,charlie@example.com,Charlie`)

	ds, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ds.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ds.Len())
	}

	ctx := context.Background()
	want := []string{"1", "2", "3", "1"}
	for i, id := range want {
		rec, err := ds.Next(ctx)
		if err != nil {
			t.Fatalf("Next() #%d error = %v", i, err)
		}
		if rec["user_id"] != id {
			t.Errorf("Next() #%d user_id = %v, want %s", i, rec["user_id"], id)
		}
	}
	if ds.First()["name"] != "Alice" {
		t.Errorf("First() = %v, want Alice", ds.First())
	}
}

func TestJSONDatasetKeepsTypes(t *testing.T) {
	path := writeFile(t, "products.json", `[
		{"product_id": "p1", "price": 19.99, "tags": ["a", "b"]},
		{"product_id": "p2", "price": 29.99}
	]`)

	ds, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	rec, err := ds.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if rec["price"] != 19.99 {
		t.Errorf("price = %#v, want 19.99", rec["price"])
	}
	if !reflect.DeepEqual(rec["tags"], []any{"a", "b"}) {
		t.Errorf("tags = %#v", rec["tags"])
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{name: "header only", file: "h.csv", content: "id,name\n", want: "header row"},
		{name: "ragged row", file: "r.csv", content: "id,name\n1\n", want: "row 2 has 1 fields"},
		{name: "empty csv", file: "e.csv", content: "", want: "no records"},
		{name: "invalid json", file: "i.json", content: `{invalid json`, want: "decode JSON"},
		{name: "empty array", file: "a.json", content: `[]`, want: "no records"},
		{name: "empty object", file: "o.json", content: `[{}]`, want: "record 0 is empty"},
		{name: "unknown extension", file: "data.xml", content: "<x/>", want: "unsupported format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/file.csv"); err == nil {
		t.Fatal("Load() with missing file error = nil, want error")
	}
}

func TestNewRejectsEmpty(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("New(nil) error = %v, want ErrEmpty", err)
	}
}

func TestNextHonoursContext(t *testing.T) {
	ds, _ := New([]Record{{"id": "1"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ds.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	records := make([]Record, 100)
	for i := range records {
		records[i] = Record{"id": fmt.Sprint(i)}
	}
	ds, err := New(records)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	const numGoroutines = 50
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[any]bool{}
	)
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			rec, err := ds.Next(context.Background())
			if err != nil {
				t.Errorf("Next() error = %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[rec["id"]] {
				t.Errorf("duplicate record %v", rec["id"])
			}
			seen[rec["id"]] = true
		}()
	}
	wg.Wait()

	if len(seen) != numGoroutines {
		t.Errorf("got %d distinct records, want %d", len(seen), numGoroutines)
	}
}

func TestMerge(t *testing.T) {
	base := map[string]any{"id": "base", "limit": 10}
	got := Merge(base, Record{"id": "7"})
	want := map[string]any{"id": "7", "limit": 10}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %v, want %v", got, want)
	}
	if base["id"] != "base" {
		t.Error("Merge() modified base")
	}
}

func TestExpand(t *testing.T) {
	record := Record{"email": "ada@example.com", "age": 36.0, "name": "Ada"}
	body := map[string]any{
		"contact": "{{email}}",
		"age":     "{{age}}",
		"greet":   "hi {{name}} ({{age}})",
		"list":    []any{"{{name}}", 1},
		"missing": "{{nope}}",
		"count":   3,
	}

	got := Expand(body, record)
	want := map[string]any{
		"contact": "ada@example.com",
		"age":     36.0,
		"greet":   "hi Ada (36)",
		"list":    []any{"Ada", 1},
		"missing": "{{nope}}",
		"count":   3,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expand() = %#v, want %#v", got, want)
	}
	if body["contact"] != "{{email}}" {
		t.Error("Expand() modified its input")
	}
}
