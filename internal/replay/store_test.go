package replay_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/confreq/internal/replay"
	"github.com/torosent/confreq/pkg/request"
)

func openStore(t *testing.T) *replay.Store {
	t.Helper()
	s, err := replay.Open(filepath.Join(t.TempDir(), "nested", "calls.jsonl"))
	require.NoError(t, err)
	return s
}

func TestAppendAndList(t *testing.T) {
	s := openStore(t)

	empty, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, empty)

	first, err := s.Append("first", request.Serialized{Data: `{"input":{}}`, Ref: "getUser"})
	require.NoError(t, err)
	second, err := s.Append("", request.Serialized{Data: `{"input":{"params":{"id":1}}}`, Ref: "getUser"})
	require.NoError(t, err)

	assert.Len(t, first.ID, 26)
	assert.False(t, first.CreatedAt.IsZero())
	assert.Less(t, first.ID, second.ID)

	records, err := s.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.ID, records[0].ID)
	assert.Equal(t, "first", records[0].Label)
	assert.Equal(t, second.Request, records[1].Request)

	got, err := s.Get(second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Request, got.Request)
}

func TestAppendRequiresReference(t *testing.T) {
	s := openStore(t)
	_, err := s.Append("x", request.Serialized{Data: "{}"})
	require.Error(t, err)
}

func TestGetErrors(t *testing.T) {
	s := openStore(t)
	_, err := s.Get("not-an-id")
	require.Error(t, err)

	_, err = s.Get("01ARZ3NDEKTSV4RRFFQ69G5FAV")
	require.Error(t, err)
	assert.True(t, errors.Is(err, replay.ErrNotFound))
}

func TestListReportsCorruptLines(t *testing.T) {
	s := openStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{\"id\":\"a\"}\n\nnot json\n"), 0o644))

	_, err := s.List()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":3:")
}

func TestConcurrentAppends(t *testing.T) {
	s := openStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Append("", request.Serialized{Data: "{}", Ref: "x"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := s.List()
	require.NoError(t, err)
	assert.Len(t, records, 20)
}

func TestReplayThroughRegistry(t *testing.T) {
	tmpl, err := request.Get("https://api.example.com/users/{id}").
		Named("getUser").
		MockFn(func(_ context.Context, a *request.ActiveRequest) (any, error) {
			return map[string]any{"id": a.Params()["id"]}, nil
		}).
		Build()
	require.NoError(t, err)

	reg := request.NewRegistry()
	require.NoError(t, reg.Register(tmpl))

	ser, err := tmpl.Serialize(request.Params(map[string]any{"id": "9"}), request.Options{request.OptMock: true})
	require.NoError(t, err)

	s := openStore(t)
	rec, err := s.Append("user 9", ser)
	require.NoError(t, err)

	stored, err := s.Get(rec.ID)
	require.NoError(t, err)

	data, err := replay.Replay(context.Background(), reg, stored)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "9"}, data)

	_, err = replay.Replay(context.Background(), request.NewRegistry(), stored)
	require.Error(t, err)
	assert.True(t, request.IsCode(err, request.CodeUnknownTemplate))
}
