package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeBackend is an in-memory Backend used to unit-test Store without a
// live Redis instance.
type fakeBackend struct {
	mu    sync.Mutex
	hash  map[string]map[string]string
	fails int // number of HGetAll calls to fail with a transient error before succeeding
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{hash: map[string]map[string]string{}}
}

func (b *fakeBackend) Exists(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.hash[key]
	return ok, nil
}

func (b *fakeBackend) HGetAll(_ context.Context, key string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fails > 0 {
		b.fails--
		return nil, errTransient{}
	}
	out := map[string]string{}
	for k, v := range b.hash[key] {
		out[k] = v
	}
	return out, nil
}

func (b *fakeBackend) HMSet(_ context.Context, key string, fields map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.hash[key]
	if !ok {
		h = map[string]string{}
		b.hash[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (b *fakeBackend) Keys(_ context.Context, pattern string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prefix := pattern[:len(pattern)-1] // strip trailing '*'
	var keys []string
	for k := range b.hash {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (b *fakeBackend) Save(context.Context) error { return nil }

type errTransient struct{}

func (errTransient) Error() string { return "LOADING Redis is loading the dataset in memory" }

// testEntity is a minimal Fielder used to exercise Store directly.
type testEntity struct {
	rec   Record
	text  string
	count int64
	set   map[string]struct{}
}

func newTestEntity(name string) *testEntity {
	return &testEntity{rec: NewRecord(name), set: map[string]struct{}{}}
}

func (e *testEntity) Prefix() string { return "t" }

func (e *testEntity) FieldDefs() []FieldDef {
	return []FieldDef{
		{Name: "name", Kind: KindText},
		{Name: "text", Kind: KindText},
		{Name: "count", Kind: KindNumber},
		{Name: "set", Kind: KindJSON},
	}
}

func (e *testEntity) FieldValue(field string) any {
	switch field {
	case "name":
		return e.rec.Name
	case "text":
		if e.text == "" {
			return nil
		}
		return e.text
	case "count":
		return e.count
	case "set":
		out := make([]string, 0, len(e.set))
		for k := range e.set {
			out = append(out, k)
		}
		return out
	}
	return nil
}

func (e *testEntity) SetFieldValue(field string, value any) {
	switch field {
	case "text":
		e.text, _ = value.(string)
	case "count":
		if n, ok := value.(int64); ok {
			e.count = n
		}
	case "set":
		if arr, ok := value.([]any); ok {
			e.set = map[string]struct{}{}
			for _, v := range arr {
				if s, ok := v.(string); ok {
					e.set[s] = struct{}{}
				}
			}
		}
	}
}

func TestStore_CommitAndLoadRoundTrip(t *testing.T) {
	s := New(newFakeBackend(), DefaultRetryConfig())
	ctx := context.Background()

	e := newTestEntity("Foo")
	e.text = "hello"
	e.count = 3
	e.set = map[string]struct{}{"a": {}, "b": {}}
	e.rec.SetChange("text", "count", "set")

	require.NoError(t, s.CommitChanges(ctx, &e.rec, e))
	require.False(t, e.rec.HasChanges())
	require.WithinDuration(t, time.Now().UTC(), e.rec.Updated, 5*time.Second)

	loaded := newTestEntity("foo")
	require.NoError(t, s.Load(ctx, &loaded.rec, loaded))
	require.True(t, loaded.rec.Existed())
	require.Equal(t, "hello", loaded.text)
	require.Equal(t, int64(3), loaded.count)
	require.Equal(t, map[string]struct{}{"a": {}, "b": {}}, loaded.set)
}

func TestStore_KeyCanonicalization(t *testing.T) {
	// Property 4: key(name) == key(upper(name)) == key(key(name))
	require.Equal(t, Key("repo", "Foo/Bar"), Key("repo", "foo/bar"))
	require.Equal(t, Key("repo", "foo/bar"), Key("repo", "REPO:foo/bar"))
	require.Equal(t, "repo:foo/bar", Key("repo", Key("repo", "foo/bar")))
}

func TestStore_TransientRetry(t *testing.T) {
	backend := newFakeBackend()
	backend.fails = 2
	s := New(backend, RetryConfig{Attempts: 5, Delay: time.Millisecond})

	e := newTestEntity("bar")
	require.NoError(t, s.Load(context.Background(), &e.rec, e))
}

func TestStore_TransientRetryExhausted(t *testing.T) {
	backend := newFakeBackend()
	backend.fails = 10
	s := New(backend, RetryConfig{Attempts: 3, Delay: time.Millisecond})

	e := newTestEntity("bar")
	err := s.Load(context.Background(), &e.rec, e)
	require.Error(t, err)
}

func TestStore_QueryAllNames(t *testing.T) {
	s := New(newFakeBackend(), DefaultRetryConfig())
	ctx := context.Background()

	for _, name := range []string{"one", "two", "three"} {
		e := newTestEntity(name)
		e.rec.SetChange("name")
		require.NoError(t, s.CommitAll(ctx, &e.rec, e))
	}

	names, err := s.QueryAllNames(ctx, "t")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"one", "two", "three"}, names)
}

func TestStore_ExistsProperty2_IdempotentCreation(t *testing.T) {
	s := New(newFakeBackend(), DefaultRetryConfig())
	ctx := context.Background()

	e1 := newTestEntity("dup")
	e1.rec.SetChange("name")
	require.NoError(t, s.CommitAll(ctx, &e1.rec, e1))

	e2 := newTestEntity("dup")
	require.NoError(t, s.Load(ctx, &e2.rec, e2))

	require.Equal(t, Key("t", e1.rec.Name), Key("t", e2.rec.Name))
	require.Equal(t, e1.text, e2.text)
	require.Equal(t, e1.count, e2.count)
}
