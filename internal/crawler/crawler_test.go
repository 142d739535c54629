package crawler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/countpkg/internal/model"
	"github.com/sevigo/countpkg/internal/store"
)

func TestSplitFullName(t *testing.T) {
	owner, repo := splitFullName("acme/widgets")
	require.Equal(t, "acme", owner)
	require.Equal(t, "widgets", repo)
}

func TestWorkerError_Error(t *testing.T) {
	err := &WorkerError{Worker: "w1", Err: errTest{}}
	require.Contains(t, err.Error(), "w1")
}

type errTest struct{}

func (errTest) Error() string { return "boom" }

// fakeBackend is a minimal in-memory store.Backend for exercising worker
// methods without a live Redis instance.
type fakeBackend struct {
	mu   sync.Mutex
	hash map[string]map[string]string
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

func (b *fakeBackend) Keys(context.Context, string) ([]string, error) { return nil, nil }
func (b *fakeBackend) Save(context.Context) error                     { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPool(backend store.Backend) *Pool {
	return New(store.New(backend, store.DefaultRetryConfig()), SearchSpec{}, nil, testLogger())
}

// S4: a repository already known to the store is skipped, not re-recorded
// or re-queued for retrieval.
func TestRecordFoundRepo_SkipsAlreadyKnown(t *testing.T) {
	backend := newFakeBackend()
	backend.hash[store.Key("repo", "acme/widgets")] = map[string]string{"name": "acme/widgets"}

	pool := newTestPool(backend)
	w := &worker{pool: pool, name: "w1"}

	repo := &github.Repository{
		FullName: github.Ptr("acme/widgets"),
		ID:       github.Ptr(int64(42)),
	}
	err := w.recordFoundRepo(context.Background(), testLogger(), repo)
	require.NoError(t, err)

	require.Zero(t, pool.repos.Len())
	done, total := pool.repos.Status()
	require.Zero(t, done)
	require.Zero(t, total)
}

// A newly discovered repository is recorded and queued for retrieval.
func TestRecordFoundRepo_QueuesNewRepo(t *testing.T) {
	backend := newFakeBackend()
	pool := newTestPool(backend)
	w := &worker{pool: pool, name: "w1"}

	repo := &github.Repository{
		FullName:    github.Ptr("acme/widgets"),
		ID:          github.Ptr(int64(42)),
		URL:         github.Ptr("https://api.github.com/repos/acme/widgets"),
		ContentsURL: github.Ptr("https://api.github.com/repos/acme/widgets/contents/{+path}"),
	}
	err := w.recordFoundRepo(context.Background(), testLogger(), repo)
	require.NoError(t, err)

	require.Equal(t, 1, pool.repos.Len())
	stored, ok := backend.hash[store.Key("repo", "acme/widgets")]
	require.True(t, ok)
	require.Equal(t, "acme/widgets", stored["name"])
}

// S6: a repository already marked retrieved is skipped without touching
// the (nil, in this test) GitHub client or walker.
func TestRetrieveRepo_SkipsAlreadyRetrieved(t *testing.T) {
	backend := newFakeBackend()
	pool := newTestPool(backend)
	w := &worker{pool: pool, name: "w1"}

	existing := model.NewRepository("acme/widgets")
	existing.SetContentsURL("https://api.github.com/repos/acme/widgets/contents/{+path}")
	existing.SetRetrieved(true)
	existing.Record().SetChange("contents_url", "retrieved")
	require.NoError(t, pool.store.CommitChanges(context.Background(), existing.Record(), existing))

	err := w.retrieveRepo(context.Background(), testLogger(), "acme/widgets")
	require.NoError(t, err)
}

// A repository with no contents URL yet (not fully recorded) is skipped
// without a retrieval attempt.
func TestRetrieveRepo_SkipsMissingContentsURL(t *testing.T) {
	backend := newFakeBackend()
	pool := newTestPool(backend)
	w := &worker{pool: pool, name: "w1"}

	bare := model.NewRepository("acme/widgets")
	bare.Record().SetChange("name")
	require.NoError(t, pool.store.CommitAll(context.Background(), bare.Record(), bare))

	err := w.retrieveRepo(context.Background(), testLogger(), "acme/widgets")
	require.NoError(t, err)
}
