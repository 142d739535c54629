package model

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sevigo/countpkg/internal/store"
)

// inMemoryBackend is a minimal store.Backend used to exercise the model
// package's Fielder implementations against a real Store without a live
// Redis instance.
type inMemoryBackend struct {
	mu   sync.Mutex
	hash map[string]map[string]string
}

func newInMemoryBackend() *inMemoryBackend {
	return &inMemoryBackend{hash: map[string]map[string]string{}}
}

func (b *inMemoryBackend) Exists(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.hash[key]
	return ok, nil
}

func (b *inMemoryBackend) HGetAll(_ context.Context, key string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := map[string]string{}
	for k, v := range b.hash[key] {
		out[k] = v
	}
	return out, nil
}

func (b *inMemoryBackend) HMSet(_ context.Context, key string, fields map[string]string) error {
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

func (b *inMemoryBackend) Keys(_ context.Context, pattern string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prefix := pattern[:len(pattern)-1]
	var keys []string
	for k := range b.hash {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (b *inMemoryBackend) Save(context.Context) error { return nil }

func TestRepository_AddFile_ClassificationAndRetraction(t *testing.T) {
	repo := NewRepository("Acme/widgets")

	require.True(t, repo.AddFile("widgets/__init__.py", "import requests\nx = 1\n"))
	require.True(t, repo.AddFile("requirements.txt", "# top\nrequests>=2.0\n"))
	require.False(t, repo.AddFile("README.md", "hello"))

	require.True(t, repo.Record().IsChanged("files"))
	content, ok := repo.Files().Get("widgets/__init__.py")
	require.True(t, ok)
	require.Equal(t, "import requests", content)
}

func TestRepository_FindPackages_SuppressesLocalPackages(t *testing.T) {
	repo := NewRepository("acme/widgets")
	repo.AddFile("widgets/__init__.py", "import requests\nimport widgets.sub\n")
	repo.AddFile("widgets/sub.py", "from flask import Flask\n")
	repo.AddFile("requirements.txt", "requests==2.0\nFlask>=1.0\nwidgets-extra==1\n")

	packages := repo.FindPackages()

	require.Equal(t, []string{"flask", "requests", "widgets-extra"}, packages)
	require.True(t, repo.Record().IsChanged("packages"))
}

func TestRepository_StoreRoundTrip(t *testing.T) {
	s := store.New(newInMemoryBackend(), store.DefaultRetryConfig())
	ctx := context.Background()

	repo := NewRepository("Acme/Widgets")
	repo.SetID(42)
	repo.SetURL("https://api.github.com/repos/acme/widgets")
	repo.AddFile("widgets/__init__.py", "import requests\n")
	repo.AddFile("requirements.txt", "requests==2.0\n")
	repo.FindPackages()
	repo.SetRetrieved(true)

	require.NoError(t, s.CommitChanges(ctx, repo.Record(), repo))

	loaded := NewRepository("acme/widgets")
	require.NoError(t, s.Load(ctx, loaded.Record(), loaded))

	require.True(t, loaded.Record().Existed())
	require.Equal(t, int64(42), loaded.ID())
	require.Equal(t, "https://api.github.com/repos/acme/widgets", loaded.URL())
	require.True(t, loaded.Retrieved())
	require.Equal(t, []string{"requests"}, loaded.Packages())
	content, ok := loaded.Files().Get("widgets/__init__.py")
	require.True(t, ok)
	require.Equal(t, "import requests", content)
}

func TestPackage_AddPyfileAndPkgver(t *testing.T) {
	pkg := NewPackage("Requests")

	pkg.AddPyfile("acme/widgets", "widgets/__init__.py")
	pkg.AddPkgver("acme/widgets", "==2.0")
	pkg.AddPyfile("acme/gadgets", "gadgets/main.py")

	require.Equal(t, []string{"acme/gadgets", "acme/widgets"}, pkg.Repos())
	require.Equal(t, 2, pkg.NumRepos())
	require.Equal(t, 2, pkg.NumPyfiles())
	require.Equal(t, 1, pkg.NumReqfiles())

	v, ok := pkg.GetPkgver("acme/widgets")
	require.True(t, ok)
	require.Equal(t, "==2.0", v)
	require.False(t, pkg.HasReqfile("acme/gadgets"))
}

func TestPackage_StoreRoundTrip(t *testing.T) {
	s := store.New(newInMemoryBackend(), store.DefaultRetryConfig())
	ctx := context.Background()

	pkg := NewPackage("requests")
	pkg.AddPyfile("acme/widgets", "widgets/__init__.py")
	pkg.AddPkgver("acme/widgets", ">=2.0")

	require.NoError(t, s.CommitChanges(ctx, pkg.Record(), pkg))

	loaded := NewPackage("requests")
	require.NoError(t, s.Load(ctx, loaded.Record(), loaded))

	require.True(t, loaded.Record().Existed())
	require.Equal(t, []string{"acme/widgets"}, loaded.Repos())
	require.Equal(t, 1, loaded.NumPyfiles())
	v, ok := loaded.GetPkgver("acme/widgets")
	require.True(t, ok)
	require.Equal(t, ">=2.0", v)
}
