package snapshot

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sevigo/countpkg/internal/store"
)

type countingBackend struct {
	saves int
}

func (b *countingBackend) Exists(ctx context.Context, key string) (bool, error) { return false, nil }
func (b *countingBackend) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return nil, nil
}
func (b *countingBackend) HMSet(ctx context.Context, key string, fields map[string]string) error {
	return nil
}
func (b *countingBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	return nil, nil
}
func (b *countingBackend) Save(ctx context.Context) error {
	b.saves++
	return nil
}

func newTestScheduler(interval time.Duration) (*Scheduler, *countingBackend) {
	backend := &countingBackend{}
	st := store.New(backend, store.DefaultRetryConfig())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, interval, logger), backend
}

func TestScheduler_SaveableAfterInterval(t *testing.T) {
	s, _ := newTestScheduler(10 * time.Millisecond)
	require.False(t, s.Saveable())
	time.Sleep(15 * time.Millisecond)
	require.True(t, s.Saveable())
}

func TestScheduler_SaveSkipsBeforeInterval(t *testing.T) {
	s, backend := newTestScheduler(time.Hour)
	require.NoError(t, s.Save(context.Background(), false))
	require.Equal(t, 0, backend.saves)
}

func TestScheduler_SaveForced(t *testing.T) {
	s, backend := newTestScheduler(time.Hour)
	require.NoError(t, s.Save(context.Background(), true))
	require.Equal(t, 1, backend.saves)
}

func TestScheduler_RunSavesOnCancel(t *testing.T) {
	s, backend := newTestScheduler(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx))
	require.Equal(t, 1, backend.saves)
}
