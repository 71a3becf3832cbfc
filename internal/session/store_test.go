package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	factories := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "clock.db"))
			require.NoError(t, err)
			return s
		},
		"redis": func(t *testing.T) Store {
			mr := miniredis.RunT(t)
			return NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
		},
	}
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		factories["postgres"] = func(t *testing.T) Store {
			s, err := NewPostgresStore(context.Background(), dsn)
			require.NoError(t, err)
			return s
		}
	}
	return factories
}

func TestStoreSetStartTimeIfAbsentKeepsFirstValue(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			t.Cleanup(func() { _ = store.Close() })
			ctx := context.Background()
			id := "iv-" + uuid.NewString()

			_, ok, err := store.StartTime(ctx, id)
			require.NoError(t, err)
			assert.False(t, ok)

			first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			got, err := store.SetStartTimeIfAbsent(ctx, id, first)
			require.NoError(t, err)
			assert.True(t, got.Equal(first))

			got, err = store.SetStartTimeIfAbsent(ctx, id, first.Add(time.Hour))
			require.NoError(t, err)
			assert.True(t, got.Equal(first), "second writer must read back the first value, got %v", got)

			stored, ok, err := store.StartTime(ctx, id)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.True(t, stored.Equal(first))
		})
	}
}

func TestStoreConcurrentInitializersAgree(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			t.Cleanup(func() { _ = store.Close() })
			ctx := context.Background()
			id := "iv-" + uuid.NewString()
			base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

			const workers = 16
			results := make([]time.Time, workers)
			errs := make([]error, workers)
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], errs[i] = store.SetStartTimeIfAbsent(ctx, id, base.Add(time.Duration(i)*time.Second))
				}(i)
			}
			wg.Wait()

			for i := 0; i < workers; i++ {
				require.NoError(t, errs[i])
				assert.True(t, results[i].Equal(results[0]), "worker %d saw %v, worker 0 saw %v", i, results[i], results[0])
			}
		})
	}
}

func TestStoreStatusDefaultsActiveAndDeactivateIsSticky(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			t.Cleanup(func() { _ = store.Close() })
			ctx := context.Background()
			id := "iv-" + uuid.NewString()

			status, err := store.Status(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, StatusActive, status)

			_, err = store.SetStartTimeIfAbsent(ctx, id, time.Now())
			require.NoError(t, err)
			require.NoError(t, store.Deactivate(ctx, id))

			status, err = store.Status(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, StatusInactive, status)

			// Touching the start time again must not reactivate.
			_, err = store.SetStartTimeIfAbsent(ctx, id, time.Now())
			require.NoError(t, err)
			status, err = store.Status(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, StatusInactive, status)
		})
	}
}

func TestClockConcurrentFirstElapsedShareStart(t *testing.T) {
	store := NewMemoryStore()
	clock := NewClock(store, &recordingHistory{}, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := clock.Elapsed(ctx, "iv-race")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	first, ok, err := store.StartTime(ctx, "iv-race")
	require.NoError(t, err)
	require.True(t, ok)
	again, err := store.SetStartTimeIfAbsent(ctx, "iv-race", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, first.Equal(again))
}
