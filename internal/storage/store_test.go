package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	require.NoError(t, client.Ping(context.Background()).Err())

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedisStore(client, 0), mr
}

func setupTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := ConnectPostgres(ctx, dbURL)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to DB: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"file": func(t *testing.T) Store {
			s, err := NewFileStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
		"redis": func(t *testing.T) Store {
			s, _ := setupTestRedis(t)
			return s
		},
		"postgres": func(t *testing.T) Store { return setupTestPostgres(t) },
	}
}

func TestStore_Conformance(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			ctx := context.Background()
			key := "cv:test-" + name + ":" + "portfolioData"
			defer store.Delete(ctx, key)

			_, err := store.Get(ctx, key)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Set(ctx, key, []byte(`{"name":"Ana"}`)))
			got, err := store.Get(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, `{"name":"Ana"}`, string(got))

			require.NoError(t, store.Set(ctx, key, []byte(`{"name":"Bea"}`)))
			got, err = store.Get(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, `{"name":"Bea"}`, string(got), "set overwrites")

			require.NoError(t, store.Delete(ctx, key))
			_, err = store.Get(ctx, key)
			assert.ErrorIs(t, err, ErrNotFound)

			assert.NoError(t, store.Delete(ctx, key), "deleting a missing key is not an error")
		})
	}
}

func TestNamespaced_IsolatesSessions(t *testing.T) {
	base := NewMemoryStore()
	ctx := context.Background()

	a := Namespaced(base, "a")
	b := Namespaced(base, "b")

	require.NoError(t, a.Set(ctx, "cv_downloads", []byte("1")))
	_, err := b.Get(ctx, "cv_downloads")
	assert.ErrorIs(t, err, ErrNotFound)

	raw, err := base.Get(ctx, "cv:a:cv_downloads")
	require.NoError(t, err)
	assert.Equal(t, "1", string(raw))
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'z'
	again, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
	assert.Equal(t, 1, s.Len())

	assert.Error(t, s.Set(ctx, "", []byte("x")))
}

func TestFileStore_KeysWithSeparators(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "cv:../escape:portfolioData", []byte("x")))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "value stays inside the data directory with no temp files left")

	got, err := s.Get(ctx, "cv:../escape:portfolioData")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestFileStore_RequiresDir(t *testing.T) {
	_, err := NewFileStore("")
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRedisStore_TTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStore(client, time.Hour)
	require.NoError(t, s.Set(context.Background(), "k", []byte("v")))
	assert.Equal(t, time.Hour, mr.TTL("k"))

	mr.FastForward(2 * time.Hour)
	_, err = s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_BackendFailure(t *testing.T) {
	s, mr := setupTestRedis(t)
	mr.SetError("boom")

	_, err := s.Get(context.Background(), "k")
	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "redis", storeErr.Backend)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Options{Backend: BackendFile, DataDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	mr := miniredis.RunT(t)
	s, err = Open(ctx, Options{Backend: BackendRedis, RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	assert.NoError(t, Close(s))

	var cfgErr *ConfigError
	_, err = Open(ctx, Options{Backend: BackendRedis})
	assert.ErrorAs(t, err, &cfgErr)
	_, err = Open(ctx, Options{Backend: BackendPostgres})
	assert.ErrorAs(t, err, &cfgErr)
	_, err = Open(ctx, Options{Backend: "s3"})
	assert.ErrorAs(t, err, &cfgErr)
}
