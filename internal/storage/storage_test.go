package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAutoPrefersConfiguredLocations(t *testing.T) {
	cases := []struct {
		name string
		in   Config
		want Backend
	}{
		{"empty", Config{Backend: BackendAuto}, BackendMemory},
		{"postgres", Config{DatabaseURL: "postgres://localhost/db"}, BackendPostgres},
		{"redis", Config{RedisURL: "redis://localhost:6379/0"}, BackendRedis},
		{"sqlite", Config{SQLitePath: "/tmp/x.db"}, BackendSQLite},
		{"postgres wins", Config{DatabaseURL: "postgres://x", RedisURL: "redis://y"}, BackendPostgres},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.in.Resolve()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Backend)
		})
	}
}

func TestResolveExplicitBackendRequiresLocation(t *testing.T) {
	for _, b := range []Backend{BackendPostgres, BackendSQLite, BackendRedis} {
		_, err := Config{Backend: b}.Resolve()
		assert.Error(t, err, "backend %s", b)
	}
	got, err := Config{Backend: BackendMemory}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, got.Backend)
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend(" SQLite ")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, b)

	b, err = ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendAuto, b)

	_, err = ParseBackend("mongo")
	assert.Error(t, err)
}

func TestOpenSQLiteCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "interviews.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Ping())
}
