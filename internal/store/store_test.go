package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"brdflow/internal/db"
	"brdflow/internal/migrate"
	"brdflow/internal/store"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func backends(t *testing.T) map[string]store.Store {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = migrate.Migrate(context.Background(), conn)
	require.NoError(t, err)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	g, err := store.NewGorm(gdb)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })

	return map[string]store.Store{
		"memory": store.NewMemory(),
		"sqlite": store.SQL{DB: conn, Now: func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }},
		"gorm":   g,
	}
}

func TestGetSet(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, ok, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "k", "one"))
			require.NoError(t, s.Set(ctx, "k", "two"))
			v, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "two", v)
		})
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			in := []item{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}
			require.NoError(t, store.Save(ctx, s, "items", in))

			out, err := store.Load(ctx, s, "items", []item{})
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestLoadFallsBack(t *testing.T) {
	tests := []struct {
		name string
		raw  *string
	}{
		{name: "missing"},
		{name: "empty", raw: ptr("")},
		{name: "null", raw: ptr("null")},
		{name: "not json", raw: ptr("{broken")},
		{name: "wrong shape", raw: ptr(`{"id":"1"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := store.NewMemory()
			if tt.raw != nil {
				require.NoError(t, s.Set(ctx, "items", *tt.raw))
			}
			out, err := store.Load(ctx, s, "items", []item{})
			require.NoError(t, err)
			assert.NotNil(t, out)
			assert.Empty(t, out)

			m, err := store.Load(ctx, s, "items-map", map[string]item{})
			require.NoError(t, err)
			assert.Empty(t, m)
		})
	}
}

func ptr(s string) *string { return &s }
