package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)

	s, err := Open(":memory:")
	require.NoError(t, err)
	s.WithClock(func() time.Time { return now })
	t.Cleanup(func() {
		assert.NoError(t, s.Close())
	})

	require.NoError(t, s.Put(ctx, "a", "a=1;", now.Add(time.Minute)))
	require.NoError(t, s.Put(ctx, "a", "a=2;", now.Add(time.Minute)))
	require.NoError(t, s.Put(ctx, "b", "b=2;", time.Time{}))
	require.NoError(t, s.Put(ctx, "c", "c=3;", now.Add(time.Minute)))

	v, found, err := s.Lookup(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "a=2;", v)

	now = now.Add(time.Hour)
	_, found, err = s.Lookup(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Cleanup(ctx))
	var count int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cookies`).Scan(&count))
	assert.Equal(t, 1, count)

	v, found, err = s.Lookup(ctx, "b")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "b=2;", v)

	require.NoError(t, s.Delete(ctx, "b"))
	_, found, err = s.Lookup(ctx, "b")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_File(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cookies.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "a", "a=1;", time.Now().Add(time.Hour)))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { assert.NoError(t, s.Close()) }()
	v, found, err := s.Lookup(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "a=1;", v)
}
