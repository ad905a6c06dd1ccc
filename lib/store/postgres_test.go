package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration test; runs only when TEST_DATABASE_URL points at a Postgres instance.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := NewDB(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, EnsureSchema(ctx, pool))
	_, err = pool.Exec(ctx, "DELETE FROM objects WHERE bucket = 'listingwatch-test'")
	require.NoError(t, err)

	s := NewPostgresStore(pool)
	require.NoError(t, s.PutObject(ctx, "listingwatch-test", "archive/a_1.html", []byte("one"), "text/html"))
	require.NoError(t, s.PutObject(ctx, "listingwatch-test", "archive/a_2.html", []byte("two"), "text/html"))
	require.NoError(t, s.PutObject(ctx, "listingwatch-test", "archive/b_1.html", []byte("other"), "text/html"))

	objs, err := s.ListByPrefix(ctx, "listingwatch-test", "archive/a_")
	require.NoError(t, err)
	assert.Len(t, objs, 2)

	body, err := s.GetObject(ctx, "listingwatch-test", "archive/a_2.html")
	require.NoError(t, err)
	assert.Equal(t, "two", string(body))

	_, err = s.GetObject(ctx, "listingwatch-test", "archive/missing.html")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
