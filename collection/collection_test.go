package collection_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.senan.xyz/curate/collection"
)

func newDB(t *testing.T) *collection.DB {
	t.Helper()
	db, err := collection.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertRelease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newDB(t)

	rel := collection.Release{
		Path:      "/music/artist/album",
		MBID:      "dd720ac8-1c68-4484-abb7-0546413a55e3",
		Artist:    "Artist",
		Album:     "Album",
		Date:      "2001",
		NumTracks: 2,
		ModTime:   time.Unix(1000, 0),
	}
	trks := []collection.Track{
		{Num: 1, Artist: "Artist", Title: "One"},
		{Num: 2, Artist: "Artist", Title: "Two"},
	}
	require.NoError(t, db.UpsertRelease(ctx, rel, trks))

	got, err := db.Release(ctx, rel.Path)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rel, *got)

	gotTrks, err := db.Tracks(ctx, rel.Path)
	require.NoError(t, err)
	assert.Equal(t, trks, gotTrks)

	// upsert replaces, tracks included
	rel.Album = "Album (Deluxe)"
	require.NoError(t, db.UpsertRelease(ctx, rel, trks[:1]))

	got, err = db.Release(ctx, rel.Path)
	require.NoError(t, err)
	assert.Equal(t, "Album (Deluxe)", got.Album)

	gotTrks, err = db.Tracks(ctx, rel.Path)
	require.NoError(t, err)
	assert.Len(t, gotTrks, 1)
}

func TestReleaseMissing(t *testing.T) {
	t.Parallel()

	db := newDB(t)
	got, err := db.Release(context.Background(), "/nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPrune(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newDB(t)

	real := t.TempDir()
	require.NoError(t, db.UpsertRelease(ctx, collection.Release{Path: real}, nil))
	require.NoError(t, db.UpsertRelease(ctx, collection.Release{Path: "/long/gone"}, nil))

	n, err := db.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := db.Releases(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, real, all[0].Path)
}
