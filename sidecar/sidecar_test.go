package sidecar_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.senan.xyz/curate/sidecar"
)

func TestStem(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "01 - Song", sidecar.Stem("a/b/01 - Song.flac"))
	assert.Equal(t, "01 - Song", sidecar.Stem("01 - Song.lrc"))
	assert.Equal(t, "tags", sidecar.Stem("tags"))
	assert.Equal(t, "a.b", sidecar.Stem("a.b.c"))
}

func TestFold(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "07 - song", sidecar.Fold("07 - Sóng"))
	assert.Equal(t, "07 - song", sidecar.Fold("07  -  SONG "))
	assert.Equal(t, sidecar.Fold("Rähinä"), sidecar.Fold("rahina"))
}

func TestFind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "01 - Intro.flac")
	touch(t, dir, "01 - Intro.lrc")
	touch(t, dir, "02 - Sóng.flac")
	touch(t, dir, "02 - song.lrc")
	touch(t, dir, "cover.jpg")
	touch(t, dir, "tags") // rule file, not a sidecar
	touch(t, dir, ".hidden.lrc")

	pairs, orphans, err := sidecar.Find(dir)
	require.NoError(t, err)

	assert.Equal(t, []sidecar.Pair{
		{Audio: filepath.Join(dir, "01 - Intro.flac"), Sidecar: filepath.Join(dir, "01 - Intro.lrc")},
		{Audio: filepath.Join(dir, "02 - Sóng.flac"), Sidecar: filepath.Join(dir, "02 - song.lrc")},
	}, pairs)
	assert.Equal(t, []string{filepath.Join(dir, "cover.jpg")}, orphans)
}

func TestFor(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "01 - Intro.flac")
	touch(t, dir, "01 - Intro.lrc")
	touch(t, dir, "01 - Intro.cue")
	touch(t, dir, "02 - Other.flac")

	got, err := sidecar.For(filepath.Join(dir, "01 - Intro.flac"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "01 - Intro.cue"),
		filepath.Join(dir, "01 - Intro.lrc"),
	}, got)

	got, err = sidecar.For(filepath.Join(dir, "02 - Other.flac"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRenamePlan(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "02 - Sóng.flac")
	touch(t, dir, "02 - song.lrc")
	touch(t, dir, "03 - Same.flac")
	touch(t, dir, "03 - Same.lrc")

	renames, err := sidecar.RenamePlan(dir)
	require.NoError(t, err)
	assert.Equal(t, []sidecar.Rename{
		{From: filepath.Join(dir, "02 - song.lrc"), To: filepath.Join(dir, "02 - Sóng.lrc")},
	}, renames)
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
}
