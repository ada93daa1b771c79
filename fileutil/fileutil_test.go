package fileutil_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.senan.xyz/curate/fileutil"
)

func TestSafePath(t *testing.T) {
	assert.Equal(t, "hello", fileutil.SafePath("hello"))
	assert.Equal(t, "hello", fileutil.SafePath("hello/"))
	assert.Equal(t, "hello a", fileutil.SafePath("hello/a"))
	assert.Equal(t, "hello a", fileutil.SafePath("hello / a"))
	assert.Equal(t, "hello", fileutil.SafePath("hel\x00lo"))
	assert.Equal(t, "a b", fileutil.SafePath("a  b"))
	assert.Equal(t, "(2004) Kesto (234.484)", fileutil.SafePath("(2004) Kesto (234.48:4)"))
	assert.Equal(t, "01.33 Rahina I Mayhem I", fileutil.SafePath("01.33 Rähinä I Mayhem I"))
}

func TestGlobDir(t *testing.T) {
	tmp := t.TempDir()
	dir := filepath.Join(tmp, "we[i]rd dir")
	require.NoError(t, os.MkdirAll(dir, os.ModePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.flac"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), nil, 0o644))

	paths, err := fileutil.GlobDir(dir, "*.flac")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.flac")}, paths)
}

func TestWalkLeaves(t *testing.T) {
	tmp := t.TempDir()
	for _, d := range []string{
		"artist a/album 1",
		"artist a/album 2/disc 1",
		"artist a/album 2/disc 2",
		"artist b/album 3",
		"empty",
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(tmp, d), os.ModePerm))
	}

	var got []string
	err := fileutil.WalkLeaves(tmp, func(path string, _ fs.DirEntry) error {
		rel, _ := filepath.Rel(tmp, path)
		got = append(got, rel)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"artist a/album 1",
		"artist a/album 2/disc 1",
		"artist a/album 2/disc 2",
		"artist b/album 3",
		"empty",
	}, got)
}
