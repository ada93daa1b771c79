package originfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.senan.xyz/curate/originfile"
)

const sample = `Artist: Some Artist
Name: Some Album
Edition:
Edition year:
Media: CD
Catalog number: CAT-001
Record label: Some Label
Original year: 2001
Format: FLAC
Encoding: Lossless
Directory: Some Artist - Some Album (2001) [FLAC]
Permalink: https://example.com/torrents.php?torrentid=1
`

func TestFind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "origin.yaml"), []byte(sample), 0o644))

	origin, err := originfile.Find(dir)
	require.NoError(t, err)
	require.NotNil(t, origin)

	assert.Equal(t, "Some Artist", origin.Artist)
	assert.Equal(t, "Some Album", origin.Name)
	assert.Equal(t, "CAT-001", origin.CatalogueNumber)
	assert.Equal(t, "Some Label", origin.RecordLabel)
	assert.Equal(t, 2001, origin.OriginalYear)
}

func TestFindNone(t *testing.T) {
	t.Parallel()

	origin, err := originfile.Find(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, origin)
}
