package rules

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeLayering(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeRules(t, root,
		"\t\tOWNER\tJOE",
		"\t\tGENRES\tpsy\tminimal",
	)
	writeRules(t, filepath.Join(root, "ARTIST"),
		"\t\tGENRES\ttechno",
	)

	c := Composer{Root: root}
	m, err := c.Compose(filepath.Join(root, "ARTIST", "ALBUM", "01 - Song.flac"))
	require.NoError(t, err)

	// nearer rule fully replaces the farther one, no merging
	assert.Equal(t, []string{"JOE"}, m["OWNER"])
	assert.Equal(t, []string{"techno"}, m["GENRES"])
}

func TestComposeFileOrder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeRules(t, root,
		"\t\tOWNER\tJOE",
		"\t\tOWNER\tAMY",
	)

	c := Composer{Root: root}
	m, err := c.Compose(filepath.Join(root, "a.flac"))
	require.NoError(t, err)
	assert.Equal(t, []string{"AMY"}, m["OWNER"])
}

func TestComposeCaptureExpressions(t *testing.T) {
	t.Parallel()

	// an empty pattern matches everywhere, and a captured track number
	// loses its leading zero through int conversion
	root := t.TempDir()
	writeRules(t, root,
		"\t\tOWNER\tJOE",
		`.*/(\d+)`+"\t\tTRACKNUMBER=\tstring(int(_[0]))",
	)

	c := Composer{Root: root}
	m, err := c.Compose(filepath.Join(root, "ARTIST", "ALBUM", "07 - Song.flac"))
	require.NoError(t, err)

	assert.Equal(t, []string{"JOE"}, m["OWNER"])
	assert.Equal(t, []string{"7"}, m["TRACKNUMBER"])
}

func TestComposeCondition(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeRules(t, root,
		"\t\tARTIST\tNEW NAME",
	)
	album := filepath.Join(root, "ARTIST", "ALBUM")
	writeRules(t, album,
		`^(\d+)`+"\tint(_[0]) < 5\tARTIST\tOLD NAME",
	)

	c := Composer{Root: root}

	m, err := c.Compose(filepath.Join(album, "3 - Early Song.flac"))
	require.NoError(t, err)
	assert.Equal(t, []string{"OLD NAME"}, m["ARTIST"])

	// condition false: pattern matched but the rule contributes nothing,
	// so the ancestor rule governs
	m, err = c.Compose(filepath.Join(album, "7 - Late Song.flac"))
	require.NoError(t, err)
	assert.Equal(t, []string{"NEW NAME"}, m["ARTIST"])
}

func TestComposeRemoval(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeRules(t, root,
		"\t\tCOMMENT\tsome comment",
	)
	writeRules(t, filepath.Join(root, "ALBUM"),
		"\t\tCOMMENT",
	)

	c := Composer{Root: root}
	m, err := c.Compose(filepath.Join(root, "ALBUM", "a.flac"))
	require.NoError(t, err)

	// zero values means remove the tag
	require.Contains(t, m, "COMMENT")
	assert.Empty(t, m["COMMENT"])
}

func TestComposeSkipsMalformed(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeRules(t, root,
		"only\ttwo fields",
		"(((\t\tBROKEN\tx",
		"\tnot an expression at all\tALSOBROKEN\tx",
		"\t\t\tno key",
		"\t\tOWNER\tJOE",
	)

	c := Composer{Root: root}
	m, err := c.Compose(filepath.Join(root, "a.flac"))
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"OWNER": {"JOE"}}, m)
}

func TestComposeEvalErrors(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeRules(t, root,
		// capture index out of range is an evaluation error, rule skipped
		`^(\d+)`+"\tint(_[5]) < 5\tARTIST\tOLD NAME",
		// one bad value expression drops only that value
		`^(\d+)`+"\t\tTRACKNUMBER=\tstring(int(_[0]))\tstring(int(_[9]))",
	)

	c := Composer{Root: root}
	m, err := c.Compose(filepath.Join(root, "3 - Song.flac"))
	require.NoError(t, err)

	assert.NotContains(t, m, "ARTIST")
	assert.Equal(t, []string{"3"}, m["TRACKNUMBER"])
}

func TestComposeCache(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeRules(t, root, "\t\tOWNER\tJOE")

	c := Composer{Root: root}
	m, err := c.Compose(filepath.Join(root, "a.flac"))
	require.NoError(t, err)
	assert.Equal(t, []string{"JOE"}, m["OWNER"])

	// rule files are read at most once per run
	writeRules(t, root, "\t\tOWNER\tAMY")
	m, err = c.Compose(filepath.Join(root, "b.flac"))
	require.NoError(t, err)
	assert.Equal(t, []string{"JOE"}, m["OWNER"])
}

func TestComposeNoRuleFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	c := Composer{Root: root}
	m, err := c.Compose(filepath.Join(root, "a", "b", "c.flac"))
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestComposeOutsideRoot(t *testing.T) {
	t.Parallel()

	c := Composer{Root: t.TempDir()}
	_, err := c.Compose(filepath.Join(t.TempDir(), "a.flac"))
	require.Error(t, err)
}

func TestCaptures(t *testing.T) {
	t.Parallel()

	r := rule{pattern: mustCompile(t, `(\d+)-(\w)`)}
	assert.Equal(t, []string{"1", "a", "2", "b"}, r.captures("1-a 2-b"))

	r = rule{pattern: mustCompile(t, `\d+`)}
	assert.Equal(t, []string{"10", "20"}, r.captures("10 20"))

	r = rule{pattern: mustCompile(t, ``)}
	assert.NotEmpty(t, r.captures("anything"))
	assert.NotEmpty(t, r.captures(""))

	r = rule{pattern: mustCompile(t, `\.mp3$`)}
	assert.Empty(t, r.captures("a.flac"))
}

func writeRules(t *testing.T, dir string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, os.ModePerm))
	content := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(content), 0o644))
}

func mustCompile(t *testing.T, expr string) *regexp.Regexp {
	t.Helper()
	re, err := regexp.Compile(expr)
	require.NoError(t, err)
	return re
}
