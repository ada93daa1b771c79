package fileutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rainycape/unidecode"
)

func GlobEscape(path string) string {
	var r strings.Builder
	for _, c := range path {
		switch c {
		case '*', '?', '[':
			r.WriteRune('[')
			r.WriteRune(c)
			r.WriteRune(']')
		default:
			r.WriteRune(c)
		}
	}
	return r.String()
}

// GlobDir is like [filepath.Glob] except the dir part is escaped first.
func GlobDir(dir, pattern string) ([]string, error) {
	return filepath.Glob(filepath.Join(GlobEscape(dir), pattern))
}

var safePathReplacer = strings.NewReplacer(
	"\x00", "",
	":", "",
	string(filepath.Separator), " ",
)

// SafePath renders a string usable as a single path element.
func SafePath(path string) string {
	path = unidecode.Unidecode(path)
	path = safePathReplacer.Replace(path)
	path = strings.Join(strings.Fields(path), " ")
	return path
}

// WalkLeaves calls fn for all leaf directories under root, that is,
// directories which contain no subdirectories themselves.
func WalkLeaves(root string, fn func(path string, d fs.DirEntry) error) error {
	var walk func(path string, d fs.DirEntry) error
	walk = func(path string, d fs.DirEntry) error {
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		var subDirs []fs.DirEntry
		for _, e := range entries {
			if e.IsDir() {
				subDirs = append(subDirs, e)
			}
		}
		if len(subDirs) == 0 {
			return fn(path, d)
		}
		for _, e := range subDirs {
			if err := walk(filepath.Join(path, e.Name()), e); err != nil {
				return err
			}
		}
		return nil
	}

	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}
	return walk(filepath.Clean(root), fs.FileInfoToDirEntry(info))
}
