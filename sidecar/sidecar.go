// Package sidecar matches auxiliary files to audio files by filename stem.
package sidecar

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rainycape/unidecode"
	"go.senan.xyz/natcmp"
	"golang.org/x/text/unicode/norm"

	"go.senan.xyz/curate/tags"
)

// Stem returns path's base name without its final extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Fold normalises a stem for matching. Unicode is composed and
// transliterated to ASCII, case dropped, whitespace runs collapsed, so
// "07 - Sóng " and "07 - song" refer to the same stem.
func Fold(s string) string {
	s = norm.NFC.String(s)
	s = unidecode.Unidecode(s)
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), " ")
	return s
}

type Pair struct {
	Audio   string
	Sidecar string
}

// Find pairs every sidecar in dir with the audio file sharing its folded
// stem. A sidecar is a regular non-audio file with an extension, so
// extensionless files like rule files don't count. Sidecars matching no
// audio stem come back as orphans. Results are in natural order.
func Find(dir string) ([]Pair, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read dir: %w", err)
	}

	var audio, sidecars []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		switch {
		case tags.CanRead(path):
			audio = append(audio, path)
		case filepath.Ext(e.Name()) != "" && !strings.HasPrefix(e.Name(), "."):
			sidecars = append(sidecars, path)
		}
	}
	slices.SortFunc(audio, natcmp.Compare)
	slices.SortFunc(sidecars, natcmp.Compare)

	byStem := map[string]string{}
	for _, a := range audio {
		byStem[Fold(Stem(a))] = a
	}

	var pairs []Pair
	var orphans []string
	for _, s := range sidecars {
		a, ok := byStem[Fold(Stem(s))]
		if !ok {
			orphans = append(orphans, s)
			continue
		}
		pairs = append(pairs, Pair{Audio: a, Sidecar: s})
	}
	return pairs, orphans, nil
}

// For returns the sidecars paired with one audio file.
func For(path string) ([]string, error) {
	path = filepath.Clean(path)
	pairs, _, err := Find(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range pairs {
		if p.Audio == path {
			out = append(out, p.Sidecar)
		}
	}
	return out, nil
}

type Rename struct {
	From, To string
}

// RenamePlan lists renames for sidecars whose stem fold-matches an audio
// file but differs byte-wise, so that afterwards the pair shares an exact
// stem. Destinations which already exist are left alone.
func RenamePlan(dir string) ([]Rename, error) {
	pairs, _, err := Find(dir)
	if err != nil {
		return nil, err
	}

	var renames []Rename
	for _, p := range pairs {
		if Stem(p.Sidecar) == Stem(p.Audio) {
			continue
		}
		to := filepath.Join(dir, Stem(p.Audio)+filepath.Ext(p.Sidecar))
		if _, err := os.Lstat(to); err == nil {
			continue
		}
		renames = append(renames, Rename{From: p.Sidecar, To: to})
	}
	return renames, nil
}
