// Package tagdiff scores and renders differences between local tags and
// catalog metadata.
package tagdiff

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"

	"go.senan.xyz/curate/musicbrainz"
)

var dmp = diffmatchpatch.New()

type Diff struct {
	Field         string
	Before, After []diffmatchpatch.Diff
	Equal         bool
}

type TagWeights map[string]float64

func (tw TagWeights) For(field string) float64 {
	if field == "" {
		return 1
	}
	for f, w := range tw {
		if strings.HasPrefix(field, f) {
			return w
		}
	}
	return 1
}

// Track is the local side of a tracklist comparison.
type Track struct {
	Artist string
	Title  string
}

// ReleaseInfo is the local release-level tag state.
type ReleaseInfo struct {
	Album        string
	AlbumArtist  string
	Label        string
	CatalogueNum string
	MediaFormat  string
}

// DiffRelease compares local release info and tracks against a catalog
// release, returning a 0-100 match score and per-field diffs. Track lists
// of unequal length are padded with empty entries rather than failing.
func DiffRelease(weights TagWeights, release *musicbrainz.Release, info ReleaseInfo, tracks []Track) (float64, []Diff) {
	labelInfo := musicbrainz.AnyLabelInfo(release)

	var score float64
	diff := Differ(weights, &score)

	var mediaFormat string
	if len(release.Media) > 0 {
		mediaFormat = release.Media[0].Format
	}

	var diffs []Diff
	diffs = append(diffs,
		diff("release", info.Album, release.Title),
		diff("artist", info.AlbumArtist, musicbrainz.ArtistsString(release.Artists)),
		diff("label", info.Label, labelInfo.Label.Name),
		diff("catalogue num", info.CatalogueNum, labelInfo.CatalogNumber),
		diff("media format", info.MediaFormat, mediaFormat),
	)

	rtracks := musicbrainz.FlatTracks(release.Media)
	for i := 0; i < max(len(tracks), len(rtracks)); i++ {
		var local, remote string
		if i < len(tracks) {
			local = strings.Join(filterZero(tracks[i].Artist, tracks[i].Title), " – ")
		}
		if i < len(rtracks) {
			remote = strings.Join(filterZero(musicbrainz.ArtistsString(rtracks[i].Artists), rtracks[i].Title), " – ")
		}
		diffs = append(diffs, diff(fmt.Sprintf("track %d", i+1), local, remote))
	}

	return score, diffs
}

// Differ returns a diff func which accumulates a weighted, normalised
// match score into score as it goes.
func Differ(weights TagWeights, score *float64) func(field string, a, b string) Diff {
	var total float64
	var dist float64

	return func(field, a, b string) Diff {
		// separate, normalised diff only for score. if we have both fields
		if a != "" && b != "" {
			a, b := norm(a), norm(b)

			diffs := dmp.DiffMain(a, b, false)
			dist += float64(dmp.DiffLevenshtein(diffs)) * weights.For(field)
			total += float64(len([]rune(b)))

			*score = 100 - (dist * 100 / total)
		}

		diffs := dmp.DiffMain(a, b, false)
		dist := float64(dmp.DiffLevenshtein(diffs))
		return Diff{
			Field:  field,
			Before: filterFunc(diffs, func(d diffmatchpatch.Diff) bool { return d.Type <= diffmatchpatch.DiffEqual }),
			After:  filterFunc(diffs, func(d diffmatchpatch.Diff) bool { return d.Type >= diffmatchpatch.DiffEqual }),
			Equal:  dist == 0,
		}
	}
}

func norm(input string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		if unicode.IsNumber(r) {
			return r
		}
		return -1
	}, input)
}

func filterZero[T comparable](elms ...T) []T {
	var r []T
	for _, el := range elms {
		var zero T
		if el != zero {
			r = append(r, el)
		}
	}
	return r
}

func filterFunc[T any](diffs []T, f func(T) bool) []T {
	var r []T
	for _, diff := range diffs {
		if f(diff) {
			r = append(r, diff)
		}
	}
	return r
}
