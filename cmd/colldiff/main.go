package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.senan.xyz/table/table"

	"go.senan.xyz/curate"
	"go.senan.xyz/curate/cmd/internal/flags"
	"go.senan.xyz/curate/collection"
	"go.senan.xyz/curate/musicbrainz"
	"go.senan.xyz/curate/tagdiff"
)

func init() {
	flag := flag.CommandLine
	flag.Usage = func() {
		fmt.Fprintf(flag.Output(), "Usage:\n")
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] sync <root>...\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] diff [<path>...]\n", flag.Name())
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "sync indexes the release dirs under each root, diff scores the\n")
		fmt.Fprintf(flag.Output(), "indexed releases against the catalog. Diffing everything when no\n")
		fmt.Fprintf(flag.Output(), "paths are given.\n")
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Options:\n")
		flag.PrintDefaults()
	}
}

var dmp = diffmatchpatch.New()

func main() {
	defer flags.ExitError()

	userCache, _ := os.UserCacheDir()
	defaultDBPath := filepath.Join(userCache, curate.Name, "collection.db")

	var (
		mb      = flags.MusicBrainz()
		weights = flags.TagWeights()
		dbPath  = flag.String("db-path", defaultDBPath, "path collection index")
	)
	flags.EnvPrefix(curate.Name)
	flags.Parse()

	command := flag.Arg(0)
	switch command {
	case "sync", "diff":
	default:
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(*dbPath), os.ModePerm); err != nil {
		slog.ErrorContext(ctx, "create db dir", "err", err)
		return
	}
	db, err := collection.Open(*dbPath)
	if err != nil {
		slog.ErrorContext(ctx, "open collection index", "path", *dbPath, "err", err)
		return
	}
	defer db.Close()

	switch command {
	case "sync":
		sync(ctx, db, flag.Args()[1:])
	case "diff":
		diff(ctx, db, mb, weights, flag.Args()[1:])
	}
}

func sync(ctx context.Context, db *collection.DB, args []string) {
	roots := argsOrStdin(args)
	if err := db.Scan(ctx, roots); err != nil {
		slog.ErrorContext(ctx, "scanning roots", "err", err)
		return
	}
	pruned, err := db.Prune(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "pruning index", "err", err)
		return
	}
	slog.InfoContext(ctx, "sync finished", "pruned", pruned)
}

func diff(ctx context.Context, db *collection.DB, mb *musicbrainz.MBClient, weights tagdiff.TagWeights, paths []string) {
	var releases []collection.Release
	if len(paths) == 0 {
		var err error
		releases, err = db.Releases(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "listing index", "err", err)
			return
		}
	} else {
		for _, p := range paths {
			p, _ = filepath.Abs(p)
			r, err := db.Release(ctx, p)
			if err != nil {
				slog.ErrorContext(ctx, "reading index", "path", p, "err", err)
				continue
			}
			if r == nil {
				slog.ErrorContext(ctx, "path not indexed, sync first", "path", p)
				continue
			}
			releases = append(releases, *r)
		}
	}

	for _, r := range releases {
		if r.MBID == "" {
			slog.DebugContext(ctx, "no release mbid, skipping", "path", r.Path)
			continue
		}
		if err := diffOne(ctx, db, mb, weights, r); err != nil {
			slog.ErrorContext(ctx, "diffing release", "path", r.Path, "err", err)
			continue
		}
	}
}

func diffOne(ctx context.Context, db *collection.DB, mb *musicbrainz.MBClient, weights tagdiff.TagWeights, r collection.Release) error {
	remote, err := mb.GetRelease(ctx, r.MBID)
	if err != nil {
		return fmt.Errorf("get release: %w", err)
	}
	trks, err := db.Tracks(ctx, r.Path)
	if err != nil {
		return fmt.Errorf("read index tracks: %w", err)
	}

	info := tagdiff.ReleaseInfo{Album: r.Album, AlbumArtist: r.Artist}
	var tracks []tagdiff.Track
	for _, t := range trks {
		tracks = append(tracks, tagdiff.Track{Artist: t.Artist, Title: t.Title})
	}

	score, diffs := tagdiff.DiffRelease(weights, remote, info, tracks)
	fmt.Printf("%s\t%.2f\thttps://musicbrainz.org/release/%s\n", r.Path, score, remote.ID)

	t := table.NewStringWriter()
	for _, d := range diffs {
		if d.Equal {
			continue
		}
		fmt.Fprintf(t, "%s\t%s\t%s\n", d.Field, fmtDiff(d.Before), fmtDiff(d.After))
	}
	if rows := strings.TrimRight(t.String(), "\n"); rows != "" {
		for _, row := range strings.Split(rows, "\n") {
			fmt.Printf("\t%s\n", row)
		}
	}
	return nil
}

func fmtDiff(diff []diffmatchpatch.Diff) string {
	if d := dmp.DiffPrettyText(diff); d != "" {
		return d
	}
	return "[empty]"
}

// copied from cmd/sidecar
func argsOrStdin(args []string) []string {
	if len(args) > 0 {
		return args
	}
	var out []string
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		slog.Error("reading stdin", "err", err)
	}
	return out
}
