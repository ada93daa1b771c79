package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.senan.xyz/curate"
	"go.senan.xyz/curate/cmd/internal/flags"
	"go.senan.xyz/curate/collection"
	"go.senan.xyz/curate/musicbrainz"
	"go.senan.xyz/curate/originfile"
)

func init() {
	flag := flag.CommandLine
	flag.Usage = func() {
		fmt.Fprintf(flag.Output(), "Usage:\n")
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] get    <mbid>...\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] search <dir>...\n", flag.Name())
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "get looks releases up by MBID, search builds a query from a dir's\n")
		fmt.Fprintf(flag.Output(), "tags and origin file. Args are read from stdin when none are given.\n")
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Options:\n")
		flag.PrintDefaults()
	}
}

func main() {
	defer flags.ExitError()
	mb := flags.MusicBrainz()
	flags.EnvPrefix(curate.Name)
	flags.Parse()

	command := flag.Arg(0)
	switch command {
	case "get", "search":
	default:
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for _, arg := range argsOrStdin(flag.Args()[1:]) {
		var release *musicbrainz.Release
		var err error
		switch command {
		case "get":
			release, err = mb.GetRelease(ctx, arg)
		case "search":
			release, err = searchDir(ctx, mb, arg)
		}
		if err != nil {
			slog.ErrorContext(ctx, "looking up release", "arg", arg, "err", err)
			continue
		}
		printRelease(os.Stdout, release)
	}
}

func searchDir(ctx context.Context, mb *musicbrainz.MBClient, dir string) (*musicbrainz.Release, error) {
	rel, trks, err := collection.ReadRelease(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir tags: %w", err)
	}

	query := musicbrainz.ReleaseQuery{
		MBReleaseID: rel.MBID,
		Release:     rel.Album,
		Artist:      rel.Artist,
		NumTracks:   len(trks),
	}
	if origin, err := originfile.Find(dir); err != nil {
		slog.WarnContext(ctx, "reading origin file", "dir", dir, "err", err)
	} else if origin != nil {
		query.Label = origin.RecordLabel
		query.CatalogueNum = origin.CatalogueNumber
		query.Format = origin.Media
	}

	release, err := mb.SearchRelease(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return release, nil
}

func printRelease(w io.Writer, release *musicbrainz.Release) {
	labelInfo := musicbrainz.AnyLabelInfo(release)

	var date string
	if !release.Date.IsZero() {
		date = release.Date.Format("2006-01-02")
	}

	fmt.Fprintln(w, strings.Join([]string{
		"release", release.ID,
		musicbrainz.ArtistsString(release.Artists), release.Title,
		date, labelInfo.Label.Name, labelInfo.CatalogNumber,
	}, "\t"))

	for i, trk := range musicbrainz.FlatTracks(release.Media) {
		fmt.Fprintf(w, "track\t%d\t%s\t%s\n", i+1, musicbrainz.ArtistsString(trk.Artists), trk.Recording.Title)
	}
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
