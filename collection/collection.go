// Package collection keeps a local sqlite index of release directories so
// whole-collection operations don't need to reread every file's tags.
package collection

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.senan.xyz/natcmp"
	"golang.org/x/sync/errgroup"

	"go.senan.xyz/curate/fileutil"
	"go.senan.xyz/curate/tags"
)

var ErrNoTracks = errors.New("no tracks in dir")

type Release struct {
	Path      string
	MBID      string
	Artist    string
	Album     string
	Date      string
	NumTracks int
	ModTime   time.Time
}

type Track struct {
	Num    int
	Artist string
	Title  string
}

type DB struct {
	db *sql.DB
}

const schema = `
create table if not exists releases (
	path       text primary key,
	mbid       text not null default '',
	artist     text not null default '',
	album      text not null default '',
	date       text not null default '',
	num_tracks integer not null default 0,
	mod_time   integer not null default 0
);
create table if not exists tracks (
	release_path text not null,
	num          integer not null,
	artist       text not null default '',
	title        text not null default '',
	primary key (release_path, num)
);
`

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) UpsertRelease(ctx context.Context, r Release, trks []Track) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		insert into releases (path, mbid, artist, album, date, num_tracks, mod_time)
		values (?, ?, ?, ?, ?, ?, ?)
		on conflict (path) do update set
			mbid=excluded.mbid, artist=excluded.artist, album=excluded.album,
			date=excluded.date, num_tracks=excluded.num_tracks, mod_time=excluded.mod_time`,
		r.Path, r.MBID, r.Artist, r.Album, r.Date, r.NumTracks, r.ModTime.Unix(),
	); err != nil {
		return fmt.Errorf("upsert release: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `delete from tracks where release_path=?`, r.Path); err != nil {
		return fmt.Errorf("clear tracks: %w", err)
	}
	for _, t := range trks {
		if _, err := tx.ExecContext(ctx, `
			insert into tracks (release_path, num, artist, title) values (?, ?, ?, ?)`,
			r.Path, t.Num, t.Artist, t.Title,
		); err != nil {
			return fmt.Errorf("insert track: %w", err)
		}
	}
	return tx.Commit()
}

func (d *DB) Releases(ctx context.Context) ([]Release, error) {
	rows, err := d.db.QueryContext(ctx, `
		select path, mbid, artist, album, date, num_tracks, mod_time
		from releases order by path`)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []Release
	for rows.Next() {
		var r Release
		var modTime int64
		if err := rows.Scan(&r.Path, &r.MBID, &r.Artist, &r.Album, &r.Date, &r.NumTracks, &modTime); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		r.ModTime = time.Unix(modTime, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) Release(ctx context.Context, path string) (*Release, error) {
	var r Release
	var modTime int64
	err := d.db.QueryRowContext(ctx, `
		select path, mbid, artist, album, date, num_tracks, mod_time
		from releases where path=?`, path,
	).Scan(&r.Path, &r.MBID, &r.Artist, &r.Album, &r.Date, &r.NumTracks, &modTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	r.ModTime = time.Unix(modTime, 0)
	return &r, nil
}

func (d *DB) Tracks(ctx context.Context, path string) ([]Track, error) {
	rows, err := d.db.QueryContext(ctx, `
		select num, artist, title from tracks where release_path=? order by num`, path)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []Track
	for rows.Next() {
		var t Track
		if err := rows.Scan(&t.Num, &t.Artist, &t.Title); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (d *DB) DeleteRelease(ctx context.Context, path string) error {
	if _, err := d.db.ExecContext(ctx, `delete from tracks where release_path=?`, path); err != nil {
		return fmt.Errorf("delete tracks: %w", err)
	}
	if _, err := d.db.ExecContext(ctx, `delete from releases where path=?`, path); err != nil {
		return fmt.Errorf("delete release: %w", err)
	}
	return nil
}

// Prune drops index rows whose directory no longer exists, returning how
// many were dropped.
func (d *DB) Prune(ctx context.Context) (int, error) {
	all, err := d.Releases(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	for _, r := range all {
		if _, err := os.Stat(r.Path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := d.DeleteRelease(ctx, r.Path); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// ReadRelease reads one release directory's tags into index rows.
func ReadRelease(dir string) (Release, []Track, error) {
	paths, err := fileutil.GlobDir(dir, "*")
	if err != nil {
		return Release{}, nil, fmt.Errorf("glob dir: %w", err)
	}
	paths = slices.DeleteFunc(paths, func(p string) bool { return !tags.CanRead(p) })
	slices.SortFunc(paths, natcmp.Compare)
	if len(paths) == 0 {
		return Release{}, nil, ErrNoTracks
	}

	var r Release
	r.Path = dir
	if info, err := os.Stat(dir); err == nil {
		r.ModTime = info.ModTime()
	}

	var trks []Track
	for i, path := range paths {
		f, err := tags.Read(path)
		if err != nil {
			return Release{}, nil, fmt.Errorf("read %q: %w", filepath.Base(path), err)
		}
		if i == 0 {
			r.MBID = f.Read(tags.MBReleaseID)
			r.Artist = cmp.Or(f.Read(tags.AlbumArtist), f.Read(tags.Artist))
			r.Album = f.Read(tags.Album)
			r.Date = f.Read(tags.Date)
		}
		trks = append(trks, Track{
			Num:    cmp.Or(f.ReadNum(tags.TrackNumber), i+1),
			Artist: f.Read(tags.Artist),
			Title:  f.Read(tags.Title),
		})
		f.Close()
	}
	r.NumTracks = len(trks)

	return r, trks, nil
}

// Scan walks roots for leaf directories and indexes each, a few at a
// time. Unreadable directories are logged and skipped.
func (d *DB) Scan(ctx context.Context, roots []string) error {
	leaves := make(chan string)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(leaves)
		for _, root := range roots {
			root, err := filepath.Abs(root)
			if err != nil {
				return fmt.Errorf("make abs: %w", err)
			}
			err = fileutil.WalkLeaves(root, func(path string, _ fs.DirEntry) error {
				select {
				case leaves <- path:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			if err != nil {
				return fmt.Errorf("walk %q: %w", root, err)
			}
		}
		return nil
	})

	for range 4 {
		g.Go(func() error {
			for dir := range leaves {
				r, trks, err := ReadRelease(dir)
				if errors.Is(err, ErrNoTracks) {
					continue
				}
				if err != nil {
					slog.ErrorContext(ctx, "reading dir", "dir", dir, "err", err)
					continue
				}
				if err := d.UpsertRelease(ctx, r, trks); err != nil {
					return fmt.Errorf("index %q: %w", dir, err)
				}
			}
			return nil
		})
	}

	return g.Wait()
}
