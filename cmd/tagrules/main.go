package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/google/shlex"

	"go.senan.xyz/curate"
	"go.senan.xyz/curate/cmd/internal/flags"
	"go.senan.xyz/curate/notifications"
	"go.senan.xyz/curate/rules"
	"go.senan.xyz/curate/tags"
)

func init() {
	flag := flag.CommandLine
	flag.Usage = func() {
		fmt.Fprintf(flag.Output(), "Usage:\n")
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] show <path>...\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] diff <path>...\n", flag.Name())
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "show prints each path's composed tag mapping, diff compares it\n")
		fmt.Fprintf(flag.Output(), "against the file's current tags. Paths are read from stdin when\n")
		fmt.Fprintf(flag.Output(), "none are given.\n")
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Options:\n")
		flag.PrintDefaults()
	}
}

const markerFiles = "<files>"

func main() {
	defer flags.ExitError()
	var (
		composer = flags.Composer()
		notifs   = flags.Notifications()
		apply    = flag.Bool("apply", false, "write changed tags instead of only printing the diff")
		postCmd  = flag.String("post-cmd", "", "command to run after applying, \""+markerFiles+"\" expands to the changed paths")
	)
	flags.EnvPrefix(curate.Name)
	flags.Parse()

	command := flag.Arg(0)
	switch command {
	case "show", "diff":
	default:
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var doneN, errN int
	var changed []string
	for _, path := range argsOrStdin(flag.Args()[1:]) {
		var didChange bool
		var err error
		switch command {
		case "show":
			err = show(composer, path)
		case "diff":
			didChange, err = diff(composer, path, *apply)
		}
		if err != nil {
			slog.ErrorContext(ctx, "processing path", "path", path, "err", err)
			errN++
			continue
		}
		if didChange {
			changed = append(changed, path)
		}
		doneN++
	}

	if *apply && *postCmd != "" && len(changed) > 0 {
		if err := runPostCmd(ctx, *postCmd, changed); err != nil {
			slog.ErrorContext(ctx, "running post command", "err", err)
			errN++
		}
	}

	slog := slog.With("paths", doneN, "changed", len(changed), "errs", errN)
	if errN > 0 {
		notifs.Sendf(ctx, notifications.Errors, "tag rules finished with %d errors", errN)
		slog.Error("finished with errors")
		return
	}
	notifs.Sendf(ctx, notifications.Complete, "tag rules finished, %d paths changed", len(changed))
	slog.Info("finished")
}

func show(c *rules.Composer, path string) error {
	mapping, err := c.Compose(path)
	if err != nil {
		return fmt.Errorf("compose: %w", err)
	}
	for _, k := range slices.Sorted(maps.Keys(mapping)) {
		fmt.Println(strings.Join(append([]string{path, k}, mapping[k]...), "\t"))
	}
	return nil
}

func diff(c *rules.Composer, path string, apply bool) (bool, error) {
	mapping, err := c.Compose(path)
	if err != nil {
		return false, fmt.Errorf("compose: %w", err)
	}
	if len(mapping) == 0 {
		return false, nil
	}

	f, err := tags.Read(path)
	if err != nil {
		return false, fmt.Errorf("read tags: %w", err)
	}
	defer f.Close()

	var changed bool
	for _, k := range slices.Sorted(maps.Keys(mapping)) {
		before, after := f.ReadMulti(strings.ToLower(k)), mapping[k]
		if slices.Equal(before, after) {
			continue
		}
		changed = true
		rec := append([]string{path, k}, before...)
		rec = append(rec, "->")
		rec = append(rec, after...)
		fmt.Println(strings.Join(rec, "\t"))
	}
	if !changed || !apply {
		return changed, nil
	}

	for k, vs := range mapping {
		f.Write(strings.ToLower(k), vs...)
	}
	if err := f.Save(); err != nil {
		return true, fmt.Errorf("save: %w", err)
	}
	return true, nil
}

func runPostCmd(ctx context.Context, conf string, paths []string) error {
	parts, err := shlex.Split(conf)
	if err != nil {
		return fmt.Errorf("parse command: %w", err)
	}
	if len(parts) == 0 {
		return fmt.Errorf("no command provided")
	}

	var args []string
	for _, arg := range parts[1:] {
		switch arg {
		case markerFiles:
			args = append(args, paths...)
		default:
			args = append(args, arg)
		}
	}

	cmd := exec.CommandContext(ctx, parts[0], args...)
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run cmd: %w", err)
	}
	return nil
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
