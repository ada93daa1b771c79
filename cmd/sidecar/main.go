package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.senan.xyz/curate"
	"go.senan.xyz/curate/cmd/internal/flags"
	"go.senan.xyz/curate/sidecar"
)

func init() {
	flag := flag.CommandLine
	flag.Usage = func() {
		fmt.Fprintf(flag.Output(), "Usage:\n")
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] list    <dir>...\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] orphans <dir>...\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] rename  <dir>...\n", flag.Name())
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Dirs are read from stdin when none are given.\n")
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Options:\n")
		flag.PrintDefaults()
	}
}

func main() {
	defer flags.ExitError()
	dryRun := flag.Bool("dry-run", false, "dry run")
	flags.EnvPrefix(curate.Name)
	flags.Parse()

	command := flag.Arg(0)
	switch command {
	case "list", "orphans", "rename":
	default:
		flag.Usage()
		os.Exit(1)
	}

	for _, dir := range argsOrStdin(flag.Args()[1:]) {
		if err := processDir(command, dir, *dryRun); err != nil {
			slog.Error("processing dir", "dir", dir, "err", err)
			continue
		}
	}
}

func processDir(command, dir string, dryRun bool) error {
	switch command {
	case "list":
		pairs, _, err := sidecar.Find(dir)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			fmt.Printf("%s\t%s\n", p.Audio, p.Sidecar)
		}
	case "orphans":
		_, orphans, err := sidecar.Find(dir)
		if err != nil {
			return err
		}
		for _, o := range orphans {
			fmt.Println(o)
		}
	case "rename":
		renames, err := sidecar.RenamePlan(dir)
		if err != nil {
			return err
		}
		for _, r := range renames {
			fmt.Printf("%s\t->\t%s\n", r.From, r.To)
			if dryRun {
				continue
			}
			if err := os.Rename(r.From, r.To); err != nil {
				return fmt.Errorf("rename: %w", err)
			}
		}
	}
	return nil
}

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
