// Package flags holds the flag, config, and logging plumbing shared by
// the curate binaries.
package flags

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.senan.xyz/flagconf"

	"go.senan.xyz/curate"
	"go.senan.xyz/curate/musicbrainz"
	"go.senan.xyz/curate/notifications"
	"go.senan.xyz/curate/rules"
	"go.senan.xyz/curate/tagdiff"
)

func EnvPrefix(prefix string) {
	flagconf.ReadEnvPrefix = func(_ *flag.FlagSet) string {
		return prefix
	}
}

func Parse() {
	userConfig, _ := os.UserConfigDir()
	defaultConfigPath := filepath.Join(userConfig, curate.Name, "config")
	configPath := flag.String("config-path", defaultConfigPath, "path config file")

	printVersion := flag.Bool("version", false, "print the version")
	printConfig := flag.Bool("config", false, "print the parsed config")

	flag.TextVar(&logLevel, "log-level", &logLevel, "set the logging level")

	flag.Parse()
	flagconf.ParseEnv()
	flagconf.ParseConfig(*configPath)

	if *printVersion {
		fmt.Printf("%s %s\n", flag.CommandLine.Name(), curate.Version)
		os.Exit(0)
	}
	if *printConfig {
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Printf("%-16s %s\n", f.Name, f.Value)
		})
		os.Exit(0)
	}
}

func MusicBrainz() *musicbrainz.MBClient {
	var mb musicbrainz.MBClient
	mb.UserAgent = fmt.Sprintf("%s/%s ( https://go.senan.xyz/%s )", curate.Name, curate.Version, curate.Name)
	flag.StringVar(&mb.BaseURL, "mb-base-url", `https://musicbrainz.org/ws/2/`, "musicbrainz base url")
	flag.DurationVar(&mb.RateLimit, "mb-rate-limit", 1*time.Second, "musicbrainz rate limit duration")
	return &mb
}

func Composer() *rules.Composer {
	var c rules.Composer
	flag.StringVar(&c.Root, "root", ".", "outermost directory consulted for rule files")
	flag.StringVar(&c.FileName, "rule-file-name", rules.DefaultFileName, "per directory rule file name")
	return &c
}

func TagWeights() tagdiff.TagWeights {
	r := tagdiff.TagWeights{}
	flag.Var(&tagWeightsParser{r}, "tag-weight", "adjust distance weighting for a tag. 0 to ignore")
	return r
}

func Notifications() *notifications.Notifications {
	var r notifications.Notifications
	flag.Var(&notificationsParser{&r}, "notification-uri", "add a shoutrrr notification uri for an event")
	return &r
}
