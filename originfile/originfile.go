// Package originfile reads gazelle-origin YAML sidecars.
package originfile

import (
	"fmt"
	"os"

	"go.senan.xyz/curate/fileutil"
	"gopkg.in/yaml.v2"
)

// https://github.com/x1ppy/gazelle-origin

const dirPat = "origin.y*ml"

// Find locates and parses the origin file in dir, if any.
func Find(dir string) (*OriginFile, error) {
	matches, err := fileutil.GlobDir(dir, dirPat)
	if err != nil {
		return nil, fmt.Errorf("glob for origin file: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	match := matches[0]
	res, err := Parse(match)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return res, nil
}

func Parse(path string) (*OriginFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	var res OriginFile
	if err := yaml.NewDecoder(f).Decode(&res); err != nil {
		return nil, fmt.Errorf("parse origin file: %w", err)
	}
	return &res, nil
}

type OriginFile struct {
	Artist          string `yaml:"Artist"`
	Name            string `yaml:"Name"`
	Edition         any    `yaml:"Edition"`
	EditionYear     int    `yaml:"Edition year"`
	Media           string `yaml:"Media"`
	CatalogueNumber string `yaml:"Catalog number"`
	RecordLabel     string `yaml:"Record label"`
	OriginalYear    int    `yaml:"Original year"`
	Format          string `yaml:"Format"`
	Encoding        string `yaml:"Encoding"`
	Directory       string `yaml:"Directory"`
	Permalink       string `yaml:"Permalink"`
}

func (o OriginFile) String() string {
	return fmt.Sprintf("%s (%d) [%s, %s]", o.Name, o.OriginalYear, o.RecordLabel, o.CatalogueNumber)
}
