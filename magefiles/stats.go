//go:build mage

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/statcraft/internal/paths"
	"github.com/mesh-intelligence/statcraft/pkg/content"
)

// repoStats is the record printed by Stats.
type repoStats struct {
	GoProd      int            `json:"go_loc_prod"`
	GoTest      int            `json:"go_loc_test"`
	Packages    map[string]int `json:"go_loc_by_package"`
	Definitions int            `json:"content_definitions"`
	Modifiers   int            `json:"content_modifiers"`
	ContentHash string         `json:"content_digest,omitempty"`
	DocWords    int            `json:"doc_wc"`
}

// skipDirs are never walked when counting source.
var skipDirs = map[string]bool{
	".git": true, "vendor": true, "testdata": true,
	"_examples": true, "magefiles": true, binaryDir: true,
}

// Stats prints Go line counts per package, the content library the CLI would
// load, and documentation word counts as one JSON line.
func Stats() error {
	st := repoStats{Packages: make(map[string]int)}
	if err := countGo(&st); err != nil {
		return err
	}
	if err := countContent(&st); err != nil {
		return err
	}
	docs, err := filepath.Glob("*.md")
	if err != nil {
		return err
	}
	for _, path := range docs {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		st.DocWords += len(strings.Fields(string(data)))
	}

	line, err := json.Marshal(st)
	if err != nil {
		return err
	}
	fmt.Println(string(line))
	return nil
}

func countGo(st *repoStats) error {
	return filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != "." && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		n := bytes.Count(data, []byte("\n"))
		if strings.HasSuffix(path, "_test.go") {
			st.GoTest += n
			return nil
		}
		st.GoProd += n
		st.Packages[filepath.ToSlash(filepath.Dir(path))] += n
		return nil
	})
}

// countContent loads the content directory with the same resolution the CLI
// uses, minus the config file.
func countContent(st *repoStats) error {
	dir, err := paths.ResolveContentDir("", "")
	if err != nil {
		return err
	}
	lib, err := content.LoadDir(dir)
	if err != nil {
		return fmt.Errorf("content %s: %w", dir, err)
	}
	st.Definitions = lib.Len()
	for _, d := range lib.Definitions() {
		st.Modifiers += len(d.Modifiers)
	}
	if lib.Len() > 0 {
		st.ContentHash = lib.Digest()
	}
	return nil
}
