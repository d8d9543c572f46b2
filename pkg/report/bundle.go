package report

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/artifact"
)

// Bundle lists what a merged report needs to be served.
type Bundle struct {
	Dir    string
	Files  []string // files inside Dir, index.html included
	Images []string // referenced files outside Dir
}

// LoadBundle inspects a bundle directory written by Merger.
func LoadBundle(dir string) (*Bundle, error) {
	data, err := os.ReadFile(filepath.Join(dir, artifact.FragmentFile))
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	doc, err := parseFragment(data)
	if err != nil {
		return nil, fmt.Errorf("parse bundle %s: %w", dir, err)
	}

	b := &Bundle{Dir: dir}
	seen := map[string]bool{}
	for _, f := range referencedFiles(doc.Get("tests").Raw, dir) {
		if !seen[f] {
			seen[f] = true
			b.Images = append(b.Images, f)
		}
	}

	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			b.Files = append(b.Files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list bundle: %w", err)
	}
	return b, nil
}
