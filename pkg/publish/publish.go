// Package publish uploads merged report bundles to an object store.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/artifact"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/report"
)

// IndexFile is uploaded after everything it references.
const IndexFile = "index.html"

// ErrNoIndex reports a bundle without an index.html.
var ErrNoIndex = errors.New("bundle has no " + IndexFile)

// Publisher uploads bundles under keys relative to Root, the data
// directory that holds both the bundles and the bitmaps they reference.
type Publisher struct {
	Store       ObjectStore
	Root        string
	Concurrency int
	// OverwriteReferences re-uploads existing bitmaps_reference keys.
	OverwriteReferences bool
	Out                 io.Writer
}

// Summary is the outcome of one Publish call.
type Summary struct {
	URL      string
	Uploaded []string
	Skipped  []string
	Failed   map[string]error
}

// Publish uploads every dependency of b concurrently, then index.html.
// A failed dependency is reported in Summary.Failed and does not stop the
// others; the index is uploaded once all of them have finished.
func (p *Publisher) Publish(ctx context.Context, b *report.Bundle) (*Summary, error) {
	out := p.Out
	if out == nil {
		out = io.Discard
	}

	var index string
	var deps []string
	for _, f := range b.Files {
		if filepath.Base(f) == IndexFile && filepath.Dir(f) == filepath.Clean(b.Dir) {
			index = f
			continue
		}
		deps = append(deps, f)
	}
	deps = append(deps, b.Images...)
	if index == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoIndex, b.Dir)
	}

	if err := p.Store.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	sum := &Summary{Failed: map[string]error{}}
	var mu sync.Mutex
	record := func(key string, uploaded bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			sum.Failed[key] = err
			fmt.Fprintf(out, "Upload of %s failed: %v\n", key, err)
		case uploaded:
			sum.Uploaded = append(sum.Uploaded, key)
		default:
			sum.Skipped = append(sum.Skipped, key)
		}
	}

	var g errgroup.Group
	limit := p.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for _, f := range deps {
		g.Go(func() error {
			key, err := p.key(f)
			if err != nil {
				record(f, false, err)
				return nil
			}
			uploaded, err := p.upload(ctx, key, f)
			record(key, uploaded, err)
			return nil
		})
	}
	_ = g.Wait()

	key, err := p.key(index)
	if err != nil {
		return sum, err
	}
	if _, err := p.upload(ctx, key, index); err != nil {
		return sum, fmt.Errorf("upload %s: %w", key, err)
	}
	sum.Uploaded = append(sum.Uploaded, key)
	sort.Strings(sum.Uploaded)
	sort.Strings(sum.Skipped)
	sum.URL = p.Store.URL(key)
	return sum, nil
}

func (p *Publisher) upload(ctx context.Context, key, file string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !p.OverwriteReferences || !strings.HasPrefix(key, artifact.BitmapsReference+"/") {
		exists, err := p.Store.Exists(ctx, key)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}
	if err := p.Store.Put(ctx, key, file); err != nil {
		return false, err
	}
	return true, nil
}

// key maps a local file to its object key.
func (p *Publisher) key(file string) (string, error) {
	rel, err := filepath.Rel(p.Root, file)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", file, p.Root)
	}
	return rel, nil
}
