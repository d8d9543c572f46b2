// Package report merges the per-scenario BackstopJS HTML reports of an
// engine into one timestamped bundle holding only the failed tests.
package report

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/sjson"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/artifact"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/browser"
)

// ErrNoAssets reports a missing BackstopJS static report directory.
var ErrNoAssets = errors.New("report assets not found")

// Result is the outcome of merging one engine.
type Result struct {
	Engine  browser.Engine
	Dir     string   // bundle directory, empty when the merge failed early
	Entries int      // failed tests written
	Images  []string // files the bundle references outside its directory
	Skipped []string // fragments that could not be parsed
	Err     error
}

// Merger combines report fragments under Layout into bundles.
type Merger struct {
	Layout   artifact.Layout
	AssetDir string // BackstopJS compare/output directory
	Now      func() time.Time
}

// NewMerger creates a merger with the wall clock.
func NewMerger(layout artifact.Layout, assetDir string) *Merger {
	return &Merger{Layout: layout, AssetDir: assetDir, Now: time.Now}
}

// Merge merges each engine in turn. A failed engine does not stop the
// others; check Result.Err.
func (m *Merger) Merge(ctx context.Context, engines []browser.Engine) []Result {
	results := make([]Result, 0, len(engines))
	for _, e := range engines {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Engine: e, Err: err})
			continue
		}
		results = append(results, m.MergeEngine(ctx, e))
	}
	return results
}

// MergeEngine writes one bundle for engine.
func (m *Merger) MergeEngine(ctx context.Context, engine browser.Engine) Result {
	res := Result{Engine: engine}

	if info, err := os.Stat(m.AssetDir); err != nil || !info.IsDir() {
		res.Err = fmt.Errorf("%w: %s", ErrNoAssets, m.AssetDir)
		return res
	}

	now := m.now()
	dir, err := createUnique(m.Layout.CombinedRoot(engine), DirName(now))
	if err != nil {
		res.Err = err
		return res
	}
	res.Dir = dir

	if err := m.writeBundle(ctx, engine, now, &res); err != nil {
		res.Err = err
		return res
	}
	if err := copyTree(m.AssetDir, dir); err != nil {
		res.Err = fmt.Errorf("copy report assets: %w", err)
	}
	return res
}

func (m *Merger) writeBundle(ctx context.Context, engine browser.Engine, now time.Time, res *Result) error {
	f, err := os.Create(filepath.Join(res.Dir, artifact.FragmentFile))
	if err != nil {
		return fmt.Errorf("create bundle: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	prefix, err := Prefix(engine, now)
	if err != nil {
		return err
	}
	if _, err := w.WriteString(prefix + "\n"); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}

	src := m.Layout.HTMLReportRoot(engine)
	dirs, err := os.ReadDir(src)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", src, err)
	}
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fragDir := filepath.Join(src, d.Name())
		data, err := os.ReadFile(filepath.Join(fragDir, artifact.FragmentFile))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read fragment: %w", err)
		}
		entries, err := failedEntries(data, fragDir, res.Dir)
		if err != nil {
			res.Skipped = append(res.Skipped, fragDir)
			continue
		}
		for _, e := range entries {
			sep := ",\n"
			if res.Entries == 0 {
				sep = ""
			}
			if _, err := w.WriteString(sep + e.JSON); err != nil {
				return fmt.Errorf("write bundle: %w", err)
			}
			res.Entries++
			res.Images = append(res.Images, e.Images...)
		}
	}

	if _, err := w.WriteString("\n" + Suffix + "\n"); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	return f.Close()
}

func (m *Merger) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// Suffix closes the tests array and the report call.
const Suffix = "]});"

// Prefix renders the opening line of a bundle up to the tests array.
func Prefix(engine browser.Engine, now time.Time) (string, error) {
	header, err := sjson.Set("{}", "testSuite", engine.DisplayName())
	if err != nil {
		return "", fmt.Errorf("bundle header: %w", err)
	}
	header, err = sjson.Set(header, "id", "Combined at "+now.Format("1/2/2006, 3:04:05 PM"))
	if err != nil {
		return "", fmt.Errorf("bundle header: %w", err)
	}
	return "report(" + strings.TrimSuffix(header, "}") + `,"tests":[`, nil
}

// DirName is the filesystem-safe UTC ISO-8601 form of t.
func DirName(t time.Time) string {
	s := t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	return strings.NewReplacer(":", "-", ".", "-").Replace(s)
}

// createUnique creates root/name, or root/name-N when taken.
func createUnique(root, name string) (string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", root, err)
	}
	for n := 1; ; n++ {
		dir := filepath.Join(root, name)
		if n > 1 {
			dir += "-" + strconv.Itoa(n)
		}
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("create bundle dir: %w", err)
		}
	}
}
