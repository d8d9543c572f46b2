// Package artifact describes the on-disk layout shared with BackstopJS and
// answers whether a scenario has already been captured or tested.
package artifact

import (
	"os"
	"path/filepath"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/browser"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/scenario"
)

// Directory names under the data root, as BackstopJS names them.
const (
	BitmapsReference = "bitmaps_reference"
	BitmapsTest      = "bitmaps_test"
	EngineScripts    = "engine_scripts"
	HTMLReport       = "html_report"
	CIReport         = "ci_report"
	CombinedReport   = "combined_report"
)

// FragmentFile is the report data file BackstopJS writes into each
// html_report directory.
const FragmentFile = "config.js"

// Layout resolves artifact directories under a data root such as
// "backstop_data". Every per-scenario directory is keyed by
// {engine}/{normalized scenario name}.
type Layout struct {
	Root string
}

// Paths is the set of per-scenario directories handed to BackstopJS.
type Paths struct {
	BitmapsReference string `json:"bitmaps_reference"`
	BitmapsTest      string `json:"bitmaps_test"`
	EngineScripts    string `json:"engine_scripts"`
	HTMLReport       string `json:"html_report"`
	CIReport         string `json:"ci_report"`
}

// Suffix returns the {engine}/{scenario} key for s.
func Suffix(engine browser.Engine, s scenario.Scenario) string {
	e := string(engine)
	if e == "" {
		e = "unknown_browser"
	}
	return filepath.Join(e, s.PathName())
}

// For returns the artifact directories of one scenario rendered by engine.
func (l Layout) For(engine browser.Engine, s scenario.Scenario) Paths {
	suffix := Suffix(engine, s)
	return Paths{
		BitmapsReference: filepath.Join(l.Root, BitmapsReference, suffix),
		BitmapsTest:      filepath.Join(l.Root, BitmapsTest, suffix),
		EngineScripts:    filepath.Join(l.Root, EngineScripts, suffix),
		HTMLReport:       filepath.Join(l.Root, HTMLReport, suffix),
		CIReport:         filepath.Join(l.Root, CIReport, suffix),
	}
}

// HTMLReportRoot is the directory holding one html_report subdirectory per
// scenario for engine.
func (l Layout) HTMLReportRoot(engine browser.Engine) string {
	return filepath.Join(l.Root, HTMLReport, string(engine))
}

// CombinedRoot is the directory holding timestamped merged bundles for engine.
func (l Layout) CombinedRoot(engine browser.Engine) string {
	return filepath.Join(l.Root, CombinedReport, string(engine))
}

// Store answers precondition questions for the promotion chain.
type Store interface {
	HasReference(engine browser.Engine, s scenario.Scenario) bool
	HasTest(engine browser.Engine, s scenario.Scenario) bool
}

// FSStore checks the filesystem. A directory's existence is the record of a
// completed capture, because BackstopJS is the only writer.
type FSStore struct {
	Layout Layout
}

// HasReference reports whether reference bitmaps exist.
func (f FSStore) HasReference(engine browser.Engine, s scenario.Scenario) bool {
	return dirExists(f.Layout.For(engine, s).BitmapsReference)
}

// HasTest reports whether test bitmaps exist.
func (f FSStore) HasTest(engine browser.Engine, s scenario.Scenario) bool {
	return dirExists(f.Layout.For(engine, s).BitmapsTest)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
