package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/browser"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/console"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/report"
)

var combinePublish bool

var combineCmd = &cobra.Command{
	Use:   "combine [chromium|firefox|webkit|c|f|w ...]",
	Short: "Merge failed tests of every scenario into one report per engine",
	Long:  "Merge the failed tests of every scenario report into one timestamped report per browser engine. Unknown or missing engine names select all engines.",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := stdoutPrinter()
		results := combine(cmd.Context(), p, browser.ResolveList(args))
		if !combinePublish {
			return summarize(results)
		}
		for _, r := range results {
			if r.Err != nil {
				continue
			}
			if _, err := publishDir(cmd.Context(), p, r.Dir, false); err != nil {
				p.Errorf("Publishing %s failed: %v", r.Dir, err)
			}
		}
		return summarize(results)
	},
}

func combine(ctx context.Context, p *console.Printer, engines []browser.Engine) []report.Result {
	merger := report.NewMerger(layout(), cfg.ReportAssetsDir)
	results := merger.Merge(ctx, engines)
	for _, r := range results {
		if r.Err != nil {
			p.Errorf("%s: %v", r.Engine.DisplayName(), r.Err)
			continue
		}
		p.Successf("%s: %d failed tests in %s", r.Engine.DisplayName(), r.Entries, filepath.Join(r.Dir, "index.html"))
		for _, s := range r.Skipped {
			p.Warnf("%s: skipped unreadable report %s", r.Engine.DisplayName(), s)
		}
		p.Debugf("%s references %d images", r.Dir, len(r.Images))
	}
	return results
}

func summarize(results []report.Result) error {
	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d engines failed to combine", failed, len(results))
	}
	return nil
}
