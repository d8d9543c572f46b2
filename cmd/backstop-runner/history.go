package main

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/console"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/runner"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent BackstopJS actions from the run trace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showHistory(stdoutPrinter(), filepath.Join(cfg.DataDir, TraceFile), historyLimit)
	},
}

func showHistory(p *console.Printer, path string, limit int) error {
	recs, err := runner.ReadTrace(path)
	if errors.Is(err, os.ErrNotExist) {
		p.Infof("No runs recorded yet.")
		return nil
	}
	if err != nil {
		return err
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}
	for _, r := range recs {
		action := string(r.Effective)
		if r.Requested != r.Effective {
			action += " (for " + string(r.Requested) + ")"
		}
		when := r.Timestamp.Local().Format("2006-01-02 15:04:05")
		if r.Succeeded {
			p.Successf("%s %s %s scenario %d (%s) in %s", when, r.Engine, action, r.Index, r.Scenario, r.Duration.Round(time.Millisecond))
		} else {
			p.Errorf("%s %s %s scenario %d (%s): %s", when, r.Engine, action, r.Index, r.Scenario, r.Error)
		}
	}
	return nil
}
