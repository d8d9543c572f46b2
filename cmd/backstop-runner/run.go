package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/artifact"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/backstop"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/browser"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/console"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/report"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/runner"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/scenario"
)

// TraceFile is the run history kept under the data directory.
const TraceFile = "run_trace.jsonl"

var (
	runScenarios string
	runFilter    string
	runDryRun    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an interactive run session (default command)",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runScenarios, "scenarios", "", "Scenario file (prompted for when omitted)")
	cmd.Flags().StringVar(&runFilter, "filter", "", `Keep only scenarios matching an expression, e.g. 'name startsWith "Alumni"'`)
	cmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Record actions without invoking BackstopJS")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	in, err := console.NewInput(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	defer in.Close()
	out := console.NewPrinter(in.Writer(), cfg.Debug)

	var cat *scenario.Catalog
	if runScenarios != "" {
		cat, err = scenario.LoadFile(runScenarios)
	} else {
		cat, err = promptCatalog(in, out, cfg.ScenarioFile)
	}
	if err != nil {
		return err
	}
	if runFilter != "" {
		if cat, err = cat.Filter(runFilter); err != nil {
			return err
		}
		out.Infof("%d scenarios match %q.", cat.Len(), runFilter)
	}

	engine := cfg.Engine()
	s, closeTrace, err := newSession(cat, engine, layout(), in.Writer(), out)
	if err != nil {
		return err
	}
	defer closeTrace()

	out.Infof("Using %s with data in %s.", engine.DisplayName(), cfg.DataDir)
	err = s.Run(ctx, in.Lines(ctx))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newSession wires the state machine to BackstopJS, the merger and the
// run trace.
func newSession(cat *scenario.Catalog, engine browser.Engine, l artifact.Layout, w io.Writer, out *console.Printer) (*runner.Session, func(), error) {
	var r backstop.Runner
	if runDryRun {
		r = &backstop.DryRunner{Engine: engine, Layout: l}
		out.Warnf("Dry run: BackstopJS will not be invoked.")
	} else {
		r = &backstop.CLIRunner{
			Command:  cfg.BackstopCommand,
			Args:     cfg.BackstopArgs,
			Engine:   engine,
			Layout:   l,
			Executor: &backstop.RealExecutor{Echo: w},
		}
	}

	m, err := runner.NewMachine(cat, artifact.FSStore{Layout: l}, engine)
	if err != nil {
		return nil, nil, err
	}
	s := runner.NewSession(m, r, out)
	s.Combiner = runner.CombinerFunc(func(ctx context.Context) error {
		res := report.NewMerger(l, cfg.ReportAssetsDir).MergeEngine(ctx, engine)
		if res.Err != nil {
			return res.Err
		}
		for _, skipped := range res.Skipped {
			out.Warnf("Skipped unreadable report %s", skipped)
		}
		out.Successf("Combined report written to %s", filepath.Join(res.Dir, "index.html"))
		return nil
	})

	closeTrace := func() {}
	tw, err := runner.NewTraceWriter(filepath.Join(l.Root, TraceFile))
	if err != nil {
		out.Warnf("Run history disabled: %v", err)
	} else {
		s.Trace = tw
		closeTrace = func() { tw.Close() }
	}
	return s, closeTrace, nil
}

type lineReader interface {
	ReadLine() (string, error)
}

// promptCatalog asks for a scenario file until one loads. A blank answer
// selects def.
func promptCatalog(in lineReader, out *console.Printer, def string) (*scenario.Catalog, error) {
	for {
		out.Notice(runner.Notice{
			Level: runner.LevelPrompt,
			Text:  fmt.Sprintf("Type in the path to the scenario file, or press enter to use %q.", def),
		})
		line, err := in.ReadLine()
		if err != nil {
			return nil, fmt.Errorf("read scenario file path: %w", err)
		}
		path := strings.TrimSpace(line)
		if path == "" {
			path = def
		}
		cat, err := scenario.LoadFile(path)
		if err != nil {
			out.Errorf("%v", err)
			continue
		}
		out.Successf("Loaded %d scenarios from %s.", cat.Len(), path)
		return cat, nil
	}
}
