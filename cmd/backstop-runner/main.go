package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/artifact"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/config"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/console"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/scenario"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// cfg is resolved before any subcommand runs.
var cfg *config.Config

var (
	flagBrowser string
	flagDataDir string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "backstop-runner",
	Short:             "Interactive BackstopJS visual regression runner",
	Long:              "backstop-runner drives BackstopJS reference, test and approve runs across a YAML list of pages, merges failed reports and publishes them to S3.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runRun,
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("browser") {
		c.Browser = flagBrowser
	}
	if cmd.Flags().Changed("data-dir") {
		c.DataDir = flagDataDir
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	return nil
}

func layout() artifact.Layout { return artifact.Layout{Root: cfg.DataDir} }

func stdoutPrinter() *console.Printer { return console.NewPrinter(os.Stdout, cfg.Debug) }

// --- scenarios ---

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Scenario file operations",
}

var scenariosListCmd = &cobra.Command{
	Use:   "list [scenarios.yml]",
	Short: "Print the scenarios of a file as a table",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := scenario.LoadFile(fileArg(args))
		if err != nil {
			return err
		}
		stdoutPrinter().ScenarioList(cat)
		return nil
	},
}

var scenariosValidateCmd = &cobra.Command{
	Use:   "validate [scenarios.yml]",
	Short: "Validate a scenario file against the schema",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateScenarios(stdoutPrinter(), fileArg(args))
	},
}

func fileArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.ScenarioFile
}

func validateScenarios(p *console.Printer, path string) error {
	cat, errs := scenario.ValidateFile(path)
	for _, e := range errs {
		at := ""
		if e.Path != "" {
			at = " (at " + e.Path + ")"
		}
		if e.Severity == "warning" {
			p.Warnf("[%s] %s%s", e.Phase, e.Message, at)
		} else {
			p.Errorf("[%s] %s%s", e.Phase, e.Message, at)
		}
	}
	if scenario.HasErrors(errs) {
		return fmt.Errorf("%s failed validation", path)
	}
	p.Successf("%s is valid (%d scenarios)", path, cat.Len())
	return nil
}

// --- schema export ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Schema operations",
}

var schemaExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the scenario file JSON Schema to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := scenario.GenerateJSONSchema()
		if err != nil {
			return fmt.Errorf("generate schema: %w", err)
		}
		var out json.RawMessage = data
		formatted, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			fmt.Println(string(data))
			return nil
		}
		fmt.Println(string(formatted))
		return nil
	},
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print version information",
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("backstop-runner %s (build: %s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBrowser, "browser", "", "Browser engine: chromium, firefox or webkit (overrides BROWSER)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "BackstopJS data directory (overrides BACKSTOP_DATA_DIR)")

	addRunFlags(rootCmd)
	addRunFlags(runCmd)

	combineCmd.Flags().BoolVar(&combinePublish, "publish", false, "Publish each merged bundle after combining")
	publishCmd.Flags().BoolVar(&publishOverwrite, "overwrite-references", false, "Re-upload reference bitmaps that already exist remotely")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Show at most this many recent actions (0 for all)")

	scenariosCmd.AddCommand(scenariosListCmd)
	scenariosCmd.AddCommand(scenariosValidateCmd)
	schemaCmd.AddCommand(schemaExportCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(combineCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(scenariosCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}
