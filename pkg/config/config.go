// Package config resolves runtime settings from the environment, an
// optional .env file and command-line overrides.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/browser"
)

// Config holds every setting the CLI needs. Flags override these after Load.
type Config struct {
	// Browser is the engine used for interactive runs and artifact paths.
	Browser string `env:"BROWSER" envDefault:"chromium"`
	// ScenarioFile is loaded when the operator answers the file prompt with a blank line.
	ScenarioFile string `env:"SCENARIO_FILE" envDefault:"nyu.yml"`
	// DataDir is the root of every BackstopJS artifact directory.
	DataDir string `env:"BACKSTOP_DATA_DIR" envDefault:"backstop_data"`
	// BackstopCommand and BackstopArgs invoke the BackstopJS CLI.
	BackstopCommand string   `env:"BACKSTOP_COMMAND" envDefault:"npx"`
	BackstopArgs    []string `env:"BACKSTOP_ARGS" envDefault:"backstop" envSeparator:" "`
	// ReportAssetsDir holds the static files of the BackstopJS HTML report.
	ReportAssetsDir string `env:"BACKSTOP_REPORT_ASSETS" envDefault:"node_modules/backstopjs/compare/output"`
	// Bucket and Region select the S3 destination for published reports.
	Bucket string `env:"BUCKET_NAME" envDefault:"backstop-reports"`
	Region string `env:"AWS_REGION" envDefault:"us-east-1"`
	// UploadConcurrency bounds parallel dependency uploads.
	UploadConcurrency int  `env:"UPLOAD_CONCURRENCY" envDefault:"8"`
	Debug             bool `env:"DEBUG_MODE"`
}

// Load reads .env from the working directory (if present) and then parses
// the environment into a Config.
func Load() (*Config, error) {
	LoadDotEnv(".env")
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that env parsing cannot.
func (c *Config) Validate() error {
	if _, err := browser.Parse(c.Browser); err != nil {
		return fmt.Errorf("BROWSER: %w", err)
	}
	if c.UploadConcurrency < 1 {
		return fmt.Errorf("UPLOAD_CONCURRENCY must be positive, got %d", c.UploadConcurrency)
	}
	if strings.TrimSpace(c.BackstopCommand) == "" {
		return fmt.Errorf("BACKSTOP_COMMAND is empty")
	}
	return nil
}

// Engine returns the configured browser engine. Call after Validate.
func (c *Config) Engine() browser.Engine {
	e, _ := browser.Parse(c.Browser)
	return e
}

// LoadDotEnv reads KEY=VALUE lines from path and sets any variable that is
// not already set. Comments (#) and blank lines are skipped; a missing file
// is not an error.
func LoadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		if _, set := os.LookupEnv(key); !set {
			os.Setenv(key, val)
		}
	}
}
