package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/console"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/publish"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/report"
)

var publishOverwrite bool

var publishCmd = &cobra.Command{
	Use:   "publish <bundle-dir>",
	Short: "Upload a combined report and its images to S3",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := publishDir(cmd.Context(), stdoutPrinter(), args[0], publishOverwrite)
		return err
	},
}

// newStore is replaced in tests.
var newStore = func(ctx context.Context) (publish.ObjectStore, error) {
	return publish.NewS3Store(ctx, cfg.Bucket, cfg.Region)
}

func publishDir(ctx context.Context, p *console.Printer, dir string, overwrite bool) (*publish.Summary, error) {
	b, err := report.LoadBundle(dir)
	if err != nil {
		return nil, err
	}
	store, err := newStore(ctx)
	if err != nil {
		return nil, err
	}
	pub := &publish.Publisher{
		Store:               store,
		Root:                cfg.DataDir,
		Concurrency:         cfg.UploadConcurrency,
		OverwriteReferences: overwrite,
		Out:                 os.Stderr,
	}
	p.Infof("Publishing %s (%d files, %d images).", dir, len(b.Files), len(b.Images))
	sum, err := pub.Publish(ctx, b)
	if err != nil {
		return sum, fmt.Errorf("publish %s: %w", dir, err)
	}
	p.Debugf("uploaded %d, skipped %d existing", len(sum.Uploaded), len(sum.Skipped))
	if n := len(sum.Failed); n > 0 {
		p.Warnf("%d files failed to upload.", n)
	}
	p.Successf("Report deployed: %s", sum.URL)
	return sum, nil
}
