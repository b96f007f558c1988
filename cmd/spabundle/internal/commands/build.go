package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/wolfeidau/spabundle/internal/bundler"
	"github.com/wolfeidau/spabundle/internal/descriptor"
	"github.com/wolfeidau/spabundle/internal/telemetry"
)

type BuildCmd struct {
	DescriptorFlags `embed:""`

	Telemetry     bool   `help:"export build traces and metrics over OTLP" default:"false" env:"SPABUNDLE_TELEMETRY"`
	CheckCoverage bool   `help:"fail when a source file extension is matched by no rule or by several" default:"false"`
	Metafile      string `help:"write the esbuild metafile to this path" env:"SPABUNDLE_METAFILE"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log := setupLogger(globals)

	if c.Telemetry {
		shutdown, err := telemetry.Init(ctx, "spabundle", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Failed to shutdown telemetry")
				}
			}()
		}
	}

	d, buildTime, err := c.Load()
	if err != nil {
		return err
	}

	if c.CheckCoverage {
		if err := checkCoverage(d); err != nil {
			return err
		}
	}

	pipeline, err := bundler.New(d, bundler.Config{BuildTime: buildTime, MetafilePath: c.Metafile})
	if err != nil {
		return err
	}

	res, err := pipeline.Build(ctx)
	if err != nil {
		return err
	}

	for _, f := range res.Files {
		fmt.Fprintf(stdout, "%-48s %10d\n", f.Path, f.Size)
	}
	fmt.Fprintf(stdout, "\n%d files written to %s in %s (%d assets inlined, %d emitted)\n",
		len(res.Files), pipeline.OutDir(), res.Duration.Round(time.Millisecond), res.Inlined, res.Emitted)

	return nil
}

// checkCoverage scans the directory holding the entry point and verifies
// each extension found maps to exactly one rule.
func checkCoverage(d *descriptor.Descriptor) error {
	root := filepath.Dir(d.Path(d.Entry))
	exts, err := bundler.Scan(root)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", root, err)
	}
	return d.CheckCoverage(exts, descriptor.IsNative)
}
