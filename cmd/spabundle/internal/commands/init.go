package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/wolfeidau/spabundle/internal/banner"
	"github.com/wolfeidau/spabundle/internal/descriptor"
)

// InitCmd writes the built-in descriptor so it can be customised.
type InitCmd struct {
	Output    string `arg:"" help:"descriptor file to create (.yaml, .yml, .json or .jsonc)" default:"spabundle.yaml"`
	Project   string `help:"project name for the banner" default:"Vue 3 SPA"`
	Author    string `help:"author for the banner" default:"spabundle"`
	Copyright string `help:"copyright marker kept through minification" default:"© 2025 All rights reserved"`
	Force     bool   `help:"overwrite an existing file" default:"false"`
}

func (c *InitCmd) Run(ctx context.Context, globals *Globals) error {
	setupLogger(globals)

	format, err := descriptor.FormatFromPath(c.Output)
	if err != nil {
		return err
	}

	if _, err := os.Stat(c.Output); err == nil && !c.Force {
		return fmt.Errorf("%s already exists, use --force to overwrite", c.Output)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	opts := descriptor.DefaultProjectOptions(time.Now())
	opts.Project = c.Project
	opts.Title = c.Project
	opts.Author = c.Author
	opts.Copyright = c.Copyright

	d := descriptor.Default(opts)
	// the banner timestamp is rendered at build time
	for i := range d.Plugins {
		if d.Plugins[i].Name == descriptor.PluginBanner {
			d.Plugins[i].Options["banner"] = banner.Template(opts.Project, opts.Author, opts.Copyright)
		}
	}

	data, err := d.Marshal(format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.Output, data, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Wrote %s\n", c.Output)
	return nil
}
