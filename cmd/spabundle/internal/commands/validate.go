package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/wolfeidau/spabundle/internal/bundler"
	"github.com/wolfeidau/spabundle/internal/descriptor"
)

type ValidateCmd struct {
	DescriptorFlags `embed:""`

	Root        string `help:"source directory scanned for coverage (default: the entry point's directory)"`
	SkipAliases bool   `help:"do not check that alias targets exist" default:"false"`
}

func (c *ValidateCmd) Run(ctx context.Context, globals *Globals) error {
	setupLogger(globals)

	d, _, err := c.Load()
	if err != nil {
		return err
	}

	if err := d.Validate(); err != nil {
		return err
	}

	root := c.Root
	if root == "" {
		root = filepath.Dir(d.Path(d.Entry))
	}
	exts, err := bundler.Scan(root)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", root, err)
	}

	var errs []error
	if err := d.CheckCoverage(exts, descriptor.IsNative); err != nil {
		errs = append(errs, err)
	}
	if !c.SkipAliases {
		if err := d.CheckAliases(d.Path(".")); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "descriptor is valid: %d rules, %d plugins, extensions %v\n", len(d.Rules), len(d.Plugins), exts)
	return nil
}
