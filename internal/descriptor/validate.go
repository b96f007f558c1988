package descriptor

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/wolfeidau/spabundle/internal/comments"
)

// Validate checks that the descriptor is complete and internally consistent.
// All problems are reported together.
func (d *Descriptor) Validate() error {
	var errs []error

	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidDescriptor}, args...)...))
	}

	switch d.Mode {
	case "", ModeProduction, ModeDevelopment:
	default:
		invalid("unknown mode %q", d.Mode)
	}

	if d.Entry == "" {
		invalid("entry is required")
	}
	if d.Output.Path == "" {
		invalid("output.path is required")
	}
	if d.Output.Filename == "" {
		invalid("output.filename is required")
	} else if strings.ContainsAny(d.Output.Filename, `/\`) {
		invalid("output.filename %q must not contain a directory", d.Output.Filename)
	}

	for i, r := range d.Rules {
		if r.Test == "" {
			invalid("rules[%d]: test is required", i)
		} else if _, err := regexp.Compile(r.Test); err != nil {
			invalid("rules[%d]: test %q: %v", i, r.Test, err)
		}
		if len(r.Use) == 0 {
			invalid("rules[%d]: use is empty", i)
		}
		for j, s := range r.Use {
			if !slices.Contains(knownLoaders, s.Loader) {
				invalid("rules[%d].use[%d]: unknown loader %q", i, j, s.Loader)
			}
		}
	}

	seen := map[string]bool{}
	for i, p := range d.Plugins {
		if !slices.Contains(knownPlugins, p.Name) {
			invalid("plugins[%d]: unknown plugin %q", i, p.Name)
			continue
		}
		if seen[p.Name] {
			invalid("plugins[%d]: plugin %q activated twice", i, p.Name)
		}
		seen[p.Name] = true

		if p.Name == PluginDefine {
			if _, err := p.Options.StringMap("definitions"); err != nil {
				invalid("plugins[%d]: %v", i, err)
			}
		}
	}

	if d.HasLoader(LoaderVue) && !seen[PluginVue] {
		invalid("the %q loader requires the %q plugin", LoaderVue, PluginVue)
	}

	for _, ext := range d.Resolve.Extensions {
		if !strings.HasPrefix(ext, ".") {
			invalid("resolve.extensions: %q must start with a dot", ext)
		}
	}
	for key, target := range d.Resolve.Alias {
		if strings.TrimSuffix(key, "$") == "" || target == "" {
			invalid("resolve.alias: %q -> %q is incomplete", key, target)
		}
	}

	switch d.Optimization.Minimizer.Name {
	case "", MinimizerEsbuild:
	default:
		invalid("unknown minimizer %q", d.Optimization.Minimizer.Name)
	}
	if _, err := comments.Compile(d.Optimization.Minimizer.Format.Comments); err != nil {
		invalid("optimization.minimizer.format.comments: %v", err)
	}

	return errors.Join(errs...)
}
