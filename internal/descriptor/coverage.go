package descriptor

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
)

// nativeExtensions are handled by the bundling engine without a rule.
var nativeExtensions = []string{".js", ".mjs", ".cjs", ".jsx", ".ts", ".mts", ".cts", ".tsx", ".json"}

// IsNative reports whether the bundling engine loads ext without a rule.
func IsNative(ext string) bool {
	return slices.Contains(nativeExtensions, strings.ToLower(ext))
}

// Coverage maps each extension to the indexes of the rules whose matcher
// accepts a file with that extension.
func (d *Descriptor) Coverage(exts []string) (map[string][]int, error) {
	matchers := make([]*regexp.Regexp, len(d.Rules))
	for i, r := range d.Rules {
		re, err := regexp.Compile(r.Test)
		if err != nil {
			return nil, fmt.Errorf("%w: rules[%d]: %v", ErrInvalidDescriptor, i, err)
		}
		matchers[i] = re
	}

	coverage := make(map[string][]int, len(exts))
	for _, ext := range exts {
		probe := "/src/file" + ext
		idx := []int{}
		for i, re := range matchers {
			if re.MatchString(probe) {
				idx = append(idx, i)
			}
		}
		coverage[ext] = idx
	}
	return coverage, nil
}

// CheckCoverage verifies that every extension is matched by exactly one rule,
// or by none when native reports the engine handles it. A nil native uses
// IsNative.
func (d *Descriptor) CheckCoverage(exts []string, native func(string) bool) error {
	if native == nil {
		native = IsNative
	}

	coverage, err := d.Coverage(exts)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(coverage))
	for ext := range coverage {
		keys = append(keys, ext)
	}
	sort.Strings(keys)

	var errs []error
	for _, ext := range keys {
		switch idx := coverage[ext]; {
		case len(idx) > 1:
			errs = append(errs, fmt.Errorf("%w: %s matched by rules %v", ErrRuleOverlap, ext, idx))
		case len(idx) == 0 && !native(ext):
			errs = append(errs, fmt.Errorf("%w: %s", ErrUncoveredExtension, ext))
		}
	}
	return errors.Join(errs...)
}

// CheckAliases verifies that every alias target exists, either relative to
// the project root or as a path inside root/node_modules.
func (d *Descriptor) CheckAliases(root string) error {
	if root == "" {
		root = d.Context
	}

	keys := make([]string, 0, len(d.Resolve.Alias))
	for k := range d.Resolve.Alias {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		target := d.Resolve.Alias[key]
		candidate := aliasPath(root, target)
		if _, err := os.Stat(candidate); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s -> %s (%s)", ErrAliasUnresolved, key, target, candidate))
		}
	}
	return errors.Join(errs...)
}

func aliasPath(root, target string) string {
	switch {
	case filepath.IsAbs(target):
		return target
	case strings.HasPrefix(target, "./"), strings.HasPrefix(target, "../"):
		return filepath.Join(root, filepath.FromSlash(target))
	}
	return filepath.Join(root, "node_modules", filepath.FromSlash(path.Clean(target)))
}
