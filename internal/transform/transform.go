// Package transform implements the named steps that rules apply to matching
// files before the bundling engine sees them.
package transform

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/wolfeidau/spabundle/internal/descriptor"
)

var (
	ErrUnknownLoader  = errors.New("unknown loader")
	ErrUnexpectedKind = errors.New("unexpected input kind")
)

// Kind tells the bundling engine how to load an asset's contents.
type Kind string

const (
	KindJS  Kind = "js"
	KindTS  Kind = "ts"
	KindCSS Kind = "css"
	// KindDataURL is an inlined asset: Contents is a module exporting the
	// asset's DataURL.
	KindDataURL Kind = "dataurl"
	KindFile Kind = "file"
	KindText Kind = "text"
)

// KindFor infers the kind of an untransformed file from its extension.
func KindFor(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs", ".jsx":
		return KindJS
	case ".ts", ".mts", ".cts", ".tsx":
		return KindTS
	case ".css":
		return KindCSS
	}
	return KindText
}

// Asset is a file moving through a rule's steps.
type Asset struct {
	Path     string
	Contents []byte
	Kind     Kind
	// DataURL is set when the asset was inlined.
	DataURL string
}

// Step transforms an asset in place.
type Step interface {
	Apply(ctx context.Context, a *Asset) error
}

type namedStep struct {
	name string
	Step
}

// Chain applies steps in order, each receiving the previous step's output.
type Chain []namedStep

func (c Chain) Apply(ctx context.Context, a *Asset) error {
	for _, s := range c {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Apply(ctx, a); err != nil {
			return fmt.Errorf("%s loader: %w", s.name, err)
		}
	}
	return nil
}

// Names lists the chain's step names.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.name
	}
	return names
}

// Env connects steps to the bundler.
type Env struct {
	// BundleCSS flattens a stylesheet, resolving its @import and url()
	// references. When nil, stylesheets are used as written.
	BundleCSS func(ctx context.Context, a *Asset) ([]byte, error)
	// Observe, when set, is called after a url step decides an asset's kind.
	Observe func(a *Asset, size int64)
}

// Rule is a compiled descriptor rule.
type Rule struct {
	Test    string
	Matcher *regexp.Regexp
	Chain   Chain
}

// Set holds the compiled rules of a descriptor.
type Set struct {
	env   Env
	rules []Rule
}

// NewSet compiles rules into step chains.
func NewSet(rules []descriptor.Rule, env Env) (*Set, error) {
	s := &Set{env: env}

	for i, r := range rules {
		re, err := regexp.Compile(r.Test)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		chain := make(Chain, 0, len(r.Use))
		for j, st := range r.Use {
			step, err := s.newStep(st)
			if err != nil {
				return nil, fmt.Errorf("rules[%d].use[%d]: %w", i, j, err)
			}
			chain = append(chain, namedStep{name: st.Loader, Step: step})
		}
		s.rules = append(s.rules, Rule{Test: r.Test, Matcher: re, Chain: chain})
	}

	return s, nil
}

func (s *Set) newStep(st descriptor.Step) (Step, error) {
	switch st.Loader {
	case descriptor.LoaderVue:
		return &vueStep{set: s}, nil
	case descriptor.LoaderCSS:
		return cssStep{}, nil
	case descriptor.LoaderLess:
		return newLessStep(st.Options), nil
	case descriptor.LoaderStyle:
		return &styleStep{env: &s.env}, nil
	case descriptor.LoaderURL:
		return newURLStep(st.Options, &s.env), nil
	case descriptor.LoaderFile:
		return kindStep(KindFile), nil
	case descriptor.LoaderText:
		return kindStep(KindText), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLoader, st.Loader)
}

// Rules returns the compiled rules in descriptor order.
func (s *Set) Rules() []Rule {
	return s.rules
}

// Match returns the chain of the first rule matching path.
func (s *Set) Match(path string) (Chain, bool) {
	slashed := filepath.ToSlash(path)
	for _, r := range s.rules {
		if r.Matcher.MatchString(slashed) {
			return r.Chain, true
		}
	}
	return nil, false
}

// Run applies the first matching rule to the file at path.
func (s *Set) Run(ctx context.Context, path string, contents []byte) (*Asset, error) {
	a := &Asset{Path: path, Contents: contents, Kind: KindFor(path)}
	chain, ok := s.Match(path)
	if !ok {
		return a, nil
	}
	if err := chain.Apply(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
