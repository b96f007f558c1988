package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/wolfeidau/spabundle/internal/descriptor"
	"github.com/wolfeidau/spabundle/internal/inline"
)

// cssStep marks the asset as a stylesheet for the bundling engine, which
// resolves its @import and url() references.
type cssStep struct{}

func (cssStep) Apply(_ context.Context, a *Asset) error {
	switch a.Kind {
	case KindCSS, KindText:
		a.Kind = KindCSS
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnexpectedKind, a.Kind)
}

// styleStep turns a stylesheet into a script that injects it into the
// document head when the module is evaluated.
type styleStep struct {
	env *Env
}

func (s *styleStep) Apply(ctx context.Context, a *Asset) error {
	if a.Kind != KindCSS {
		return fmt.Errorf("%w: %s, style expects css", ErrUnexpectedKind, a.Kind)
	}

	css := a.Contents
	if s.env != nil && s.env.BundleCSS != nil {
		bundled, err := s.env.BundleCSS(ctx, a)
		if err != nil {
			return err
		}
		css = bundled
	}

	code, err := InjectStyle(a.Path, css)
	if err != nil {
		return err
	}
	a.Contents = []byte(code)
	a.Kind = KindJS
	return nil
}

// InjectStyle returns a script appending css to the document head in a
// style element tagged with its source.
func InjectStyle(source string, css []byte) (string, error) {
	text, err := json.Marshal(string(css))
	if err != nil {
		return "", err
	}
	src, err := json.Marshal(source)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("(function(){")
	b.WriteString("if(typeof document===\"undefined\")return;")
	b.WriteString("var s=document.createElement(\"style\");")
	fmt.Fprintf(&b, "s.setAttribute(\"data-source\",%s);", src)
	fmt.Fprintf(&b, "s.textContent=%s;", text)
	b.WriteString("document.head.appendChild(s);")
	b.WriteString("})();\n")
	return b.String(), nil
}

// urlStep inlines assets at or below the limit as base64 data URLs and emits
// larger ones as separate files.
type urlStep struct {
	policy   inline.Policy
	esModule bool
	env      *Env
}

func newURLStep(opts descriptor.Options, env *Env) *urlStep {
	// without a limit every asset is inlined
	return &urlStep{
		policy:   inline.Policy{Limit: opts.Int("limit", math.MaxInt64)},
		esModule: opts.Bool("esModule", true),
		env:      env,
	}
}

func (s *urlStep) Apply(_ context.Context, a *Asset) error {
	size := int64(len(a.Contents))
	if s.policy.ShouldInline(size) {
		a.DataURL = inline.DataURL(a.Path, a.Contents)
		quoted, err := json.Marshal(a.DataURL)
		if err != nil {
			return err
		}
		if s.esModule {
			a.Contents = []byte("export default " + string(quoted) + ";\n")
		} else {
			a.Contents = []byte("module.exports = " + string(quoted) + ";\n")
		}
		a.Kind = KindDataURL
	} else {
		a.Kind = KindFile
	}
	if s.env != nil && s.env.Observe != nil {
		s.env.Observe(a, size)
	}
	return nil
}

// kindStep sets the asset kind without touching its contents.
type kindStep Kind

func (k kindStep) Apply(_ context.Context, a *Asset) error {
	a.Kind = Kind(k)
	return nil
}
