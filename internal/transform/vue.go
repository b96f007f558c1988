package transform

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/spabundle/internal/sfc"
)

// vueStep compiles a single-file component. Each style block runs through
// the rule matching its lang, as if it were a file named after the component
// with that extension, and is always injected at runtime.
type vueStep struct {
	set *Set
}

func (s *vueStep) Apply(ctx context.Context, a *Asset) error {
	comp, err := sfc.Parse(a.Contents)
	if err != nil {
		return err
	}

	prelude := make([]string, 0, len(comp.Styles))
	for i, block := range comp.Styles {
		if block.Has("scoped") {
			log.Warn().Str("component", a.Path).Int("style", i).Msg("Scoped styles are applied globally")
		}

		code, err := s.style(ctx, a.Path, i, block)
		if err != nil {
			return err
		}
		prelude = append(prelude, code)
	}

	code, err := comp.Module(prelude...)
	if err != nil {
		return fmt.Errorf("%s: %w", a.Path, err)
	}

	a.Contents = []byte(code)
	a.Kind = Kind(comp.ScriptLang())
	return nil
}

func (s *vueStep) style(ctx context.Context, path string, index int, block *sfc.Block) (string, error) {
	lang := block.Lang("css")
	style := &Asset{
		Path:     path + "." + lang,
		Contents: []byte(block.Content),
		Kind:     KindFor("." + lang),
	}

	chain, ok := s.set.Match(style.Path)
	switch {
	case ok:
		if err := chain.Apply(ctx, style); err != nil {
			return "", fmt.Errorf("%s style block %d: %w", path, index, err)
		}
	case lang != "css":
		return "", fmt.Errorf("%s style block %d: no rule for lang %q", path, index, lang)
	}

	switch style.Kind {
	case KindJS:
		return string(style.Contents), nil
	case KindCSS:
		// the rule extracts rather than injects; component styles are injected regardless
		inject := &styleStep{env: &s.set.env}
		if err := inject.Apply(ctx, style); err != nil {
			return "", err
		}
		return string(style.Contents), nil
	}
	return "", fmt.Errorf("%s style block %d: %w: %s", path, index, ErrUnexpectedKind, style.Kind)
}
