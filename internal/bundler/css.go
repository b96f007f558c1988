package bundler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/spabundle/internal/transform"
)

// bundleCSS flattens a stylesheet with a nested esbuild build so its @import
// and url() references are resolved before the stylesheet is injected. Assets
// the nested build emits are written with the outer build's outputs.
func (p *Pipeline) bundleCSS(ctx context.Context, a *transform.Asset) ([]byte, error) {
	minimize := p.minimize()

	result := api.Build(api.BuildOptions{
		AbsWorkingDir: p.workDir,
		Stdin: &api.StdinOptions{
			Contents:   string(a.Contents),
			ResolveDir: filepath.Dir(a.Path),
			Sourcefile: filepath.Base(a.Path),
			Loader:     api.LoaderCSS,
		},
		Bundle:            true,
		Write:             false,
		Outdir:            p.outDir,
		AssetNames:        assetNames(p.desc.Rules),
		PublicPath:        p.desc.Output.PublicPath,
		Charset:           api.CharsetUTF8,
		ResolveExtensions: p.desc.Resolve.Extensions,
		MinifyWhitespace:  minimize,
		MinifySyntax:      minimize,
		LogLevel:          api.LogLevelSilent,
		Plugins: []api.Plugin{
			p.cssURLPlugin(ctx),
			p.aliasPlugin(),
			p.rulesPlugin(ctx, "spabundle-css-assets", emitsAsset),
		},
	})

	if len(result.Errors) > 0 {
		return nil, messagesError(a.Path, result.Errors)
	}
	for _, msg := range result.Warnings {
		log.Warn().Str("stylesheet", a.Path).Msg(msg.Text)
	}

	var css []byte
	for _, f := range result.OutputFiles {
		if strings.EqualFold(filepath.Ext(f.Path), ".css") {
			css = f.Contents
			continue
		}
		if strings.HasSuffix(f.Path, ".map") {
			continue
		}
		p.mu.Lock()
		p.extra = append(p.extra, extraFile{path: f.Path, contents: f.Contents})
		p.mu.Unlock()
	}

	if css == nil {
		return nil, fmt.Errorf("bundling %s: no stylesheet output", a.Path)
	}
	return css, nil
}

// messagesError joins esbuild messages into a single error.
func messagesError(subject string, msgs []api.Message) error {
	errs := make([]error, 0, len(msgs))
	for _, msg := range msgs {
		text := msg.Text
		if msg.Location != nil {
			text = fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
		}
		errs = append(errs, errors.New(text))
	}
	return fmt.Errorf("bundling %s: %w", subject, errors.Join(errs...))
}
