package bundler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfeidau/spabundle/internal/telemetry"
)

var (
	ErrBuildFailed = errors.New("build failed")
	ErrNotBuilt    = errors.New("bundle not built yet, call Build() first")
)

// Build runs esbuild with the descriptor's settings and writes the outputs.
func (p *Pipeline) Build(ctx context.Context) (*Result, error) {
	p.buildMu.Lock()
	defer p.buildMu.Unlock()

	ctx, span := telemetry.Tracer().Start(ctx, "bundler.Build")
	defer span.End()
	span.SetAttributes(
		attribute.String("entry", p.desc.Entry),
		attribute.String("mode", string(p.desc.EffectiveMode())),
	)

	log.Info().Str("entry", p.desc.Entry).Str("mode", string(p.desc.EffectiveMode())).
		Str("outdir", p.outDir).Msg("Building bundle")

	result := api.Build(p.buildOptions(ctx))

	if len(result.Errors) > 0 {
		err := fmt.Errorf("%w: %w", ErrBuildFailed, messagesError(p.desc.Entry, result.Errors))
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return nil, err
	}

	p.mu.RLock()
	res := p.last
	p.mu.RUnlock()

	if res == nil {
		return nil, ErrBuildFailed
	}
	span.SetAttributes(attribute.Int("files", len(res.Files)))
	return res, nil
}

// Watch rebuilds whenever an input changes until ctx is cancelled. Each
// rebuild goes through the same emit path as Build.
func (p *Pipeline) Watch(ctx context.Context) error {
	bctx, ctxErr := api.Context(p.buildOptions(ctx))
	if ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrBuildFailed, messagesError(p.desc.Entry, ctxErr.Errors))
	}
	defer bctx.Dispose()

	if err := bctx.Watch(api.WatchOptions{}); err != nil {
		return err
	}
	log.Info().Str("entry", p.desc.Entry).Msg("Watching for changes")

	<-ctx.Done()
	return nil
}

// entryKey is the descriptor entry as it appears in the metafile.
func (p *Pipeline) entryKey() string {
	entry := p.desc.Entry
	if filepath.IsAbs(entry) {
		if rel, err := filepath.Rel(p.workDir, entry); err == nil {
			entry = rel
		}
	}
	return filepath.ToSlash(filepath.Clean(entry))
}

// LoadScripts returns the ordered list of script paths needed for the given
// entrypoint and the main entrypoint file path, relative to the output
// directory.
func (p *Pipeline) LoadScripts(entryPointPath string) ([]string, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, "", ErrNotBuilt
	}

	scripts := []string{}
	visited := make(map[string]bool)

	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint == entryPointPath && isScript(outputPath) {
			entrypoint := p.outputRel(outputPath)
			scripts = append(scripts, entrypoint)
			visited[outputPath] = true
			p.addDependencies(info, &scripts, visited)
			return scripts, entrypoint, nil
		}
	}

	return nil, "", fmt.Errorf("entrypoint %q not found in metadata", entryPointPath)
}

func (p *Pipeline) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if imp.Kind == "dynamic-import" || !isScript(imp.Path) {
			continue
		}
		if !visited[imp.Path] {
			visited[imp.Path] = true
			*scripts = append(*scripts, p.outputRel(imp.Path))

			if chunkInfo, exists := p.metadata.Outputs[imp.Path]; exists {
				p.addDependencies(chunkInfo, scripts, visited)
			}
		}
	}
}

// Stylesheets returns the extracted stylesheets of an entrypoint relative to
// the output directory. Injected styles produce none.
func (p *Pipeline) Stylesheets(entryPointPath string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, ErrNotBuilt
	}

	for _, info := range p.metadata.Outputs {
		if info.EntryPoint == entryPointPath && info.CSSBundle != "" {
			return []string{p.outputRel(info.CSSBundle)}, nil
		}
	}
	return nil, nil
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
