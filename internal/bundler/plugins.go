package bundler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/spabundle/internal/logger"
	"github.com/wolfeidau/spabundle/internal/transform"
)

// rulesPlugin runs each descriptor rule's steps in an esbuild load callback
// filtered by the rule's test. Callbacks are registered in rule order so the
// first matching rule wins. keep, when set, limits the rules registered.
func (p *Pipeline) rulesPlugin(ctx context.Context, name string, keep func(transform.Rule) bool) api.Plugin {
	return api.Plugin{
		Name: name,
		Setup: func(build api.PluginBuild) {
			for _, rule := range p.rules.Rules() {
				if keep != nil && !keep(rule) {
					continue
				}

				build.OnLoad(api.OnLoadOptions{Filter: rule.Test, Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					// assets referenced from stylesheets arrive already transformed
					asset, ok := args.PluginData.(*transform.Asset)
					if !ok {
						contents, err := os.ReadFile(args.Path)
						if err != nil {
							return api.OnLoadResult{}, err
						}

						asset = &transform.Asset{Path: args.Path, Contents: contents, Kind: transform.KindFor(args.Path)}
						if err := rule.Chain.Apply(ctx, asset); err != nil {
							return api.OnLoadResult{}, err
						}
					}

					if asset.Kind == transform.KindJS || asset.Kind == transform.KindTS {
						asset.Contents = p.promoteComments(args.Path, asset.Contents)
					}

					code := string(asset.Contents)
					return api.OnLoadResult{
						Contents:   &code,
						Loader:     loaderFor(asset.Kind),
						ResolveDir: filepath.Dir(args.Path),
					}, nil
				})
			}
		},
	}
}

// scriptLoaders are the native script extensions esbuild loads itself.
var scriptLoaders = map[string]api.Loader{
	".js":  api.LoaderJS,
	".mjs": api.LoaderJS,
	".cjs": api.LoaderJS,
	".jsx": api.LoaderJSX,
	".ts":  api.LoaderTS,
	".mts": api.LoaderTS,
	".cts": api.LoaderTS,
	".tsx": api.LoaderTSX,
}

// commentsPlugin loads native scripts no rule claimed and marks the comments
// the retention policy keeps as legal comments, so the minifier preserves
// them for the emit filter to decide on.
func (p *Pipeline) commentsPlugin() api.Plugin {
	return api.Plugin{
		Name: "spabundle-comments",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: `\.(m|c)?[jt]sx?$`, Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				loader, ok := scriptLoaders[strings.ToLower(filepath.Ext(args.Path))]
				if !ok {
					return api.OnLoadResult{}, nil
				}

				contents, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}

				code := string(p.promoteComments(args.Path, contents))
				return api.OnLoadResult{
					Contents:   &code,
					Loader:     loader,
					ResolveDir: filepath.Dir(args.Path),
				}, nil
			})
		},
	}
}

// promoteComments returns src unchanged outside minified builds or when it
// cannot be scanned; esbuild reports syntax errors itself.
func (p *Pipeline) promoteComments(path string, src []byte) []byte {
	if !p.minimize() {
		return src
	}
	promoted, err := p.comments.Promote(src)
	if err != nil {
		log.Debug().Err(err).Str("file", path).Msg("Leaving comments as written")
		return src
	}
	return promoted
}

type urlResolving struct{}

// cssURLPlugin resolves url() references in stylesheets through the asset
// rules. Inlined assets become external data URLs; the others are loaded with
// the transformed asset attached so each rule chain runs once.
func (p *Pipeline) cssURLPlugin(ctx context.Context) api.Plugin {
	return api.Plugin{
		Name: "spabundle-css-url",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `.*`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if args.Kind != api.ResolveCSSURLToken || args.PluginData != nil ||
					strings.HasPrefix(args.Path, "data:") || strings.HasPrefix(args.Path, "#") {
					return api.OnResolveResult{}, nil
				}

				res := build.Resolve(args.Path, api.ResolveOptions{
					Kind:       args.Kind,
					Importer:   args.Importer,
					ResolveDir: args.ResolveDir,
					PluginData: urlResolving{},
				})
				if len(res.Errors) > 0 {
					return api.OnResolveResult{Errors: res.Errors}, nil
				}
				resolved := api.OnResolveResult{
					Path:      res.Path,
					Namespace: res.Namespace,
					External:  res.External,
					Suffix:    res.Suffix,
				}
				if res.External || res.Namespace != "file" {
					return resolved, nil
				}

				rule, ok := p.assetRule(res.Path)
				if !ok {
					return resolved, nil
				}

				contents, err := os.ReadFile(res.Path)
				if err != nil {
					return api.OnResolveResult{}, err
				}
				asset := &transform.Asset{Path: res.Path, Contents: contents, Kind: transform.KindFor(res.Path)}
				if err := rule.Chain.Apply(ctx, asset); err != nil {
					return api.OnResolveResult{}, err
				}

				if asset.DataURL != "" {
					return api.OnResolveResult{Path: asset.DataURL, External: true}, nil
				}
				resolved.PluginData = asset
				return resolved, nil
			})
		},
	}
}

// assetRule returns the first rule matching path when that rule produces a
// file reference.
func (p *Pipeline) assetRule(path string) (transform.Rule, bool) {
	slashed := filepath.ToSlash(path)
	for _, rule := range p.rules.Rules() {
		if rule.Matcher.MatchString(slashed) {
			return rule, emitsAsset(rule)
		}
	}
	return transform.Rule{}, false
}

// emitsAsset reports whether a rule ends with a step producing a file
// reference, the only rules valid inside stylesheet url() references.
func emitsAsset(rule transform.Rule) bool {
	names := rule.Chain.Names()
	if len(names) == 0 {
		return false
	}
	switch names[len(names)-1] {
	case "url", "file", "text":
		return true
	}
	return false
}

func loaderFor(kind transform.Kind) api.Loader {
	switch kind {
	case transform.KindJS:
		return api.LoaderJS
	case transform.KindTS:
		return api.LoaderTS
	case transform.KindCSS:
		return api.LoaderCSS
	case transform.KindDataURL:
		return api.LoaderJS
	case transform.KindFile:
		return api.LoaderFile
	}
	return api.LoaderText
}

// emitPlugin post-processes and writes outputs once esbuild finishes, so
// one-shot and watch builds share the same emit path.
func (p *Pipeline) emitPlugin(ctx context.Context) api.Plugin {
	return api.Plugin{
		Name: "spabundle-emit",
		Setup: func(build api.PluginBuild) {
			build.OnStart(func() (api.OnStartResult, error) {
				p.mu.Lock()
				p.started = time.Now()
				p.extra = nil
				p.inlined = 0
				p.emitted = 0
				p.mu.Unlock()
				return api.OnStartResult{}, nil
			})

			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				logger.Messages(log.Logger, zerolog.WarnLevel, result.Warnings)
				if len(result.Errors) > 0 {
					logger.Messages(log.Logger, zerolog.ErrorLevel, result.Errors)
					p.metrics.RecordBuild(ctx, time.Since(p.startedAt()), false)
					return api.OnEndResult{}, nil
				}

				res, err := p.emit(ctx, result)
				if err != nil {
					log.Error().Err(err).Msg("Failed to emit outputs")
					p.metrics.RecordBuild(ctx, time.Since(p.startedAt()), false)
					return api.OnEndResult{}, fmt.Errorf("emitting outputs: %w", err)
				}

				p.metrics.RecordBuild(ctx, res.Duration, true)
				p.metrics.RecordOutputs(ctx, res.totalBytes(), res.Inlined, res.Emitted)
				return api.OnEndResult{}, nil
			})
		},
	}
}

func (p *Pipeline) startedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

func (r *Result) totalBytes() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Size
	}
	return total
}
