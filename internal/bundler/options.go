package bundler

import (
	"context"
	"encoding/json"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/wolfeidau/spabundle/internal/descriptor"
)

// vueFeatureFlags are the compile time flags the Vue ESM builds expect to be
// defined. Values from the define plugin take precedence.
var vueFeatureFlags = map[string]string{
	"__VUE_OPTIONS_API__":                     "true",
	"__VUE_PROD_DEVTOOLS__":                   "false",
	"__VUE_PROD_HYDRATION_MISMATCH_DETAILS__": "false",
}

// buildOptions maps the descriptor onto esbuild options. Outputs are kept in
// memory so the emit plugin can post-process them before writing.
func (p *Pipeline) buildOptions(ctx context.Context) api.BuildOptions {
	d := p.desc
	minimize := p.minimize()

	opts := api.BuildOptions{
		AbsWorkingDir:     p.workDir,
		EntryPoints:       []string{d.Entry},
		Bundle:            true,
		Write:             false,
		Outdir:            p.outDir,
		EntryNames:        entryNames(d.Output.Filename),
		AssetNames:        assetNames(d.Rules),
		PublicPath:        d.Output.PublicPath,
		Format:            api.FormatIIFE,
		Platform:          api.PlatformBrowser,
		Charset:           api.CharsetUTF8,
		ResolveExtensions: d.Resolve.Extensions,
		Define:            p.defines(),
		MinifyWhitespace:  minimize,
		MinifyIdentifiers: minimize,
		MinifySyntax:      minimize,
		TreeShaking:       api.TreeShakingTrue,
		LegalComments:     cond(minimize, api.LegalCommentsInline, api.LegalCommentsDefault),
		Sourcemap:         cond(d.EffectiveMode() == descriptor.ModeDevelopment, api.SourceMapLinked, api.SourceMapNone),
		Metafile:          true,
		LogLevel:          api.LogLevelSilent,
	}

	opts.Plugins = []api.Plugin{p.cssURLPlugin(ctx), p.aliasPlugin(), p.rulesPlugin(ctx, "spabundle-rules", nil)}
	if minimize && p.comments.Promotes() {
		// after the rules plugin so rule loaders take precedence
		opts.Plugins = append(opts.Plugins, p.commentsPlugin())
	}
	opts.Plugins = append(opts.Plugins, p.emitPlugin(ctx))

	if minimize {
		compress := d.Optimization.Minimizer.Compress
		if compress.DropConsole {
			opts.Drop |= api.DropConsole
		}
		if compress.DropDebugger {
			opts.Drop |= api.DropDebugger
		}
	}

	return opts
}

// defines merges the define plugin with the mode and, when the vue plugin is
// active, the Vue feature flags.
func (p *Pipeline) defines() map[string]string {
	defines := map[string]string{}

	if _, ok := p.desc.Plugin(descriptor.PluginVue); ok {
		for k, v := range vueFeatureFlags {
			defines[k] = v
		}
	}

	mode, _ := json.Marshal(string(p.desc.EffectiveMode()))
	defines["process.env.NODE_ENV"] = string(mode)

	if act, ok := p.desc.Plugin(descriptor.PluginDefine); ok {
		definitions, err := act.Options.StringMap("definitions")
		if err == nil {
			for k, v := range definitions {
				defines[k] = v
			}
		}
	}

	return defines
}

// entryNames converts an output filename such as "bundle.[contenthash].js"
// into an esbuild entry name template.
func entryNames(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	return hashPlaceholders.Replace(name)
}

var hashPlaceholders = strings.NewReplacer(
	"[contenthash]", "[hash]",
	"[chunkhash]", "[hash]",
	"[fullhash]", "[hash]",
)

// assetNames derives the esbuild asset name template from the first url or
// file step carrying a name option. esbuild applies one template to every
// emitted asset and appends the extension itself.
func assetNames(rules []descriptor.Rule) string {
	for _, r := range rules {
		for _, st := range r.Use {
			if st.Loader != descriptor.LoaderURL && st.Loader != descriptor.LoaderFile {
				continue
			}
			name := st.Options.String("name", "")
			if name == "" {
				continue
			}
			name = strings.TrimSuffix(name, ".[ext]")
			name = strings.ReplaceAll(name, "[ext]", "")
			return hashPlaceholders.Replace(name)
		}
	}
	return "[name]-[hash]"
}

type aliased struct{}

// aliasPlugin rewrites import paths matching a resolve alias and lets esbuild
// resolve the result. A key ending in "$" matches the import path exactly,
// otherwise it also matches sub paths.
func (p *Pipeline) aliasPlugin() api.Plugin {
	keys := make([]string, 0, len(p.desc.Resolve.Alias))
	for k := range p.desc.Resolve.Alias {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return api.Plugin{
		Name: "spabundle-alias",
		Setup: func(build api.PluginBuild) {
			for _, key := range keys {
				target := p.desc.Resolve.Alias[key]
				if strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../") {
					target = filepath.Join(p.workDir, target)
				}

				exact := strings.HasSuffix(key, "$")
				name := strings.TrimSuffix(key, "$")
				filter := "^" + regexp.QuoteMeta(name) + cond(exact, "$", "(/.*)?$")

				build.OnResolve(api.OnResolveOptions{Filter: filter}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if _, ok := args.PluginData.(aliased); ok {
						return api.OnResolveResult{}, nil
					}

					rewritten := target + strings.TrimPrefix(args.Path, name)
					res := build.Resolve(rewritten, api.ResolveOptions{
						Kind:       args.Kind,
						Importer:   args.Importer,
						ResolveDir: args.ResolveDir,
						PluginData: aliased{},
					})
					if len(res.Errors) > 0 {
						return api.OnResolveResult{Errors: res.Errors}, nil
					}

					return api.OnResolveResult{
						Path:      res.Path,
						Namespace: res.Namespace,
						External:  res.External,
						Suffix:    res.Suffix,
					}, nil
				})
			}
		},
	}
}
