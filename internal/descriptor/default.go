package descriptor

import (
	"regexp"
	"time"

	"github.com/wolfeidau/spabundle/internal/banner"
)

// DefaultOptions carry the inputs of the default descriptor that vary between
// projects and builds. BuildTime is explicit so that two evaluations with the
// same options produce identical descriptors.
type DefaultOptions struct {
	Project   string
	Author    string
	Copyright string
	Title     string
	BuildTime time.Time
}

// DefaultProjectOptions returns metadata for the stock Vue 3 application.
func DefaultProjectOptions(buildTime time.Time) DefaultOptions {
	return DefaultOptions{
		Project:   "Vue 3 SPA",
		Author:    "spabundle",
		Copyright: "© 2025 All rights reserved",
		Title:     "Vue 3 SPA",
		BuildTime: buildTime,
	}
}

// Default returns the descriptor for a Vue 3 single-page application: Vue
// single-file components, injected CSS and Less styles, images and fonts
// inlined below a size threshold, a metadata banner kept through
// minification, and a generated index.html.
func Default(opts DefaultOptions) *Descriptor {
	return &Descriptor{
		Mode:  ModeProduction,
		Entry: "./src/main.js",
		Output: Output{
			Path:     "./dist",
			Filename: "bundle.js",
		},
		Rules: []Rule{
			{
				Test: `\.vue$`,
				Use:  []Step{{Loader: LoaderVue}},
			},
			{
				Test: `\.css$`,
				Use:  []Step{{Loader: LoaderCSS}, {Loader: LoaderStyle}},
			},
			{
				Test: `\.less$`,
				Use:  []Step{{Loader: LoaderLess}, {Loader: LoaderCSS}, {Loader: LoaderStyle}},
			},
			{
				Test: `\.(png|jpg|gif|svg)$`,
				Use: []Step{{
					Loader: LoaderURL,
					Options: Options{
						"limit":    5000,
						"name":     "images/[hash].[ext]",
						"esModule": false,
					},
				}},
			},
			{
				Test: `\.(woff|woff2|ttf|eot)$`,
				Use: []Step{{
					Loader: LoaderURL,
					Options: Options{
						"limit":    100000,
						"esModule": false,
					},
				}},
			},
		},
		Plugins: []PluginActivation{
			{Name: PluginVue},
			{
				Name: PluginBanner,
				Options: Options{
					"banner": banner.DefaultText(opts.Project, opts.Author, opts.Copyright, opts.BuildTime),
				},
			},
			{
				Name: PluginHTML,
				Options: Options{
					"title":    opts.Title,
					"template": "./index.html",
					"filename": "index.html",
				},
			},
			{
				Name: PluginDefine,
				Options: Options{
					"definitions": map[string]any{
						"__VUE_OPTIONS_API__":                     true,
						"__VUE_PROD_DEVTOOLS__":                   false,
						"__VUE_PROD_HYDRATION_MISMATCH_DETAILS__": false,
					},
				},
			},
		},
		Resolve: Resolve{
			Extensions: []string{".vue", ".js"},
			Alias: map[string]string{
				"vue$": "vue/dist/vue.esm-bundler.js",
			},
		},
		Optimization: Optimization{
			Minimize: true,
			Minimizer: Minimizer{
				Name: MinimizerEsbuild,
				Compress: CompressOptions{
					DropConsole:  true,
					DropDebugger: true,
				},
				Format: FormatOptions{
					Comments: "/" + regexp.QuoteMeta(opts.Copyright) + "/",
				},
			},
		},
	}
}
