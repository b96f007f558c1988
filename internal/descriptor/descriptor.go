// Package descriptor holds the build configuration descriptor for a single-page
// application bundle: the entry module, output location, per-file transform
// rules, plugin activations, import resolution policy and minifier settings.
//
// A Descriptor is inert data. It is built once per build invocation, either
// from Default or by loading a YAML/JSONC file, handed to the bundler whole and
// discarded once the build completes.
package descriptor

// Mode selects production or development defaults for the bundler.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

// Transform step names understood by the bundler.
const (
	LoaderVue   = "vue"
	LoaderCSS   = "css"
	LoaderLess  = "less"
	LoaderStyle = "style"
	LoaderURL   = "url"
	LoaderFile  = "file"
	LoaderText  = "text"
)

// Plugin activation names understood by the bundler.
const (
	PluginVue         = "vue"
	PluginBanner      = "banner"
	PluginHTML        = "html"
	PluginDefine      = "define"
	PluginCompression = "compression"
	PluginCopy        = "copy"
)

// Minimizer names.
const (
	MinimizerEsbuild = "esbuild"
)

var (
	knownLoaders = []string{LoaderVue, LoaderCSS, LoaderLess, LoaderStyle, LoaderURL, LoaderFile, LoaderText}
	knownPlugins = []string{PluginVue, PluginBanner, PluginHTML, PluginDefine, PluginCompression, PluginCopy}
)

type Descriptor struct {
	Mode Mode `yaml:"mode,omitempty" json:"mode,omitempty"`
	// Context is the project root; relative paths resolve against it.
	Context      string             `yaml:"context,omitempty" json:"context,omitempty"`
	Entry        string             `yaml:"entry" json:"entry"`
	Output       Output             `yaml:"output" json:"output"`
	Rules        []Rule             `yaml:"rules" json:"rules"`
	Plugins      []PluginActivation `yaml:"plugins,omitempty" json:"plugins,omitempty"`
	Resolve      Resolve            `yaml:"resolve" json:"resolve"`
	Optimization Optimization       `yaml:"optimization" json:"optimization"`
}

type Output struct {
	// Path is the destination directory for emitted files.
	Path string `yaml:"path" json:"path"`
	// Filename is the bundle name template, e.g. "bundle.js" or "[name].[contenthash].js".
	Filename string `yaml:"filename" json:"filename"`
	// PublicPath prefixes emitted asset URLs in generated HTML.
	PublicPath string `yaml:"publicPath,omitempty" json:"publicPath,omitempty"`
}

// Rule applies its steps, in listed order, to every file whose path matches Test.
type Rule struct {
	Test string `yaml:"test" json:"test"`
	Use  []Step `yaml:"use" json:"use"`
}

// Step is a named transform with options. It decodes from either a bare
// loader name or a {loader, options} object.
type Step struct {
	Loader  string  `yaml:"loader" json:"loader"`
	Options Options `yaml:"options,omitempty" json:"options,omitempty"`
}

type PluginActivation struct {
	Name    string  `yaml:"name" json:"name"`
	Options Options `yaml:"options,omitempty" json:"options,omitempty"`
}

type Resolve struct {
	// Extensions are tried in order when an import omits one.
	Extensions []string `yaml:"extensions,omitempty" json:"extensions,omitempty"`
	// Alias maps an import name to a module path. A trailing "$" on the key
	// restricts the alias to an exact match.
	Alias map[string]string `yaml:"alias,omitempty" json:"alias,omitempty"`
}

type Optimization struct {
	Minimize  bool      `yaml:"minimize" json:"minimize"`
	Minimizer Minimizer `yaml:"minimizer" json:"minimizer"`
}

type Minimizer struct {
	Name     string          `yaml:"name" json:"name"`
	Compress CompressOptions `yaml:"compress" json:"compress"`
	Format   FormatOptions   `yaml:"format" json:"format"`
}

type CompressOptions struct {
	DropConsole  bool `yaml:"drop_console" json:"drop_console"`
	DropDebugger bool `yaml:"drop_debugger" json:"drop_debugger"`
}

type FormatOptions struct {
	// Comments is "all", "none", "some" or a pattern such as "/@license/i".
	Comments string `yaml:"comments,omitempty" json:"comments,omitempty"`
}

// EffectiveMode returns the mode, defaulting to production.
func (d *Descriptor) EffectiveMode() Mode {
	if d.Mode == "" {
		return ModeProduction
	}
	return d.Mode
}

// Plugin returns the first activation with the given name.
func (d *Descriptor) Plugin(name string) (PluginActivation, bool) {
	for _, p := range d.Plugins {
		if p.Name == name {
			return p, true
		}
	}
	return PluginActivation{}, false
}

// HasLoader reports whether any rule uses the named step.
func (d *Descriptor) HasLoader(name string) bool {
	for _, r := range d.Rules {
		for _, s := range r.Use {
			if s.Loader == name {
				return true
			}
		}
	}
	return false
}
