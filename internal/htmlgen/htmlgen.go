// Package htmlgen renders the HTML page that loads a bundle, either from a
// template or from a built-in skeleton.
package htmlgen

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wolfeidau/spabundle/internal/descriptor"
	"github.com/wolfeidau/spabundle/internal/inline"
)

var ErrInvalidOptions = errors.New("invalid html options")

const (
	InjectHead = "head"
	InjectBody = "body"
	InjectNone = "false"

	LoadingDefer    = "defer"
	LoadingModule   = "module"
	LoadingBlocking = "blocking"
)

// Skeleton is used when no template is configured.
const Skeleton = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title></title>
</head>
<body>
<div id="app"></div>
</body>
</html>
`

// Options configure the html plugin.
type Options struct {
	Title         string
	Template      string
	Filename      string
	Inject        string
	ScriptLoading string
	PublicPath    string
	// Favicon is copied next to the page, or inlined when it is no larger
	// than FaviconLimit bytes.
	Favicon      string
	FaviconLimit int64
	Meta         map[string]string
}

// OptionsFrom reads plugin options, applying defaults.
func OptionsFrom(o descriptor.Options, publicPath string) (Options, error) {
	meta, err := o.StringMap("meta")
	if err != nil {
		return Options{}, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	opts := Options{
		Title:         o.String("title", ""),
		Template:      o.String("template", ""),
		Filename:      o.String("filename", "index.html"),
		Inject:        o.String("inject", InjectHead),
		ScriptLoading: o.String("scriptLoading", LoadingDefer),
		PublicPath:    o.String("publicPath", publicPath),
		Favicon:       o.String("favicon", ""),
		FaviconLimit:  o.Int("faviconInlineLimit", -1),
		Meta:          meta,
	}
	if v, ok := o["inject"].(bool); ok {
		opts.Inject = InjectHead
		if !v {
			opts.Inject = InjectNone
		}
	}

	switch opts.Inject {
	case InjectHead, InjectBody, InjectNone:
	default:
		return Options{}, fmt.Errorf("%w: inject %q", ErrInvalidOptions, opts.Inject)
	}
	switch opts.ScriptLoading {
	case LoadingDefer, LoadingModule, LoadingBlocking:
	default:
		return Options{}, fmt.Errorf("%w: scriptLoading %q", ErrInvalidOptions, opts.ScriptLoading)
	}
	if opts.Filename == "" || filepath.IsAbs(opts.Filename) || strings.HasPrefix(filepath.Clean(opts.Filename), "..") {
		return Options{}, fmt.Errorf("%w: filename %q must be relative to the output directory", ErrInvalidOptions, opts.Filename)
	}

	return opts, nil
}

// Assets are the bundle outputs the page loads, relative to the output directory.
type Assets struct {
	Scripts []string
	Styles  []string
	// Favicon is a URL or data URL for the page icon.
	Favicon string
}

// Render executes the template and injects the title and asset tags.
//
// Templates use "<%=" and "%>" as action delimiters, leaving "{{ }}" for Vue
// in-DOM templates. They receive Title, Scripts, Styles and Options; the
// htmlWebpackPlugin function exposes the same values under the names
// html-webpack-plugin templates use, such as htmlWebpackPlugin.options.title.
func Render(tmpl []byte, opts Options, assets Assets) ([]byte, error) {
	if len(bytes.TrimSpace(tmpl)) == 0 {
		tmpl = []byte(Skeleton)
	}

	scripts := urls(opts.PublicPath, assets.Scripts)
	styles := urls(opts.PublicPath, assets.Styles)

	t, err := template.New("page").Delims("<%=", "%>").Funcs(template.FuncMap{
		"marshal": marshal,
		"safe": func(s string) template.HTML {
			return template.HTML(s) //nolint:gosec
		},
		"htmlWebpackPlugin": func() map[string]any {
			return webpackPluginData(opts, scripts, styles)
		},
	}).Parse(string(tmpl))
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}

	var executed bytes.Buffer
	err = t.Execute(&executed, map[string]any{
		"Title":   opts.Title,
		"Scripts": scripts,
		"Styles":  styles,
		"Options": opts,
	})
	if err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}

	doc, err := html.Parse(&executed)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	head := find(doc, atom.Head)
	body := find(doc, atom.Body)
	if head == nil || body == nil {
		return nil, errors.New("document has no head or body")
	}

	if opts.Title != "" {
		setTitle(head, opts.Title)
	}
	for _, name := range sortedKeys(opts.Meta) {
		head.AppendChild(element(atom.Meta, "name", name, "content", opts.Meta[name]))
	}
	if assets.Favicon != "" {
		head.AppendChild(element(atom.Link, "rel", "icon", "href", assets.Favicon))
	}

	if opts.Inject != InjectNone {
		for _, href := range styles {
			head.AppendChild(element(atom.Link, "rel", "stylesheet", "href", href))
		}

		target := head
		if opts.Inject == InjectBody {
			target = body
		}
		for _, src := range scripts {
			target.AppendChild(scriptTag(src, opts.ScriptLoading))
		}
	}

	var out bytes.Buffer
	if err := html.Render(&out, doc); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func webpackPluginData(opts Options, scripts, styles []string) map[string]any {
	return map[string]any{
		"options": map[string]any{
			"title":         opts.Title,
			"template":      opts.Template,
			"filename":      opts.Filename,
			"inject":        opts.Inject,
			"scriptLoading": opts.ScriptLoading,
			"publicPath":    opts.PublicPath,
			"favicon":       opts.Favicon,
			"meta":          opts.Meta,
		},
		"files": map[string]any{
			"publicPath": opts.PublicPath,
			"js":         scripts,
			"css":        styles,
		},
	}
}

// Generate renders the page into outDir and returns the files written,
// relative to outDir. Template and favicon paths are relative to root.
func Generate(root, outDir string, opts Options, assets Assets) ([]string, error) {
	var tmpl []byte
	if opts.Template != "" {
		var err error
		tmpl, err = os.ReadFile(resolve(root, opts.Template))
		if err != nil {
			return nil, fmt.Errorf("reading template: %w", err)
		}
	}

	var written []string

	if opts.Favicon != "" {
		data, err := os.ReadFile(resolve(root, opts.Favicon))
		if err != nil {
			return nil, fmt.Errorf("reading favicon: %w", err)
		}

		name := filepath.Base(opts.Favicon)
		if (inline.Policy{Limit: opts.FaviconLimit}).ShouldInline(int64(len(data))) {
			assets.Favicon = inline.DataURL(name, data)
		} else {
			if err := os.WriteFile(filepath.Join(outDir, name), data, 0o644); err != nil {
				return nil, err
			}
			written = append(written, name)
			assets.Favicon = joinURL(opts.PublicPath, name)
		}
	}

	page, err := Render(tmpl, opts, assets)
	if err != nil {
		return nil, err
	}

	dst := filepath.Join(outDir, opts.Filename)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(dst, page, 0o644); err != nil {
		return nil, err
	}

	return append(written, filepath.ToSlash(opts.Filename)), nil
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func urls(publicPath string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = joinURL(publicPath, p)
	}
	return out
}

// joinURL prefixes an output-relative path with the public path. An empty
// public path yields a path relative to the page.
func joinURL(publicPath, p string) string {
	switch {
	case publicPath == "":
		return p
	case strings.HasSuffix(publicPath, "/"):
		return publicPath + p
	case strings.Contains(publicPath, "://"):
		return publicPath + "/" + p
	}
	return path.Join(publicPath, p)
}

func scriptTag(src, loading string) *html.Node {
	n := element(atom.Script, "src", src)
	switch loading {
	case LoadingDefer:
		n.Attr = append(n.Attr, html.Attribute{Key: "defer"})
	case LoadingModule:
		n.Attr = append(n.Attr, html.Attribute{Key: "type", Val: "module"})
	}
	return n
}

func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func setTitle(head *html.Node, title string) {
	t := find(head, atom.Title)
	if t == nil {
		t = element(atom.Title)
		head.AppendChild(t)
	}
	for c := t.FirstChild; c != nil; c = t.FirstChild {
		t.RemoveChild(c)
	}
	t.AppendChild(&html.Node{Type: html.TextNode, Data: title})
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func marshal(value any) (string, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
