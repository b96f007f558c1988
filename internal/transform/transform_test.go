package transform

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/spabundle/internal/descriptor"
)

func defaultSet(t *testing.T, env Env) *Set {
	t.Helper()
	d := descriptor.Default(descriptor.DefaultProjectOptions(time.Unix(0, 0)))
	set, err := NewSet(d.Rules, env)
	require.NoError(t, err)
	return set
}

func TestNewSet_UnknownLoader(t *testing.T) {
	_, err := NewSet([]descriptor.Rule{{Test: `\.scss$`, Use: []descriptor.Step{{Loader: "sass"}}}}, Env{})
	require.ErrorIs(t, err, ErrUnknownLoader)
}

func TestSet_Match(t *testing.T) {
	set := defaultSet(t, Env{})

	tests := []struct {
		path  string
		want  []string
		found bool
	}{
		{path: "/src/App.vue", want: []string{"vue"}, found: true},
		{path: "/src/site.css", want: []string{"css", "style"}, found: true},
		{path: "/src/theme.less", want: []string{"less", "css", "style"}, found: true},
		{path: "/src/logo.svg", want: []string{"url"}, found: true},
		{path: "/src/font.woff2", want: []string{"url"}, found: true},
		{path: "/src/main.js", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			chain, ok := set.Match(tt.path)
			require.Equal(t, tt.found, ok)
			if ok {
				require.Equal(t, tt.want, chain.Names())
			}
		})
	}
}

func TestRun_CSSInjected(t *testing.T) {
	set := defaultSet(t, Env{})

	a, err := set.Run(context.Background(), "/src/site.css", []byte("body{color:red}"))
	require.NoError(t, err)
	require.Equal(t, KindJS, a.Kind)
	require.Contains(t, string(a.Contents), `s.textContent="body{color:red}";`)
	require.Contains(t, string(a.Contents), `"data-source","/src/site.css"`)
}

func TestRun_CSSUsesBundler(t *testing.T) {
	var seen string
	set := defaultSet(t, Env{
		BundleCSS: func(_ context.Context, a *Asset) ([]byte, error) {
			seen = a.Path
			return []byte(".flat{}"), nil
		},
	})

	a, err := set.Run(context.Background(), "/src/site.css", []byte("@import './base.css';"))
	require.NoError(t, err)
	require.Equal(t, "/src/site.css", seen)
	require.Contains(t, string(a.Contents), `s.textContent=".flat{}";`)
}

func TestRun_URLThreshold(t *testing.T) {
	type observed struct {
		kind Kind
		size int64
	}
	var got []observed
	set := defaultSet(t, Env{
		Observe: func(a *Asset, size int64) { got = append(got, observed{a.Kind, size}) },
	})

	tests := []struct {
		name string
		path string
		size int
		want Kind
	}{
		{name: "image below limit", path: "/src/a.png", size: 4999, want: KindDataURL},
		{name: "image at limit", path: "/src/a.png", size: 5000, want: KindDataURL},
		{name: "image above limit", path: "/src/a.png", size: 5001, want: KindFile},
		{name: "font below limit", path: "/src/a.woff", size: 99999, want: KindDataURL},
		{name: "font above limit", path: "/src/a.woff", size: 100001, want: KindFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := set.Run(context.Background(), tt.path, bytes.Repeat([]byte{1}, tt.size))
			require.NoError(t, err)
			require.Equal(t, tt.want, a.Kind)
			require.Equal(t, tt.want == KindDataURL, a.DataURL != "")
		})
	}
	require.Len(t, got, len(tests))
	require.Equal(t, observed{KindFile, 5001}, got[2])
}

func TestRun_URLInlinesBase64(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"></svg>`
	font := "wOFF-plain-ascii-font-payload"

	tests := []struct {
		name       string
		rules      []descriptor.Rule
		path       string
		contents   string
		wantURL    string
		wantModule string
	}{
		{
			name:       "svg text",
			path:       "/src/icon.svg",
			contents:   svg,
			wantURL:    "data:image/svg+xml;base64,",
			wantModule: `export default "data:image/svg+xml;base64,`,
		},
		{
			name:       "text font",
			path:       "/src/font.woff",
			contents:   font,
			wantURL:    "data:application/font-woff;base64,d09G",
			wantModule: `export default "data:application/font-woff;base64,`,
		},
		{
			name:       "commonjs module",
			rules:      []descriptor.Rule{{Test: `\.svg$`, Use: []descriptor.Step{{Loader: "url", Options: descriptor.Options{"esModule": false}}}}},
			path:       "/src/icon.svg",
			contents:   svg,
			wantURL:    "data:image/svg+xml;base64,",
			wantModule: `module.exports = "data:image/svg+xml;base64,`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := defaultSet(t, Env{})
			if tt.rules != nil {
				var err error
				set, err = NewSet(tt.rules, Env{})
				require.NoError(t, err)
			}

			a, err := set.Run(context.Background(), tt.path, []byte(tt.contents))
			require.NoError(t, err)
			require.Equal(t, KindDataURL, a.Kind)
			require.True(t, strings.HasPrefix(a.DataURL, tt.wantURL), a.DataURL)
			require.True(t, strings.HasPrefix(string(a.Contents), tt.wantModule), string(a.Contents))
			require.NotContains(t, string(a.Contents), tt.contents)
		})
	}
}

func TestRun_URLWithoutLimitInlines(t *testing.T) {
	set, err := NewSet([]descriptor.Rule{{Test: `\.png$`, Use: []descriptor.Step{{Loader: "url"}}}}, Env{})
	require.NoError(t, err)

	a, err := set.Run(context.Background(), "/a.png", bytes.Repeat([]byte{1}, 1<<20))
	require.NoError(t, err)
	require.Equal(t, KindDataURL, a.Kind)
}

func TestRun_StyleRequiresCSS(t *testing.T) {
	set, err := NewSet([]descriptor.Rule{{Test: `\.png$`, Use: []descriptor.Step{{Loader: "file"}, {Loader: "style"}}}}, Env{})
	require.NoError(t, err)

	_, err = set.Run(context.Background(), "/a.png", []byte{1})
	require.ErrorIs(t, err, ErrUnexpectedKind)
	require.ErrorContains(t, err, "style loader")
}

func TestRun_VueComponent(t *testing.T) {
	set := defaultSet(t, Env{})

	src := `<template><p class="x">{{ msg }}</p></template>
<script>
export default { data() { return { msg: "hi" } } }
</script>
<style>.x { color: red }</style>
`
	a, err := set.Run(context.Background(), "/src/App.vue", []byte(src))
	require.NoError(t, err)
	require.Equal(t, KindJS, a.Kind)

	code := string(a.Contents)
	require.Contains(t, code, `"data-source","/src/App.vue.css"`)
	require.Contains(t, code, "const __sfc__ = { data()")
	require.Contains(t, code, "export default __sfc__;")
	require.Less(t, strings.Index(code, "document.createElement"), strings.Index(code, "const __sfc__"))
}

func TestRun_VueLessWithoutCompiler(t *testing.T) {
	d := descriptor.Default(descriptor.DefaultProjectOptions(time.Unix(0, 0)))
	d.Rules[2].Use[0].Options = descriptor.Options{"bin": "spabundle-missing-lessc"}
	set, err := NewSet(d.Rules, Env{})
	require.NoError(t, err)

	_, err = set.Run(context.Background(), "/src/App.vue", []byte(`<style lang="less">@a: 1;</style>`))
	require.ErrorIs(t, err, ErrCompilerNotFound)
}

func TestRun_VueUnknownStyleLang(t *testing.T) {
	set := defaultSet(t, Env{})

	_, err := set.Run(context.Background(), "/src/App.vue", []byte(`<style lang="stylus">a
  color red</style>`))
	require.ErrorContains(t, err, `no rule for lang "stylus"`)
}

func TestChain_StopsOnCancelledContext(t *testing.T) {
	set := defaultSet(t, Env{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := set.Run(ctx, "/src/site.css", []byte("a{}"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestKindFor(t *testing.T) {
	require.Equal(t, KindJS, KindFor("a.mjs"))
	require.Equal(t, KindTS, KindFor("a.tsx"))
	require.Equal(t, KindCSS, KindFor("a.CSS"))
	require.Equal(t, KindText, KindFor("a.png"))
}
