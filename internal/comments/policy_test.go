package comments

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const marker = "© 2025 All rights reserved"

func TestCompile(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{name: "empty defaults to legal", expr: ""},
		{name: "some", expr: "some"},
		{name: "all", expr: "all"},
		{name: "none", expr: "none"},
		{name: "bare pattern", expr: "@license"},
		{name: "literal with flags", expr: "/copyright/i"},
		{name: "literal with unicode marker", expr: "/" + marker + "/"},
		{name: "unterminated literal", expr: "/", wantErr: true},
		{name: "unsupported flag", expr: "/x/s", wantErr: true},
		{name: "invalid pattern", expr: "/(unclosed/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.expr)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPolicy)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPolicy_Keep(t *testing.T) {
	banner := "/**\n * Project: demo\n * Copyright: " + marker + "\n */"
	unrelated := "/* helper for the router */"

	tests := []struct {
		name     string
		expr     string
		comment  string
		wantKept bool
	}{
		{name: "marker keeps banner", expr: "/" + marker + "/", comment: banner, wantKept: true},
		{name: "marker drops unrelated", expr: "/" + marker + "/", comment: unrelated, wantKept: false},
		{name: "marker drops legal comment without marker", expr: "/" + marker + "/", comment: "/*! MIT */", wantKept: false},
		{name: "case insensitive", expr: "/COPYRIGHT/i", comment: banner, wantKept: true},
		{name: "legal bang comment", expr: "some", comment: "/*! MIT */", wantKept: true},
		{name: "legal license tag", expr: "some", comment: "// @license MIT", wantKept: true},
		{name: "legal drops plain", expr: "some", comment: unrelated, wantKept: false},
		{name: "all keeps plain", expr: "all", comment: unrelated, wantKept: true},
		{name: "none drops banner", expr: "none", comment: banner, wantKept: false},
		{name: "anchored against body", expr: "/^!/", comment: "/*! keep */", wantKept: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.expr)
			require.NoError(t, err)
			require.Equal(t, tt.wantKept, p.Keep(tt.comment))
		})
	}
}

func TestPolicy_Filter(t *testing.T) {
	p := MustCompile("/" + marker + "/")

	src := "/*! " + marker + " */\n" +
		"var a=1;/* drop me */var b=a/2;\n" +
		"// line comment\n" +
		"var r=/\\/*x/g;var s=\"/* in string */\";"

	out, err := p.Filter([]byte(src))
	require.NoError(t, err)

	got := string(out)
	require.Contains(t, got, "/*! "+marker+" */")
	require.NotContains(t, got, "drop me")
	require.NotContains(t, got, "line comment")
	require.Contains(t, got, "var b=a/2;")
	require.Contains(t, got, `var r=/\/*x/g;`)
	require.Contains(t, got, `"/* in string */"`)
}

func TestPolicy_FilterKeepsTokensApart(t *testing.T) {
	p := MustCompile("none")

	out, err := p.Filter([]byte("return/* x */a"))
	require.NoError(t, err)
	require.Equal(t, "return a", string(out))

	out, err = p.Filter([]byte("a=1/*\n*/b=2"))
	require.NoError(t, err)
	require.Equal(t, "a=1\nb=2", string(out))
}

func TestPolicy_Promote(t *testing.T) {
	src := "/* " + marker + " */\nvar a=1;/* helper */\n// " + marker + " line\n/*! MIT */var s=\"/* not a comment */\";"

	tests := []struct {
		name string
		expr string
		want string
	}{
		{
			name: "marker",
			expr: "/" + marker + "/",
			want: "/*! " + marker + " */\nvar a=1;/* helper */\n//! " + marker + " line\n/*! MIT */var s=\"/* not a comment */\";",
		},
		{
			name: "all",
			expr: "all",
			want: "/*! " + marker + " */\nvar a=1;/*! helper */\n//! " + marker + " line\n/*! MIT */var s=\"/* not a comment */\";",
		},
		{name: "legal only", expr: "some", want: src},
		{name: "none", expr: "none", want: src},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MustCompile(tt.expr).Promote([]byte(src))
			require.NoError(t, err)
			require.Equal(t, tt.want, string(out))
		})
	}
}

func TestPolicy_FilterSlashContext(t *testing.T) {
	p := MustCompile("none")

	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "regexp after if head", src: `if(a)/\/\*/.test(b);/* drop */c()`, want: `if(a)/\/\*/.test(b);c()`},
		{name: "regexp after while head", src: `while(f(x))/\/\*/.exec(y)`, want: `while(f(x))/\/\*/.exec(y)`},
		{name: "regexp after for head", src: `for(;;)/a*/.test(b)`, want: `for(;;)/a*/.test(b)`},
		{name: "regexp after return", src: `return /\/\*x/.test(s)/* drop */`, want: `return /\/\*x/.test(s)`},
		{name: "division after parens", src: `var q=(a)/2;/* drop */`, want: `var q=(a)/2;`},
		{name: "division after call in if head", src: `if(f(a)/2)b()`, want: `if(f(a)/2)b()`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := p.Filter([]byte(tt.src))
			require.NoError(t, err)
			require.Equal(t, tt.want, string(out))
		})
	}
}

func TestPolicy_RetainsOnlyMarkedComments(t *testing.T) {
	p := MustCompile("/" + marker + "/")

	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-z0-9 ]{0,40}`).Draw(t, "text")
		prefix := rapid.StringMatching(`[a-z ]{0,10}`).Draw(t, "prefix")

		if p.Keep("/* " + text + " */") {
			t.Fatalf("comment without marker kept: %q", text)
		}
		if !p.Keep("/* " + prefix + marker + text + " */") {
			t.Fatalf("comment with marker dropped: %q", text)
		}
	})
}
