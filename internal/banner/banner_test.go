package banner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultText(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	text := DefaultText("Vue 3 SPA", "spabundle", "© 2025 All rights reserved", at)

	require.Equal(t, "/**\n"+
		" * Project: Vue 3 SPA\n"+
		" * Author: spabundle\n"+
		" * Copyright: © 2025 All rights reserved\n"+
		" * Built: 2025-03-14 09:26:53\n"+
		" */", text)
}

func TestTemplate_RendersAtBuildTime(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	tmpl := Template("Vue 3 SPA", "spabundle", "© 2025 All rights reserved")
	require.Contains(t, tmpl, " * Built: [buildtime]\n")
	require.Equal(t,
		DefaultText("Vue 3 SPA", "spabundle", "© 2025 All rights reserved", at),
		Render(tmpl, Vars{BuildTime: at}))
}

func TestRender(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	got := Render("[name] [file] [fullhash] [buildtime] [unknown]", Vars{
		Name:      "main",
		File:      "bundle.js",
		FullHash:  "abc",
		BuildTime: at,
	})
	require.Equal(t, "main bundle.js abc 2025-01-02 03:04:05 [unknown]", got)
}

func TestComment(t *testing.T) {
	tests := []struct {
		name string
		text string
		raw  bool
		want string
	}{
		{
			name: "plain text is wrapped",
			text: "hello\n\nworld",
			want: "/*!\n * hello\n *\n * world\n */",
		},
		{
			name: "existing block comment kept",
			text: "  /** already */\n",
			want: "/** already */",
		},
		{
			name: "raw passes through",
			text: "\"use strict\";",
			raw:  true,
			want: "\"use strict\";",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Comment(tt.text, tt.raw))
		})
	}
}

func TestFullHash(t *testing.T) {
	a := FullHash([]byte("one"), []byte("two"))
	b := FullHash([]byte("one"), []byte("two"))
	c := FullHash([]byte("one"), []byte("three"))

	require.NotEmpty(t, a)
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func TestPrepend(t *testing.T) {
	require.Equal(t, "/* x */\nvar a;", string(Prepend("/* x */", []byte("var a;"))))
}
