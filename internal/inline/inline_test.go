package inline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestPolicy_ShouldInline(t *testing.T) {
	tests := []struct {
		name  string
		limit int64
		size  int64
		want  bool
	}{
		{name: "one below limit", limit: 5000, size: 4999, want: true},
		{name: "at limit", limit: 5000, size: 5000, want: true},
		{name: "one above limit", limit: 5000, size: 5001, want: false},
		{name: "empty file", limit: 5000, size: 0, want: true},
		{name: "zero limit inlines only empty", limit: 0, size: 1, want: false},
		{name: "negative limit never inlines", limit: -1, size: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Policy{Limit: tt.limit}.ShouldInline(tt.size))
		})
	}
}

func TestPolicy_Boundary(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.Int64Range(1, 1<<40).Draw(t, "limit")
		p := Policy{Limit: limit}

		if !p.ShouldInline(limit - 1) {
			t.Fatalf("limit-1 not inlined for limit %d", limit)
		}
		if p.ShouldInline(limit + 1) {
			t.Fatalf("limit+1 inlined for limit %d", limit)
		}
	})
}

func TestMediaType(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		want     string
	}{
		{name: "png by content", filename: "logo.bin", data: pngHeader, want: "image/png"},
		{name: "svg by content", filename: "icon", data: []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`), want: "image/svg+xml"},
		{name: "svg by extension", filename: "icon.svg", data: []byte("not really"), want: "image/svg+xml"},
		{name: "css by extension drops charset", filename: "site.css", data: []byte("body{}"), want: "text/css"},
		{name: "unknown", filename: "blob.zzz", data: []byte{1, 2, 3}, want: defaultMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, MediaType(tt.filename, tt.data))
		})
	}
}

func TestDataURL(t *testing.T) {
	url := DataURL("logo.png", pngHeader)
	require.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
	require.False(t, bytes.Contains([]byte(url), []byte("\n")))
}
