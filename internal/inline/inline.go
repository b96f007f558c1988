// Package inline decides whether small assets are embedded in the bundle as
// data URLs or emitted as separate files.
package inline

import (
	"encoding/base64"
	"mime"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"github.com/h2non/filetype/types"
	svg "github.com/h2non/go-is-svg"
)

const defaultMediaType = "application/octet-stream"

func init() {
	t := types.NewType("svg", "image/svg+xml")
	filetype.AddMatcher(t, svg.Is)
	matchers.Image[t] = svg.Is
}

// Policy is a size threshold in bytes. Assets of Limit bytes or fewer are
// inlined. A negative Limit never inlines.
type Policy struct {
	Limit int64
}

// ShouldInline reports whether an asset of size bytes is embedded.
func (p Policy) ShouldInline(size int64) bool {
	if p.Limit < 0 {
		return false
	}
	return size <= p.Limit
}

// MediaType detects the MIME type of an asset from its content, falling back
// to its file extension.
func MediaType(name string, data []byte) string {
	if t, err := filetype.Match(data); err == nil && t != types.Unknown {
		return t.MIME.Value
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".svg" {
		return "image/svg+xml"
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		// drop parameters such as "; charset=utf-8"
		mt, _, _ = strings.Cut(mt, ";")
		return strings.TrimSpace(mt)
	}
	return defaultMediaType
}

// DataURL encodes data as a base64 data URL.
func DataURL(name string, data []byte) string {
	var b strings.Builder
	b.WriteString("data:")
	b.WriteString(MediaType(name, data))
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}
