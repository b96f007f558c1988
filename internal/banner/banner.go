// Package banner renders the header comment injected at the top of emitted
// bundles.
package banner

import (
	"fmt"
	"strings"
	"time"

	"github.com/minio/crc64nvme"
	"github.com/mr-tron/base58"
)

// TimeLayout is the timestamp format used for [buildtime] and DefaultText.
const TimeLayout = time.DateTime

// Options configure the banner plugin.
type Options struct {
	// Text is the banner body; placeholders are expanded by Render.
	Text string
	// Raw emits Text verbatim instead of wrapping it in a comment.
	Raw bool
	// EntryOnly limits the banner to entry chunks.
	EntryOnly bool
}

// Vars are the placeholder values available to a banner.
type Vars struct {
	Name      string
	File      string
	FullHash  string
	BuildTime time.Time
}

// Template is the project metadata banner with the build time left as a
// [buildtime] placeholder.
func Template(project, author, copyright string) string {
	var b strings.Builder
	b.WriteString("/**\n")
	fmt.Fprintf(&b, " * Project: %s\n", project)
	fmt.Fprintf(&b, " * Author: %s\n", author)
	fmt.Fprintf(&b, " * Copyright: %s\n", copyright)
	b.WriteString(" * Built: [buildtime]\n")
	b.WriteString(" */")
	return b.String()
}

// DefaultText builds the project metadata banner: project name, author,
// copyright marker and build timestamp.
func DefaultText(project, author, copyright string, buildTime time.Time) string {
	return strings.ReplaceAll(Template(project, author, copyright), "[buildtime]", buildTime.Format(TimeLayout))
}

// Render expands [name], [file], [fullhash] and [buildtime] in text.
func Render(text string, vars Vars) string {
	r := strings.NewReplacer(
		"[name]", vars.Name,
		"[file]", vars.File,
		"[fullhash]", vars.FullHash,
		"[buildtime]", vars.BuildTime.Format(TimeLayout),
	)
	return r.Replace(text)
}

// Comment turns banner text into a block comment. Text that already is a
// block comment, or raw text, is returned unchanged.
func Comment(text string, raw bool) string {
	trimmed := strings.TrimSpace(text)
	if raw || (strings.HasPrefix(trimmed, "/*") && strings.HasSuffix(trimmed, "*/")) {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	var b strings.Builder
	b.WriteString("/*!\n")
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			b.WriteString(" *\n")
			continue
		}
		b.WriteString(" * ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(" */")
	return b.String()
}

// FullHash returns a short base58 content hash over all outputs of a build.
func FullHash(contents ...[]byte) string {
	h := crc64nvme.New()
	for _, c := range contents {
		_, _ = h.Write(c)
	}
	return base58.Encode(h.Sum(nil))
}

// Prepend places the rendered comment before src, separated by a newline.
func Prepend(comment string, src []byte) []byte {
	out := make([]byte, 0, len(comment)+1+len(src))
	out = append(out, comment...)
	out = append(out, '\n')
	out = append(out, src...)
	return out
}
