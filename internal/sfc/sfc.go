// Package sfc splits Vue single-file components into their template, script
// and style blocks and assembles them into a plain JavaScript module.
//
// Templates are not compiled ahead of time. The generated module attaches the
// template source to the component options, which the full (esm-bundler)
// build of Vue compiles in the browser.
package sfc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	ErrScriptSetup       = errors.New("<script setup> is not supported")
	ErrExternalSource    = errors.New("src attribute on component blocks is not supported")
	ErrDuplicateBlock    = errors.New("duplicate component block")
	ErrNoDefaultExport   = errors.New("component script has no default export")
	ErrUnterminatedBlock = errors.New("unterminated component block")
)

var exportDefault = regexp.MustCompile(`(?m)^[ \t]*export[ \t]+default[ \t]+`)

// componentVar is the identifier the generated module binds the options to.
const componentVar = "__sfc__"

// Block is one top-level section of a component file.
type Block struct {
	Tag     string
	Attrs   map[string]string
	Content string
}

// Lang returns the block's lang attribute or def.
func (b *Block) Lang(def string) string {
	if l := b.Attrs["lang"]; l != "" {
		return l
	}
	return def
}

func (b *Block) Has(attr string) bool {
	_, ok := b.Attrs[attr]
	return ok
}

type Component struct {
	Template *Block
	Script   *Block
	Styles   []*Block
}

// Parse splits src into blocks. Content outside template, script and style
// blocks is ignored.
func Parse(src []byte) (*Component, error) {
	z := html.NewTokenizer(bytes.NewReader(src))
	c := &Component{}

	var (
		current *Block
		depth   int
		buf     strings.Builder
	)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return nil, fmt.Errorf("parsing component: %w", err)
			}
			break
		}

		raw := string(z.Raw())

		if current == nil {
			if tt != html.StartTagToken {
				continue
			}
			name, hasAttr := z.TagName()
			tag := string(name)
			if tag != "template" && tag != "script" && tag != "style" {
				continue
			}
			current = &Block{Tag: tag, Attrs: readAttrs(z, hasAttr)}
			depth = 1
			buf.Reset()
			continue
		}

		switch tt {
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == current.Tag {
				depth++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == current.Tag {
				depth--
				if depth == 0 {
					current.Content = buf.String()
					if err := c.add(current); err != nil {
						return nil, err
					}
					current = nil
					continue
				}
			}
		}
		buf.WriteString(raw)
	}

	if current != nil {
		return nil, fmt.Errorf("%w: <%s>", ErrUnterminatedBlock, current.Tag)
	}
	return c, nil
}

func (c *Component) add(b *Block) error {
	if b.Has("src") {
		return fmt.Errorf("%w: <%s src=%q>", ErrExternalSource, b.Tag, b.Attrs["src"])
	}

	switch b.Tag {
	case "template":
		if c.Template != nil {
			return fmt.Errorf("%w: <template>", ErrDuplicateBlock)
		}
		c.Template = b
	case "script":
		if b.Has("setup") {
			return ErrScriptSetup
		}
		if c.Script != nil {
			return fmt.Errorf("%w: <script>", ErrDuplicateBlock)
		}
		c.Script = b
	case "style":
		c.Styles = append(c.Styles, b)
	}
	return nil
}

// ScriptLang returns "ts" for TypeScript component scripts and "js" otherwise.
func (c *Component) ScriptLang() string {
	if c.Script == nil {
		return "js"
	}
	switch c.Script.Lang("js") {
	case "ts", "tsx", "typescript":
		return "ts"
	}
	return "js"
}

// Module assembles the component into a module whose default export is the
// component options object with its template attached. prelude is emitted
// first, typically style injection code for the component's style blocks.
func (c *Component) Module(prelude ...string) (string, error) {
	script := "export default {}"
	if c.Script != nil && strings.TrimSpace(c.Script.Content) != "" {
		script = c.Script.Content
	}

	loc := exportDefault.FindStringIndex(script)
	if loc == nil {
		return "", ErrNoDefaultExport
	}

	var b strings.Builder
	for _, p := range prelude {
		b.WriteString(p)
		if !strings.HasSuffix(p, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString(script[:loc[0]])
	b.WriteString("const " + componentVar + " = ")
	b.WriteString(script[loc[1]:])
	b.WriteString("\n")

	if c.Template != nil {
		tmpl, err := json.Marshal(strings.TrimSpace(c.Template.Content))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%s.template = %s;\n", componentVar, tmpl)
	}
	fmt.Fprintf(&b, "export default %s;\n", componentVar)

	return b.String(), nil
}

func readAttrs(z *html.Tokenizer, more bool) map[string]string {
	attrs := map[string]string{}
	for more {
		var key, val []byte
		key, val, more = z.TagAttr()
		attrs[string(key)] = string(val)
	}
	return attrs
}
