// Package comments implements the minifier's comment-retention policy: which
// comments survive in emitted JavaScript.
package comments

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

var ErrInvalidPolicy = errors.New("invalid comment policy")

type mode int

const (
	keepLegal mode = iota
	keepAll
	keepNone
	keepMatching
)

// Policy decides whether a comment is retained.
type Policy struct {
	mode   mode
	re     *regexp2.Regexp
	source string
}

// Compile parses a policy. Accepted forms are "all" (or "true"), "none" (or
// "false"), "some" or empty for legal comments only, and a regular expression
// either bare or as a JavaScript literal such as "/@license/i". Patterns use
// ECMAScript regular expression syntax and are matched against the comment
// body with its delimiters removed.
func Compile(expr string) (*Policy, error) {
	switch strings.TrimSpace(expr) {
	case "", "some":
		return &Policy{mode: keepLegal, source: expr}, nil
	case "all", "true":
		return &Policy{mode: keepAll, source: expr}, nil
	case "none", "false":
		return &Policy{mode: keepNone, source: expr}, nil
	}

	pattern, opts, err := splitLiteral(expr)
	if err != nil {
		return nil, err
	}

	re, err := regexp2.Compile(pattern, regexp2.ECMAScript|opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	re.MatchTimeout = time.Second

	return &Policy{mode: keepMatching, re: re, source: expr}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string) *Policy {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Policy) String() string {
	return p.source
}

// Keep reports whether comment, including its delimiters, is retained.
func (p *Policy) Keep(comment string) bool {
	switch p.mode {
	case keepAll:
		return true
	case keepNone:
		return false
	case keepMatching:
		ok, err := p.re.MatchString(body(comment))
		return err == nil && ok
	default:
		return IsLegal(comment)
	}
}

// IsLegal reports whether comment is a license-style comment that minifiers
// keep by default.
func IsLegal(comment string) bool {
	return strings.HasPrefix(comment, "/*!") ||
		strings.HasPrefix(comment, "//!") ||
		strings.Contains(comment, "@license") ||
		strings.Contains(comment, "@preserve")
}

// Filter removes from src every comment the policy does not keep.
func (p *Policy) Filter(src []byte) ([]byte, error) {
	if p.mode == keepAll {
		return src, nil
	}

	return rewrite(src, func(out *bytes.Buffer, tt js.TokenType, text []byte) {
		if p.Keep(string(text)) {
			out.Write(text)
			return
		}
		// a dropped comment must not join tokens or remove a line break
		if tt == js.CommentLineTerminatorToken {
			out.WriteByte('\n')
		} else if endsWithWordChar(out.Bytes()) {
			out.WriteByte(' ')
		}
	})
}

// Promote rewrites comments the policy keeps into legal form ("/*!" or "//!")
// so a minifier that only retains legal comments keeps them too. Comments
// already legal are left alone.
func (p *Policy) Promote(src []byte) ([]byte, error) {
	if !p.Promotes() {
		return src, nil
	}

	return rewrite(src, func(out *bytes.Buffer, _ js.TokenType, text []byte) {
		if IsLegal(string(text)) || !p.Keep(string(text)) {
			out.Write(text)
			return
		}
		out.Write(text[:2])
		out.WriteByte('!')
		out.Write(text[2:])
	})
}

// Promotes reports whether Promote can change any comment.
func (p *Policy) Promotes() bool {
	return p.mode == keepAll || p.mode == keepMatching
}

// rewrite copies src, passing each comment to fn instead of writing it.
func rewrite(src []byte, fn func(out *bytes.Buffer, tt js.TokenType, text []byte)) ([]byte, error) {
	l := js.NewLexer(parse.NewInputBytes(src))
	out := bytes.NewBuffer(make([]byte, 0, len(src)))
	prev := js.ErrorToken
	// control records, per open paren, whether it starts an if, for, while
	// or with head; a slash after such a head starts a regular expression
	var control []bool
	afterControl := false

	for {
		tt, text := l.Next()
		switch tt {
		case js.ErrorToken:
			if err := l.Err(); err != nil && err != io.EOF {
				return nil, fmt.Errorf("scanning comments: %w", err)
			}
			return out.Bytes(), nil
		case js.CommentToken, js.CommentLineTerminatorToken:
			fn(out, tt, text)
			continue
		case js.DivToken, js.DivEqToken:
			if afterControl || !divisionAllowed(prev) {
				tt, text = l.RegExp()
			}
		}

		out.Write(text)
		if tt == js.WhitespaceToken || tt == js.LineTerminatorToken {
			continue
		}

		afterControl = false
		switch tt {
		case js.OpenParenToken:
			control = append(control, isControlKeyword(prev))
		case js.CloseParenToken:
			if n := len(control); n > 0 {
				afterControl = control[n-1]
				control = control[:n-1]
			}
		}
		prev = tt
	}
}

// divisionAllowed reports whether a slash after prev is a division operator
// rather than the start of a regular expression literal.
func divisionAllowed(prev js.TokenType) bool {
	switch prev {
	case js.ReturnToken, js.TypeofToken, js.InstanceofToken, js.InToken, js.OfToken,
		js.NewToken, js.DeleteToken, js.VoidToken, js.ThrowToken, js.CaseToken,
		js.DoToken, js.ElseToken, js.YieldToken, js.AwaitToken:
		return false
	}
	if js.IsIdentifier(prev) || js.IsNumeric(prev) {
		return true
	}
	switch prev {
	case js.ThisToken, js.SuperToken, js.NullToken, js.TrueToken, js.FalseToken,
		js.StringToken, js.TemplateToken, js.TemplateEndToken, js.RegExpToken,
		js.CloseParenToken, js.CloseBracketToken, js.CloseBraceToken,
		js.IncrToken, js.DecrToken:
		return true
	}
	return false
}

func isControlKeyword(tt js.TokenType) bool {
	switch tt {
	case js.IfToken, js.ForToken, js.WhileToken, js.WithToken:
		return true
	}
	return false
}

func endsWithWordChar(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	c := b[len(b)-1]
	return c == '_' || c == '$' || c >= 0x80 ||
		(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func body(comment string) string {
	switch {
	case strings.HasPrefix(comment, "/*"):
		return strings.TrimSuffix(comment[2:], "*/")
	case strings.HasPrefix(comment, "//"):
		return comment[2:]
	}
	return comment
}

func splitLiteral(expr string) (string, regexp2.RegexOptions, error) {
	if !strings.HasPrefix(expr, "/") {
		return expr, regexp2.None, nil
	}
	end := strings.LastIndex(expr, "/")
	if end == 0 {
		return "", regexp2.None, fmt.Errorf("%w: unterminated pattern %q", ErrInvalidPolicy, expr)
	}

	opts := regexp2.None
	for _, flag := range expr[end+1:] {
		switch flag {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 'g', 'u', 'y':
			// no effect on a single match
		default:
			return "", regexp2.None, fmt.Errorf("%w: unsupported flag %q", ErrInvalidPolicy, flag)
		}
	}
	return expr[1:end], opts, nil
}
