package assets

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Conditional group rules whose bodies are themselves rule lists.
var groupRules = []string{"@media", "@supports", "@layer", "@container", "@document", "@scope"}

// Purge removes style rules whose selectors all name a class missing from
// used. Selectors without classes, classes inside functional pseudo-classes
// and every other at-rule (@keyframes, @font-face, @import, ...) are kept.
// It returns the rewritten stylesheet and the number of rules removed.
func Purge(src string, used map[string]struct{}) (string, int) {
	pg := &purger{used: used}
	out := pg.sheet(src)
	return out, pg.removed
}

type purger struct {
	used    map[string]struct{}
	removed int
}

// block is an open at-rule whose body is being collected.
type block struct {
	name    string
	prelude string
	body    strings.Builder
	// raw is set when the parser hands the body over as plain tokens.
	raw bool
}

func (b *block) purges() bool {
	return b.name == "" || isGroupRule(b.name)
}

// sheet rewrites a stylesheet or the body of a group rule.
func (pg *purger) sheet(src string) string {
	p := css.NewParser(parse.NewInputString(src), false)
	stack := []*block{{}}
	// skip counts the open blocks of a dropped ruleset.
	skip := 0

	for {
		gt, _, data := p.Next()
		if gt == css.ErrorGrammar && !p.HasParseError() {
			// End of input closes whatever is still open.
			for len(stack) > 1 {
				stack = pg.closeBlock(stack)
			}
			return stack[0].body.String()
		}
		cur := stack[len(stack)-1]

		if skip > 0 {
			switch gt {
			case css.BeginRulesetGrammar, css.BeginAtRuleGrammar:
				skip++
			case css.EndRulesetGrammar, css.EndAtRuleGrammar:
				skip--
			}
			continue
		}

		switch gt {
		case css.ErrorGrammar:
			cur.body.WriteString(tokenText(p.Values()))

		case css.CommentGrammar:
			cur.body.Write(data)
			cur.body.WriteByte('\n')

		case css.AtRuleGrammar:
			cur.body.Write(data)
			if prelude := strings.TrimSpace(tokenText(p.Values())); prelude != "" {
				cur.body.WriteString(" " + prelude)
			}
			cur.body.WriteString(";\n")

		case css.BeginAtRuleGrammar:
			stack = append(stack, &block{name: string(data), prelude: strings.TrimSpace(tokenText(p.Values()))})

		case css.EndAtRuleGrammar:
			if len(stack) > 1 {
				stack = pg.closeBlock(stack)
			}

		case css.BeginRulesetGrammar:
			values := p.Values()
			if !cur.purges() {
				cur.body.WriteString(tokenText(values) + "{")
				continue
			}
			kept := pg.selectors(values)
			if len(kept) == 0 {
				pg.removed++
				skip = 1
				continue
			}
			cur.body.WriteString(strings.Join(kept, ",\n") + " {")

		case css.EndRulesetGrammar:
			cur.body.WriteString("}\n")

		case css.DeclarationGrammar:
			cur.body.Write(data)
			cur.body.WriteString(":" + tokenText(p.Values()) + ";")

		case css.CustomPropertyGrammar:
			cur.body.Write(data)
			cur.body.WriteString(":" + tokenText(p.Values()) + ";")

		case css.TokenGrammar:
			if len(stack) == 1 {
				// <!-- and --> at the top level.
				continue
			}
			cur.raw = true
			cur.body.Write(data)
		}
	}
}

// closeBlock pops the innermost at-rule and writes it into its parent.
// Group rules left without rules are dropped.
func (pg *purger) closeBlock(stack []*block) []*block {
	b := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	parent := stack[len(stack)-1]

	body := b.body.String()
	if isGroupRule(b.name) {
		if b.raw {
			body = pg.sheet(body)
		}
		if strings.TrimSpace(body) == "" {
			return stack
		}
	}

	parent.body.WriteString(b.name)
	if b.prelude != "" {
		parent.body.WriteString(" " + b.prelude)
	}
	parent.body.WriteString(" {\n" + body + "}\n")
	return stack
}

// selectors returns the selectors in a comma-separated list that can still
// match something.
func (pg *purger) selectors(tokens []css.Token) []string {
	var kept []string
	for _, sel := range splitSelectors(tokens) {
		text := strings.TrimSpace(tokenText(sel))
		if text == "" {
			continue
		}
		if pg.matches(sel) {
			kept = append(kept, text)
		}
	}
	return kept
}

func (pg *purger) matches(sel []css.Token) bool {
	for _, class := range selectorClasses(sel) {
		if _, ok := pg.used[class]; !ok {
			return false
		}
	}
	return true
}

func isGroupRule(name string) bool {
	name = strings.ToLower(name)
	// @-moz-document and friends
	if strings.HasPrefix(name, "@-") {
		if i := strings.IndexByte(name[2:], '-'); i >= 0 {
			name = "@" + name[i+3:]
		}
	}
	for _, g := range groupRules {
		if name == g {
			return true
		}
	}
	return false
}

// splitSelectors splits a selector list on its top-level commas.
func splitSelectors(tokens []css.Token) [][]css.Token {
	var parts [][]css.Token
	depth, start := 0, 0
	for i, t := range tokens {
		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.CommaToken:
			if depth == 0 {
				parts = append(parts, tokens[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, tokens[start:])
}

// selectorClasses returns the unescaped class names that appear outside
// parentheses and attribute selectors.
func selectorClasses(sel []css.Token) []string {
	var classes []string
	depth := 0
	for i, t := range sel {
		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.DelimToken:
			if depth != 0 || string(t.Data) != "." || i+1 >= len(sel) {
				continue
			}
			next := sel[i+1]
			if next.TokenType == css.IdentToken || next.TokenType == css.CustomPropertyNameToken {
				classes = append(classes, unescapeIdent(string(next.Data)))
			}
		}
	}
	return classes
}

func tokenText(tokens []css.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.Write(t.Data)
	}
	return b.String()
}

// unescapeIdent decodes the escapes of a CSS identifier.
func unescapeIdent(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '\\' && i+1 < len(s) {
			r, n := decodeEscape(s[i+1:])
			b.WriteRune(r)
			i += 1 + n
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// decodeEscape decodes the text after a backslash: up to six hex digits and
// one optional whitespace, or a single literal character.
func decodeEscape(s string) (rune, int) {
	n := 0
	for n < len(s) && n < 6 && isHex(s[n]) {
		n++
	}
	if n == 0 {
		r, size := utf8.DecodeRuneInString(s)
		return r, size
	}
	v, err := strconv.ParseUint(s[:n], 16, 32)
	if err != nil || v == 0 || v > utf8.MaxRune {
		v = utf8.RuneError
	}
	if n < len(s) && parse.IsWhitespace(s[n]) {
		n++
	}
	return rune(v), n
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
