package adapter

import (
	"strings"
	"unicode"
)

// SplitOptions selects the lexical rules of one SQL dialect.
type SplitOptions struct {
	// BackslashEscapes makes '\' escape the next character in every quoted
	// string (MySQL). When false, only E'...' strings honour it (PostgreSQL
	// with standard_conforming_strings on).
	BackslashEscapes bool

	// DollarQuotes enables $tag$...$tag$ bodies.
	DollarQuotes bool
}

// SplitStatements splits a SQL script on ';' boundaries. Semicolons inside
// quoted strings, quoted identifiers, dollar-quoted bodies and comments do
// not split. Comments are dropped and blank statements are skipped.
func SplitStatements(script string, opts SplitOptions) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	r := []rune(script)
	for i := 0; i < len(r); i++ {
		c := r[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			escapes := c != '`' && (opts.BackslashEscapes || (c == '\'' && escapeStringPrefix(r, i)))
			end := scanQuoted(r, i, c, escapes)
			cur.WriteString(string(r[i:end]))
			i = end - 1
		case c == '-' && i+1 < len(r) && r[i+1] == '-':
			for i < len(r) && r[i] != '\n' {
				i++
			}
			cur.WriteRune('\n')
		case c == '/' && i+1 < len(r) && r[i+1] == '*':
			i += 2
			for i+1 < len(r) && !(r[i] == '*' && r[i+1] == '/') {
				i++
			}
			i++
			cur.WriteRune(' ')
		case c == '$' && opts.DollarQuotes:
			if tag, ok := dollarTag(r, i); ok {
				end := scanDollar(r, i, tag)
				cur.WriteString(string(r[i:end]))
				i = end - 1
			} else {
				cur.WriteRune(c)
			}
		case c == ';':
			flush()
		default:
			cur.WriteRune(c)
		}
	}
	flush()
	return out
}

// escapeStringPrefix reports whether the quote at r[quote] opens an E'...'
// string: it follows a lone E or e that is not the tail of an identifier.
func escapeStringPrefix(r []rune, quote int) bool {
	if quote < 1 || (r[quote-1] != 'E' && r[quote-1] != 'e') {
		return false
	}
	return quote < 2 || !isIdentRune(r[quote-2])
}

// scanQuoted returns the index just past the closing quote that matches
// r[start]. Doubled quotes stay inside the literal, and so do
// backslash-escaped characters when escapes is set.
func scanQuoted(r []rune, start int, q rune, escapes bool) int {
	for i := start + 1; i < len(r); i++ {
		switch r[i] {
		case '\\':
			if escapes {
				i++
			}
		case q:
			if i+1 < len(r) && r[i+1] == q {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(r)
}

func dollarTag(r []rune, start int) (string, bool) {
	for i := start + 1; i < len(r); i++ {
		if r[i] == '$' {
			return string(r[start : i+1]), true
		}
		if !(unicode.IsLetter(r[i]) || unicode.IsDigit(r[i]) || r[i] == '_') {
			return "", false
		}
		if i == start+1 && unicode.IsDigit(r[i]) {
			// $1 placeholders are not dollar quotes
			return "", false
		}
	}
	return "", false
}

func scanDollar(r []rune, start int, tag string) int {
	body := string(r[start+len([]rune(tag)):])
	idx := strings.Index(body, tag)
	if idx < 0 {
		return len(r)
	}
	return start + len([]rune(tag)) + len([]rune(body[:idx])) + len([]rune(tag))
}

// FirstKeyword returns the upper-cased first word of a statement, skipping
// leading whitespace and opening parentheses.
func FirstKeyword(statement string) string {
	s := strings.TrimLeftFunc(statement, func(r rune) bool {
		return unicode.IsSpace(r) || r == '('
	})
	end := strings.IndexFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || r == '_')
	})
	if end < 0 {
		end = len(s)
	}
	return strings.ToUpper(s[:end])
}

var rowKeywords = map[string]bool{
	"SELECT":   true,
	"SHOW":     true,
	"DESCRIBE": true,
	"DESC":     true,
	"EXPLAIN":  true,
	"WITH":     true,
	"VALUES":   true,
	"TABLE":    true,
	"CALL":     true,
}

// IsRowProducing reports whether a statement returns a result set rather
// than an affected-rows count.
func IsRowProducing(statement string) bool {
	if rowKeywords[FirstKeyword(statement)] {
		return true
	}
	return containsWord(strings.ToUpper(statement), "RETURNING")
}

func containsWord(s, word string) bool {
	for idx := strings.Index(s, word); idx >= 0; {
		before := idx == 0 || !isIdentRune(rune(s[idx-1]))
		after := idx+len(word) >= len(s) || !isIdentRune(rune(s[idx+len(word)]))
		if before && after {
			return true
		}
		next := strings.Index(s[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += next + 1
	}
	return false
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// ParseUse recognizes `USE name` and returns the unquoted name.
func ParseUse(statement string) (string, bool) {
	if FirstKeyword(statement) != "USE" {
		return "", false
	}
	rest := strings.TrimSpace(strings.TrimSpace(statement)[3:])
	if rest == "" || (strings.ContainsAny(rest, " \t\n") && !strings.ContainsAny(rest[:1], "`\"[")) {
		return "", false
	}
	return UnquoteIdentifier(rest), true
}

// UnquoteIdentifier strips one level of backtick, double-quote or bracket quoting.
func UnquoteIdentifier(name string) string {
	name = strings.TrimSpace(name)
	if len(name) >= 2 {
		first, last := name[0], name[len(name)-1]
		switch {
		case first == '`' && last == '`':
			return strings.ReplaceAll(name[1:len(name)-1], "``", "`")
		case first == '"' && last == '"':
			return strings.ReplaceAll(name[1:len(name)-1], `""`, `"`)
		case first == '\'' && last == '\'':
			return strings.ReplaceAll(name[1:len(name)-1], `''`, `'`)
		case first == '[' && last == ']':
			return name[1 : len(name)-1]
		}
	}
	return name
}
