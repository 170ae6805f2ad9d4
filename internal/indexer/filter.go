package indexer

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// PathFilter decides whether a path is hidden from the crawl, typically by
// version control ignore rules.
type PathFilter interface {
	IsIgnored(path string) bool
}

// NoFilter ignores nothing.
type NoFilter struct{}

func (NoFilter) IsIgnored(string) bool { return false }

// FilterFunc adapts a function to PathFilter.
type FilterFunc func(path string) bool

func (f FilterFunc) IsIgnored(path string) bool { return f(path) }

// Pattern is a shell-style wildcard. '*' matches any run of characters
// including the path separator, '?' matches one character, and [seq] /
// [!seq] match a character set.
type Pattern struct {
	raw string
	re  *regexp.Regexp
}

// CompilePattern translates a wildcard into a regular expression.
func CompilePattern(p string) (Pattern, error) {
	re, err := regexp.Compile(translateWildcard(p))
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid pattern %q: %w", p, err)
	}
	return Pattern{raw: p, re: re}, nil
}

func (p Pattern) String() string { return p.raw }

// Match reports whether the pattern matches the whole of s.
func (p Pattern) Match(s string) bool {
	return p.re.MatchString(s)
}

func translateWildcard(pat string) string {
	var sb strings.Builder
	sb.WriteString(`(?s)^`)
	runes := []rune(pat)
	for i := 0; i < len(runes); i++ {
		switch c := runes[i]; c {
		case '*':
			for i+1 < len(runes) && runes[i+1] == '*' {
				i++
			}
			sb.WriteString(`.*`)
		case '?':
			sb.WriteString(`.`)
		case '[':
			j := i + 1
			if j < len(runes) && runes[j] == '!' {
				j++
			}
			if j < len(runes) && runes[j] == ']' {
				j++
			}
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j >= len(runes) {
				sb.WriteString(`\[`)
				continue
			}
			set := string(runes[i+1 : j])
			set = strings.ReplaceAll(set, `\`, `\\`)
			if strings.HasPrefix(set, "!") {
				set = "^" + set[1:]
			} else if strings.HasPrefix(set, "^") {
				set = `\` + set
			}
			sb.WriteString("[" + set + "]")
			i = j
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteString(`$`)
	return sb.String()
}

// Patterns is a set of wildcards matched against a path and its base name.
type Patterns []Pattern

// CompilePatterns compiles every wildcard in ps.
func CompilePatterns(ps []string) (Patterns, error) {
	out := make(Patterns, 0, len(ps))
	for _, p := range ps {
		if strings.TrimSpace(p) == "" {
			continue
		}
		c, err := CompilePattern(p)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// MatchAny reports whether any pattern matches path or its base name.
func (ps Patterns) MatchAny(path string) bool {
	base := filepath.Base(path)
	slashed := filepath.ToSlash(path)
	for _, p := range ps {
		if p.Match(path) || p.Match(slashed) || p.Match(base) {
			return true
		}
	}
	return false
}
