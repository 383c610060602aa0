// Package citation finds legal citations and shields them from
// compression by swapping them for opaque placeholder tokens.
package citation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Patterns lists the recognised citation forms in scan order. A
// placeholder's first index refers to a position in this list.
var Patterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+\s+U\.S\.\s+\d+`),               // U.S. Reports
	regexp.MustCompile(`\d+\s+S\.\s*Ct\.\s+\d+`),           // Supreme Court Reporter
	regexp.MustCompile(`\d+\s+F\.\d+d\s+\d+`),              // Federal Reporter
	regexp.MustCompile(`\d+\s+F\.\s*Supp\.\s*\d*d?\s+\d+`), // Federal Supplement
	regexp.MustCompile(`[A-Z][a-z]+\s+v\.\s+[A-Z][a-z]+`),  // case names
	regexp.MustCompile(`\d+\s+U\.S\.C\.\s+§\s*\d+`),        // U.S. Code
	regexp.MustCompile(`\d+\s+C\.F\.R\.\s+§\s*\d+`),        // Code of Federal Regulations
}

// Replacement is one protected occurrence: the byte span it covered in
// the original text and the placeholder standing in for it.
type Replacement struct {
	Start, End  int
	Placeholder string
	Citation    string
}

// PlaceholderMap maps placeholder tokens to the citations they replaced.
type PlaceholderMap map[string]string

// Protected is the result of Protect.
type Protected struct {
	Text         string
	Replacements []Replacement
}

// Map returns the placeholder-to-citation mapping for Restore.
func (p Protected) Map() PlaceholderMap {
	m := make(PlaceholderMap, len(p.Replacements))
	for _, r := range p.Replacements {
		m[r.Placeholder] = r.Citation
	}
	return m
}

const placeholderPrefix = "__CITATION_"

// Placeholder returns the token used for the j-th match of pattern i in
// text that does not already contain the placeholder prefix.
func Placeholder(i, j int) string {
	return placeholderPrefix + fmt.Sprintf("%d_%d__", i, j)
}

// prefixFor returns a placeholder prefix that does not occur in text, so
// placeholder-shaped literals in the input survive Restore untouched.
func prefixFor(text string) string {
	prefix := placeholderPrefix
	for k := 1; strings.Contains(text, prefix); k++ {
		prefix = fmt.Sprintf("__CITATION%d_", k)
	}
	return prefix
}

// Protect replaces every citation occurrence with a unique placeholder.
// Patterns are scanned in order; a match overlapping a span already
// claimed by an earlier pattern is skipped. Each occurrence is replaced
// individually, so a citation repeated verbatim gets one placeholder per
// occurrence.
func Protect(text string) Protected {
	prefix := prefixFor(text)
	var claimed []Replacement
	for i, re := range Patterns {
		j := 0
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if overlaps(claimed, loc[0], loc[1]) {
				continue
			}
			claimed = append(claimed, Replacement{
				Start:       loc[0],
				End:         loc[1],
				Placeholder: prefix + fmt.Sprintf("%d_%d__", i, j),
				Citation:    text[loc[0]:loc[1]],
			})
			j++
		}
	}
	if len(claimed) == 0 {
		return Protected{Text: text}
	}

	ordered := make([]Replacement, len(claimed))
	copy(ordered, claimed)
	sort.Slice(ordered, func(a, b int) bool { return ordered[a].Start < ordered[b].Start })

	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	for _, r := range ordered {
		b.WriteString(text[prev:r.Start])
		b.WriteString(r.Placeholder)
		prev = r.End
	}
	b.WriteString(text[prev:])

	return Protected{Text: b.String(), Replacements: claimed}
}

// Restore substitutes every placeholder in text with its citation.
func Restore(text string, m PlaceholderMap) string {
	if len(m) == 0 {
		return text
	}
	pairs := make([]string, 0, 2*len(m))
	for placeholder, cite := range m {
		pairs = append(pairs, placeholder, cite)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Extract returns the distinct citations found by any pattern, sorted.
func Extract(text string) []string {
	seen := make(map[string]struct{})
	for _, re := range Patterns {
		for _, m := range re.FindAllString(text, -1) {
			seen[m] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func overlaps(claimed []Replacement, start, end int) bool {
	for _, r := range claimed {
		if start < r.End && r.Start < end {
			return true
		}
	}
	return false
}
