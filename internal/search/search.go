// Package search implements the console's client-side search helpers: fuzzy
// ranking for quick pickers and an accent-insensitive regex builder for list
// filters.
package search

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/sahilm/fuzzy"
)

// ErrEmptyQuery is returned by BuildPattern for blank input.
var ErrEmptyQuery = errors.New("search: empty query")

// Match is one fuzzy hit.
type Match[T any] struct {
	Item           T     `json:"item"`
	Score          int   `json:"score"`
	MatchedIndexes []int `json:"matched_indexes,omitempty"`
}

// source implements fuzzy.Source over arbitrary items.
type source[T any] struct {
	items []T
	text  func(T) string
}

func (s source[T]) String(i int) string { return s.text(s.items[i]) }
func (s source[T]) Len() int            { return len(s.items) }

// Find ranks items against query, best match first. An empty query returns
// every item in input order.
func Find[T any](query string, items []T, text func(T) string) []Match[T] {
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]Match[T], len(items))
		for i, it := range items {
			out[i] = Match[T]{Item: it}
		}
		return out
	}
	matches := fuzzy.FindFrom(query, source[T]{items: items, text: text})
	out := make([]Match[T], 0, len(matches))
	for _, m := range matches {
		out = append(out, Match[T]{Item: items[m.Index], Score: m.Score, MatchedIndexes: m.MatchedIndexes})
	}
	return out
}

var accentClasses = map[rune]string{
	'a': "[aáàâãä]",
	'e': "[eéèêë]",
	'i': "[iíìîï]",
	'o': "[oóòôõö]",
	'u': "[uúùûü]",
	'c': "[cç]",
	'n': "[nñ]",
}

var baseLetter = map[rune]rune{
	'á': 'a', 'à': 'a', 'â': 'a', 'ã': 'a', 'ä': 'a',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e',
	'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i',
	'ó': 'o', 'ò': 'o', 'ô': 'o', 'õ': 'o', 'ö': 'o',
	'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u',
	'ç': 'c', 'ñ': 'n',
}

// BuildPattern compiles query into a case- and accent-insensitive regexp.
// Whitespace-separated terms must appear in order; metacharacters are literal.
func BuildPattern(query string) (*regexp.Regexp, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}
	parts := make([]string, len(terms))
	for i, term := range terms {
		var b strings.Builder
		for _, r := range term {
			r = unicode.ToLower(r)
			if base, ok := baseLetter[r]; ok {
				r = base
			}
			if class, ok := accentClasses[r]; ok {
				b.WriteString(class)
				continue
			}
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
		parts[i] = b.String()
	}
	return regexp.Compile("(?i)" + strings.Join(parts, ".*"))
}

// Filter keeps the items whose text matches query's pattern. A blank query
// keeps everything.
func Filter[T any](query string, items []T, text func(T) string) ([]T, error) {
	re, err := BuildPattern(query)
	if errors.Is(err, ErrEmptyQuery) {
		return items, nil
	}
	if err != nil {
		return nil, err
	}
	var out []T
	for _, it := range items {
		if re.MatchString(text(it)) {
			out = append(out, it)
		}
	}
	return out, nil
}
