package search

import (
	"strings"
	"unicode/utf8"
)

// minSuggestLen is the shortest input that produces suggestions.
const minSuggestLen = 2

// Suggest returns the history entries that start with text, ignoring case,
// in history order. Inputs shorter than two characters match nothing.
func Suggest(history []string, text string) []string {
	if utf8.RuneCountInString(text) < minSuggestLen {
		return []string{}
	}
	out := []string{}
	for _, h := range history {
		if hasPrefixFold(h, text) {
			out = append(out, h)
		}
	}
	return out
}

func hasPrefixFold(s, prefix string) bool {
	sr, pr := []rune(s), []rune(prefix)
	if len(pr) > len(sr) {
		return false
	}
	return strings.EqualFold(string(sr[:len(pr)]), prefix)
}

// panel derives the suggestion panel for one field.
func panel(history []string, text string, dismissed bool) Suggestions {
	items := Suggest(history, text)
	return Suggestions{
		Items:   items,
		Visible: len(items) > 0 && !dismissed,
	}
}
