package lesson

import (
	"regexp"
	"strings"
)

const minTermLength = 5

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}-]+`)

type VocabItem struct {
	Term    string `json:"term"`
	Gloss   string `json:"gloss"`
	Example string `json:"example"`
	Level   string `json:"level"`
}

// ExtractVocab picks up to limit unique lowercased words of at least
// five characters, in order of first appearance. Deliberately naive:
// frequency lists and lemmatization are a later concern.
func ExtractVocab(text string, limit int) []VocabItem {
	if limit <= 0 {
		limit = 20
	}

	seen := make(map[string]struct{})
	var items []VocabItem
	for _, w := range wordPattern.FindAllString(text, -1) {
		lw := strings.ToLower(w)
		if len([]rune(lw)) < minTermLength {
			continue
		}
		if _, ok := seen[lw]; ok {
			continue
		}
		seen[lw] = struct{}{}

		items = append(items, VocabItem{
			Term:    lw,
			Gloss:   "",
			Example: "... " + lw + " ...",
			Level:   "A2-B1",
		})
		if len(items) >= limit {
			break
		}
	}
	return items
}
