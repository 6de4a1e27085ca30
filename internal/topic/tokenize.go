package topic

import (
	_ "embed"
	"regexp"
	"strings"
	"sync"
)

//go:embed stopwords_en.txt
var stopWordsEN string

// tokenPattern matches runs of two or more letters, digits or underscores.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

var englishStopWords = sync.OnceValue(func() map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(stopWordsEN) {
		words[w] = struct{}{}
	}
	return words
})

// IsStopWord reports whether w is an English stop word.
func IsStopWord(w string) bool {
	_, ok := englishStopWords()[strings.ToLower(w)]
	return ok
}

// Tokenize lowercases s and splits it into word tokens.
func Tokenize(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}
