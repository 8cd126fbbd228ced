package tokenize

import "strings"

// englishStopWords is a small, fixed list of high-frequency English
// function words excluded from lexical tokens, built once as a
// package-level map rather than threaded through every call site.
var englishStopWords = buildStopWordMap([]string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
	"has", "he", "in", "is", "it", "its", "of", "on", "that", "the",
	"to", "was", "were", "will", "with", "this", "these", "those",
	"but", "or", "not", "so", "if", "than", "then",
})

func buildStopWordMap(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}

// filterStopWords drops tokens that appear in englishStopWords. Korean
// tokens pass through untouched — stop-word filtering only applies to the
// Latin-script path.
func filterStopWords(tokens []string) []string {
	result := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, isStop := englishStopWords[t]; !isStop {
			result = append(result, t)
		}
	}
	return result
}
