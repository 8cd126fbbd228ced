// Package tokenize implements the tokenizer: Korean morphological
// analysis with POS-class filtering, English/Latin lowercasing, and
// safe degradation when the Korean analyzer is unavailable. The
// Latin-script splitting rules are adapted from code-identifier
// splitting to plain-language tokenization, since this engine indexes
// office documents rather than source.
package tokenize

import (
	"regexp"
	"strings"
	"unicode"
)

// latinRun matches a run of ASCII letters/digits — the non-Korean half of
// a mixed-script document.
var latinRun = regexp.MustCompile(`[a-zA-Z0-9]+`)

// Tokenizer produces query tokens and chunk tokens. Korean is
// delegated to a KoreanAnalyzer, which may be the native morphological
// analyzer or the whitespace fallback — the caller never needs to know
// which, beyond what gets recorded in settings.Capabilities.
type Tokenizer struct {
	korean KoreanAnalyzer
}

// New builds a Tokenizer using analyzer for Hangul text. Pass
// NewFallbackAnalyzer() when the native analyzer isn't available on this
// host; Tokenize behaves identically either way, only POS-filtering
// quality differs.
func New(analyzer KoreanAnalyzer) *Tokenizer {
	if analyzer == nil {
		analyzer = NewFallbackAnalyzer()
	}
	return &Tokenizer{korean: analyzer}
}

// Tokenize splits text into lowercased tokens. Runs of Hangul characters
// are sent to the Korean analyzer; everything else is split on
// non-alphanumeric boundaries and kept if length >= 2. An empty result is
// valid by design — callers decide how to treat it, this function never
// errors.
func (t *Tokenizer) Tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	var tokens []string
	var hangulRun strings.Builder

	flushHangul := func() {
		if hangulRun.Len() == 0 {
			return
		}
		tokens = append(tokens, t.korean.Analyze(hangulRun.String())...)
		hangulRun.Reset()
	}

	var latinRunBuf strings.Builder
	flushLatin := func() {
		if latinRunBuf.Len() == 0 {
			return
		}
		for _, word := range latinRun.FindAllString(latinRunBuf.String(), -1) {
			lower := strings.ToLower(word)
			if len(lower) >= 2 {
				tokens = append(tokens, lower)
			}
		}
		latinRunBuf.Reset()
	}

	for _, r := range text {
		switch {
		case isHangul(r):
			flushLatin()
			hangulRun.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushHangul()
			latinRunBuf.WriteRune(r)
		default:
			flushHangul()
			flushLatin()
		}
	}
	flushHangul()
	flushLatin()

	return filterStopWords(tokens)
}

// isHangul reports whether r falls in the Hangul Syllables or Hangul Jamo
// Unicode blocks.
func isHangul(r rune) bool {
	return unicode.Is(unicode.Hangul, r)
}
