package tokenize

import (
	"strings"
	"unicode"

	"github.com/ebitengine/purego"
)

// posClass is one of the four part-of-speech classes that are kept:
// general noun, proper noun, foreign word, number.
type posClass string

const (
	posGeneralNoun posClass = "NNG"
	posProperNoun posClass = "NNP"
	posForeign posClass = "SL"
	posNumber posClass = "SN"
)

// KoreanAnalyzer extracts index tokens from a run of Hangul text. Analyze
// never returns an error: a host without the native library falls back to
// a weaker but always-available splitter, to honor the "never abort
// indexing" requirement.
type KoreanAnalyzer interface {
	Analyze(text string) []string
	// Available reports whether this analyzer is backed by the native
	// morphological library (true) or the whitespace fallback (false).
	Available() bool
}

// nativeHandle is the subset of a MeCab-compatible shared library this
// package calls through purego. The library is optional: most hosts won't
// have it installed, and that's fine.
type nativeHandle struct {
	lib uintptr
	tokens func(string) string
}

// nativeAnalyzer wraps a dynamically loaded morphological analyzer shared
// library, loaded via purego.Dlopen the same way cmd/purego-test loads
// libc/libSystem — no cgo, graceful absence.
type nativeAnalyzer struct {
	handle *nativeHandle
}

// candidateLibraryNames lists the shared library names this analyzer will
// try, in order, across platforms. None are bundled with this module;
// absence of all of them is the common case and simply means the
// fallback analyzer is used instead.
var candidateLibraryNames = []string{
	"libmecab.so.2",
	"libmecab.so",
	"libmecab.dylib",
}

// NewNativeAnalyzer attempts to load a MeCab-compatible shared library
// via purego. It returns (nil, false) rather than an error when no
// candidate library is present, since this capability is optional and
// its absence must not fail startup.
func NewNativeAnalyzer() (KoreanAnalyzer, bool) {
	for _, name := range candidateLibraryNames {
		lib, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			continue
		}

		var tokenize func(string) string
		purego.RegisterLibFunc(&tokenize, lib, "mecab_tokenize_utf8")

		return &nativeAnalyzer{handle: &nativeHandle{lib: lib, tokens: tokenize}}, true
	}
	return nil, false
}

// Analyze calls into the native library and keeps only tokens whose POS
// tag is one of NNG/NNP/SL/SN. The native library is expected to return
// "surface/TAG" pairs separated by spaces (MeCab's conventional output
// shape); anything it emits in a different shape is dropped defensively
// rather than causing a panic.
func (a *nativeAnalyzer) Analyze(text string) []string {
	raw := a.handle.tokens(text)
	var tokens []string
	for _, pair := range strings.Fields(raw) {
		surface, tag, ok := strings.Cut(pair, "/")
		if !ok {
			continue
		}
		switch posClass(tag) {
		case posGeneralNoun, posProperNoun, posForeign, posNumber:
			tokens = append(tokens, strings.ToLower(surface))
		}
	}
	return tokens
}

func (a *nativeAnalyzer) Available() bool { return true }

// fallbackAnalyzer splits Hangul text on whitespace only — no
// morphological boundaries, no POS filtering — used whenever the native
// library can't be loaded. It still produces usable (if coarser) tokens
// for lexical search.
type fallbackAnalyzer struct{}

// NewFallbackAnalyzer returns the always-available Korean tokenizer.
func NewFallbackAnalyzer() KoreanAnalyzer {
	return fallbackAnalyzer{}
}

func (fallbackAnalyzer) Analyze(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsSpace(r) {
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	return tokens
}

func (fallbackAnalyzer) Available() bool { return false }

// DetectKoreanAnalyzer probes for the native library once at startup and
// returns the analyzer to use plus whether it is the native one — the
// caller wires the bool into config.Capabilities.KoreanAnalyzerAvailable.
func DetectKoreanAnalyzer() (KoreanAnalyzer, bool) {
	if native, ok := NewNativeAnalyzer(); ok {
		return native, true
	}
	return NewFallbackAnalyzer(), false
}
