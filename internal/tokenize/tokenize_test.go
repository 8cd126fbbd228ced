package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_LowercasesAndFiltersShortTokens(t *testing.T) {
	tok := New(NewFallbackAnalyzer())
	got := tok.Tokenize("Quarterly Report Q3 a I")
	assert.Equal(t, []string{"quarterly", "report", "q3"}, got)
}

func TestTokenize_RemovesStopWords(t *testing.T) {
	tok := New(NewFallbackAnalyzer())
	got := tok.Tokenize("the budget for the project")
	assert.NotContains(t, got, "the")
	assert.NotContains(t, got, "for")
	assert.Contains(t, got, "budget")
	assert.Contains(t, got, "project")
}

func TestTokenize_EmptyInputReturnsEmptySlice(t *testing.T) {
	tok := New(NewFallbackAnalyzer())
	assert.Empty(t, tok.Tokenize(""))
	assert.Empty(t, tok.Tokenize("   "))
}

func TestTokenize_RoutesHangulToKoreanAnalyzer(t *testing.T) {
	tok := New(NewFallbackAnalyzer())
	got := tok.Tokenize("분기 보고서")
	assert.Equal(t, []string{"분기", "보고서"}, got)
}

func TestTokenize_MixedScriptSplitsBothRuns(t *testing.T) {
	tok := New(NewFallbackAnalyzer())
	got := tok.Tokenize("project 프로젝트 status")
	assert.Contains(t, got, "project")
	assert.Contains(t, got, "프로젝트")
	assert.Contains(t, got, "status")
}

type stubKoreanAnalyzer struct {
	called bool
}

func (s *stubKoreanAnalyzer) Analyze(text string) []string {
	s.called = true
	return []string{"stubbed"}
}

func (s *stubKoreanAnalyzer) Available() bool { return true }

func TestTokenize_UsesProvidedKoreanAnalyzer(t *testing.T) {
	stub := &stubKoreanAnalyzer{}
	tok := New(stub)
	got := tok.Tokenize("한글")
	assert.True(t, stub.called)
	assert.Equal(t, []string{"stubbed"}, got)
}

func TestFallbackAnalyzer_NotAvailable(t *testing.T) {
	assert.False(t, NewFallbackAnalyzer().Available())
}
