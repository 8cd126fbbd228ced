package search

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localfinderx/localfinderx/internal/tokenize"
)

type fakeEmbedder struct {
	available bool
	vec       []float32
	err       error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) { return f.vec, f.err }
func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, f.err
}
func (f *fakeEmbedder) Dimensions() int                      { return len(f.vec) }
func (f *fakeEmbedder) ModelName() string                    { return "fake" }
func (f *fakeEmbedder) Available(_ context.Context) bool     { return f.available }
func (f *fakeEmbedder) Close() error                         { return nil }

func newTestTokenizer() *tokenize.Tokenizer {
	return tokenize.New(tokenize.NewFallbackAnalyzer())
}

func TestQueryProcessor_EmptyQueryRefused(t *testing.T) {
	p := NewQueryProcessor(nil, newTestTokenizer())

	_, err := p.Process(context.Background(), "   ")

	require.Error(t, err)
}

func TestQueryProcessor_TruncatesOverlongQuery(t *testing.T) {
	p := NewQueryProcessor(nil, newTestTokenizer())

	raw := strings.Repeat("a", MaxQueryRunes+1)
	pq, err := p.Process(context.Background(), raw)

	require.NoError(t, err)
	assert.Len(t, []rune(pq.Text), MaxQueryRunes)
}

func TestQueryProcessor_NoEmbedder_DegradesGracefully(t *testing.T) {
	p := NewQueryProcessor(nil, newTestTokenizer())

	pq, err := p.Process(context.Background(), "budget review")

	require.NoError(t, err)
	assert.Nil(t, pq.Embedding)
	assert.NotEmpty(t, pq.Tokens)
}

func TestQueryProcessor_UnavailableEmbedder_DegradesGracefully(t *testing.T) {
	p := NewQueryProcessor(&fakeEmbedder{available: false}, newTestTokenizer())

	pq, err := p.Process(context.Background(), "budget review")

	require.NoError(t, err)
	assert.Nil(t, pq.Embedding)
}

func TestQueryProcessor_EmbedFailure_DegradesGracefully(t *testing.T) {
	p := NewQueryProcessor(&fakeEmbedder{available: true, err: assert.AnError}, newTestTokenizer())

	pq, err := p.Process(context.Background(), "budget review")

	require.NoError(t, err)
	assert.Nil(t, pq.Embedding)
}

func TestQueryProcessor_SuccessfulEmbed(t *testing.T) {
	want := []float32{0.1, 0.2, 0.3}
	p := NewQueryProcessor(&fakeEmbedder{available: true, vec: want}, newTestTokenizer())

	pq, err := p.Process(context.Background(), "budget review")

	require.NoError(t, err)
	assert.Equal(t, want, pq.Embedding)
}
