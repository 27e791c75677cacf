package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank_TiesKeepOriginalOrder(t *testing.T) {
	chunks := []string{"cat sat", "dog ran", "cat ran"}

	scored := RankScored(chunks, "cat", DefaultTopK)
	require.Len(t, scored, 2)
	assert.Equal(t, 0, scored[0].Index)
	assert.Equal(t, 2, scored[1].Index)
	assert.Equal(t, 1, scored[0].Score)
	assert.Equal(t, 1, scored[1].Score)

	assert.Equal(t, []string{"cat sat", "cat ran"}, Rank(chunks, "cat", DefaultTopK))
}

func TestRank_SortsByDescendingScore(t *testing.T) {
	chunks := []string{
		"the weather is nice",
		"the cat sat on the mat",
		"a cat and a dog on a mat",
		"nothing here",
	}
	got := RankScored(chunks, "cat mat dog", DefaultTopK)
	require.Len(t, got, 2)
	assert.Equal(t, "a cat and a dog on a mat", got[0].Content)
	assert.Equal(t, 3, got[0].Score)
	assert.Equal(t, "the cat sat on the mat", got[1].Content)
	assert.Equal(t, 2, got[1].Score)
}

func TestRank_TopKLimit(t *testing.T) {
	chunks := []string{"go one", "go two", "go three", "go four", "go five"}
	got := Rank(chunks, "go", DefaultTopK)
	assert.Equal(t, []string{"go one", "go two", "go three"}, got)

	assert.Len(t, Rank(chunks, "go", 10), 5)
	assert.Empty(t, Rank(chunks, "go", 0))
}

func TestRank_NoMatches(t *testing.T) {
	got := Rank([]string{"alpha", "beta"}, "gamma", DefaultTopK)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, Rank(nil, "anything", DefaultTopK))
	assert.Empty(t, Rank([]string{"alpha"}, "   ", DefaultTopK))
}

func TestScore_SubstringAndCaseInsensitive(t *testing.T) {
	assert.Equal(t, 1, Score("A Category of things", QueryWords("CAT")))
	assert.Equal(t, 0, Score("dog", QueryWords("cat")))
}

func TestScore_DuplicateQueryWords(t *testing.T) {
	// each occurrence in the query is tested once against the chunk
	assert.Equal(t, 2, Score("cat", QueryWords("cat cat")))
	assert.Equal(t, 1, Score("cat cat cat", QueryWords("cat")))
}

func TestScore_AnyMatchingWordScoresAtLeastOne(t *testing.T) {
	chunk := "Paris is the capital of France"
	for _, q := range []string{"paris", "where is paris?", "FRANCE", "capital city"} {
		assert.GreaterOrEqual(t, Score(chunk, QueryWords(q)), 1, q)
	}
}

func TestContext_JoinsWithBlankLine(t *testing.T) {
	assert.Equal(t, "a\n\nb", Context([]string{"a", "b"}))
	assert.Equal(t, "", Context(nil))
}
