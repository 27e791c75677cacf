package retrieval

import (
	"sort"
	"strings"

	"docqa/types"
)

// DefaultTopK is the number of chunks forwarded to the synthesizer.
const DefaultTopK = 3

// Score counts the query words that occur inside chunk. Matching is a
// case-insensitive substring test, so "cat" matches "category".
func Score(chunk string, queryWords []string) int {
	chunkLower := strings.ToLower(chunk)
	score := 0
	for _, word := range queryWords {
		if strings.Contains(chunkLower, word) {
			score++
		}
	}
	return score
}

// QueryWords lower-cases the query and splits it on whitespace. Duplicates are kept.
func QueryWords(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// RankScored returns up to topK chunks with a non-zero score, best first.
// Equal scores keep their original order.
func RankScored(chunks []string, query string, topK int) []types.ScoredChunk {
	queryWords := QueryWords(query)

	relevant := make([]types.ScoredChunk, 0, len(chunks))
	for i, chunk := range chunks {
		score := Score(chunk, queryWords)
		if score > 0 {
			relevant = append(relevant, types.ScoredChunk{Index: i, Content: chunk, Score: score})
		}
	}

	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].Score > relevant[j].Score
	})

	if topK < 0 {
		topK = 0
	}
	if len(relevant) > topK {
		relevant = relevant[:topK]
	}
	return relevant
}

// Rank is RankScored without the scores.
func Rank(chunks []string, query string, topK int) []string {
	scored := RankScored(chunks, query, topK)
	out := make([]string, len(scored))
	for i, c := range scored {
		out[i] = c.Content
	}
	return out
}

// Context joins the selected chunks with a blank line.
func Context(chunks []string) string {
	return strings.Join(chunks, "\n\n")
}
