package retrieval

import "strings"

// DefaultChunkSize is the target chunk size used when none is configured.
const DefaultChunkSize = 1000

// Chunk splits fullText into word windows. Both the window length and the step
// are targetChunkSize/5 words, so consecutive windows do not overlap.
func Chunk(fullText string, targetChunkSize int) []string {
	words := strings.Fields(fullText)
	if len(words) == 0 {
		return []string{}
	}

	stride := Stride(targetChunkSize)
	chunks := make([]string, 0, (len(words)+stride-1)/stride)
	for i := 0; i < len(words); i += stride {
		end := min(i+stride, len(words))
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

// Stride returns the window length in words for targetChunkSize, never less than one.
func Stride(targetChunkSize int) int {
	return max(targetChunkSize/5, 1)
}
