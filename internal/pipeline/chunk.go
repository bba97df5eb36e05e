package pipeline

import "strings"

// ChunkText splits words into overlapping chunks of at most n words, each
// subsequent chunk starting overlap words before the previous one ended
// (spec.md section 4.D, section 8 law: concatenating chunks minus overlaps
// reconstructs the original word sequence).
func ChunkText(text string, n, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if n <= 0 {
		n = len(words)
	}
	if overlap < 0 || overlap >= n {
		overlap = 0
	}

	var chunks []string
	start := 0
	for start < len(words) {
		end := start + n
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
		start = end - overlap
	}
	return chunks
}
