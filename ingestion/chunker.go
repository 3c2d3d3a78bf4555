package ingestion

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// Chunk is a bounded text window from one source document. Immutable once
// created; the Source tag is the unit of citation.
type Chunk struct {
	Source string
	Index  int
	Text   string
}

// SplitDocuments splits each document into character-offset windows of at
// most size runes with overlap runes shared between neighbours. The
// overlap keeps context alive across chunk seams for retrieval recall.
func SplitDocuments(documents []SourceDocument, size, overlap int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 10
		}
	}

	chunks := make([]Chunk, 0)
	for _, doc := range documents {
		for i, text := range splitText(doc.Content, size, overlap) {
			chunks = append(chunks, Chunk{
				Source: doc.Source,
				Index:  i,
				Text:   text,
			})
		}
	}
	return chunks
}

func splitText(content string, size, overlap int) []string {
	runes := []rune(content)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{content}
	}

	step := size - overlap
	windows := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return windows
}
