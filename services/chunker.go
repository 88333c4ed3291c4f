package services

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/Etheryii/Ai-Assistant-New/models"
)

// Chunker splits documents into overlapping chunks. It uses recursive
// character splitting so chunk boundaries prefer paragraph and sentence
// breaks, falling back to hard cuts for text without separators. Chunking
// is deterministic: the same document and configuration always produce the
// same chunk sequence.
type Chunker struct {
	size     int
	overlap  int
	splitter textsplitter.RecursiveCharacter
}

// NewChunker creates a Chunker with the given chunk size and overlap,
// measured in characters.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 200
	}
	return &Chunker{
		size:    size,
		overlap: overlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", ".", " ", ""}),
		),
	}
}

// ChunkDocument splits one document into chunks carrying their sequence
// index and the source label for later citation.
func (c *Chunker) ChunkDocument(doc models.Document) ([]models.Chunk, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, nil
	}

	parts, err := c.splitter.SplitText(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("splitting document %s: %w", doc.Name, err)
	}

	chunks := make([]models.Chunk, 0, len(parts))
	for i, text := range parts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			ID:         fmt.Sprintf("%s-chunk%d", doc.ID, i),
			DocumentID: doc.ID,
			Source:     doc.Name,
			Text:       text,
			Index:      i,
		})
	}
	return chunks, nil
}
