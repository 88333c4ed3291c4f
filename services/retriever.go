package services

import (
	"context"

	"github.com/Etheryii/Ai-Assistant-New/models"
)

// Retriever embeds a query and searches the current index snapshot for the
// most relevant chunks.
type Retriever struct {
	embedder Embedder
	holder   *IndexHolder
	topK     int
}

// NewRetriever creates a retriever returning at most topK chunks per query.
func NewRetriever(embedder Embedder, holder *IndexHolder, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{embedder: embedder, holder: holder, topK: topK}
}

// Retrieve returns the top-K chunks for the query, ordered by descending
// similarity. An empty index yields an empty result without calling the
// embedder; an embedding failure surfaces as EmbeddingError.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.RetrievedChunk, error) {
	index := r.holder.Snapshot()
	if index == nil || index.Len() == 0 {
		return nil, nil
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		if _, ok := KindOf(err); ok {
			return nil, err
		}
		return nil, NewEmbeddingError("failed to embed query", err)
	}

	return index.Search(ctx, vector, r.topK)
}
