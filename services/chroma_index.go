package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/Etheryii/Ai-Assistant-New/models"
)

// ChromaIndex implements VectorIndex on a Chroma collection, for deployments
// that want the knowledge base held in an external vector database instead
// of process memory. Each rebuild recreates the collection from scratch.
type ChromaIndex struct {
	collection chromago.Collection
	dimension  int
	count      int
	docCounts  map[string]int
}

// NewChromaIndex drops and recreates the named collection so the index
// starts empty, mirroring the fresh-snapshot semantics of MemoryIndex.
// Note: unlike MemoryIndex, the backing collection is shared state — a
// rebuild replaces data previous snapshots pointed at.
func NewChromaIndex(ctx context.Context, client chromago.Client, name string) (*ChromaIndex, error) {
	if err := client.DeleteCollection(ctx, name); err != nil {
		// First run: nothing to delete.
		log.Printf("CHROMA: no existing collection %q to reset: %v", name, err)
	}

	collection, err := client.GetOrCreateCollection(
		ctx,
		name,
		chromago.WithCollectionMetadataCreate(collectionMetadata()),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chroma collection %q: %w", name, err)
	}

	return &ChromaIndex{
		collection: collection,
		docCounts:  make(map[string]int),
	}, nil
}

// collectionMetadata configures the collection. hnsw:space must be cosine so
// query distances stay in [0, 2] and 1 - distance is a valid similarity;
// Chroma's default space is L2, whose distances are unbounded.
func collectionMetadata() chromago.CollectionMetadata {
	return chromago.NewMetadata(
		chromago.NewStringAttribute("hnsw:space", "cosine"),
		chromago.NewStringAttribute("description", "support assistant knowledge base"),
		chromago.NewStringAttribute("created_by", "indexing_service"),
	)
}

func (c *ChromaIndex) Insert(ctx context.Context, chunk models.Chunk, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("empty embedding vector for chunk %s", chunk.ID)
	}
	if c.dimension == 0 {
		c.dimension = len(vector)
	} else if len(vector) != c.dimension {
		return fmt.Errorf("vector dimension mismatch for chunk %s: got %d, want %d", chunk.ID, len(vector), c.dimension)
	}

	embedding := embeddings.NewEmbeddingFromFloat32(vector)
	metadata := chromago.NewDocumentMetadata(
		chromago.NewStringAttribute("source", chunk.Source),
		chromago.NewStringAttribute("document_id", chunk.DocumentID),
		chromago.NewIntAttribute("chunk_num", int64(chunk.Index)),
	)

	err := c.collection.Add(ctx,
		chromago.WithIDs(chromago.DocumentID(chunk.ID)),
		chromago.WithTexts(chunk.Text),
		chromago.WithEmbeddings(embedding),
		chromago.WithMetadatas(metadata),
	)
	if err != nil {
		return fmt.Errorf("adding chunk %s to chroma: %w", chunk.ID, err)
	}

	c.count++
	c.docCounts[chunk.Source]++
	return nil
}

func (c *ChromaIndex) Search(ctx context.Context, vector []float32, k int) ([]models.RetrievedChunk, error) {
	if c.count == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = 5
	}
	if k > c.count {
		k = c.count
	}

	embedding := embeddings.NewEmbeddingFromFloat32(vector)
	results, err := c.collection.Query(ctx,
		chromago.WithQueryEmbeddings(embedding),
		chromago.WithNResults(k),
	)
	if err != nil {
		return nil, fmt.Errorf("querying chroma: %w", err)
	}

	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(documentGroups) == 0 {
		return nil, nil
	}

	retrieved := make([]models.RetrievedChunk, 0, len(documentGroups[0]))
	for i, doc := range documentGroups[0] {
		if doc.ContentString() == "" {
			continue
		}

		chunk := models.Chunk{Text: doc.ContentString()}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) && metadataGroups[0][i] != nil {
			// DocumentMetadata has no map accessor; round-trip through JSON.
			if jsonBytes, err := json.Marshal(metadataGroups[0][i]); err == nil {
				var metaMap map[string]interface{}
				if err := json.Unmarshal(jsonBytes, &metaMap); err == nil {
					if source, ok := metaMap["source"].(string); ok {
						chunk.Source = source
					}
					if docID, ok := metaMap["document_id"].(string); ok {
						chunk.DocumentID = docID
					}
					if num, ok := metaMap["chunk_num"].(float64); ok {
						chunk.Index = int(num)
					}
				}
			}
		}

		// The collection is created with cosine space, so distance is
		// 1 - cosine similarity; invert it back.
		score := 0.0
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			score = 1 - float64(distanceGroups[0][i])
		}

		retrieved = append(retrieved, models.RetrievedChunk{Chunk: chunk, Score: score})
	}
	return retrieved, nil
}

func (c *ChromaIndex) Len() int { return c.count }

func (c *ChromaIndex) Documents() map[string]int {
	counts := make(map[string]int, len(c.docCounts))
	for k, v := range c.docCounts {
		counts[k] = v
	}
	return counts
}
