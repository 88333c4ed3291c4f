package services

import (
	"context"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// IndexStats summarizes one rebuild.
type IndexStats struct {
	Documents int
	Chunks    int
}

// IndexingService rebuilds the knowledge-base index from a directory and
// publishes the result through the IndexHolder. A rebuild constructs a
// complete new index before swapping it in, so concurrent queries keep
// reading the previous snapshot until the new one is ready.
type IndexingService struct {
	embedder Embedder
	chunker  *Chunker
	holder   *IndexHolder
	newIndex func() (VectorIndex, error)
}

// NewIndexingService creates an indexing service. newIndex constructs a
// fresh, empty index for each rebuild (memory or chroma backed).
func NewIndexingService(embedder Embedder, chunker *Chunker, holder *IndexHolder, newIndex func() (VectorIndex, error)) *IndexingService {
	return &IndexingService{
		embedder: embedder,
		chunker:  chunker,
		holder:   holder,
		newIndex: newIndex,
	}
}

// Rebuild loads, chunks and embeds every document under dir, then atomically
// swaps the new index in. A missing directory publishes an empty index and
// returns IngestionError; an embedding failure keeps the previous snapshot.
func (s *IndexingService) Rebuild(ctx context.Context, dir string) (*IndexStats, error) {
	start := time.Now()

	docs, err := LoadDirectory(dir)
	if err != nil {
		empty, buildErr := s.newIndex()
		if buildErr != nil {
			log.Printf("INDEXER ERROR: could not build empty index: %v", buildErr)
			return nil, err
		}
		s.holder.Store(empty)
		return nil, err
	}

	index, err := s.newIndex()
	if err != nil {
		return nil, NewIngestionError("could not create index", err)
	}

	stats := &IndexStats{}
	for _, doc := range docs {
		chunks, err := s.chunker.ChunkDocument(doc)
		if err != nil {
			return nil, NewIngestionError("chunking failed for "+doc.Name, err)
		}
		if len(chunks) == 0 {
			continue
		}

		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Text
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			// Previous snapshot stays published.
			return nil, err
		}

		for i, chunk := range chunks {
			if err := index.Insert(ctx, chunk, vectors[i]); err != nil {
				return nil, NewIngestionError("indexing failed for "+doc.Name, err)
			}
		}

		stats.Documents++
		stats.Chunks += len(chunks)
	}

	s.holder.Store(index)
	log.Printf("INDEXER: rebuilt index with %d documents (%d chunks) in %v", stats.Documents, stats.Chunks, time.Since(start))
	return stats, nil
}

// Watch monitors dir for changes to supported files and triggers a
// debounced full rebuild. Editors often emit bursts of events per save, so
// changes are coalesced within the debounce window.
func (s *IndexingService) Watch(ctx context.Context, dir string, debounce time.Duration) {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WATCHER ERROR: failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		log.Printf("WATCHER ERROR: failed to watch %s: %v", dir, err)
		return
	}
	log.Printf("WATCHER: watching directory: %s", dir)

	var pending <-chan time.Time
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isSupportedFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				log.Printf("WATCHER: %s, scheduling re-index", event)
				pending = time.After(debounce)
			}
		case <-pending:
			pending = nil
			if _, err := s.Rebuild(ctx, dir); err != nil {
				log.Printf("WATCHER ERROR: re-index failed: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("WATCHER ERROR: %v", err)
		case <-ctx.Done():
			log.Println("WATCHER: context cancelled, shutting down watcher.")
			return
		}
	}
}
