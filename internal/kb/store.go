// Package kb implements the document knowledge base: a disk-persisted
// embedding-indexed store of document chunks, grouped into named collections.
package kb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
)

// Sentinel errors. Callers distinguish a missing collection from a transient
// backend failure.
var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrCollectionExists   = errors.New("collection already exists")
)

// Chunk is one retrieval unit of a source document.
type Chunk struct {
	Source string
	Index  int
	Text   string
}

// ID returns the chunk's stable identifier, derived from source name and
// chunk index so that re-ingesting the same document overwrites in place.
func (c Chunk) ID() string {
	return "doc_" + c.Source + "_" + strconv.Itoa(c.Index)
}

// Result is a retrieved chunk with its similarity distance (0 = identical).
type Result struct {
	Text     string
	Source   string
	Index    int
	Distance float64
}

// Store wraps a persistent chromem database holding one chromem collection
// per knowledge-base collection. A single writer lock serializes ingestion;
// concurrent ingestion into a shared collection is otherwise a race.
type Store struct {
	mu      sync.RWMutex
	db      *chromem.DB
	embFunc chromem.EmbeddingFunc
	logger  *slog.Logger
}

// NewStore opens (or creates) the vector database under dataDir.
func NewStore(dataDir string, embFunc chromem.EmbeddingFunc, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dbPath := filepath.Join(dataDir, "vectors")
	db, err := chromem.NewPersistentDB(dbPath, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}

	logger.Info("opened vector store", "path", dbPath)
	return &Store{db: db, embFunc: embFunc, logger: logger}, nil
}

// CreateCollection creates a new named collection. It fails with
// ErrCollectionExists if the name is taken.
func (s *Store) CreateCollection(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db.GetCollection(name, s.embFunc) != nil {
		return fmt.Errorf("%q: %w", name, ErrCollectionExists)
	}
	if _, err := s.db.CreateCollection(name, nil, s.embFunc); err != nil {
		return fmt.Errorf("failed to create collection %q: %w", name, err)
	}
	s.logger.Info("created collection", "collection", name)
	return nil
}

// ListCollections returns the names of all collections, sorted.
func (s *Store) ListCollections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cols := s.db.ListCollections()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasCollection reports whether a collection exists.
func (s *Store) HasCollection(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.GetCollection(name, s.embFunc) != nil
}

// Add embeds and indexes chunks into the named collection, returning the
// number inserted. Chunk IDs collide on (source, index); collisions overwrite.
func (s *Store) Add(ctx context.Context, collection string, chunks []Chunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.db.GetCollection(collection, s.embFunc)
	if col == nil {
		return 0, fmt.Errorf("%q: %w", collection, ErrCollectionNotFound)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:      c.ID(),
			Content: c.Text,
			Metadata: map[string]string{
				"source": c.Source,
				"chunk":  strconv.Itoa(c.Index),
			},
		}
	}
	if err := col.AddDocuments(ctx, docs, 4); err != nil {
		return 0, fmt.Errorf("failed to index chunks: %w", err)
	}

	s.logger.Info("indexed chunks", "collection", collection, "count", len(docs))
	return len(docs), nil
}

// Query returns up to k chunks from the collection ranked by ascending
// distance (most similar first). An empty collection yields no results.
func (s *Store) Query(ctx context.Context, collection, text string, k int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := s.db.GetCollection(collection, s.embFunc)
	if col == nil {
		return nil, fmt.Errorf("%q: %w", collection, ErrCollectionNotFound)
	}

	total := col.Count()
	if total == 0 {
		return nil, nil
	}
	if k > total {
		k = total
	}
	if k <= 0 {
		return nil, nil
	}

	// The prefix switches the embedder into query task mode.
	res, err := col.Query(ctx, QueryTaskPrefix+text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	results := make([]Result, 0, len(res))
	for _, r := range res {
		idx, _ := strconv.Atoi(r.Metadata["chunk"])
		results = append(results, Result{
			Text:     r.Content,
			Source:   r.Metadata["source"],
			Index:    idx,
			Distance: 1 - float64(r.Similarity),
		})
	}
	return results, nil
}

// DeleteBySource removes every chunk ingested from the given source and
// returns how many were removed. Zero is not an error.
func (s *Store) DeleteBySource(ctx context.Context, collection, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.db.GetCollection(collection, s.embFunc)
	if col == nil {
		return 0, fmt.Errorf("%q: %w", collection, ErrCollectionNotFound)
	}

	before := col.Count()
	if err := col.Delete(ctx, map[string]string{"source": source}, nil); err != nil {
		return 0, fmt.Errorf("failed to delete chunks for %q: %w", source, err)
	}
	deleted := before - col.Count()
	s.logger.Info("deleted chunks by source", "collection", collection, "source", source, "count", deleted)
	return deleted, nil
}

// Clear removes all chunks from a collection, keeping the collection itself.
func (s *Store) Clear(ctx context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.db.GetCollection(collection, s.embFunc)
	if col == nil {
		return fmt.Errorf("%q: %w", collection, ErrCollectionNotFound)
	}

	// Delete and recreate, same as wiping a single-collection store.
	if err := s.db.DeleteCollection(collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	if _, err := s.db.CreateCollection(collection, nil, s.embFunc); err != nil {
		return fmt.Errorf("failed to recreate collection: %w", err)
	}
	s.logger.Info("cleared collection", "collection", collection)
	return nil
}

// DeleteCollection irreversibly removes a collection and all its chunks.
func (s *Store) DeleteCollection(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db.GetCollection(name, s.embFunc) == nil {
		return fmt.Errorf("%q: %w", name, ErrCollectionNotFound)
	}
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", name, err)
	}
	s.logger.Info("deleted collection", "collection", name)
	return nil
}

// Count returns the number of chunks in a collection.
func (s *Store) Count(collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := s.db.GetCollection(collection, s.embFunc)
	if col == nil {
		return 0, fmt.Errorf("%q: %w", collection, ErrCollectionNotFound)
	}
	return col.Count(), nil
}
