// Package rag implements the retrieval side of the assistant: fetching
// relevant chunks for a query and splicing them into a model prompt.
package rag

import (
	"context"

	"safe-assistant/internal/kb"
)

// Retriever issues similarity queries against the knowledge base. It exists
// as a seam so retrieval policy (k, thresholds) can vary independently of
// storage. The policy here is to over-fetch a large k and leave relevance
// filtering to the caller.
type Retriever struct {
	store  *kb.Store
	fetchK int
}

// NewRetriever returns a Retriever that requests fetchK chunks per query.
func NewRetriever(store *kb.Store, fetchK int) *Retriever {
	return &Retriever{store: store, fetchK: fetchK}
}

// Retrieve returns up to fetchK chunks for the query, most similar first.
func (r *Retriever) Retrieve(ctx context.Context, collection, query string) ([]kb.Result, error) {
	return r.store.Query(ctx, collection, query, r.fetchK)
}

// RetrieveK is Retrieve with an explicit result count.
func (r *Retriever) RetrieveK(ctx context.Context, collection, query string, k int) ([]kb.Result, error) {
	return r.store.Query(ctx, collection, query, k)
}

// Relevance converts a similarity distance into a 0-100 score, higher is
// more similar. A distance of 0.2 scores 80.
func Relevance(distance float64) float64 {
	return (1 - distance) * 100
}

// FilterByRelevance keeps only results scoring at least min (0-100).
func FilterByRelevance(results []kb.Result, min float64) []kb.Result {
	filtered := make([]kb.Result, 0, len(results))
	for _, r := range results {
		if Relevance(r.Distance) >= min {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
