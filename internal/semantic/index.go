package semantic

import (
	"context"
	"sort"

	"aide/internal/logging"
	"aide/internal/store"
)

// TextEmbedder is the embedding capability the index needs. Satisfied by
// *Embedder; tests substitute a deterministic implementation.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}

// Index is a brute-force vector index over stored memory embeddings.
// Availability is probed once at construction: if the embedder is absent
// the index reports unavailable and all operations degrade to no-ops or
// empty results, never errors that would disturb a conversation turn.
type Index struct {
	store     *store.SQLiteStore
	embedder  TextEmbedder
	minScore  float32
	available bool
}

// NewIndex creates an index over the store. A nil embedder produces a
// permanently unavailable index.
func NewIndex(s *store.SQLiteStore, embedder TextEmbedder, minScore float32) *Index {
	if minScore <= 0 {
		minScore = 0.7
	}
	return &Index{
		store:     s,
		embedder:  embedder,
		minScore:  minScore,
		available: embedder != nil,
	}
}

// Available reports whether semantic search can serve queries.
func (ix *Index) Available() bool {
	return ix != nil && ix.available
}

// IndexItem embeds and stores the vector for one memory item. Best effort:
// failures are logged and swallowed so memory writes never depend on the
// embedding service.
func (ix *Index) IndexItem(ctx context.Context, item *store.MemoryItem) {
	if !ix.Available() || item == nil || item.Content == "" {
		return
	}

	embedding, err := ix.embedder.Embed(ctx, item.Content)
	if err != nil {
		logging.Warn("embedding memory item failed", "id", item.ID, "error", err)
		return
	}

	if err := ix.store.SaveVector(ctx, item.ID, embedding, ix.embedder.GetModel()); err != nil {
		logging.Warn("saving memory vector failed", "id", item.ID, "error", err)
	}
}

// Search embeds the query and ranks stored vectors by cosine similarity,
// returning at most topK matches above the score floor.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if !ix.Available() || query == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = 3
	}

	queryVec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	vectors, err := ix.store.AllVectors(ctx)
	if err != nil {
		return nil, err
	}

	var matches Matches
	for _, v := range vectors {
		score := CosineSimilarity(queryVec, v.Embedding)
		if score <= ix.minScore {
			continue
		}

		item, err := ix.store.GetMemory(ctx, v.MemoryID)
		if err != nil {
			// Vector rows can outlive their item between delete and
			// cascade visibility; skip them.
			continue
		}
		matches = append(matches, Match{
			MemoryID: item.ID,
			Content:  item.Content,
			Score:    score,
		})
	}

	sort.Sort(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Rebuild re-embeds every stored memory item. Used after enabling semantic
// search on an existing database.
func (ix *Index) Rebuild(ctx context.Context) (int, error) {
	if !ix.Available() {
		return 0, nil
	}

	items, err := ix.store.QueryMemories(ctx, store.MemoryFilter{Limit: 10000})
	if err != nil {
		return 0, err
	}

	count := 0
	for _, item := range items {
		embedding, err := ix.embedder.Embed(ctx, item.Content)
		if err != nil {
			logging.Warn("re-embedding failed", "id", item.ID, "error", err)
			continue
		}
		if err := ix.store.SaveVector(ctx, item.ID, embedding, ix.embedder.GetModel()); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
