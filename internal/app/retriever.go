package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"syllabo/internal/ai"
	"syllabo/internal/model"
	"syllabo/internal/platform/qdrant"
	"syllabo/internal/repository"
	"syllabo/internal/respond"
	"syllabo/internal/session"
)

// Retrieval depth per pace: slower learners get broader context to
// ground more thorough answers.
func paceTopK(pace string) int {
	switch pace {
	case session.PaceSlow:
		return 20
	case session.PaceFast:
		return 6
	default:
		return 12
	}
}

// RetrievedChunk pairs a chunk with its similarity to the query.
type RetrievedChunk struct {
	Chunk model.Chunk `json:"chunk"`
	Score float64     `json:"score"`
}

// Retriever embeds a query and searches the deck's own vector collection.
// Isolation is structural: the collection name is derived from the deck,
// so another deck's chunks are unreachable by construction.
type Retriever struct {
	llm       *ai.Service
	vectors   *qdrant.Client
	chunkRepo *repository.ChunkRepository
}

func NewRetriever(llm *ai.Service, vectors *qdrant.Client, chunkRepo *repository.ChunkRepository) *Retriever {
	return &Retriever{llm: llm, vectors: vectors, chunkRepo: chunkRepo}
}

// Retrieve returns up to k chunks ordered by descending similarity plus
// the query vector for reuse by the guard. An empty deck yields an empty
// result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, deck *model.Deck, query string, k int) ([]RetrievedChunk, []float32, error) {
	queryVec, err := r.llm.Embed(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	points, err := r.vectors.Search(ctx, deck.CollectionName(), queryVec, k)
	if err != nil {
		return nil, nil, err
	}
	if len(points) == 0 {
		return nil, queryVec, nil
	}

	ids := make([]uint, len(points))
	scores := make(map[uint]float64, len(points))
	for i, p := range points {
		ids[i] = uint(p.ID)
		scores[uint(p.ID)] = p.Score
	}

	chunks, err := r.chunkRepo.ListByIDs(ids)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[uint]model.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	// Preserve the store's similarity ordering; skip points whose
	// metadata row is gone mid-reingest.
	var out []RetrievedChunk
	for _, p := range points {
		chunk, ok := byID[uint(p.ID)]
		if !ok {
			continue
		}
		if chunk.DeckID != deck.ID {
			return nil, nil, fmt.Errorf("retrieval returned chunk %d from deck %d, want deck %d", chunk.ID, chunk.DeckID, deck.ID)
		}
		out = append(out, RetrievedChunk{Chunk: chunk, Score: p.Score})
	}
	return out, queryVec, nil
}

// Each subtopic search is narrow; the primary retrieval carries the depth.
const (
	subtopicTopK = 3
	maxSubtopics = 5
)

// ExpandRetrieve widens an in-scope retrieval: it asks the model for the
// query's subtopics, embeds and searches each one, and merges the hits
// into the primary results. Expansion is best-effort; any failure along
// the way returns the primary results unchanged.
func (r *Retriever) ExpandRetrieve(ctx context.Context, deck *model.Deck, query string, primary []RetrievedChunk) []RetrievedChunk {
	raw, err := r.llm.Complete(ctx, respond.BuildSubtopicPrompt(query))
	if err != nil {
		return primary
	}
	merged := primary
	for _, sub := range parseSubtopics(raw) {
		hits, _, err := r.Retrieve(ctx, deck, sub, subtopicTopK)
		if err != nil {
			continue
		}
		merged = mergeRetrieved(merged, hits)
	}
	return merged
}

// parseSubtopics splits the model's comma separated list, dropping
// blanks and duplicates and capping the fan-out.
func parseSubtopics(raw string) []string {
	seen := make(map[string]struct{})
	var subs []string
	for _, part := range strings.Split(raw, ",") {
		sub := strings.Trim(strings.TrimSpace(part), ".")
		if sub == "" {
			continue
		}
		key := strings.ToLower(sub)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		subs = append(subs, sub)
		if len(subs) == maxSubtopics {
			break
		}
	}
	return subs
}

// mergeRetrieved folds extra hits into base, deduplicating by chunk ID
// and keeping the higher score, then restores descending-score order.
func mergeRetrieved(base, extra []RetrievedChunk) []RetrievedChunk {
	best := make(map[uint]int, len(base))
	merged := make([]RetrievedChunk, len(base))
	copy(merged, base)
	for i, rc := range merged {
		best[rc.Chunk.ID] = i
	}
	for _, rc := range extra {
		if i, ok := best[rc.Chunk.ID]; ok {
			if rc.Score > merged[i].Score {
				merged[i].Score = rc.Score
			}
			continue
		}
		best[rc.Chunk.ID] = len(merged)
		merged = append(merged, rc)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

func chunkTexts(retrieved []RetrievedChunk) []string {
	texts := make([]string, len(retrieved))
	for i, rc := range retrieved {
		texts[i] = rc.Chunk.Content
	}
	return texts
}

func topScoreOf(retrieved []RetrievedChunk) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	return retrieved[0].Score
}
