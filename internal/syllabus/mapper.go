package syllabus

import (
	"context"
	"fmt"
	"math"
)

// Embedder is the slice of the embedding client the mapper needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// TopicIndex holds one embedding per topic, computed over the full label
// path so "Paging" under "Memory Management" and "Paging" under another
// unit embed differently. Chunks, topics, and queries must all share one
// embedding model for the scores to be comparable.
type TopicIndex struct {
	Topics  []Topic
	vectors [][]float32
}

func BuildTopicIndex(ctx context.Context, emb Embedder, topics []Topic) (*TopicIndex, error) {
	if len(topics) == 0 {
		return &TopicIndex{}, nil
	}
	texts := make([]string, len(topics))
	for i, t := range topics {
		texts[i] = LabelPath(topics, t.ID)
	}
	vectors, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed topic labels failed: %w", err)
	}
	if len(vectors) != len(topics) {
		return nil, fmt.Errorf("embed topic labels returned %d vectors for %d topics", len(vectors), len(topics))
	}
	return &TopicIndex{Topics: topics, vectors: vectors}, nil
}

// MapVector returns every topic whose label similarity to the chunk vector
// clears the threshold. A chunk can span subtopics, so all matches are
// kept; no match returns an empty set and the chunk stays unmapped.
func (idx *TopicIndex) MapVector(vec []float32, threshold float64) []string {
	var ids []string
	for i, t := range idx.Topics {
		if Cosine(vec, idx.vectors[i]) >= threshold {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// BestMatch returns the closest topic and its similarity, or ("", 0) for
// an empty index.
func (idx *TopicIndex) BestMatch(vec []float32) (string, float64) {
	bestID := ""
	bestScore := 0.0
	for i, t := range idx.Topics {
		if s := Cosine(vec, idx.vectors[i]); bestID == "" || s > bestScore {
			bestID, bestScore = t.ID, s
		}
	}
	return bestID, bestScore
}

// Cosine is the similarity used everywhere embeddings are compared locally.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
