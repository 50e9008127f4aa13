package syllabus

import (
	"context"
	"fmt"
	"testing"
)

// stubEmbedder returns fixed vectors keyed by input text.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := s.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no stub vector for %q", text)
		}
		out[i] = vec
	}
	return out, nil
}

func TestMapVectorKeepsAllAboveThreshold(t *testing.T) {
	topics := FlatTopics("Deadlocks\nPaging")
	emb := &stubEmbedder{vectors: map[string][]float32{
		"Deadlocks": {1, 0},
		"Paging":    {0, 1},
	}}

	idx, err := BuildTopicIndex(context.Background(), emb, topics)
	if err != nil {
		t.Fatalf("build index failed: %v", err)
	}

	got := idx.MapVector([]float32{1, 0}, 0.4)
	if len(got) != 1 || got[0] != topics[0].ID {
		t.Fatalf("expected only deadlocks, got %v", got)
	}

	// Equidistant chunk spans both topics and should keep both.
	got = idx.MapVector([]float32{1, 1}, 0.4)
	if len(got) != 2 {
		t.Fatalf("expected both topics above threshold, got %v", got)
	}
}

func TestMapVectorNoMatchIsEmpty(t *testing.T) {
	topics := FlatTopics("Deadlocks")
	emb := &stubEmbedder{vectors: map[string][]float32{
		"Deadlocks": {1, 0},
	}}
	idx, err := BuildTopicIndex(context.Background(), emb, topics)
	if err != nil {
		t.Fatalf("build index failed: %v", err)
	}
	if got := idx.MapVector([]float32{0, 1}, 0.4); len(got) != 0 {
		t.Fatalf("expected no mapping, got %v", got)
	}
}

func TestBestMatch(t *testing.T) {
	topics := FlatTopics("Deadlocks\nPaging")
	emb := &stubEmbedder{vectors: map[string][]float32{
		"Deadlocks": {1, 0},
		"Paging":    {0, 1},
	}}
	idx, err := BuildTopicIndex(context.Background(), emb, topics)
	if err != nil {
		t.Fatalf("build index failed: %v", err)
	}

	id, score := idx.BestMatch([]float32{0.2, 0.9})
	if id != topics[1].ID {
		t.Fatalf("expected paging as best match, got %q", id)
	}
	if score <= 0.9 {
		t.Fatalf("expected high similarity, got %f", score)
	}
}

func TestBestMatchEmptyIndex(t *testing.T) {
	idx := &TopicIndex{}
	id, score := idx.BestMatch([]float32{1, 0})
	if id != "" || score != 0 {
		t.Fatalf("expected zero best match, got %q %f", id, score)
	}
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Fatalf("identical vectors should be ~1, got %f", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Fatalf("orthogonal vectors should be 0, got %f", got)
	}
	if got := Cosine(nil, []float32{1}); got != 0 {
		t.Fatalf("mismatched vectors should be 0, got %f", got)
	}
}
