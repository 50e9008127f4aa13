package guard

import (
	"context"
	"fmt"
	"testing"

	"syllabo/internal/syllabus"
)

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

func testIndex(t *testing.T) *syllabus.TopicIndex {
	t.Helper()
	topics := syllabus.FlatTopics("Deadlocks\nPaging")
	idx, err := syllabus.BuildTopicIndex(context.Background(), &stubEmbedder{vectors: map[string][]float32{
		"Deadlocks": {1, 0},
		"Paging":    {0, 1},
	}}, topics)
	if err != nil {
		t.Fatalf("build index failed: %v", err)
	}
	return idx
}

var testCfg = Config{DomainThreshold: 0.35, TopicThreshold: 0.40}

func TestClassifyInScope(t *testing.T) {
	d := Classify([]float32{1, 0}, 0.72, testIndex(t), testCfg)
	if d.Scope != ScopeInScope {
		t.Fatalf("expected in_scope, got %s", d.Scope)
	}
}

func TestClassifyBorderlinePrerequisiteGap(t *testing.T) {
	// Query matches a syllabus unit but the corpus has nothing close.
	d := Classify([]float32{1, 0}, 0.10, testIndex(t), testCfg)
	if d.Scope != ScopeBorderline {
		t.Fatalf("expected borderline, got %s", d.Scope)
	}
	if d.BestTopicID == "" {
		t.Fatalf("expected a best topic for a borderline query")
	}
}

func TestClassifyOutOfScope(t *testing.T) {
	// Orthogonal to every topic label and far from the corpus.
	d := Classify([]float32{0, 0}, 0.05, testIndex(t), testCfg)
	if d.Scope != ScopeOutOfScope {
		t.Fatalf("expected out_of_scope, got %s", d.Scope)
	}
}

func TestClassifyThresholdBoundaries(t *testing.T) {
	idx := testIndex(t)

	// Exactly at the retrieval threshold counts as in scope.
	if d := Classify([]float32{0, 0}, testCfg.DomainThreshold, idx, testCfg); d.Scope != ScopeInScope {
		t.Fatalf("expected in_scope at boundary, got %s", d.Scope)
	}
	// Just below retrieval, exactly at topic threshold counts as borderline.
	vec := []float32{1, 0} // similarity 1.0 to the deadlocks label
	if d := Classify(vec, testCfg.DomainThreshold-0.01, idx, testCfg); d.Scope != ScopeBorderline {
		t.Fatalf("expected borderline just under retrieval threshold, got %s", d.Scope)
	}
}

func TestClassifyEmptySyllabus(t *testing.T) {
	idx := &syllabus.TopicIndex{}
	d := Classify([]float32{1, 0}, 0.05, idx, testCfg)
	if d.Scope != ScopeOutOfScope {
		t.Fatalf("expected out_of_scope with empty syllabus, got %s", d.Scope)
	}
}
