package app

import (
	"reflect"
	"testing"

	"syllabo/internal/model"
)

func TestParseSubtopics(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "plain list",
			raw:  "eigenvalues, eigenvectors, diagonalization",
			want: []string{"eigenvalues", "eigenvectors", "diagonalization"},
		},
		{
			name: "trailing period and padding",
			raw:  " matrix rank ,  null space. ",
			want: []string{"matrix rank", "null space"},
		},
		{
			name: "case-insensitive duplicates collapse",
			raw:  "Vectors, vectors, VECTORS, matrices",
			want: []string{"Vectors", "matrices"},
		},
		{
			name: "fan-out is capped",
			raw:  "a, b, c, d, e, f, g",
			want: []string{"a", "b", "c", "d", "e"},
		},
		{
			name: "blank input",
			raw:  " , ,, ",
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseSubtopics(tc.raw); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("parseSubtopics(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func scored(id uint, score float64) RetrievedChunk {
	return RetrievedChunk{Chunk: model.Chunk{ID: id}, Score: score}
}

func TestMergeRetrievedDeduplicatesByChunkID(t *testing.T) {
	base := []RetrievedChunk{scored(1, 0.9), scored(2, 0.7)}
	extra := []RetrievedChunk{scored(2, 0.8), scored(3, 0.6)}

	merged := mergeRetrieved(base, extra)

	if len(merged) != 3 {
		t.Fatalf("merged length = %d, want 3", len(merged))
	}
	wantIDs := []uint{1, 2, 3}
	wantScores := []float64{0.9, 0.8, 0.6}
	for i, rc := range merged {
		if rc.Chunk.ID != wantIDs[i] {
			t.Fatalf("merged[%d].ID = %d, want %d", i, rc.Chunk.ID, wantIDs[i])
		}
		if rc.Score != wantScores[i] {
			t.Fatalf("merged[%d].Score = %v, want %v (duplicates keep the higher score)", i, rc.Score, wantScores[i])
		}
	}
}

func TestMergeRetrievedOrdersByDescendingScore(t *testing.T) {
	base := []RetrievedChunk{scored(1, 0.5)}
	extra := []RetrievedChunk{scored(2, 0.95), scored(3, 0.2)}

	merged := mergeRetrieved(base, extra)

	for i := 1; i < len(merged); i++ {
		if merged[i].Score > merged[i-1].Score {
			t.Fatalf("merged results out of order at %d: %v", i, merged)
		}
	}
	if merged[0].Chunk.ID != 2 {
		t.Fatalf("best subtopic hit should lead, got chunk %d", merged[0].Chunk.ID)
	}
}

func TestMergeRetrievedLeavesBaseUntouched(t *testing.T) {
	base := []RetrievedChunk{scored(1, 0.9), scored(2, 0.4)}
	extra := []RetrievedChunk{scored(2, 0.8)}

	_ = mergeRetrieved(base, extra)

	if base[1].Score != 0.4 {
		t.Fatalf("merge mutated its input: base[1].Score = %v", base[1].Score)
	}
}
