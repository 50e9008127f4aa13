package syllabus

import (
	"errors"
	"strings"
	"testing"
)

const osSyllabus = `Unit 1: Process Management
1.1 Processes and Threads
1.2 CPU Scheduling
Unit 2: Deadlocks
2.1 Deadlock Detection
Unit 3: Memory Management
3.1 Paging
3.2 Segmentation
`

func TestParseBuildsForest(t *testing.T) {
	topics, err := Parse(osSyllabus)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(topics) != 8 {
		t.Fatalf("expected 8 topics, got %d", len(topics))
	}

	roots := 0
	byID := make(map[string]Topic)
	for _, topic := range topics {
		byID[topic.ID] = topic
		if topic.ParentID == "" {
			roots++
		}
	}
	if roots != 3 {
		t.Fatalf("expected 3 root units, got %d", roots)
	}

	paging := findByLabel(t, topics, "Paging")
	if paging.Depth != 1 {
		t.Fatalf("expected paging at depth 1, got %d", paging.Depth)
	}
	parent, ok := byID[paging.ParentID]
	if !ok {
		t.Fatalf("paging parent %q not in tree", paging.ParentID)
	}
	if parent.Label != "Memory Management" {
		t.Fatalf("expected paging under Memory Management, got %q", parent.Label)
	}
}

func TestParseParentsResolveWithoutCycles(t *testing.T) {
	topics, err := Parse(osSyllabus)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	byID := make(map[string]Topic)
	for _, topic := range topics {
		byID[topic.ID] = topic
	}
	for _, topic := range topics {
		seen := map[string]bool{topic.ID: true}
		for cur := topic; cur.ParentID != ""; {
			parent, ok := byID[cur.ParentID]
			if !ok {
				t.Fatalf("topic %q has dangling parent %q", topic.ID, cur.ParentID)
			}
			if seen[parent.ID] {
				t.Fatalf("topic %q is its own ancestor", parent.ID)
			}
			seen[parent.ID] = true
			cur = parent
		}
	}
}

func TestParseIsDeterministic(t *testing.T) {
	first, err := Parse(osSyllabus)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	second, err := Parse(osSyllabus)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("topic counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("topic %d id differs: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
}

func TestParseNoStructure(t *testing.T) {
	_, err := Parse("this syllabus is just prose\nwith no headings anywhere")
	if !errors.Is(err, ErrNoStructure) {
		t.Fatalf("expected ErrNoStructure, got %v", err)
	}
}

func TestParseOrFlatFallsBack(t *testing.T) {
	topics, err := ParseOrFlat("sorting algorithms\ngraph traversal\ndynamic programming")
	if err != nil {
		t.Fatalf("expected flat fallback, got error: %v", err)
	}
	if len(topics) != 3 {
		t.Fatalf("expected 3 flat topics, got %d", len(topics))
	}
	for _, topic := range topics {
		if topic.ParentID != "" || topic.Depth != 0 {
			t.Fatalf("flat topic %q should be a root", topic.Label)
		}
	}
}

func TestPreOrderFollowsDocumentStructure(t *testing.T) {
	topics, err := Parse(osSyllabus)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	order := PreOrder(topics)
	if len(order) != len(topics) {
		t.Fatalf("pre-order lost topics: %d vs %d", len(order), len(topics))
	}

	var labels []string
	for _, topic := range order {
		labels = append(labels, topic.Label)
	}
	want := []string{
		"Process Management", "Processes and Threads", "CPU Scheduling",
		"Deadlocks", "Deadlock Detection",
		"Memory Management", "Paging", "Segmentation",
	}
	if strings.Join(labels, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected pre-order: %v", labels)
	}
}

func TestLabelPath(t *testing.T) {
	topics, err := Parse(osSyllabus)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	paging := findByLabel(t, topics, "Paging")
	if got := LabelPath(topics, paging.ID); got != "Memory Management > Paging" {
		t.Fatalf("unexpected label path: %q", got)
	}
}

func TestEncodeDecodeTree(t *testing.T) {
	topics, err := Parse(osSyllabus)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	raw, err := EncodeTree(topics)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := DecodeTree(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded) != len(topics) {
		t.Fatalf("round trip lost topics: %d vs %d", len(decoded), len(topics))
	}
}

func findByLabel(t *testing.T, topics []Topic, label string) Topic {
	t.Helper()
	for _, topic := range topics {
		if topic.Label == label {
			return topic
		}
	}
	t.Fatalf("topic %q not found", label)
	return Topic{}
}
