package syllabus

import "testing"

func TestCoverageCountsOnlyTouchedUnits(t *testing.T) {
	topics, err := Parse(osSyllabus)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	processes := findByLabel(t, topics, "Processes and Threads")

	report := Coverage(topics, [][]string{{processes.ID}})

	coveredRoots := 0
	for _, topic := range topics {
		if topic.ParentID != "" {
			continue
		}
		for _, id := range report.CoveredTopicIDs {
			if id == topic.ID {
				coveredRoots++
			}
		}
	}
	if coveredRoots != 1 {
		t.Fatalf("expected exactly 1 of 3 units covered, got %d", coveredRoots)
	}

	deadlocks := findByLabel(t, topics, "Deadlocks")
	for _, id := range report.CoveredTopicIDs {
		if id == deadlocks.ID {
			t.Fatalf("deadlocks unit should be uncovered")
		}
	}
}

func TestCoverageBranchCoveredThroughDescendant(t *testing.T) {
	topics, err := Parse(osSyllabus)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	paging := findByLabel(t, topics, "Paging")
	memory := findByLabel(t, topics, "Memory Management")

	report := Coverage(topics, [][]string{{paging.ID}})

	foundBranch := false
	for _, id := range report.CoveredTopicIDs {
		if id == memory.ID {
			foundBranch = true
		}
	}
	if !foundBranch {
		t.Fatalf("branch should be covered via its descendant")
	}
}

func TestCoveragePercentMonotonic(t *testing.T) {
	topics, err := Parse(osSyllabus)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	var chunks [][]string
	prev := -1.0
	for _, topic := range topics {
		chunks = append(chunks, []string{topic.ID})
		report := Coverage(topics, chunks)
		if report.CoveragePercent < prev {
			t.Fatalf("coverage decreased from %f to %f", prev, report.CoveragePercent)
		}
		prev = report.CoveragePercent
	}
	if prev != 100 {
		t.Fatalf("expected 100%% after mapping every topic, got %f", prev)
	}
}

func TestCoverageEmptyInputs(t *testing.T) {
	report := Coverage(nil, nil)
	if report.CoveragePercent != 0 || report.TotalTopics != 0 {
		t.Fatalf("unexpected report for empty tree: %+v", report)
	}

	topics := FlatTopics("a\nb")
	report = Coverage(topics, nil)
	if report.CoveragePercent != 0 {
		t.Fatalf("expected 0%% with no chunks, got %f", report.CoveragePercent)
	}
	if len(report.UncoveredTopicIDs) != 2 {
		t.Fatalf("expected both topics uncovered, got %v", report.UncoveredTopicIDs)
	}
}

func TestCoverageIgnoresUnknownTopicIDs(t *testing.T) {
	topics := FlatTopics("a\nb")
	report := Coverage(topics, [][]string{{"not-a-topic"}})
	if len(report.CoveredTopicIDs) != 0 {
		t.Fatalf("unknown topic ids must not count as coverage: %v", report.CoveredTopicIDs)
	}
}
