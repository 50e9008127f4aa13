package syllabus

// CoverageReport is derived on demand from chunk metadata and the tree,
// never cached.
type CoverageReport struct {
	CoveredTopicIDs   []string `json:"covered_topic_ids"`
	UncoveredTopicIDs []string `json:"uncovered_topic_ids"`
	CoveragePercent   float64  `json:"coverage_percent"`
	TotalTopics       int      `json:"total_topics"`
}

// Coverage marks a topic covered when any chunk maps to it or to any of
// its descendants. Branch and leaf topics count uniformly: a branch is
// covered through its subtree even if the branch label itself never
// matched a chunk.
func Coverage(topics []Topic, chunkTopicIDs [][]string) CoverageReport {
	report := CoverageReport{
		CoveredTopicIDs:   []string{},
		UncoveredTopicIDs: []string{},
		TotalTopics:       len(topics),
	}
	if len(topics) == 0 {
		return report
	}

	mapped := make(map[string]struct{})
	for _, ids := range chunkTopicIDs {
		for _, id := range ids {
			mapped[id] = struct{}{}
		}
	}

	children := make(map[string][]string)
	for _, t := range topics {
		if t.ParentID != "" {
			children[t.ParentID] = append(children[t.ParentID], t.ID)
		}
	}

	covered := make(map[string]bool, len(topics))
	var subtreeCovered func(id string) bool
	subtreeCovered = func(id string) bool {
		if _, ok := mapped[id]; ok {
			covered[id] = true
		}
		for _, child := range children[id] {
			if subtreeCovered(child) {
				covered[id] = true
			}
		}
		return covered[id]
	}
	for _, t := range topics {
		if t.ParentID == "" {
			subtreeCovered(t.ID)
		}
	}

	for _, t := range topics {
		if covered[t.ID] {
			report.CoveredTopicIDs = append(report.CoveredTopicIDs, t.ID)
		} else {
			report.UncoveredTopicIDs = append(report.UncoveredTopicIDs, t.ID)
		}
	}
	report.CoveragePercent = float64(len(report.CoveredTopicIDs)) / float64(len(topics)) * 100
	return report
}
