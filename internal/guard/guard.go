package guard

import "syllabo/internal/syllabus"

// Scope is the routing decision for one query. Out-of-scope queries must
// never surface retrieved content; borderline ones may use labeled
// external enhancement.
type Scope string

const (
	ScopeInScope    Scope = "in_scope"
	ScopeBorderline Scope = "borderline"
	ScopeOutOfScope Scope = "out_of_scope"
)

type Config struct {
	// DomainThreshold is the minimum top retrieval similarity for a query
	// to count as answerable from the corpus.
	DomainThreshold float64
	// TopicThreshold is the minimum query-to-topic-label similarity for a
	// low-retrieval query to still count as syllabus-intended.
	TopicThreshold float64
}

type Decision struct {
	Scope       Scope   `json:"scope"`
	TopScore    float64 `json:"top_score"`
	BestTopicID string  `json:"best_topic_id,omitempty"`
	TopicScore  float64 `json:"topic_score"`
}

// Classify applies the scope policy: strong retrieval is in scope; weak
// retrieval with a syllabus-label match is a prerequisite gap (borderline);
// weak retrieval with no topical match is out of scope.
func Classify(queryVec []float32, topScore float64, idx *syllabus.TopicIndex, cfg Config) Decision {
	d := Decision{TopScore: topScore}
	d.BestTopicID, d.TopicScore = idx.BestMatch(queryVec)

	switch {
	case topScore >= cfg.DomainThreshold:
		d.Scope = ScopeInScope
	case d.TopicScore >= cfg.TopicThreshold:
		d.Scope = ScopeBorderline
	default:
		d.Scope = ScopeOutOfScope
	}
	return d
}
