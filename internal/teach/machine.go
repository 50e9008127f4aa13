package teach

import (
	"syllabo/internal/session"
	"syllabo/internal/syllabus"
)

// Progress is the side-effect-free view of a teaching session.
type Progress struct {
	Mode           string `json:"mode"`
	CurrentTopicID string `json:"current_topic_id,omitempty"`
	CurrentLabel   string `json:"current_topic_label,omitempty"`
	TopicsCovered  int    `json:"topics_covered"`
	TotalTopics    int    `json:"total_topics"`
	Pace           string `json:"pace"`
}

// Start moves an idle session into teaching at the first unvisited topic
// in pre-order. A session whose walk already finished restarts from the
// beginning; a stopped mid-walk session resumes where it left off.
func Start(sess *session.TeachingSession, order []syllabus.Topic) (syllabus.Topic, bool) {
	if len(order) == 0 {
		return syllabus.Topic{}, false
	}
	if len(sess.VisitedIDs) >= len(order) {
		sess.VisitedIDs = nil
	}

	current, ok := firstUnvisited(order, sess.VisitedIDs)
	if !ok {
		return syllabus.Topic{}, false
	}
	sess.Mode = session.ModeTeaching
	sess.CurrentTopicID = current.ID
	sess.LastAction = string(IntentNext)
	return current, true
}

// Advance records the current topic as visited and steps to the next
// unvisited topic. When none remain the session returns to idle and the
// second result is false, signalling completion.
func Advance(sess *session.TeachingSession, order []syllabus.Topic) (syllabus.Topic, bool) {
	if sess.CurrentTopicID != "" && !contains(sess.VisitedIDs, sess.CurrentTopicID) {
		sess.VisitedIDs = append(sess.VisitedIDs, sess.CurrentTopicID)
	}

	next, ok := firstUnvisited(order, sess.VisitedIDs)
	if !ok {
		sess.Mode = session.ModeIdle
		sess.CurrentTopicID = ""
		return syllabus.Topic{}, false
	}
	sess.CurrentTopicID = next.ID
	return next, true
}

// Stop suspends the walk but keeps the visited trail for progress queries.
func Stop(sess *session.TeachingSession) {
	sess.Mode = session.ModeIdle
	sess.LastAction = string(IntentStop)
}

// ProgressOf derives the progress view; no side effects.
func ProgressOf(sess *session.TeachingSession, order []syllabus.Topic) Progress {
	p := Progress{
		Mode:        session.ModeIdle,
		TotalTopics: len(order),
		Pace:        session.PaceMedium,
	}
	if sess == nil {
		return p
	}
	p.Mode = sess.Mode
	p.Pace = sess.Pace
	p.CurrentTopicID = sess.CurrentTopicID
	p.TopicsCovered = len(sess.VisitedIDs)
	for _, t := range order {
		if t.ID == sess.CurrentTopicID {
			p.CurrentLabel = t.Label
			break
		}
	}
	return p
}

func firstUnvisited(order []syllabus.Topic, visited []string) (syllabus.Topic, bool) {
	for _, t := range order {
		if !contains(visited, t.ID) {
			return t, true
		}
	}
	return syllabus.Topic{}, false
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
