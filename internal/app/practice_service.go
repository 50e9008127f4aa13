package app

import (
	"context"
	"strings"

	"syllabo/internal/ai"
	"syllabo/internal/practice"
	"syllabo/internal/repository"
	"syllabo/internal/session"
	"syllabo/internal/syllabus"
)

type PracticeService struct {
	deckRepo  *repository.DeckRepository
	retriever *Retriever
	generator *practice.Generator
	sessions  *session.Store
}

func NewPracticeService(
	deckRepo *repository.DeckRepository,
	retriever *Retriever,
	llm *ai.Service,
	sessions *session.Store,
) *PracticeService {
	return &PracticeService{
		deckRepo:  deckRepo,
		retriever: retriever,
		generator: practice.NewGenerator(llm),
		sessions:  sessions,
	}
}

type PracticeInput struct {
	UserID uint
	DeckID uint
	Topic  string // topic id or label; empty means the session's current topic
	Count  int
}

type PracticeResult struct {
	TopicID    string              `json:"topic_id"`
	TopicLabel string              `json:"topic_label"`
	Questions  []practice.Question `json:"questions"`
}

// Generate builds a practice set for one topic from the deck's own
// material. Count defaults from the session's pace.
func (s *PracticeService) Generate(ctx context.Context, input PracticeInput) (*PracticeResult, error) {
	if input.UserID == 0 || input.DeckID == 0 {
		return nil, ErrInvalidInput
	}
	deck, err := s.deckRepo.GetByIDAndUserID(input.DeckID, input.UserID)
	if err != nil {
		return nil, err
	}
	if deck == nil {
		return nil, ErrNotFound
	}
	topics, err := syllabus.DecodeTree(deck.SyllabusTree)
	if err != nil {
		return nil, err
	}

	sess := s.sessions.Get(input.UserID, input.DeckID)
	topic, ok := resolveTopic(topics, input.Topic, sess)
	if !ok {
		if strings.TrimSpace(input.Topic) != "" {
			return nil, ErrNotFound
		}
		return nil, ErrNoTopics
	}

	count := input.Count
	if count <= 0 {
		count = practice.CountForPace(resolvePace("", sess))
	}

	label := syllabus.LabelPath(topics, topic.ID)
	retrieved, _, err := s.retriever.Retrieve(ctx, deck, label, paceTopK(resolvePace("", sess)))
	if err != nil {
		return nil, err
	}

	questions, err := s.generator.Generate(ctx, topic.Label, chunkTexts(retrieved), count)
	if err != nil {
		return nil, err
	}
	return &PracticeResult{
		TopicID:    topic.ID,
		TopicLabel: topic.Label,
		Questions:  questions,
	}, nil
}

// resolveTopic accepts a topic id, a case-insensitive label, or falls
// back to the session's current topic, then the first topic in order.
func resolveTopic(topics []syllabus.Topic, ref string, sess *session.TeachingSession) (syllabus.Topic, bool) {
	if len(topics) == 0 {
		return syllabus.Topic{}, false
	}
	ref = strings.TrimSpace(ref)
	if ref != "" {
		for _, t := range topics {
			if t.ID == ref || strings.EqualFold(t.Label, ref) {
				return t, true
			}
		}
		return syllabus.Topic{}, false
	}
	if sess != nil && sess.CurrentTopicID != "" {
		for _, t := range topics {
			if t.ID == sess.CurrentTopicID {
				return t, true
			}
		}
	}
	return syllabus.PreOrder(topics)[0], true
}
