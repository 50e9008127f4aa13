package app

import (
	"context"
	"fmt"
	"strings"

	"syllabo/internal/ai"
	"syllabo/internal/model"
	"syllabo/internal/practice"
	"syllabo/internal/repository"
	"syllabo/internal/respond"
	"syllabo/internal/session"
	"syllabo/internal/syllabus"
	"syllabo/internal/teach"
)

// TeachService drives the topic walk. State transitions happen under the
// session store's per-key lock; generation happens after, on a snapshot,
// so one slow model call can't wedge another learner's deck.
type TeachService struct {
	deckRepo     *repository.DeckRepository
	retriever    *Retriever
	llm          *ai.Service
	sessions     *session.Store
	conversation *session.ConversationLog
	queries      *QueryService
	practices    *PracticeService
}

func NewTeachService(
	deckRepo *repository.DeckRepository,
	retriever *Retriever,
	llm *ai.Service,
	sessions *session.Store,
	conversation *session.ConversationLog,
	queries *QueryService,
	practices *PracticeService,
) *TeachService {
	return &TeachService{
		deckRepo:     deckRepo,
		retriever:    retriever,
		llm:          llm,
		sessions:     sessions,
		conversation: conversation,
		queries:      queries,
		practices:    practices,
	}
}

// TurnResult is one teaching turn's outcome. Exactly one of Message or
// Questions is the payload, depending on Kind.
type TurnResult struct {
	Kind      string              `json:"kind"` // lesson | answer | practice | stopped | completed | idle
	Intent    string              `json:"intent"`
	Message   string              `json:"message,omitempty"`
	Questions []practice.Question `json:"questions,omitempty"`
	Progress  teach.Progress      `json:"progress"`
	Ask       *AskResult          `json:"ask,omitempty"`
}

// Start begins (or resumes) the walk and delivers the first lesson.
func (s *TeachService) Start(ctx context.Context, userID, deckID uint, pace string) (*TurnResult, error) {
	deck, order, err := s.deckAndOrder(userID, deckID)
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, ErrNoTopics
	}

	var current syllabus.Topic
	started := false
	snap := s.sessions.Update(userID, deckID, pace, func(sess *session.TeachingSession) {
		if session.ValidPace(pace) {
			sess.Pace = pace
		}
		current, started = teach.Start(sess, order)
		sess.TurnCount++
	})
	if !started {
		return nil, ErrNoTopics
	}

	lesson, err := s.lesson(ctx, userID, deck, current, snap.Pace, respond.ModeInitial)
	if err != nil {
		return nil, err
	}
	return &TurnResult{
		Kind:     "lesson",
		Intent:   string(teach.IntentNext),
		Message:  lesson,
		Progress: teach.ProgressOf(snap, order),
	}, nil
}

// Turn processes one free-text teaching input according to its intent.
func (s *TeachService) Turn(ctx context.Context, userID, deckID uint, text string) (*TurnResult, error) {
	deck, order, err := s.deckAndOrder(userID, deckID)
	if err != nil {
		return nil, err
	}

	sess := s.sessions.Get(userID, deckID)
	if sess == nil || sess.Mode != session.ModeTeaching {
		if teach.WantsTeaching(text) {
			return s.Start(ctx, userID, deckID, "")
		}
		// No walk in progress: route to the plain ask path.
		return s.answerAside(ctx, userID, deckID, text, order, sess)
	}

	intent := teach.ClassifyIntent(text)
	switch intent {
	case teach.IntentStop:
		snap := s.sessions.Update(userID, deckID, "", func(ts *session.TeachingSession) {
			teach.Stop(ts)
			ts.TurnCount++
		})
		return &TurnResult{
			Kind:     "stopped",
			Intent:   string(intent),
			Message:  "Teaching paused. Your progress is saved; start again any time to resume.",
			Progress: teach.ProgressOf(snap, order),
		}, nil

	case teach.IntentNext:
		var next syllabus.Topic
		advanced := false
		snap := s.sessions.Update(userID, deckID, "", func(ts *session.TeachingSession) {
			next, advanced = teach.Advance(ts, order)
			ts.LastAction = string(intent)
			ts.TurnCount++
		})
		if !advanced {
			return &TurnResult{
				Kind:     "completed",
				Intent:   string(intent),
				Message:  fmt.Sprintf("That was the last topic. You have worked through all %d topics in this deck.", len(order)),
				Progress: teach.ProgressOf(snap, order),
			}, nil
		}
		lesson, err := s.lesson(ctx, userID, deck, next, snap.Pace, respond.ModeInitial)
		if err != nil {
			return nil, err
		}
		return &TurnResult{Kind: "lesson", Intent: string(intent), Message: lesson, Progress: teach.ProgressOf(snap, order)}, nil

	case teach.IntentSimpler, teach.IntentExample:
		mode := respond.ModeSimpler
		if intent == teach.IntentExample {
			mode = respond.ModeExample
		}
		var current syllabus.Topic
		snap := s.sessions.Update(userID, deckID, "", func(ts *session.TeachingSession) {
			current, _ = topicByID(order, ts.CurrentTopicID)
			ts.LastAction = string(intent)
			ts.TurnCount++
		})
		lesson, err := s.lesson(ctx, userID, deck, current, snap.Pace, mode)
		if err != nil {
			return nil, err
		}
		return &TurnResult{Kind: "lesson", Intent: string(intent), Message: lesson, Progress: teach.ProgressOf(snap, order)}, nil

	case teach.IntentPractice:
		snap := s.sessions.Update(userID, deckID, "", func(ts *session.TeachingSession) {
			ts.LastAction = string(intent)
			ts.TurnCount++
		})
		result, err := s.practices.Generate(ctx, PracticeInput{UserID: userID, DeckID: deckID})
		if err != nil {
			return nil, err
		}
		return &TurnResult{Kind: "practice", Intent: string(intent), Questions: result.Questions, Progress: teach.ProgressOf(snap, order)}, nil

	default:
		// A question mid-walk: answer it without losing the place.
		return s.answerAside(ctx, userID, deckID, text, order, sess)
	}
}

// Progress reports the derived session view; it never mutates state.
func (s *TeachService) Progress(userID, deckID uint) (*teach.Progress, error) {
	_, order, err := s.deckAndOrder(userID, deckID)
	if err != nil {
		return nil, err
	}
	p := teach.ProgressOf(s.sessions.Get(userID, deckID), order)
	return &p, nil
}

// Session returns the raw session snapshot, or ErrNotFound when none.
func (s *TeachService) Session(userID, deckID uint) (*session.TeachingSession, error) {
	if _, _, err := s.deckAndOrder(userID, deckID); err != nil {
		return nil, err
	}
	sess := s.sessions.Get(userID, deckID)
	if sess == nil {
		return nil, ErrNotFound
	}
	return sess, nil
}

// EndSession drops the teaching session and the conversation log.
func (s *TeachService) EndSession(ctx context.Context, userID, deckID uint) error {
	if _, _, err := s.deckAndOrder(userID, deckID); err != nil {
		return err
	}
	s.sessions.Delete(userID, deckID)
	return s.conversation.Clear(ctx, userID, deckID)
}

func (s *TeachService) answerAside(ctx context.Context, userID, deckID uint, text string, order []syllabus.Topic, sess *session.TeachingSession) (*TurnResult, error) {
	ask, err := s.queries.Ask(ctx, AskInput{UserID: userID, DeckID: deckID, Query: text})
	if err != nil {
		return nil, err
	}
	return &TurnResult{
		Kind:     "answer",
		Intent:   string(teach.IntentQuestion),
		Message:  ask.Answer,
		Ask:      ask,
		Progress: teach.ProgressOf(sess, order),
	}, nil
}

func (s *TeachService) lesson(ctx context.Context, userID uint, deck *model.Deck, topic syllabus.Topic, pace string, mode respond.LessonMode) (string, error) {
	if topic.ID == "" {
		return "", ErrNoTopics
	}
	retrieved, _, err := s.retriever.Retrieve(ctx, deck, topic.Label, paceTopK(pace))
	if err != nil {
		return "", err
	}
	lesson, err := s.llm.Complete(ctx, respond.BuildLessonPrompt(topic.Label, chunkTexts(retrieved), pace, mode))
	if err != nil {
		return "", err
	}
	lesson = strings.TrimSpace(lesson)
	_ = s.conversation.Append(ctx, userID, deck.ID, "assistant", lesson)
	return lesson, nil
}

func (s *TeachService) deckAndOrder(userID, deckID uint) (*model.Deck, []syllabus.Topic, error) {
	if userID == 0 || deckID == 0 {
		return nil, nil, ErrInvalidInput
	}
	deck, err := s.deckRepo.GetByIDAndUserID(deckID, userID)
	if err != nil {
		return nil, nil, err
	}
	if deck == nil {
		return nil, nil, ErrNotFound
	}
	topics, err := syllabus.DecodeTree(deck.SyllabusTree)
	if err != nil {
		return nil, nil, err
	}
	return deck, syllabus.PreOrder(topics), nil
}

func topicByID(order []syllabus.Topic, id string) (syllabus.Topic, bool) {
	for _, t := range order {
		if t.ID == id {
			return t, true
		}
	}
	return syllabus.Topic{}, false
}
