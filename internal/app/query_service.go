package app

import (
	"context"
	"encoding/json"
	"strings"

	"syllabo/internal/ai"
	"syllabo/internal/guard"
	"syllabo/internal/model"
	"syllabo/internal/repository"
	"syllabo/internal/respond"
	"syllabo/internal/search"
	"syllabo/internal/session"
	"syllabo/internal/syllabus"
)

const historyDepth = 10

// QueryService owns the ask path: guard first, then retrieval-grounded
// generation, with the borderline internet fallback and the out-of-scope
// redirect. No answer content originates outside the syllabus and corpus
// unless it is visibly labeled as externally sourced.
type QueryService struct {
	deckRepo     *repository.DeckRepository
	queryLogRepo *repository.QueryLogRepository
	retriever    *Retriever
	llm          *ai.Service
	guardCfg     guard.Config
	topicCache   *topicIndexCache
	conversation *session.ConversationLog
	sessions     *session.Store
	searcher     *search.Client
}

func NewQueryService(
	deckRepo *repository.DeckRepository,
	queryLogRepo *repository.QueryLogRepository,
	retriever *Retriever,
	llm *ai.Service,
	guardCfg guard.Config,
	topicCache *topicIndexCache,
	conversation *session.ConversationLog,
	sessions *session.Store,
	searcher *search.Client,
) *QueryService {
	return &QueryService{
		deckRepo:     deckRepo,
		queryLogRepo: queryLogRepo,
		retriever:    retriever,
		llm:          llm,
		guardCfg:     guardCfg,
		topicCache:   topicCache,
		conversation: conversation,
		sessions:     sessions,
		searcher:     searcher,
	}
}

type AskInput struct {
	UserID uint
	DeckID uint
	Query  string
	Pace   string
}

type AskResult struct {
	Answer           string           `json:"answer"`
	Decision         guard.Decision   `json:"decision"`
	Sources          []RetrievedChunk `json:"sources,omitempty"`
	InternetEnhanced bool             `json:"internet_enhanced"`
}

func (s *QueryService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	query := strings.TrimSpace(input.Query)
	if input.UserID == 0 || input.DeckID == 0 || query == "" {
		return nil, ErrInvalidInput
	}
	deck, err := s.deckRepo.GetByIDAndUserID(input.DeckID, input.UserID)
	if err != nil {
		return nil, err
	}
	if deck == nil {
		return nil, ErrNotFound
	}

	sess := s.sessions.Get(input.UserID, input.DeckID)
	pace := resolvePace(input.Pace, sess)

	idx, topics, err := s.topicCache.get(ctx, deck)
	if err != nil {
		return nil, err
	}

	retrieved, queryVec, err := s.retriever.Retrieve(ctx, deck, query, paceTopK(pace))
	if err != nil {
		return nil, err
	}
	decision := guard.Classify(queryVec, topScoreOf(retrieved), idx, s.guardCfg)

	history, _ := s.conversation.Recent(ctx, input.UserID, input.DeckID, historyDepth)
	topicLabel := currentTopicLabel(sess, topics)

	// Subtopic expansion runs after classification: it widens the answer
	// context but never moves an out-of-scope query in scope.
	result := &AskResult{Decision: decision}
	switch decision.Scope {
	case guard.ScopeOutOfScope:
		result.Answer = s.redirect(ctx, query, topics)

	case guard.ScopeBorderline:
		retrieved = s.retriever.ExpandRetrieve(ctx, deck, query, retrieved)
		answer, enhanced, err := s.borderlineAnswer(ctx, query, retrieved, pace, topicLabel, history)
		if err != nil {
			return nil, err
		}
		result.Answer = answer
		result.InternetEnhanced = enhanced
		result.Sources = retrieved

	default:
		retrieved = s.retriever.ExpandRetrieve(ctx, deck, query, retrieved)
		answer, err := s.llm.Complete(ctx, respond.BuildAnswerPrompt(query, chunkTexts(retrieved), pace, topicLabel, history))
		if err != nil {
			return nil, err
		}
		result.Answer = strings.TrimSpace(answer)
		result.Sources = retrieved
	}

	s.record(ctx, input, deck, query, pace, result, decisionTopicIDs(retrieved))
	return result, nil
}

// borderlineAnswer patches a prerequisite gap with whitelisted search
// material when available, labeled and never persisted. With no usable
// results it falls back to an honest best-effort local answer.
func (s *QueryService) borderlineAnswer(
	ctx context.Context,
	query string,
	retrieved []RetrievedChunk,
	pace, topicLabel string,
	history []session.Entry,
) (string, bool, error) {
	if s.searcher.Enabled() {
		results, err := s.searcher.Search(ctx, query)
		if err == nil && len(results) > 0 {
			answer, err := s.llm.Complete(ctx, respond.BuildWebAnswerPrompt(query, chunkTexts(retrieved), search.Snippets(results), pace))
			if err != nil {
				return "", false, err
			}
			return respond.InternetLabel + strings.TrimSpace(answer), true, nil
		}
	}

	answer, err := s.llm.Complete(ctx, respond.BuildAnswerPrompt(query, chunkTexts(retrieved), pace, topicLabel, history))
	if err != nil {
		return "", false, err
	}
	return strings.TrimSpace(answer), false, nil
}

// redirect produces the scope-redirection message. If the model service
// is down the static fallback still redirects; this path never errors
// into answering.
func (s *QueryService) redirect(ctx context.Context, query string, topics []syllabus.Topic) string {
	labels := rootLabels(topics)
	answer, err := s.llm.Complete(ctx, respond.BuildRedirectPrompt(query, labels))
	if err != nil {
		return respond.RedirectFallback(labels)
	}
	return strings.TrimSpace(answer)
}

func (s *QueryService) record(ctx context.Context, input AskInput, deck *model.Deck, query, pace string, result *AskResult, topicIDs []string) {
	_ = s.conversation.Append(ctx, input.UserID, deck.ID, "user", query)
	_ = s.conversation.Append(ctx, input.UserID, deck.ID, "assistant", result.Answer)

	encoded, _ := json.Marshal(topicIDs)
	_ = s.queryLogRepo.Create(&model.QueryLog{
		UserID:   input.UserID,
		DeckID:   deck.ID,
		Query:    query,
		Scope:    string(result.Decision.Scope),
		Pace:     pace,
		TopScore: result.Decision.TopScore,
		TopicIDs: string(encoded),
	})
}

// History lists the deck's logged queries in chronological order.
func (s *QueryService) History(userID, deckID uint) ([]model.QueryLog, error) {
	if userID == 0 || deckID == 0 {
		return nil, ErrInvalidInput
	}
	deck, err := s.deckRepo.GetByIDAndUserID(deckID, userID)
	if err != nil {
		return nil, err
	}
	if deck == nil {
		return nil, ErrNotFound
	}
	return s.queryLogRepo.ListByDeckID(userID, deckID)
}

func resolvePace(pace string, sess *session.TeachingSession) string {
	if session.ValidPace(pace) {
		return pace
	}
	if sess != nil && session.ValidPace(sess.Pace) {
		return sess.Pace
	}
	return session.PaceMedium
}

func currentTopicLabel(sess *session.TeachingSession, topics []syllabus.Topic) string {
	if sess == nil || sess.Mode != session.ModeTeaching || sess.CurrentTopicID == "" {
		return ""
	}
	for _, t := range topics {
		if t.ID == sess.CurrentTopicID {
			return t.Label
		}
	}
	return ""
}

func rootLabels(topics []syllabus.Topic) []string {
	var labels []string
	for _, t := range topics {
		if t.ParentID == "" {
			labels = append(labels, t.Label)
		}
	}
	return labels
}

func decisionTopicIDs(retrieved []RetrievedChunk) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, rc := range retrieved {
		for _, id := range rc.Chunk.TopicIDList() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
