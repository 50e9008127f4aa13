package app

import (
	"context"
	"strings"

	"syllabo/internal/model"
	"syllabo/internal/platform/qdrant"
	"syllabo/internal/repository"
	"syllabo/internal/session"
	"syllabo/internal/syllabus"
)

type DeckService struct {
	deckRepo     *repository.DeckRepository
	chunkRepo    *repository.ChunkRepository
	fileRepo     *repository.IngestedFileRepository
	queryLogRepo *repository.QueryLogRepository
	vectors      *qdrant.Client
	sessions     *session.Store
	conversation *session.ConversationLog
	topicCache   *topicIndexCache
}

func NewDeckService(
	deckRepo *repository.DeckRepository,
	chunkRepo *repository.ChunkRepository,
	fileRepo *repository.IngestedFileRepository,
	queryLogRepo *repository.QueryLogRepository,
	vectors *qdrant.Client,
	sessions *session.Store,
	conversation *session.ConversationLog,
	topicCache *topicIndexCache,
) *DeckService {
	return &DeckService{
		deckRepo:     deckRepo,
		chunkRepo:    chunkRepo,
		fileRepo:     fileRepo,
		queryLogRepo: queryLogRepo,
		vectors:      vectors,
		sessions:     sessions,
		conversation: conversation,
		topicCache:   topicCache,
	}
}

type CreateDeckInput struct {
	UserID       uint
	Name         string
	SyllabusText string
}

// CreateDeck parses the declared syllabus up front; an unstructured
// syllabus degrades to a flat topic list rather than blocking creation.
func (s *DeckService) CreateDeck(input CreateDeckInput) (*model.Deck, error) {
	name := strings.TrimSpace(input.Name)
	syllabusText := strings.TrimSpace(input.SyllabusText)
	if input.UserID == 0 || name == "" || syllabusText == "" {
		return nil, ErrInvalidInput
	}

	topics, err := syllabus.ParseOrFlat(syllabusText)
	if err != nil {
		return nil, ErrInvalidInput
	}
	tree, err := syllabus.EncodeTree(topics)
	if err != nil {
		return nil, err
	}

	deck := &model.Deck{
		UserID:          input.UserID,
		Name:            name,
		SyllabusText:    syllabusText,
		SyllabusTree:    tree,
		IngestionStatus: model.IngestionStatusPending,
	}
	if err := s.deckRepo.Create(deck); err != nil {
		return nil, err
	}
	return deck, nil
}

func (s *DeckService) ListDecks(userID uint) ([]model.Deck, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.deckRepo.ListByUserID(userID)
}

func (s *DeckService) GetDeck(userID, deckID uint) (*model.Deck, error) {
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
	return deck, nil
}

// DeleteDeck cascades: vectors first, then metadata, then the ephemeral
// state. A deck with stale vectors after deletion is a correctness bug,
// so the vector drop failing aborts the whole delete.
func (s *DeckService) DeleteDeck(ctx context.Context, userID, deckID uint) error {
	deck, err := s.GetDeck(userID, deckID)
	if err != nil {
		return err
	}

	if err := s.vectors.DropCollection(ctx, deck.CollectionName()); err != nil {
		return err
	}
	if err := s.chunkRepo.DeleteByDeckID(deck.ID); err != nil {
		return err
	}
	if err := s.fileRepo.DeleteByDeckID(deck.ID); err != nil {
		return err
	}
	if err := s.queryLogRepo.DeleteByDeckID(deck.ID); err != nil {
		return err
	}
	if err := s.deckRepo.DeleteByIDAndUserID(deck.ID, userID); err != nil {
		return err
	}

	s.sessions.DeleteDeck(deck.ID)
	_ = s.conversation.Clear(ctx, userID, deck.ID)
	s.topicCache.invalidate(deck.ID)
	return nil
}

// Coverage recomputes the report from current chunk metadata on every
// call; nothing here can go stale across re-ingestion.
func (s *DeckService) Coverage(userID, deckID uint) (*syllabus.CoverageReport, error) {
	deck, err := s.GetDeck(userID, deckID)
	if err != nil {
		return nil, err
	}
	topics, err := syllabus.DecodeTree(deck.SyllabusTree)
	if err != nil {
		return nil, err
	}

	chunks, err := s.chunkRepo.ListByDeckID(deck.ID)
	if err != nil {
		return nil, err
	}
	chunkTopicIDs := make([][]string, 0, len(chunks))
	for i := range chunks {
		chunkTopicIDs = append(chunkTopicIDs, chunks[i].TopicIDList())
	}

	report := syllabus.Coverage(topics, chunkTopicIDs)
	return &report, nil
}

// Files lists the per-file ingestion outcomes for status polling.
func (s *DeckService) Files(userID, deckID uint) ([]model.IngestedFile, error) {
	if _, err := s.GetDeck(userID, deckID); err != nil {
		return nil, err
	}
	return s.fileRepo.ListByDeckID(deckID)
}
