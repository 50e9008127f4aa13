package app

import (
	"time"

	"gorm.io/gorm"

	"syllabo/internal/ai"
	"syllabo/internal/guard"
	"syllabo/internal/ingest"
	"syllabo/internal/platform/qdrant"
	"syllabo/internal/repository"
	"syllabo/internal/search"
	"syllabo/internal/session"
)

// Services bundles the wired application layer. The topic index cache and
// the retriever are shared internals and never leave this package.
type Services struct {
	Auth      *AuthService
	Decks     *DeckService
	Ingests   *IngestService
	Queries   *QueryService
	Practices *PracticeService
	Teaching  *TeachService
}

type ServiceDeps struct {
	DB           *gorm.DB
	LLM          *ai.Service
	Vectors      *qdrant.Client
	Sessions     *session.Store
	Conversation *session.ConversationLog
	Publisher    JobPublisher
	Searcher     *search.Client

	GuardCfg guard.Config

	ChunkSize      int
	ChunkOverlap   int
	MinChunkSize   int
	EmbedBatchSize int
	UploadDir      string

	JWTSecret     string
	JWTExpiration time.Duration
}

func NewServices(d ServiceDeps) *Services {
	userRepo := repository.NewUserRepository(d.DB)
	deckRepo := repository.NewDeckRepository(d.DB)
	chunkRepo := repository.NewChunkRepository(d.DB)
	fileRepo := repository.NewIngestedFileRepository(d.DB)
	queryLogRepo := repository.NewQueryLogRepository(d.DB)

	topicCache := newTopicIndexCache(d.LLM)
	retriever := NewRetriever(d.LLM, d.Vectors, chunkRepo)
	chunker := ingest.NewChunker(d.ChunkSize, d.ChunkOverlap, d.MinChunkSize)

	decks := NewDeckService(deckRepo, chunkRepo, fileRepo, queryLogRepo, d.Vectors, d.Sessions, d.Conversation, topicCache)
	ingests := NewIngestService(
		deckRepo, chunkRepo, fileRepo,
		d.LLM, d.Vectors, d.Publisher, topicCache, chunker,
		d.UploadDir, d.EmbedBatchSize, d.GuardCfg.TopicThreshold,
	)
	queries := NewQueryService(deckRepo, queryLogRepo, retriever, d.LLM, d.GuardCfg, topicCache, d.Conversation, d.Sessions, d.Searcher)
	practices := NewPracticeService(deckRepo, retriever, d.LLM, d.Sessions)
	teaching := NewTeachService(deckRepo, retriever, d.LLM, d.Sessions, d.Conversation, queries, practices)

	return &Services{
		Auth:      NewAuthService(userRepo, d.JWTSecret, d.JWTExpiration),
		Decks:     decks,
		Ingests:   ingests,
		Queries:   queries,
		Practices: practices,
		Teaching:  teaching,
	}
}
