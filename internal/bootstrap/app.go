package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"syllabo/internal/ai"
	appsvc "syllabo/internal/app"
	"syllabo/internal/config"
	"syllabo/internal/guard"
	"syllabo/internal/model"
	mysqlClient "syllabo/internal/platform/mysql"
	"syllabo/internal/platform/qdrant"
	rabbitmqClient "syllabo/internal/platform/rabbitmq"
	redisClient "syllabo/internal/platform/redis"
	"syllabo/internal/search"
	"syllabo/internal/session"
	"syllabo/internal/worker"
)

type App struct {
	Config       *config.Config
	MySQL        *gorm.DB
	Redis        *redis.Client
	MQConn       *amqp.Connection
	Qdrant       *qdrant.Client
	Sessions     *session.Store
	Services     *appsvc.Services
	IngestWorker *worker.IngestWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.User{},
		&model.Deck{},
		&model.Chunk{},
		&model.IngestedFile{},
		&model.QueryLog{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	vectors, err := qdrant.New(ctx, cfg.Qdrant.BaseURL, cfg.Qdrant.APIKey)
	if err != nil {
		return nil, err
	}

	llm := ai.NewService(
		ai.ChatConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		},
		ai.EmbeddingConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.EmbeddingModel,
			Dim:     cfg.LLM.EmbeddingDim,
		},
	)

	sessions := session.NewStore(
		time.Duration(cfg.Session.TTLMinutes)*time.Minute,
		time.Duration(cfg.Session.SweepSeconds)*time.Second,
	)
	conversation := session.NewConversationLog(
		redisCli,
		time.Duration(cfg.Redis.ConversationTTLSeconds)*time.Second,
		cfg.Redis.ConversationMaxEntries,
	)

	searcher := search.NewClient(
		cfg.Search.TrustedDomains,
		cfg.Search.MaxResults,
		cfg.Search.TimeoutSeconds,
		cfg.Search.Enabled,
	)

	publisher := rabbitmqClient.NewIngestPublisher(mqConn, cfg.RabbitMQ.IngestJobQueue)

	services := appsvc.NewServices(appsvc.ServiceDeps{
		DB:           mysqlDB,
		LLM:          llm,
		Vectors:      vectors,
		Sessions:     sessions,
		Conversation: conversation,
		Publisher:    publisher,
		Searcher:     searcher,
		GuardCfg: guard.Config{
			DomainThreshold: cfg.Guard.DomainThreshold,
			TopicThreshold:  cfg.Guard.TopicThreshold,
		},
		ChunkSize:      cfg.Ingest.ChunkSize,
		ChunkOverlap:   cfg.Ingest.ChunkOverlap,
		MinChunkSize:   cfg.Ingest.MinChunkSize,
		EmbedBatchSize: cfg.Ingest.EmbedBatchSize,
		UploadDir:      cfg.Ingest.UploadDir,
		JWTSecret:      cfg.Auth.JWTSecret,
		JWTExpiration:  time.Duration(cfg.Auth.JWTExpireMinute) * time.Minute,
	})

	ingestWorker := worker.NewIngestWorker(mqConn, services.Ingests, cfg.RabbitMQ.IngestJobQueue)
	if err := ingestWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ingest worker failed: %w", err)
	}

	return &App{
		Config:       cfg,
		MySQL:        mysqlDB,
		Redis:        redisCli,
		MQConn:       mqConn,
		Qdrant:       vectors,
		Sessions:     sessions,
		Services:     services,
		IngestWorker: ingestWorker,
		StartedAt:    time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
