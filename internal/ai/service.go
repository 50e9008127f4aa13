package ai

import (
	"context"
	"time"
)

// Service binds the compatible client to one chat model and one embedding
// model, and applies the transient-failure policy: one retry with a short
// backoff, then surface the typed error.
type Service struct {
	client  *OpenAICompatibleClient
	chatCfg ChatConfig
	embCfg  EmbeddingConfig
}

func NewService(chatCfg ChatConfig, embCfg EmbeddingConfig) *Service {
	return &Service{
		client:  NewOpenAICompatibleClient(),
		chatCfg: chatCfg,
		embCfg:  embCfg,
	}
}

func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := retryOnce(ctx, func() error {
		var embedErr error
		vec, embedErr = s.client.Embed(ctx, s.embCfg, text)
		return embedErr
	})
	return vec, err
}

func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := retryOnce(ctx, func() error {
		var embedErr error
		vectors, embedErr = s.client.EmbedBatch(ctx, s.embCfg, texts)
		return embedErr
	})
	return vectors, err
}

func (s *Service) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	var out string
	err := retryOnce(ctx, func() error {
		var genErr error
		out, genErr = s.client.Complete(ctx, s.chatCfg, messages)
		return genErr
	})
	return out, err
}

func retryOnce(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return err
	case <-time.After(500 * time.Millisecond):
	}
	return fn()
}
