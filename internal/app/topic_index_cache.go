package app

import (
	"context"
	"sync"

	"syllabo/internal/model"
	"syllabo/internal/syllabus"
)

// topicIndexCache memoizes per-deck topic-label embeddings so the guard
// and mapper don't re-embed the syllabus on every request. A deck's
// syllabus is fixed at creation, so entries only need invalidation on
// deck deletion.
type topicIndexCache struct {
	mu      sync.Mutex
	llm     syllabus.Embedder
	entries map[uint]*syllabus.TopicIndex
}

func newTopicIndexCache(llm syllabus.Embedder) *topicIndexCache {
	return &topicIndexCache{
		llm:     llm,
		entries: make(map[uint]*syllabus.TopicIndex),
	}
}

func (c *topicIndexCache) get(ctx context.Context, deck *model.Deck) (*syllabus.TopicIndex, []syllabus.Topic, error) {
	topics, err := syllabus.DecodeTree(deck.SyllabusTree)
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	idx, ok := c.entries[deck.ID]
	c.mu.Unlock()
	if ok {
		return idx, topics, nil
	}

	idx, err = syllabus.BuildTopicIndex(ctx, c.llm, topics)
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	c.entries[deck.ID] = idx
	c.mu.Unlock()
	return idx, topics, nil
}

func (c *topicIndexCache) invalidate(deckID uint) {
	c.mu.Lock()
	delete(c.entries, deckID)
	c.mu.Unlock()
}
