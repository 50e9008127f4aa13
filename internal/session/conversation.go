package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// Entry is one turn of the conversation log.
type Entry struct {
	Role      string    `json:"role"` // user | assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationLog keeps a bounded per-(user, deck) dialogue history in
// redis. The key carries both IDs, so one deck's log can never bleed into
// another's prompt.
type ConversationLog struct {
	client     *redisv9.Client
	ttl        time.Duration
	maxEntries int
}

func NewConversationLog(client *redisv9.Client, ttl time.Duration, maxEntries int) *ConversationLog {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 40
	}
	return &ConversationLog{client: client, ttl: ttl, maxEntries: maxEntries}
}

// Append pushes one turn and evicts the oldest entries past the cap.
func (l *ConversationLog) Append(ctx context.Context, userID, deckID uint, role, content string) error {
	payload, err := json.Marshal(Entry{Role: role, Content: content, Timestamp: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal conversation entry failed: %w", err)
	}

	key := l.key(userID, deckID)
	pipe := l.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-l.maxEntries), -1)
	pipe.Expire(ctx, key, l.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append conversation failed: %w", err)
	}
	return nil
}

// Recent returns up to n most recent turns in chronological order.
func (l *ConversationLog) Recent(ctx context.Context, userID, deckID uint, n int) ([]Entry, error) {
	if n <= 0 {
		n = l.maxEntries
	}
	raw, err := l.client.LRange(ctx, l.key(userID, deckID), int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read conversation failed: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (l *ConversationLog) Clear(ctx context.Context, userID, deckID uint) error {
	if err := l.client.Del(ctx, l.key(userID, deckID)).Err(); err != nil {
		return fmt.Errorf("redis clear conversation failed: %w", err)
	}
	return nil
}

func (l *ConversationLog) key(userID, deckID uint) string {
	return fmt.Sprintf("conv:%d:%d", userID, deckID)
}
