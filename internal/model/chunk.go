package model

import (
	"encoding/json"
	"time"
)

// Chunk is the metadata row for one embedded text fragment. The vector
// itself lives in the deck's qdrant collection under the same ID.
type Chunk struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DeckID     uint      `gorm:"not null;index" json:"deck_id"`
	SourceFile string    `gorm:"size:256;not null;index" json:"source_file"`
	Seq        int       `gorm:"not null" json:"seq"` // position within the source file
	Content    string    `gorm:"type:text;not null" json:"content"`
	TokenCount int       `gorm:"not null;default:0" json:"token_count"` // rune count of Content
	TopicIDs   string    `gorm:"type:text" json:"-"` // JSON array of topic IDs
	CreatedAt  time.Time `json:"created_at"`
}

// TopicIDList returns the parsed topic IDs; nil on parse error.
func (c *Chunk) TopicIDList() []string {
	if c.TopicIDs == "" {
		return nil
	}
	var ids []string
	_ = json.Unmarshal([]byte(c.TopicIDs), &ids)
	return ids
}

// SetTopicIDs stores the mapped topic IDs as JSON.
func (c *Chunk) SetTopicIDs(ids []string) {
	if len(ids) == 0 {
		c.TopicIDs = "[]"
		return
	}
	b, _ := json.Marshal(ids)
	c.TopicIDs = string(b)
}
