package model

import "time"

// QueryLog keeps one row per answered query for coverage analytics.
// Scope holds the guard's decision verbatim.
type QueryLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	DeckID    uint      `gorm:"not null;index" json:"deck_id"`
	Query     string    `gorm:"type:text;not null" json:"query"`
	Scope     string    `gorm:"size:16;not null" json:"scope"`
	Pace      string    `gorm:"size:16" json:"pace"`
	TopicIDs  string    `gorm:"type:text" json:"topic_ids"` // JSON array of matched topic IDs
	TopScore  float64   `json:"top_score"`
	CreatedAt time.Time `json:"created_at"`
}
