package model

import "time"

// IngestedFile records one source file processed into a deck.
// Re-uploading the same filename replaces its chunks wholesale.
type IngestedFile struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DeckID     uint      `gorm:"not null;index" json:"deck_id"`
	Filename   string    `gorm:"size:256;not null" json:"filename"`
	ChunkCount int       `gorm:"not null;default:0" json:"chunk_count"`
	Status     string    `gorm:"size:32;not null" json:"status"`
	Error      string    `gorm:"size:512" json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
