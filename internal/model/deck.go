package model

import (
	"fmt"
	"time"
)

const (
	IngestionStatusPending    = "pending"
	IngestionStatusProcessing = "processing"
	IngestionStatusDone       = "done"
	IngestionStatusFailed     = "failed"
)

// Deck is a user's course bundle: uploaded materials plus the syllabus
// that bounds what the tutor may talk about.
type Deck struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	Name            string    `gorm:"size:256;not null" json:"name"`
	SyllabusText    string    `gorm:"type:text" json:"syllabus_text"`
	SyllabusTree    string    `gorm:"type:text" json:"-"` // JSON-encoded topic tree
	IngestionStatus string    `gorm:"size:32;not null;default:pending" json:"ingestion_status"`
	IngestionError  string    `gorm:"size:512" json:"ingestion_error,omitempty"`
	ChunkCount      int       `gorm:"not null;default:0" json:"chunk_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CollectionName is the vector collection this deck's chunks live in.
// One collection per deck keeps retrieval structurally scoped.
func (d *Deck) CollectionName() string {
	return fmt.Sprintf("deck_%d_%d", d.UserID, d.ID)
}
