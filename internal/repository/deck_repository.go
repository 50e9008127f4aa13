package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"syllabo/internal/model"
)

type DeckRepository struct {
	db *gorm.DB
}

func NewDeckRepository(db *gorm.DB) *DeckRepository {
	return &DeckRepository{db: db}
}

func (r *DeckRepository) Create(deck *model.Deck) error {
	if err := r.db.Create(deck).Error; err != nil {
		return fmt.Errorf("create deck failed: %w", err)
	}
	return nil
}

func (r *DeckRepository) GetByIDAndUserID(id, userID uint) (*model.Deck, error) {
	var deck model.Deck
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&deck).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get deck failed: %w", err)
	}
	return &deck, nil
}

func (r *DeckRepository) ListByUserID(userID uint) ([]model.Deck, error) {
	var list []model.Deck
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list decks failed: %w", err)
	}
	return list, nil
}

func (r *DeckRepository) DeleteByIDAndUserID(id, userID uint) error {
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Deck{}).Error; err != nil {
		return fmt.Errorf("delete deck failed: %w", err)
	}
	return nil
}

// MarkQueued flips a deck back to pending when a new batch is enqueued,
// so a status poll never reports a stale done or failed while a job is
// waiting in the queue. Returns false while an ingestion is running.
func (r *DeckRepository) MarkQueued(id uint) (bool, error) {
	res := r.db.Model(&model.Deck{}).
		Where("id = ? AND ingestion_status <> ?", id, model.IngestionStatusProcessing).
		Updates(map[string]any{
			"ingestion_status": model.IngestionStatusPending,
			"ingestion_error":  "",
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark deck queued failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkProcessing flips a pending or failed deck to processing. Returns false
// when another ingestion already holds the deck.
func (r *DeckRepository) MarkProcessing(id uint) (bool, error) {
	res := r.db.Model(&model.Deck{}).
		Where("id = ? AND ingestion_status <> ?", id, model.IngestionStatusProcessing).
		Updates(map[string]any{
			"ingestion_status": model.IngestionStatusProcessing,
			"ingestion_error":  "",
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark deck processing failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *DeckRepository) FinishIngestion(id uint, status, ingestErr string, chunkCount int) error {
	updates := map[string]any{
		"ingestion_status": status,
		"ingestion_error":  ingestErr,
		"chunk_count":      chunkCount,
	}
	if err := r.db.Model(&model.Deck{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("finish deck ingestion failed: %w", err)
	}
	return nil
}
