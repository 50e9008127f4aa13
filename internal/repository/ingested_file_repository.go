package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"syllabo/internal/model"
)

type IngestedFileRepository struct {
	db *gorm.DB
}

func NewIngestedFileRepository(db *gorm.DB) *IngestedFileRepository {
	return &IngestedFileRepository{db: db}
}

// Upsert records the outcome for a filename, replacing any earlier record.
func (r *IngestedFileRepository) Upsert(file *model.IngestedFile) error {
	var existing model.IngestedFile
	err := r.db.Where("deck_id = ? AND filename = ?", file.DeckID, file.Filename).
		First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lookup ingested file failed: %w", err)
		}
		if err := r.db.Create(file).Error; err != nil {
			return fmt.Errorf("create ingested file failed: %w", err)
		}
		return nil
	}
	file.ID = existing.ID
	file.CreatedAt = existing.CreatedAt
	if err := r.db.Save(file).Error; err != nil {
		return fmt.Errorf("update ingested file failed: %w", err)
	}
	return nil
}

func (r *IngestedFileRepository) ListByDeckID(deckID uint) ([]model.IngestedFile, error) {
	var list []model.IngestedFile
	if err := r.db.Where("deck_id = ?", deckID).Order("filename").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list ingested files failed: %w", err)
	}
	return list, nil
}

func (r *IngestedFileRepository) DeleteByDeckID(deckID uint) error {
	if err := r.db.Where("deck_id = ?", deckID).Delete(&model.IngestedFile{}).Error; err != nil {
		return fmt.Errorf("delete ingested files by deck failed: %w", err)
	}
	return nil
}
