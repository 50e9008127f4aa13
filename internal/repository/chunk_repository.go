package repository

import (
	"fmt"

	"gorm.io/gorm"

	"syllabo/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// ReplaceForFile swaps all chunks of one source file inside a transaction
// and returns the freshly inserted rows with their IDs assigned.
func (r *ChunkRepository) ReplaceForFile(deckID uint, sourceFile string, chunks []model.Chunk) ([]model.Chunk, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("deck_id = ? AND source_file = ?", deckID, sourceFile).
			Delete(&model.Chunk{}).Error; err != nil {
			return fmt.Errorf("delete old chunks failed: %w", err)
		}
		if len(chunks) == 0 {
			return nil
		}
		if err := tx.Create(&chunks).Error; err != nil {
			return fmt.Errorf("insert chunks failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replace chunks for file failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) ListByIDs(ids []uint) ([]model.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var chunks []model.Chunk
	if err := r.db.Where("id IN ?", ids).Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by ids failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) ListByDeckID(deckID uint) ([]model.Chunk, error) {
	var chunks []model.Chunk
	if err := r.db.Where("deck_id = ?", deckID).Order("source_file, seq").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by deck failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) CountByDeckID(deckID uint) (int, error) {
	var count int64
	if err := r.db.Model(&model.Chunk{}).Where("deck_id = ?", deckID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count chunks by deck failed: %w", err)
	}
	return int(count), nil
}

func (r *ChunkRepository) DeleteByDeckID(deckID uint) error {
	if err := r.db.Where("deck_id = ?", deckID).Delete(&model.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks by deck failed: %w", err)
	}
	return nil
}

func (r *ChunkRepository) DeleteByIDs(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.Where("id IN ?", ids).Delete(&model.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks by ids failed: %w", err)
	}
	return nil
}
