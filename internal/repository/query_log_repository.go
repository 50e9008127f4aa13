package repository

import (
	"fmt"

	"gorm.io/gorm"

	"syllabo/internal/model"
)

type QueryLogRepository struct {
	db *gorm.DB
}

func NewQueryLogRepository(db *gorm.DB) *QueryLogRepository {
	return &QueryLogRepository{db: db}
}

func (r *QueryLogRepository) Create(entry *model.QueryLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("create query log failed: %w", err)
	}
	return nil
}

func (r *QueryLogRepository) ListByDeckID(userID, deckID uint) ([]model.QueryLog, error) {
	var list []model.QueryLog
	if err := r.db.Where("user_id = ? AND deck_id = ?", userID, deckID).
		Order("created_at").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list query logs failed: %w", err)
	}
	return list, nil
}

func (r *QueryLogRepository) DeleteByDeckID(deckID uint) error {
	if err := r.db.Where("deck_id = ?", deckID).Delete(&model.QueryLog{}).Error; err != nil {
		return fmt.Errorf("delete query logs by deck failed: %w", err)
	}
	return nil
}
