package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"filiale-console/internal/model"
)

type TranscriptRepository struct {
	db *gorm.DB
}

func NewTranscriptRepository(db *gorm.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// Create stores one archived message. Redelivered messages are ignored.
func (r *TranscriptRepository) Create(ctx context.Context, msg *model.ArchivedMessage) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(msg).Error
	if err != nil {
		return fmt.Errorf("create archived message failed: %w", err)
	}
	return nil
}
