package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/coachline/coachline/internal/models"
)

type TranscriptRepository interface {
	Insert(ctx context.Context, row *models.Transcript) error
	ListRecent(ctx context.Context, limit int) ([]models.Transcript, error)
}

type transcriptRepo struct {
	db *gorm.DB
}

func NewTranscriptRepo(db *gorm.DB) TranscriptRepository {
	return &transcriptRepo{db: db}
}

func (r *transcriptRepo) Insert(ctx context.Context, row *models.Transcript) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *transcriptRepo) ListRecent(ctx context.Context, limit int) ([]models.Transcript, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Transcript
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
