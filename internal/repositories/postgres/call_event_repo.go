package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/coachline/coachline/internal/models"
)

type CallEventRepository interface {
	Insert(ctx context.Context, event *models.CallEvent) error
	// ListByCall returns the chronological trajectory for one call.
	ListByCall(ctx context.Context, callID string) ([]models.CallEvent, error)
}

type callEventRepo struct {
	db *gorm.DB
}

func NewCallEventRepo(db *gorm.DB) CallEventRepository {
	return &callEventRepo{db: db}
}

func (r *callEventRepo) Insert(ctx context.Context, event *models.CallEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *callEventRepo) ListByCall(ctx context.Context, callID string) ([]models.CallEvent, error) {
	var rows []models.CallEvent
	err := r.db.WithContext(ctx).
		Where("call_id = ?", callID).
		Order("timestamp ASC").
		Find(&rows).Error
	return rows, err
}
