package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ticketpilot/backend/internal/models"
	"github.com/ticketpilot/backend/internal/services"
	"gorm.io/gorm"
)

// EmbeddingRepository persists ticket embeddings, one row per ticket.
type EmbeddingRepository struct {
	db *gorm.DB
}

func NewEmbeddingRepository(db *gorm.DB) *EmbeddingRepository {
	return &EmbeddingRepository{db: db}
}

// Upsert replaces an existing vector in place; a ticket never gets a second
// embedding row.
func (r *EmbeddingRepository) Upsert(ctx context.Context, ticketID uint, vector string) error {
	var existing models.TicketEmbedding
	err := r.db.WithContext(ctx).Where("ticket_id = ?", ticketID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.db.WithContext(ctx).Create(&models.TicketEmbedding{
				TicketID: ticketID,
				Vector:   vector,
			}).Error
		}
		return err
	}

	return r.db.WithContext(ctx).
		Model(&models.TicketEmbedding{}).
		Where("ticket_id = ?", ticketID).
		Update("vector", vector).Error
}

func (r *EmbeddingRepository) GetByTicketID(ctx context.Context, ticketID uint) (*models.TicketEmbedding, error) {
	var embedding models.TicketEmbedding
	err := r.db.WithContext(ctx).Where("ticket_id = ?", ticketID).First(&embedding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("ticket %d: %w", ticketID, services.ErrEmbeddingNotFound)
		}
		return nil, err
	}
	return &embedding, nil
}

func (r *EmbeddingRepository) ListAll(ctx context.Context) ([]models.TicketEmbedding, error) {
	var embeddings []models.TicketEmbedding
	if err := r.db.WithContext(ctx).Find(&embeddings).Error; err != nil {
		return nil, err
	}
	return embeddings, nil
}

func (r *EmbeddingRepository) Delete(ctx context.Context, ticketID uint) error {
	return r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Delete(&models.TicketEmbedding{}).Error
}

func (r *EmbeddingRepository) Exists(ctx context.Context, ticketID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TicketEmbedding{}).
		Where("ticket_id = ?", ticketID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
