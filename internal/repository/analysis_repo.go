package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/ticketpilot/backend/internal/models"
	"github.com/ticketpilot/backend/internal/services"
	"gorm.io/gorm"
)

// AnalysisRepository persists TicketAnalysis records in postgres. Status
// transitions are conditional UPDATEs so the check-then-act happens in one
// statement against the persisted status.
type AnalysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Create(ctx context.Context, analysis *models.TicketAnalysis) error {
	return r.db.WithContext(ctx).Create(analysis).Error
}

func (r *AnalysisRepository) GetByTicketID(ctx context.Context, ticketID uint) (*models.TicketAnalysis, error) {
	var analysis models.TicketAnalysis
	err := r.db.WithContext(ctx).Where("ticket_id = ?", ticketID).First(&analysis).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("ticket %d: %w", ticketID, services.ErrAnalysisNotFound)
		}
		return nil, err
	}
	return &analysis, nil
}

func (r *AnalysisRepository) TransitionStatus(ctx context.Context, ticketID uint, from []models.AnalysisStatus, to models.AnalysisStatus) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.TicketAnalysis{}).
		Where("ticket_id = ? AND status IN ?", ticketID, from).
		Update("status", to)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *AnalysisRepository) ResetForReanalysis(ctx context.Context, ticketID uint) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.TicketAnalysis{}).
		Where("ticket_id = ? AND status IN ?", ticketID,
			[]models.AnalysisStatus{models.AnalysisStatusCompleted, models.AnalysisStatusFailed}).
		Updates(map[string]interface{}{
			"status":          models.AnalysisStatusPending,
			"summary":         "",
			"confidence":      0.0,
			"keywords":        pq.StringArray{},
			"possible_causes": pq.StringArray{},
			"related_logs":    models.RelatedLogList{},
			"recommendation":  "",
			"error_message":   "",
			"analyzed_at":     nil,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *AnalysisRepository) Complete(ctx context.Context, ticketID uint, outcome *services.AnalysisOutcome) error {
	now := time.Now()
	tx := r.db.WithContext(ctx).
		Model(&models.TicketAnalysis{}).
		Where("ticket_id = ? AND status = ?", ticketID, models.AnalysisStatusInProgress).
		Updates(map[string]interface{}{
			"status":          models.AnalysisStatusCompleted,
			"summary":         outcome.Summary,
			"confidence":      outcome.Confidence,
			"keywords":        pq.StringArray(outcome.Keywords),
			"possible_causes": pq.StringArray(outcome.PossibleCauses),
			"related_logs":    models.RelatedLogList(outcome.RelatedLogs),
			"recommendation":  outcome.Recommendation,
			"error_message":   "",
			"analyzed_at":     &now,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("analysis for ticket %d is not IN_PROGRESS", ticketID)
	}
	return nil
}

func (r *AnalysisRepository) Fail(ctx context.Context, ticketID uint, message string) error {
	return r.db.WithContext(ctx).
		Model(&models.TicketAnalysis{}).
		Where("ticket_id = ?", ticketID).
		Updates(map[string]interface{}{
			"status":        models.AnalysisStatusFailed,
			"error_message": message,
		}).Error
}
