package models

import (
	"time"

	"github.com/lib/pq"
)

type AnalysisStatus string

const (
	AnalysisStatusPending    AnalysisStatus = "PENDING"
	AnalysisStatusInProgress AnalysisStatus = "IN_PROGRESS"
	AnalysisStatusCompleted  AnalysisStatus = "COMPLETED"
	AnalysisStatusFailed     AnalysisStatus = "FAILED"
)

// Ticket is the slice of the external ticket record the pipeline needs.
// The ticket workflow layer owns the full schema.
type Ticket struct {
	ID      uint   `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// TicketAnalysis holds the AI diagnostic result for one ticket. There is at
// most one row per ticket; the orchestrator is the only writer.
type TicketAnalysis struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	TicketID       uint           `json:"ticketId" gorm:"not null;uniqueIndex"`
	Status         AnalysisStatus `json:"status" gorm:"not null;default:'PENDING'"`
	Summary        string         `json:"summary" gorm:"type:text"`
	Confidence     float64        `json:"confidence"`
	Keywords       pq.StringArray `json:"keywords" gorm:"type:text[]"`
	PossibleCauses pq.StringArray `json:"possibleCauses" gorm:"type:text[]"`
	RelatedLogs    RelatedLogList `json:"relatedLogs" gorm:"type:jsonb"`
	Recommendation string         `json:"recommendation" gorm:"type:text"`
	ErrorMessage   string         `json:"errorMessage" gorm:"type:text"`
	AnalyzedAt     *time.Time     `json:"analyzedAt"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func (TicketAnalysis) TableName() string {
	return "ticket_analyses"
}
