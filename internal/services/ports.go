package services

import (
	"context"
	"errors"
	"time"

	"github.com/ticketpilot/backend/internal/models"
)

var (
	// ErrAnalysisNotFound is returned when no analysis record exists for a ticket.
	ErrAnalysisNotFound = errors.New("analysis not found")
	// ErrTicketNotFound is returned when the ticket workflow layer does not
	// know the ticket. This one fails loudly: it indicates broken data
	// integrity upstream.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrEmbeddingUnavailable is returned once embedding retries are exhausted.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	// ErrEmbeddingNotFound is returned when a ticket has no stored embedding.
	ErrEmbeddingNotFound = errors.New("embedding not found")
)

// LogSearchPort is the external log store the correlation engine searches.
type LogSearchPort interface {
	SearchLogs(ctx context.Context, query string, from, to time.Time, maxResults int) (*models.LogAnalysisResult, error)
	SearchErrorLogs(ctx context.Context, service string, from, to time.Time, maxResults int) (*models.LogAnalysisResult, error)
	GetLogStatistics(ctx context.Context, from, to time.Time) (*models.LogAnalysisResult, error)
	SearchServiceLogs(ctx context.Context, service, level string, from, to time.Time, maxResults int) (*models.LogAnalysisResult, error)
}

// TextGenerationPort sends a prompt to a language model and returns the raw
// reply text.
type TextGenerationPort interface {
	SendPrompt(ctx context.Context, prompt string) (string, error)
}

// EmbeddingPort converts text to a fixed-length vector.
type EmbeddingPort interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// TicketLookupPort loads ticket text when reanalysis needs it.
type TicketLookupPort interface {
	GetByID(ctx context.Context, id uint) (*models.Ticket, error)
}

// Notifier receives analysis outcomes as a best-effort side effect. All
// implementations carry both methods; the orchestrator never probes for
// optional capabilities.
type Notifier interface {
	TicketAnalyzed(ticket *models.Ticket, outcome *AnalysisOutcome)
	TicketAnalysisFailed(ticket *models.Ticket, message string)
}

// NopNotifier is the default when no notification collaborator is configured.
type NopNotifier struct{}

func (NopNotifier) TicketAnalyzed(*models.Ticket, *AnalysisOutcome) {}

func (NopNotifier) TicketAnalysisFailed(*models.Ticket, string) {}

// AnalysisStore persists TicketAnalysis records. Status transitions are
// conditional on the current persisted status so concurrent runs cannot race.
type AnalysisStore interface {
	Create(ctx context.Context, analysis *models.TicketAnalysis) error
	GetByTicketID(ctx context.Context, ticketID uint) (*models.TicketAnalysis, error)
	// TransitionStatus moves the record from one of the given statuses to the
	// target status and reports whether the transition happened.
	TransitionStatus(ctx context.Context, ticketID uint, from []models.AnalysisStatus, to models.AnalysisStatus) (bool, error)
	// ResetForReanalysis clears all result fields and returns the record to
	// PENDING, but only from COMPLETED or FAILED.
	ResetForReanalysis(ctx context.Context, ticketID uint) (bool, error)
	Complete(ctx context.Context, ticketID uint, outcome *AnalysisOutcome) error
	Fail(ctx context.Context, ticketID uint, message string) error
}

// EmbeddingStore persists ticket embeddings, one row per ticket.
type EmbeddingStore interface {
	Upsert(ctx context.Context, ticketID uint, vector string) error
	GetByTicketID(ctx context.Context, ticketID uint) (*models.TicketEmbedding, error)
	ListAll(ctx context.Context) ([]models.TicketEmbedding, error)
	Delete(ctx context.Context, ticketID uint) error
	Exists(ctx context.Context, ticketID uint) (bool, error)
}
