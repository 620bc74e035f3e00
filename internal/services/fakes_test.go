package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/ticketpilot/backend/internal/models"
)

type logSearchCall struct {
	query      string
	maxResults int
}

type fakeLogSearch struct {
	mu      sync.Mutex
	results map[string][]models.LogEntry
	errors  map[string]error
	calls   []logSearchCall
	// ignoreLimit simulates a backend returning more rows than requested
	ignoreLimit bool
}

func newFakeLogSearch() *fakeLogSearch {
	return &fakeLogSearch{
		results: make(map[string][]models.LogEntry),
		errors:  make(map[string]error),
	}
}

func (f *fakeLogSearch) SearchLogs(ctx context.Context, query string, from, to time.Time, maxResults int) (*models.LogAnalysisResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, logSearchCall{query: query, maxResults: maxResults})
	f.mu.Unlock()

	if err, ok := f.errors[query]; ok {
		return nil, err
	}
	logs := f.results[query]
	if !f.ignoreLimit && len(logs) > maxResults {
		logs = logs[:maxResults]
	}
	return &models.LogAnalysisResult{Logs: logs, TotalCount: len(logs)}, nil
}

func (f *fakeLogSearch) SearchErrorLogs(ctx context.Context, service string, from, to time.Time, maxResults int) (*models.LogAnalysisResult, error) {
	return &models.LogAnalysisResult{}, nil
}

func (f *fakeLogSearch) GetLogStatistics(ctx context.Context, from, to time.Time) (*models.LogAnalysisResult, error) {
	return &models.LogAnalysisResult{}, nil
}

func (f *fakeLogSearch) SearchServiceLogs(ctx context.Context, service, level string, from, to time.Time, maxResults int) (*models.LogAnalysisResult, error) {
	return &models.LogAnalysisResult{}, nil
}

func (f *fakeLogSearch) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeTextGen struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	// when set, SendPrompt blocks until the channel is closed
	block chan struct{}
}

func (f *fakeTextGen) SendPrompt(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeTextGen) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTicketLookup struct {
	tickets map[uint]*models.Ticket
}

func (f *fakeTicketLookup) GetByID(ctx context.Context, id uint) (*models.Ticket, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket %d: %w", id, ErrTicketNotFound)
	}
	return ticket, nil
}

// memAnalysisStore implements the conditional-transition semantics of the
// real repository in memory and records the status history per ticket.
type memAnalysisStore struct {
	mu      sync.Mutex
	records map[uint]*models.TicketAnalysis
	history map[uint][]models.AnalysisStatus
	nextID  uint
}

func newMemAnalysisStore() *memAnalysisStore {
	return &memAnalysisStore{
		records: make(map[uint]*models.TicketAnalysis),
		history: make(map[uint][]models.AnalysisStatus),
	}
}

func (s *memAnalysisStore) setStatus(record *models.TicketAnalysis, status models.AnalysisStatus) {
	record.Status = status
	s.history[record.TicketID] = append(s.history[record.TicketID], status)
}

func (s *memAnalysisStore) Create(ctx context.Context, analysis *models.TicketAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[analysis.TicketID]; exists {
		return fmt.Errorf("duplicate analysis for ticket %d", analysis.TicketID)
	}
	s.nextID++
	analysis.ID = s.nextID
	analysis.CreatedAt = time.Now()
	record := *analysis
	s.records[analysis.TicketID] = &record
	s.history[analysis.TicketID] = append(s.history[analysis.TicketID], analysis.Status)
	return nil
}

func (s *memAnalysisStore) GetByTicketID(ctx context.Context, ticketID uint) (*models.TicketAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[ticketID]
	if !ok {
		return nil, fmt.Errorf("ticket %d: %w", ticketID, ErrAnalysisNotFound)
	}
	snapshot := *record
	return &snapshot, nil
}

func (s *memAnalysisStore) TransitionStatus(ctx context.Context, ticketID uint, from []models.AnalysisStatus, to models.AnalysisStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[ticketID]
	if !ok {
		return false, nil
	}
	for _, status := range from {
		if record.Status == status {
			s.setStatus(record, to)
			return true, nil
		}
	}
	return false, nil
}

func (s *memAnalysisStore) ResetForReanalysis(ctx context.Context, ticketID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[ticketID]
	if !ok {
		return false, nil
	}
	if record.Status != models.AnalysisStatusCompleted && record.Status != models.AnalysisStatusFailed {
		return false, nil
	}
	record.Summary = ""
	record.Confidence = 0
	record.Keywords = nil
	record.PossibleCauses = nil
	record.RelatedLogs = nil
	record.Recommendation = ""
	record.ErrorMessage = ""
	record.AnalyzedAt = nil
	s.setStatus(record, models.AnalysisStatusPending)
	return true, nil
}

func (s *memAnalysisStore) Complete(ctx context.Context, ticketID uint, outcome *AnalysisOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[ticketID]
	if !ok {
		return fmt.Errorf("ticket %d: %w", ticketID, ErrAnalysisNotFound)
	}
	if record.Status != models.AnalysisStatusInProgress {
		return fmt.Errorf("analysis for ticket %d is not IN_PROGRESS", ticketID)
	}
	now := time.Now()
	record.Summary = outcome.Summary
	record.Confidence = outcome.Confidence
	record.Keywords = pq.StringArray(outcome.Keywords)
	record.PossibleCauses = pq.StringArray(outcome.PossibleCauses)
	record.RelatedLogs = models.RelatedLogList(outcome.RelatedLogs)
	record.Recommendation = outcome.Recommendation
	record.ErrorMessage = ""
	record.AnalyzedAt = &now
	s.setStatus(record, models.AnalysisStatusCompleted)
	return nil
}

func (s *memAnalysisStore) Fail(ctx context.Context, ticketID uint, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[ticketID]
	if !ok {
		return fmt.Errorf("ticket %d: %w", ticketID, ErrAnalysisNotFound)
	}
	record.ErrorMessage = message
	s.setStatus(record, models.AnalysisStatusFailed)
	return nil
}

func (s *memAnalysisStore) statusHistory(ticketID uint) []models.AnalysisStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AnalysisStatus{}, s.history[ticketID]...)
}

type memEmbeddingStore struct {
	mu      sync.Mutex
	vectors map[uint]string
}

func newMemEmbeddingStore() *memEmbeddingStore {
	return &memEmbeddingStore{vectors: make(map[uint]string)}
}

func (s *memEmbeddingStore) Upsert(ctx context.Context, ticketID uint, vector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[ticketID] = vector
	return nil
}

func (s *memEmbeddingStore) GetByTicketID(ctx context.Context, ticketID uint) (*models.TicketEmbedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vector, ok := s.vectors[ticketID]
	if !ok {
		return nil, fmt.Errorf("ticket %d: %w", ticketID, ErrEmbeddingNotFound)
	}
	return &models.TicketEmbedding{TicketID: ticketID, Vector: vector}, nil
}

func (s *memEmbeddingStore) ListAll(ctx context.Context) ([]models.TicketEmbedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	embeddings := make([]models.TicketEmbedding, 0, len(s.vectors))
	for ticketID, vector := range s.vectors {
		embeddings = append(embeddings, models.TicketEmbedding{TicketID: ticketID, Vector: vector})
	}
	return embeddings, nil
}

func (s *memEmbeddingStore) Delete(ctx context.Context, ticketID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vectors, ticketID)
	return nil
}

func (s *memEmbeddingStore) Exists(ctx context.Context, ticketID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.vectors[ticketID]
	return ok, nil
}

type fakeEmbedder struct {
	mu       sync.Mutex
	vector   []float64
	err      error
	failures int
	calls    int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, &TransportError{Err: fmt.Errorf("connection refused")}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
