package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/ticketpilot/backend/internal/logger"
	"github.com/ticketpilot/backend/internal/models"
)

type analysisJob struct {
	runID  string
	ticket models.Ticket
}

// AnalysisService drives the per-ticket analysis pipeline. The request path
// only creates the PENDING record and enqueues; the pool of workers performs
// the slow outbound calls. Per ticket at most one run is in flight, enforced
// by conditional status transitions against the persisted record.
type AnalysisService struct {
	store       AnalysisStore
	tickets     TicketLookupPort
	correlation *CorrelationService
	interpreter *InterpreterService
	notifier    Notifier
	queue       chan analysisJob
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// NewAnalysisService creates the orchestrator and starts its workers. The
// pool is deliberately small to cap concurrent calls to the log store and
// the language model.
func NewAnalysisService(store AnalysisStore, tickets TicketLookupPort, correlation *CorrelationService, interpreter *InterpreterService, notifier Notifier) *AnalysisService {
	workerCount := 2
	if v := os.Getenv("ANALYSIS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			workerCount = n
		}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}

	as := &AnalysisService{
		store:       store,
		tickets:     tickets,
		correlation: correlation,
		interpreter: interpreter,
		notifier:    notifier,
		queue:       make(chan analysisJob, 100),
		stopChan:    make(chan struct{}),
	}

	for i := 0; i < workerCount; i++ {
		as.wg.Add(1)
		go as.worker(i)
	}

	return as
}

// Stop drains the workers. Queued jobs that have not started stay PENDING in
// the database and are picked up on the next reanalysis request.
func (as *AnalysisService) Stop() {
	close(as.stopChan)
	as.wg.Wait()
}

func (as *AnalysisService) worker(id int) {
	defer as.wg.Done()

	for {
		select {
		case job := <-as.queue:
			logger.Info("Worker picked up analysis run", map[string]interface{}{
				"workerID":  id,
				"runID":     job.runID,
				"ticket_id": job.ticket.ID,
			})
			as.processJob(job)

		case <-as.stopChan:
			logger.Info("Worker stopping", map[string]interface{}{"workerID": id})
			return
		}
	}
}

// processJob is the containment boundary for one run: a panic marks the
// record FAILED instead of killing the worker.
func (as *AnalysisService) processJob(job analysisJob) {
	defer func() {
		if r := recover(); r != nil {
			message := fmt.Sprintf("analysis run panicked: %v", r)
			logger.Error("Analysis run panicked", map[string]interface{}{
				"runID":     job.runID,
				"ticket_id": job.ticket.ID,
				"panic":     fmt.Sprintf("%v", r),
			})
			if err := as.store.Fail(context.Background(), job.ticket.ID, message); err != nil {
				logger.Error("Failed to mark analysis as failed after panic", map[string]interface{}{
					"ticket_id": job.ticket.ID,
					"error":     err.Error(),
				})
			}
			as.notifyFailed(&job.ticket, message)
		}
	}()

	as.run(context.Background(), job.ticket)
}

func (as *AnalysisService) run(ctx context.Context, ticket models.Ticket) {
	ok, err := as.store.TransitionStatus(ctx, ticket.ID,
		[]models.AnalysisStatus{models.AnalysisStatusPending}, models.AnalysisStatusInProgress)
	if err != nil {
		logger.Error("Failed to transition analysis to IN_PROGRESS", map[string]interface{}{
			"ticket_id": ticket.ID,
			"error":     err.Error(),
		})
		return
	}
	if !ok {
		// Another run already claimed this ticket.
		logger.Warn("Skipping analysis run, record is not PENDING", map[string]interface{}{
			"ticket_id": ticket.ID,
		})
		return
	}

	correlated := as.correlation.Correlate(ctx, ticket.Title, ticket.Content)

	var outcome *AnalysisOutcome
	if correlated.TotalCount == 0 {
		// Cost control: never ask the model to reason over empty evidence.
		outcome = noLogsOutcome(as.correlation.ExtractKeywords(ticket.Title, ticket.Content))
	} else {
		outcome = as.interpreter.Interpret(ctx, ticket.Title, ticket.Content, correlated.Logs)
	}

	if err := as.store.Complete(ctx, ticket.ID, outcome); err != nil {
		message := fmt.Sprintf("failed to persist analysis result: %v", err)
		logger.Error("Failed to persist analysis result", map[string]interface{}{
			"ticket_id": ticket.ID,
			"error":     err.Error(),
		})
		if failErr := as.store.Fail(ctx, ticket.ID, message); failErr != nil {
			logger.Error("Failed to mark analysis as failed", map[string]interface{}{
				"ticket_id": ticket.ID,
				"error":     failErr.Error(),
			})
		}
		as.notifyFailed(&ticket, message)
		return
	}

	logger.Info("Analysis completed", map[string]interface{}{
		"ticket_id":  ticket.ID,
		"confidence": outcome.Confidence,
		"degraded":   outcome.Degraded,
	})
	as.notifyAnalyzed(&ticket, outcome)
}

// CreatePendingAnalysis creates the PENDING record at ticket creation. A
// duplicate call finds the existing record and is a no-op; the unique index
// on ticket_id backs this up.
func (as *AnalysisService) CreatePendingAnalysis(ctx context.Context, ticketID uint) error {
	if _, err := as.store.GetByTicketID(ctx, ticketID); err == nil {
		return nil
	} else if !errors.Is(err, ErrAnalysisNotFound) {
		return err
	}

	analysis := &models.TicketAnalysis{
		TicketID: ticketID,
		Status:   models.AnalysisStatusPending,
	}
	if err := as.store.Create(ctx, analysis); err != nil {
		return fmt.Errorf("failed to create pending analysis: %w", err)
	}
	return nil
}

// StartAnalysis creates the PENDING record and enqueues the run. It returns
// as soon as the job is queued; the caller never observes the outcome
// synchronously.
func (as *AnalysisService) StartAnalysis(ctx context.Context, ticket models.Ticket) error {
	if err := as.CreatePendingAnalysis(ctx, ticket.ID); err != nil {
		return err
	}
	as.enqueue(ticket)
	return nil
}

// enqueue submits a run without ever blocking the caller. A full queue marks
// the record FAILED so the ticket is not stuck PENDING forever.
func (as *AnalysisService) enqueue(ticket models.Ticket) {
	job := analysisJob{runID: uuid.NewString(), ticket: ticket}
	select {
	case as.queue <- job:
		logger.Debug("Queued analysis run", map[string]interface{}{
			"runID":     job.runID,
			"ticket_id": ticket.ID,
		})
	default:
		message := "analysis queue is full"
		logger.Error("Analysis queue is full, failing run", map[string]interface{}{
			"ticket_id": ticket.ID,
		})
		if err := as.store.Fail(context.Background(), ticket.ID, message); err != nil {
			logger.Error("Failed to mark analysis as failed", map[string]interface{}{
				"ticket_id": ticket.ID,
				"error":     err.Error(),
			})
		}
		as.notifyFailed(&ticket, message)
	}
}

// GetAnalysis returns the analysis record for a ticket.
func (as *AnalysisService) GetAnalysis(ctx context.Context, ticketID uint) (*models.TicketAnalysis, error) {
	return as.store.GetByTicketID(ctx, ticketID)
}

// Reanalyze resets a finished analysis and runs it again. While a run is
// PENDING or IN_PROGRESS it returns false without side effects so the caller
// can present a busy state. A missing ticket propagates loudly.
func (as *AnalysisService) Reanalyze(ctx context.Context, ticketID uint) (bool, error) {
	analysis, err := as.store.GetByTicketID(ctx, ticketID)
	if err != nil {
		return false, err
	}
	if analysis.Status == models.AnalysisStatusPending || analysis.Status == models.AnalysisStatusInProgress {
		return false, nil
	}

	ticket, err := as.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return false, err
	}

	ok, err := as.store.ResetForReanalysis(ctx, ticketID)
	if err != nil {
		return false, err
	}
	if !ok {
		// Lost the race against a concurrent reanalysis request.
		return false, nil
	}

	as.enqueue(*ticket)
	return true, nil
}

func (as *AnalysisService) notifyAnalyzed(ticket *models.Ticket, outcome *AnalysisOutcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Notification collaborator panicked", map[string]interface{}{
				"ticket_id": ticket.ID,
				"panic":     fmt.Sprintf("%v", r),
			})
		}
	}()
	as.notifier.TicketAnalyzed(ticket, outcome)
}

func (as *AnalysisService) notifyFailed(ticket *models.Ticket, message string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Notification collaborator panicked", map[string]interface{}{
				"ticket_id": ticket.ID,
				"panic":     fmt.Sprintf("%v", r),
			})
		}
	}()
	as.notifier.TicketAnalysisFailed(ticket, message)
}
