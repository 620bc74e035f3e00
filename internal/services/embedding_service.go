package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/ticketpilot/backend/internal/logger"
	"github.com/ticketpilot/backend/internal/models"
)

// EmbeddingService converts ticket text to vectors, persists them and runs
// threshold-bounded cosine similarity searches. Unlike the interpreter this
// boundary does not silently degrade: exhausted retries surface as a typed
// error and the caller decides.
type EmbeddingService struct {
	store      EmbeddingStore
	embedder   EmbeddingPort
	maxRetries int
	baseDelay  time.Duration
}

// NewEmbeddingService creates an embedding service. EMBED_MAX_RETRIES tunes
// the retry budget for transient network failures.
func NewEmbeddingService(store EmbeddingStore, embedder EmbeddingPort) *EmbeddingService {
	maxRetries := 3
	if v := os.Getenv("EMBED_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			maxRetries = n
		}
	}
	return &EmbeddingService{
		store:      store,
		embedder:   embedder,
		maxRetries: maxRetries,
		baseDelay:  500 * time.Millisecond,
	}
}

// embed calls the remote endpoint, retrying transient transport errors with
// exponential backoff. Non-retryable errors propagate immediately.
func (es *EmbeddingService) embed(ctx context.Context, text string) ([]float64, error) {
	var lastErr error
	for attempt := 0; attempt <= es.maxRetries; attempt++ {
		if attempt > 0 {
			delay := es.baseDelay * time.Duration(1<<(attempt-1))
			logger.Warn("Retrying embedding request", map[string]interface{}{
				"attempt": attempt,
				"delay":   delay.String(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		vector, err := es.embedder.Embed(ctx, text)
		if err == nil {
			return vector, nil
		}
		var transport *TransportError
		if !errors.As(err, &transport) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, lastErr)
}

// SaveEmbedding embeds the ticket text and upserts the vector. An existing
// row is replaced in place, never duplicated.
func (es *EmbeddingService) SaveEmbedding(ctx context.Context, ticketID uint, text string) error {
	if ticketID == 0 {
		return fmt.Errorf("ticketID must be positive")
	}
	if text == "" {
		return fmt.Errorf("text must not be empty")
	}

	vector, err := es.embed(ctx, text)
	if err != nil {
		return err
	}
	if len(vector) == 0 {
		return fmt.Errorf("embedding endpoint returned an empty vector")
	}

	if err := es.store.Upsert(ctx, ticketID, models.SerializeVector(vector)); err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}

	logger.Debug("Stored ticket embedding", map[string]interface{}{
		"ticket_id": ticketID,
		"dimension": len(vector),
	})
	return nil
}

// FindSimilar returns the resolved precedents most similar to the given
// ticket. A ticket with no stored embedding yields an empty result, and the
// query ticket is never part of its own results.
func (es *EmbeddingService) FindSimilar(ctx context.Context, ticketID uint, limit int, threshold float64) ([]models.SimilarityResult, error) {
	record, err := es.store.GetByTicketID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, ErrEmbeddingNotFound) {
			return []models.SimilarityResult{}, nil
		}
		return nil, err
	}

	query, err := models.ParseVector(record.Vector)
	if err != nil {
		return nil, fmt.Errorf("stored vector for ticket %d is corrupt: %w", ticketID, err)
	}

	return es.rankSimilar(ctx, query, ticketID, limit, threshold)
}

// SearchByText embeds the query text ad hoc and runs the same ranked search.
// Nothing is persisted for the query.
func (es *EmbeddingService) SearchByText(ctx context.Context, text string, limit int, threshold float64) ([]models.SimilarityResult, error) {
	if text == "" {
		return nil, fmt.Errorf("text must not be empty")
	}
	query, err := es.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return es.rankSimilar(ctx, query, 0, limit, threshold)
}

// DeleteEmbedding removes the row for a deleted ticket.
func (es *EmbeddingService) DeleteEmbedding(ctx context.Context, ticketID uint) error {
	return es.store.Delete(ctx, ticketID)
}

// HasEmbedding reports whether the ticket has a stored vector.
func (es *EmbeddingService) HasEmbedding(ctx context.Context, ticketID uint) (bool, error) {
	return es.store.Exists(ctx, ticketID)
}

// rankSimilar scores all stored embeddings against the query vector,
// excluding excludeTicketID, and returns at most limit results at or above
// the threshold in descending similarity order.
func (es *EmbeddingService) rankSimilar(ctx context.Context, query []float64, excludeTicketID uint, limit int, threshold float64) ([]models.SimilarityResult, error) {
	records, err := es.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]models.SimilarityResult, 0, len(records))
	for _, record := range records {
		if record.TicketID == excludeTicketID {
			continue
		}
		candidate, err := models.ParseVector(record.Vector)
		if err != nil {
			logger.Warn("Skipping corrupt stored vector", map[string]interface{}{
				"ticket_id": record.TicketID,
				"error":     err.Error(),
			})
			continue
		}
		score := CosineSimilarity(query, candidate)
		if score < threshold {
			continue
		}
		results = append(results, models.SimilarityResult{
			TicketID:        record.TicketID,
			SimilarityScore: score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].SimilarityScore > results[j].SimilarityScore
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// CosineSimilarity computes cosine similarity between two vectors. Mismatched
// lengths and zero vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
