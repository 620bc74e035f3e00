package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ticketpilot/backend/internal/logger"
	"github.com/ticketpilot/backend/internal/models"
)

// logKeywords is the fixed vocabulary matched against ticket text. Matching
// is a case-insensitive substring check, cheap and order-independent.
var logKeywords = []string{"error", "failed", "timeout", "connection", "database", "api", "auth"}

// defaultKeywords is used when the ticket text matches nothing.
var defaultKeywords = []string{"error", "exception"}

const (
	// correlationWindow is the trailing window searched per keyword.
	correlationWindow = 24 * time.Hour
	// maxCorrelatedLogs caps the merged result set.
	maxCorrelatedLogs = 50
)

// CorrelationService derives search keywords from ticket text and gathers
// candidate log evidence from the log store.
type CorrelationService struct {
	logSearch     LogSearchPort
	searchTimeout time.Duration
	maxResults    int
}

// NewCorrelationService creates a correlation service over the given log store.
func NewCorrelationService(logSearch LogSearchPort) *CorrelationService {
	return &CorrelationService{
		logSearch:     logSearch,
		searchTimeout: 10 * time.Second,
		maxResults:    maxCorrelatedLogs,
	}
}

// ExtractKeywords returns the vocabulary words found in the ticket text, or
// the default set when none match.
func (cs *CorrelationService) ExtractKeywords(title, content string) []string {
	text := strings.ToLower(title + " " + content)

	var keywords []string
	for _, keyword := range logKeywords {
		if strings.Contains(text, keyword) {
			keywords = append(keywords, keyword)
		}
	}
	if len(keywords) == 0 {
		return append([]string{}, defaultKeywords...)
	}
	return keywords
}

// Correlate searches the trailing window once per extracted keyword, merges
// and deduplicates the hits, and returns a bounded result. A keyword whose
// search fails contributes zero logs; it never aborts the correlation.
func (cs *CorrelationService) Correlate(ctx context.Context, title, content string) *models.LogAnalysisResult {
	keywords := cs.ExtractKeywords(title, content)

	to := time.Now()
	from := to.Add(-correlationWindow)
	perKeyword := cs.maxResults / len(keywords)

	merged := make([]models.LogEntry, 0, cs.maxResults)
	seen := make(map[string]bool)

	for _, keyword := range keywords {
		result, err := cs.searchKeyword(ctx, keyword, from, to, perKeyword)
		if err != nil {
			logger.Warn("Keyword search failed, skipping keyword", map[string]interface{}{
				"keyword": keyword,
				"error":   err.Error(),
			})
			continue
		}
		for _, entry := range result.Logs {
			if seen[entry.ID] {
				continue
			}
			seen[entry.ID] = true
			merged = append(merged, entry)
		}
	}

	if len(merged) > cs.maxResults {
		merged = merged[:cs.maxResults]
	}

	return buildLogAnalysisResult(merged)
}

func (cs *CorrelationService) searchKeyword(ctx context.Context, keyword string, from, to time.Time, maxResults int) (*models.LogAnalysisResult, error) {
	searchCtx, cancel := context.WithTimeout(ctx, cs.searchTimeout)
	defer cancel()

	result, err := cs.logSearch.SearchLogs(searchCtx, keyword, from, to, maxResults)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &models.LogAnalysisResult{}, nil
	}
	return result, nil
}

// buildLogAnalysisResult aggregates counts and a derived summary over a set
// of log entries, preserving their order.
func buildLogAnalysisResult(entries []models.LogEntry) *models.LogAnalysisResult {
	result := &models.LogAnalysisResult{
		Logs:          entries,
		ErrorCounts:   make(map[string]int),
		LevelCounts:   make(map[string]int),
		ServiceCounts: make(map[string]int),
		TotalCount:    len(entries),
	}

	for _, entry := range entries {
		result.LevelCounts[entry.Level]++
		if entry.Service != "" {
			result.ServiceCounts[entry.Service]++
		}
		if entry.Level == "ERROR" || entry.Level == "FATAL" {
			result.ErrorCounts[entry.Service]++
		}
	}

	errorTotal := 0
	for _, count := range result.ErrorCounts {
		errorTotal += count
	}
	result.Summary = fmt.Sprintf("Found %d log entries across %d services (%d errors)",
		result.TotalCount, len(result.ServiceCounts), errorTotal)

	return result
}
