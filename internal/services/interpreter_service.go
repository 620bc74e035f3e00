package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ticketpilot/backend/internal/logger"
	"github.com/ticketpilot/backend/internal/models"
)

const (
	// maxRelatedLogs is how many correlated entries are attached to the final
	// outcome. The model never chooses these.
	maxRelatedLogs = 5
	// relatedLogRelevance is the placeholder score assigned to attached logs.
	relatedLogRelevance = 0.8
)

// AnalysisOutcome is the result of running the interpreter once. A degraded
// outcome carries a human-readable reason and confidence 0.0 instead of an
// error; Interpret never fails past its boundary.
type AnalysisOutcome struct {
	Summary        string              `json:"summary"`
	Confidence     float64             `json:"confidence"`
	Keywords       []string            `json:"keywords"`
	PossibleCauses []string            `json:"possibleCauses"`
	Recommendation string              `json:"recommendation"`
	RelatedLogs    []models.RelatedLog `json:"relatedLogs"`
	Degraded       bool                `json:"degraded"`
	DegradedReason string              `json:"degradedReason,omitempty"`
}

// InterpreterService asks the language model to reason over a ticket plus its
// correlated logs and extracts a structured result from the raw reply.
type InterpreterService struct {
	textGen TextGenerationPort
	timeout time.Duration
}

// NewInterpreterService creates an interpreter over the given text generation
// backend. Generation gets a longer timeout than log search since model
// replies are slow.
func NewInterpreterService(textGen TextGenerationPort) *InterpreterService {
	return &InterpreterService{
		textGen: textGen,
		timeout: 120 * time.Second,
	}
}

// Interpret builds the analysis prompt, sends it, and parses the reply.
func (is *InterpreterService) Interpret(ctx context.Context, title, content string, correlatedLogs []models.LogEntry) *AnalysisOutcome {
	prompt := buildAnalysisPrompt(title, content, correlatedLogs)

	genCtx, cancel := context.WithTimeout(ctx, is.timeout)
	defer cancel()

	response, err := is.textGen.SendPrompt(genCtx, prompt)
	if err != nil {
		logger.Warn("LLM request failed, returning degraded outcome", map[string]interface{}{
			"error": err.Error(),
		})
		return degradedOutcome(fmt.Sprintf("LLM unavailable: %v", err), correlatedLogs)
	}

	outcome, err := parseAnalysisResponse(response)
	if err != nil {
		logger.Warn("Failed to parse LLM response, returning degraded outcome", map[string]interface{}{
			"error": err.Error(),
		})
		return degradedOutcome(fmt.Sprintf("unparseable LLM response: %v", err), correlatedLogs)
	}

	outcome.RelatedLogs = annotateRelatedLogs(correlatedLogs)
	return outcome
}

// parseAnalysisResponse extracts the JSON payload from a possibly noisy reply
// and maps the fields. summary, recommendation and a numeric confidence are
// required; keywords and possibleCauses default to empty when absent or not
// arrays of strings.
func parseAnalysisResponse(response string) (*AnalysisOutcome, error) {
	payload, err := ExtractJSONObject(response)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Summary        *string         `json:"summary"`
		Confidence     *float64        `json:"confidence"`
		Keywords       json.RawMessage `json:"keywords"`
		PossibleCauses json.RawMessage `json:"possibleCauses"`
		Recommendation *string         `json:"recommendation"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("invalid analysis JSON: %w", err)
	}

	if raw.Summary == nil {
		return nil, fmt.Errorf("analysis JSON missing required field %q", "summary")
	}
	if raw.Recommendation == nil {
		return nil, fmt.Errorf("analysis JSON missing required field %q", "recommendation")
	}
	if raw.Confidence == nil {
		return nil, fmt.Errorf("analysis JSON missing required field %q", "confidence")
	}

	return &AnalysisOutcome{
		Summary:        *raw.Summary,
		Confidence:     *raw.Confidence,
		Keywords:       stringArrayOrEmpty(raw.Keywords),
		PossibleCauses: stringArrayOrEmpty(raw.PossibleCauses),
		Recommendation: *raw.Recommendation,
	}, nil
}

// stringArrayOrEmpty tolerates a missing or non-array field.
func stringArrayOrEmpty(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return []string{}
	}
	return values
}

// annotateRelatedLogs takes the first entries of the correlated set and tags
// them with the fixed relevance score.
func annotateRelatedLogs(correlatedLogs []models.LogEntry) []models.RelatedLog {
	count := len(correlatedLogs)
	if count > maxRelatedLogs {
		count = maxRelatedLogs
	}
	related := make([]models.RelatedLog, 0, count)
	for _, entry := range correlatedLogs[:count] {
		related = append(related, models.RelatedLog{
			LogID:     entry.ID,
			Timestamp: entry.Timestamp,
			Level:     entry.Level,
			Service:   entry.Service,
			Message:   entry.Message,
			Relevance: relatedLogRelevance,
		})
	}
	return related
}

// degradedOutcome wraps a failure into a non-exceptional result.
func degradedOutcome(reason string, correlatedLogs []models.LogEntry) *AnalysisOutcome {
	return &AnalysisOutcome{
		Summary:        "Automated analysis is unavailable: " + reason,
		Confidence:     0.0,
		Keywords:       []string{},
		PossibleCauses: []string{},
		Recommendation: "Retry the analysis once the language model is reachable, or triage the ticket manually.",
		RelatedLogs:    annotateRelatedLogs(correlatedLogs),
		Degraded:       true,
		DegradedReason: reason,
	}
}

// noLogsOutcome is the short-circuit result when correlation finds no
// evidence. The model is never invoked on empty evidence.
func noLogsOutcome(keywords []string) *AnalysisOutcome {
	return &AnalysisOutcome{
		Summary:        "No related logs were found in the trailing search window, so no automated root cause could be derived.",
		Confidence:     0.0,
		Keywords:       keywords,
		PossibleCauses: []string{},
		Recommendation: "Verify the reported symptoms manually; the complaint may concern a component that does not ship logs to the central store.",
		RelatedLogs:    []models.RelatedLog{},
		Degraded:       true,
		DegradedReason: "no related logs found",
	}
}
