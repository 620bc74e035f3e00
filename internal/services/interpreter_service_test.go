package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ticketpilot/backend/internal/models"
)

func TestInterpretParsesFencedResponse(t *testing.T) {
	textGen := &fakeTextGen{
		response: "Here is the analysis you asked for:\n```json\n" +
			`{"summary": "Connection pool exhausted", "confidence": 0.85, ` +
			`"keywords": ["timeout", "connection"], ` +
			`"possibleCauses": ["pool too small"], ` +
			`"recommendation": "Increase the pool size"}` +
			"\n```\nLet me know if you need more.",
	}
	is := NewInterpreterService(textGen)

	logs := makeLogEntries("log", 3, "ERROR", "auth-service")
	outcome := is.Interpret(context.Background(), "Database connection timeout", "Login fails", logs)

	if outcome.Degraded {
		t.Fatalf("outcome degraded unexpectedly: %s", outcome.DegradedReason)
	}
	if outcome.Summary != "Connection pool exhausted" {
		t.Errorf("Summary = %q", outcome.Summary)
	}
	if outcome.Confidence != 0.85 {
		t.Errorf("Confidence = %v, want 0.85", outcome.Confidence)
	}
	if len(outcome.Keywords) != 2 || outcome.Keywords[0] != "timeout" {
		t.Errorf("Keywords = %v", outcome.Keywords)
	}
	if outcome.Recommendation != "Increase the pool size" {
		t.Errorf("Recommendation = %q", outcome.Recommendation)
	}
}

func TestInterpretAttachesRelatedLogsFromCorrelation(t *testing.T) {
	// The model reply tries to pick its own related logs; those are ignored in
	// favor of the correlated evidence.
	textGen := &fakeTextGen{
		response: `{"summary": "s", "confidence": 0.5, "recommendation": "r", ` +
			`"relatedLogs": [{"logId": "model-invented", "relevance": 1.0}]}`,
	}
	is := NewInterpreterService(textGen)

	logs := makeLogEntries("corr", 8, "ERROR", "gateway")
	outcome := is.Interpret(context.Background(), "t", "c", logs)

	if len(outcome.RelatedLogs) != maxRelatedLogs {
		t.Fatalf("len(RelatedLogs) = %d, want %d", len(outcome.RelatedLogs), maxRelatedLogs)
	}
	for i, related := range outcome.RelatedLogs {
		if related.LogID != logs[i].ID {
			t.Errorf("RelatedLogs[%d].LogID = %q, want %q", i, related.LogID, logs[i].ID)
		}
		if related.Relevance != relatedLogRelevance {
			t.Errorf("RelatedLogs[%d].Relevance = %v, want %v", i, related.Relevance, relatedLogRelevance)
		}
	}
}

func TestInterpretDegradesOnSendError(t *testing.T) {
	textGen := &fakeTextGen{err: fmt.Errorf("connection refused")}
	is := NewInterpreterService(textGen)

	logs := makeLogEntries("log", 2, "ERROR", "auth-service")
	outcome := is.Interpret(context.Background(), "t", "c", logs)

	if !outcome.Degraded {
		t.Fatal("expected a degraded outcome")
	}
	if outcome.Confidence != 0.0 {
		t.Errorf("Confidence = %v, want 0.0", outcome.Confidence)
	}
	if !strings.Contains(outcome.DegradedReason, "LLM unavailable") {
		t.Errorf("DegradedReason = %q", outcome.DegradedReason)
	}
	if len(outcome.RelatedLogs) != 2 {
		t.Errorf("len(RelatedLogs) = %d, want 2 even on degrade", len(outcome.RelatedLogs))
	}
}

func TestParseAnalysisResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantErr  string
	}{
		{
			name:     "missing summary",
			response: `{"confidence": 0.5, "recommendation": "r"}`,
			wantErr:  "summary",
		},
		{
			name:     "missing recommendation",
			response: `{"summary": "s", "confidence": 0.5}`,
			wantErr:  "recommendation",
		},
		{
			name:     "missing confidence",
			response: `{"summary": "s", "recommendation": "r"}`,
			wantErr:  "confidence",
		},
		{
			name:     "non-numeric confidence",
			response: `{"summary": "s", "confidence": "high", "recommendation": "r"}`,
			wantErr:  "invalid analysis JSON",
		},
		{
			name:     "no JSON object at all",
			response: "I could not find anything relevant.",
			wantErr:  "no JSON object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAnalysisResponse(tt.response)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseAnalysisResponseToleratesBadArrays(t *testing.T) {
	outcome, err := parseAnalysisResponse(
		`{"summary": "s", "confidence": 0.4, "recommendation": "r", ` +
			`"keywords": "not-an-array", "possibleCauses": 42}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcome.Keywords) != 0 {
		t.Errorf("Keywords = %v, want empty", outcome.Keywords)
	}
	if len(outcome.PossibleCauses) != 0 {
		t.Errorf("PossibleCauses = %v, want empty", outcome.PossibleCauses)
	}
}

func TestParseAnalysisResponsePassesConfidenceThrough(t *testing.T) {
	// Out-of-range values are recorded as reported, not clamped.
	outcome, err := parseAnalysisResponse(`{"summary": "s", "confidence": 1.7, "recommendation": "r"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Confidence != 1.7 {
		t.Errorf("Confidence = %v, want 1.7", outcome.Confidence)
	}
}

func TestBuildAnalysisPromptCapsLogLines(t *testing.T) {
	logs := makeLogEntries("log", 35, "ERROR", "auth-service")
	prompt := buildAnalysisPrompt("Database connection timeout", "Login fails", logs)

	included := 0
	for _, entry := range logs {
		if strings.Contains(prompt, entry.Message) {
			included++
		}
	}
	if included != maxPromptLogs {
		t.Errorf("prompt contains %d log lines, want %d", included, maxPromptLogs)
	}
	if !strings.Contains(prompt, "Database connection timeout") {
		t.Error("prompt is missing the ticket title")
	}
}

func TestBuildAnalysisPromptLogLineFormat(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	logs := []models.LogEntry{{
		ID:        "l1",
		Timestamp: ts,
		Level:     "ERROR",
		Service:   "auth-service",
		Message:   "connection reset by peer",
	}}
	prompt := buildAnalysisPrompt("t", "c", logs)

	want := "[2026-03-14 09:26:53] [ERROR] [auth-service] connection reset by peer"
	if !strings.Contains(prompt, want) {
		t.Errorf("prompt does not contain formatted line %q\nprompt:\n%s", want, prompt)
	}
}

func TestNoLogsOutcome(t *testing.T) {
	outcome := noLogsOutcome([]string{"error", "exception"})

	if !outcome.Degraded {
		t.Error("expected the no-evidence outcome to be degraded")
	}
	if outcome.Confidence != 0.0 {
		t.Errorf("Confidence = %v, want 0.0", outcome.Confidence)
	}
	if len(outcome.Keywords) != 2 {
		t.Errorf("Keywords = %v, want the extracted keywords", outcome.Keywords)
	}
	if len(outcome.RelatedLogs) != 0 {
		t.Errorf("RelatedLogs = %v, want empty", outcome.RelatedLogs)
	}
}
