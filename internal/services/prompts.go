package services

import (
	"fmt"
	"strings"

	"github.com/ticketpilot/backend/internal/models"
)

// maxPromptLogs bounds how many correlated log lines go into the prompt.
const maxPromptLogs = 20

// buildAnalysisPrompt embeds the ticket and its correlated log evidence into
// the fixed instruction template. The template mandates a single JSON object
// reply with a fixed schema.
func buildAnalysisPrompt(title, content string, logs []models.LogEntry) string {
	var b strings.Builder

	b.WriteString(`You are an expert support engineer performing root cause analysis on a customer complaint ticket.

TICKET TITLE: `)
	b.WriteString(title)
	b.WriteString("\nTICKET CONTENT: ")
	b.WriteString(content)
	b.WriteString("\n\nRELATED SYSTEM LOGS:\n")

	promptLogs := logs
	if len(promptLogs) > maxPromptLogs {
		b.WriteString(fmt.Sprintf("NOTE: Showing first %d of %d correlated log entries\n", maxPromptLogs, len(promptLogs)))
		promptLogs = promptLogs[:maxPromptLogs]
	}
	for _, entry := range promptLogs {
		b.WriteString(fmt.Sprintf("[%s] [%s] [%s] %s\n",
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Level,
			entry.Service,
			entry.Message))
	}

	b.WriteString(`
Analyze the ticket together with the log evidence and provide your findings in the following JSON format:

{
  "summary": "A concise root cause summary (2-3 sentences)",
  "confidence": 0.85,
  "keywords": ["keyword1", "keyword2"],
  "possibleCauses": ["cause1", "cause2"],
  "recommendation": "A specific, actionable remediation recommendation"
}

ANALYSIS REQUIREMENTS:
1. Base the analysis on the log evidence, not speculation
2. confidence is a number between 0.0 and 1.0
3. Return ONLY the JSON object, no explanations, no markdown formatting
`)

	return b.String()
}
