package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ticketpilot/backend/internal/logger"
	"github.com/ticketpilot/backend/internal/models"
)

// WebhookNotifier posts analysis outcomes to a configured webhook. Delivery
// is best effort: failures are logged and swallowed so an unreachable
// endpoint can never lose an analysis result.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier for the given webhook URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Event   string           `json:"event"`
	Ticket  *models.Ticket   `json:"ticket"`
	Outcome *AnalysisOutcome `json:"outcome,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// TicketAnalyzed reports a completed analysis.
func (wn *WebhookNotifier) TicketAnalyzed(ticket *models.Ticket, outcome *AnalysisOutcome) {
	wn.post(webhookPayload{Event: "ticket.analyzed", Ticket: ticket, Outcome: outcome})
}

// TicketAnalysisFailed reports a failed analysis run.
func (wn *WebhookNotifier) TicketAnalysisFailed(ticket *models.Ticket, message string) {
	wn.post(webhookPayload{Event: "ticket.analysis_failed", Ticket: ticket, Error: message})
}

func (wn *WebhookNotifier) post(payload webhookPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("Failed to marshal notification payload", map[string]interface{}{"error": err.Error()})
		return
	}

	resp, err := wn.client.Post(wn.url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		logger.Warn("Notification delivery failed", map[string]interface{}{
			"event": payload.Event,
			"error": err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logger.Warn("Notification endpoint rejected payload", map[string]interface{}{
			"event":  payload.Event,
			"status": resp.StatusCode,
		})
	}
}
