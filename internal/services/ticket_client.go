package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ticketpilot/backend/internal/models"
)

// TicketServiceClient implements TicketLookupPort against the ticket
// workflow service, which owns the full ticket schema.
type TicketServiceClient struct {
	baseURL string
	client  *http.Client
}

// NewTicketServiceClient creates a ticket lookup client.
func NewTicketServiceClient(baseURL string) *TicketServiceClient {
	if baseURL == "" {
		baseURL = "http://localhost:8081"
	}
	return &TicketServiceClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetByID loads the ticket's id, title and content. A 404 maps to
// ErrTicketNotFound, which callers are expected to surface loudly.
func (tc *TicketServiceClient) GetByID(ctx context.Context, id uint) (*models.Ticket, error) {
	url := fmt.Sprintf("%s/api/v1/tickets/%d", tc.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("ticket %d: %w", id, ErrTicketNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ticket service returned status %d, body: %s", resp.StatusCode, string(body))
	}

	var ticket models.Ticket
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		return nil, fmt.Errorf("failed to decode ticket response: %w", err)
	}
	return &ticket, nil
}
