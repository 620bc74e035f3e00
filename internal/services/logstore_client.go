package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ticketpilot/backend/internal/models"
)

// LogStoreClient implements LogSearchPort against the central log store's
// HTTP search API.
type LogStoreClient struct {
	baseURL string
	client  *http.Client
}

// NewLogStoreClient creates a log store client. Log searches are quick, so
// the client timeout is short.
func NewLogStoreClient(baseURL string) *LogStoreClient {
	if baseURL == "" {
		baseURL = "http://localhost:9200"
	}
	return &LogStoreClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// SearchLogs runs a free-text query over the given window.
func (lc *LogStoreClient) SearchLogs(ctx context.Context, query string, from, to time.Time, maxResults int) (*models.LogAnalysisResult, error) {
	params := url.Values{}
	params.Set("q", query)
	return lc.search(ctx, params, from, to, maxResults)
}

// SearchErrorLogs returns ERROR-level entries, optionally scoped to a service.
func (lc *LogStoreClient) SearchErrorLogs(ctx context.Context, service string, from, to time.Time, maxResults int) (*models.LogAnalysisResult, error) {
	params := url.Values{}
	params.Set("level", "ERROR")
	if service != "" {
		params.Set("service", service)
	}
	return lc.search(ctx, params, from, to, maxResults)
}

// GetLogStatistics returns aggregate counts for the window without log bodies.
func (lc *LogStoreClient) GetLogStatistics(ctx context.Context, from, to time.Time) (*models.LogAnalysisResult, error) {
	params := url.Values{}
	params.Set("statsOnly", "true")
	return lc.search(ctx, params, from, to, 0)
}

// SearchServiceLogs returns entries for one service, optionally one level.
func (lc *LogStoreClient) SearchServiceLogs(ctx context.Context, service, level string, from, to time.Time, maxResults int) (*models.LogAnalysisResult, error) {
	params := url.Values{}
	params.Set("service", service)
	if level != "" {
		params.Set("level", level)
	}
	return lc.search(ctx, params, from, to, maxResults)
}

func (lc *LogStoreClient) search(ctx context.Context, params url.Values, from, to time.Time, maxResults int) (*models.LogAnalysisResult, error) {
	params.Set("from", from.UTC().Format(time.RFC3339))
	params.Set("to", to.UTC().Format(time.RFC3339))
	if maxResults > 0 {
		params.Set("maxResults", strconv.Itoa(maxResults))
	}

	searchURL := fmt.Sprintf("%s/api/v1/logs/search?%s", lc.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := lc.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("log store returned status %d, body: %s", resp.StatusCode, string(body))
	}

	var result models.LogAnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode log store response: %w", err)
	}
	return &result, nil
}
