package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// LogEntry is an immutable snapshot of one line from the external log store.
// Two entries with the same ID are the same log line.
type LogEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"logLevel"`
	Service   string         `json:"serviceName"`
	Message   string         `json:"message"`
	Logger    string         `json:"logger,omitempty"`
	Thread    string         `json:"thread,omitempty"`
	Extra     map[string]any `json:"extraFields,omitempty"`
}

// LogAnalysisResult aggregates one log search. It is built fresh per query
// and never persisted.
type LogAnalysisResult struct {
	Logs          []LogEntry     `json:"logs"`
	ErrorCounts   map[string]int `json:"errorCounts"`
	LevelCounts   map[string]int `json:"logLevelCounts"`
	ServiceCounts map[string]int `json:"serviceCounts"`
	TotalCount    int            `json:"totalCount"`
	Summary       string         `json:"summary"`
}

// RelatedLog is a correlated log line annotated with a relevance score, the
// shape persisted on a completed analysis.
type RelatedLog struct {
	LogID     string    `json:"logId"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"logLevel"`
	Service   string    `json:"serviceName"`
	Message   string    `json:"message"`
	Relevance float64   `json:"relevance"`
}

// RelatedLogList stores related logs as a jsonb column.
type RelatedLogList []RelatedLog

func (l RelatedLogList) Value() (driver.Value, error) {
	if l == nil {
		l = RelatedLogList{}
	}
	return json.Marshal(l)
}

func (l *RelatedLogList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for RelatedLogList", value)
	}
	return json.Unmarshal(data, l)
}

// SimilarityResult is one hit from a semantic similarity search.
type SimilarityResult struct {
	TicketID        uint    `json:"ticketId"`
	SimilarityScore float64 `json:"similarityScore"`
}
