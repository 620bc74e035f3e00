package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ticketpilot/backend/internal/models"
	"github.com/ticketpilot/backend/internal/services"
)

// HealthChecker is implemented by generation backends that can report
// availability. Backends without a health API simply aren't wired here.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// AnalysisController exposes the pipeline to the ticket workflow layer.
type AnalysisController struct {
	analysisService  *services.AnalysisService
	embeddingService *services.EmbeddingService
	logSearch        services.LogSearchPort
	llmHealth        HealthChecker
}

func NewAnalysisController(analysisService *services.AnalysisService, embeddingService *services.EmbeddingService, logSearch services.LogSearchPort, llmHealth HealthChecker) *AnalysisController {
	return &AnalysisController{
		analysisService:  analysisService,
		embeddingService: embeddingService,
		logSearch:        logSearch,
		llmHealth:        llmHealth,
	}
}

type startAnalysisRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// StartAnalysis creates the PENDING record and queues the asynchronous run.
// The ticket workflow layer calls this right after ticket creation; it never
// blocks on the outcome.
func (ac *AnalysisController) StartAnalysis(c *gin.Context) {
	ticketID, ok := parseTicketID(c)
	if !ok {
		return
	}

	var req startAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and content are required"})
		return
	}

	ticket := models.Ticket{ID: ticketID, Title: req.Title, Content: req.Content}
	if err := ac.analysisService.StartAnalysis(c.Request.Context(), ticket); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"ticketId": ticketID, "status": models.AnalysisStatusPending})
}

// GetAnalysis returns the analysis record for a ticket.
func (ac *AnalysisController) GetAnalysis(c *gin.Context) {
	ticketID, ok := parseTicketID(c)
	if !ok {
		return
	}

	analysis, err := ac.analysisService.GetAnalysis(c.Request.Context(), ticketID)
	if err != nil {
		if errors.Is(err, services.ErrAnalysisNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// Reanalyze resets a finished analysis and queues a fresh run. A run already
// in flight yields 409 so the client can present a busy state.
func (ac *AnalysisController) Reanalyze(c *gin.Context) {
	ticketID, ok := parseTicketID(c)
	if !ok {
		return
	}

	started, err := ac.analysisService.Reanalyze(c.Request.Context(), ticketID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAnalysisNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		case errors.Is(err, services.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	if !started {
		c.JSON(http.StatusConflict, gin.H{"error": "analysis is already in progress"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"ticketId": ticketID, "status": models.AnalysisStatusPending})
}

type saveEmbeddingRequest struct {
	Text string `json:"text" binding:"required"`
}

// SaveEmbedding embeds the ticket text and upserts the vector.
func (ac *AnalysisController) SaveEmbedding(c *gin.Context) {
	ticketID, ok := parseTicketID(c)
	if !ok {
		return
	}

	var req saveEmbeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	if err := ac.embeddingService.SaveEmbedding(c.Request.Context(), ticketID, req.Text); err != nil {
		if errors.Is(err, services.ErrEmbeddingUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ticketId": ticketID})
}

// DeleteEmbedding removes the vector for a deleted ticket.
func (ac *AnalysisController) DeleteEmbedding(c *gin.Context) {
	ticketID, ok := parseTicketID(c)
	if !ok {
		return
	}

	if err := ac.embeddingService.DeleteEmbedding(c.Request.Context(), ticketID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticketId": ticketID})
}

// HasEmbedding reports whether the ticket has a stored vector.
func (ac *AnalysisController) HasEmbedding(c *gin.Context) {
	ticketID, ok := parseTicketID(c)
	if !ok {
		return
	}

	exists, err := ac.embeddingService.HasEmbedding(c.Request.Context(), ticketID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticketId": ticketID, "exists": exists})
}

// FindSimilar returns resolved precedents for a ticket.
func (ac *AnalysisController) FindSimilar(c *gin.Context) {
	ticketID, ok := parseTicketID(c)
	if !ok {
		return
	}

	limit := parseIntQuery(c, "limit", 5)
	threshold := parseFloatQuery(c, "threshold", 0.7)

	results, err := ac.embeddingService.FindSimilar(c.Request.Context(), ticketID, limit, threshold)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticketId": ticketID, "results": results})
}

type searchByTextRequest struct {
	Text      string   `json:"text" binding:"required"`
	Limit     int      `json:"limit"`
	Threshold *float64 `json:"threshold"`
}

// SearchByText embeds the query text ad hoc and runs a ranked search.
func (ac *AnalysisController) SearchByText(c *gin.Context) {
	var req searchByTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 5
	}
	threshold := 0.7
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	results, err := ac.embeddingService.SearchByText(c.Request.Context(), req.Text, req.Limit, threshold)
	if err != nil {
		if errors.Is(err, services.ErrEmbeddingUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// GetLogStatistics passes aggregate log counts through from the log store.
func (ac *AnalysisController) GetLogStatistics(c *gin.Context) {
	hours := parseIntQuery(c, "hours", 24)
	to := time.Now()
	from := to.Add(-time.Duration(hours) * time.Hour)

	stats, err := ac.logSearch.GetLogStatistics(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetLLMStatus reports whether the generation backend is reachable.
func (ac *AnalysisController) GetLLMStatus(c *gin.Context) {
	if ac.llmHealth == nil {
		c.JSON(http.StatusOK, gin.H{"status": "unknown", "detail": "backend has no health API"})
		return
	}
	if err := ac.llmHealth.CheckHealth(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseTicketID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return 0, false
	}
	return uint(id), true
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func parseFloatQuery(c *gin.Context, name string, fallback float64) float64 {
	if v := c.Query(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
