package routes

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/ticketpilot/backend/internal/controllers"
	"github.com/ticketpilot/backend/internal/repository"
	"github.com/ticketpilot/backend/internal/services"
	"gorm.io/gorm"
)

// SetupRoutes wires the pipeline services and registers the API. It returns
// the analysis service so main can drain its workers on shutdown.
func SetupRoutes(r *gin.Engine, db *gorm.DB) *services.AnalysisService {
	ollama := services.NewOllamaClient(os.Getenv("OLLAMA_URL"), os.Getenv("OLLAMA_MODEL"))

	var textGen services.TextGenerationPort = ollama
	var llmHealth controllers.HealthChecker = ollama
	if os.Getenv("LLM_PROVIDER") == "openai" {
		textGen = services.NewOpenAIClient(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"))
		llmHealth = nil
	}

	logStore := services.NewLogStoreClient(os.Getenv("LOGSTORE_URL"))
	tickets := services.NewTicketServiceClient(os.Getenv("TICKET_SERVICE_URL"))

	var notifier services.Notifier = services.NopNotifier{}
	if url := os.Getenv("NOTIFY_WEBHOOK_URL"); url != "" {
		notifier = services.NewWebhookNotifier(url)
	}

	analysisRepo := repository.NewAnalysisRepository(db)
	embeddingRepo := repository.NewEmbeddingRepository(db)

	correlation := services.NewCorrelationService(logStore)
	interpreter := services.NewInterpreterService(textGen)
	analysis := services.NewAnalysisService(analysisRepo, tickets, correlation, interpreter, notifier)
	embeddings := services.NewEmbeddingService(embeddingRepo, ollama)

	controller := controllers.NewAnalysisController(analysis, embeddings, logStore, llmHealth)

	api := r.Group("/api/v1")
	{
		ticketRoutes := api.Group("/tickets")
		{
			ticketRoutes.POST("/:id/analysis", controller.StartAnalysis)
			ticketRoutes.GET("/:id/analysis", controller.GetAnalysis)
			ticketRoutes.POST("/:id/reanalyze", controller.Reanalyze)
			ticketRoutes.POST("/:id/embedding", controller.SaveEmbedding)
			ticketRoutes.GET("/:id/embedding", controller.HasEmbedding)
			ticketRoutes.DELETE("/:id/embedding", controller.DeleteEmbedding)
			ticketRoutes.GET("/:id/similar", controller.FindSimilar)
		}

		search := api.Group("/search")
		{
			search.POST("/similar", controller.SearchByText)
		}

		logs := api.Group("/logs")
		{
			logs.GET("/statistics", controller.GetLogStatistics)
		}

		llm := api.Group("/llm")
		{
			llm.GET("/status", controller.GetLLMStatus)
		}
	}

	return analysis
}
