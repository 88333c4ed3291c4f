package main

import (
	"context"
	"flag"
	"log"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"google.golang.org/genai"

	"github.com/Etheryii/Ai-Assistant-New/controller"
	"github.com/Etheryii/Ai-Assistant-New/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	cliMode := flag.Bool("cli", false, "run as an interactive terminal assistant instead of an HTTP server")
	flag.Parse()

	cfg := services.LoadConfig()
	if err := services.SetupUnidocLicense(cfg.UnidocLicenseKey); err != nil {
		log.Printf("Warning: Failed to set UniPDF license, PDF extraction disabled: %v", err)
	}

	ctx := context.Background()

	embedder := services.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbedModel, cfg.RequestTimeout)

	counter, err := services.NewTiktokenCounter()
	if err != nil {
		log.Fatalf("FATAL: Failed to load token encoding: %v", err)
	}

	accountant := services.NewTokenAccountant()
	chunker := services.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	holder := services.NewIndexHolder()

	var newIndex func() (services.VectorIndex, error)
	switch cfg.VectorStore {
	case "chroma":
		chromaClient, err := chromago.NewHTTPClient(chromago.WithBaseURL(cfg.ChromaURL))
		if err != nil {
			log.Fatalf("FATAL: Failed to create chroma client: %v", err)
		}
		defer func() {
			if err := chromaClient.Close(); err != nil {
				log.Printf("Warning: Failed to close chroma client: %v", err)
			}
		}()
		newIndex = func() (services.VectorIndex, error) {
			return services.NewChromaIndex(ctx, chromaClient, cfg.ChromaCollection)
		}
	default:
		newIndex = func() (services.VectorIndex, error) {
			return services.NewMemoryIndex(), nil
		}
	}

	indexer := services.NewIndexingService(embedder, chunker, holder, newIndex)
	if _, err := indexer.Rebuild(ctx, cfg.KnowledgeBaseDir); err != nil {
		log.Printf("INDEXER: initial index build failed, starting with an empty knowledge base: %v", err)
	}
	go indexer.Watch(ctx, cfg.KnowledgeBaseDir, 2*time.Second)

	geminiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to create Gemini client: %v. Make sure GEMINI_API_KEY is set.", err)
	}
	log.Println("Successfully connected to Google Gemini.")

	completion := services.NewRetryingCompletionClient(
		services.NewGeminiClient(geminiClient, cfg.GeminiModel),
		cfg.MaxRetries,
		cfg.RetryDelay,
		cfg.RequestTimeout,
	)

	assembler := services.NewPromptAssembler(counter, cfg.TokenBudget)
	retriever := services.NewRetriever(embedder, holder, cfg.TopK)
	chat := services.NewChatService(retriever, assembler, completion, accountant, services.SystemPrompt())

	if *cliMode {
		runCLI(chat, accountant)
		return
	}

	chatController := controller.NewChatController(chat, indexer, accountant, holder, cfg.KnowledgeBaseDir)

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "Support Assistant API",
			"version": "1.0.0",
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/chat", chatController.Chat)
		apiV1.POST("/reindex", chatController.Reindex)
		apiV1.GET("/usage", chatController.Usage)
		apiV1.GET("/documents", chatController.Documents)
	}

	log.Printf("Support assistant starting on http://localhost:%s", cfg.Port)
	log.Printf("Health check available at: http://localhost:%s/health", cfg.Port)
	log.Printf("API endpoints:")
	log.Printf("  POST http://localhost:%s/api/v1/chat", cfg.Port)
	log.Printf("  POST http://localhost:%s/api/v1/reindex", cfg.Port)
	log.Printf("  GET  http://localhost:%s/api/v1/usage", cfg.Port)
	log.Printf("  GET  http://localhost:%s/api/v1/documents", cfg.Port)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}
