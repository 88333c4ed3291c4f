package controller

import (
	"context"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Etheryii/Ai-Assistant-New/models"
	"github.com/Etheryii/Ai-Assistant-New/services"
)

// Assistant answers one chat request end to end.
type Assistant interface {
	Answer(ctx context.Context, req models.ChatRequest) models.ChatResponse
}

// Indexer rebuilds the knowledge-base index from a directory.
type Indexer interface {
	Rebuild(ctx context.Context, dir string) (*services.IndexStats, error)
}

// UsageReporter exposes the cumulative token accounting snapshot.
type UsageReporter interface {
	Snapshot() (int, models.TokenUsage)
}

// ChatController translates HTTP requests into pipeline calls.
type ChatController struct {
	assistant Assistant
	indexer   Indexer
	usage     UsageReporter
	holder    *services.IndexHolder
	kbDir     string
}

// NewChatController wires the controller to its collaborators.
func NewChatController(assistant Assistant, indexer Indexer, usage UsageReporter, holder *services.IndexHolder, kbDir string) *ChatController {
	return &ChatController{
		assistant: assistant,
		indexer:   indexer,
		usage:     usage,
		holder:    holder,
		kbDir:     kbDir,
	}
}

// Chat handles POST /api/v1/chat. Pipeline failures are absorbed by the
// assistant into a degraded 200; only malformed requests reach 400 here.
func (cc *ChatController) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			ErrorKind: "invalid_request",
			Message:   "request body must be JSON with a non-empty message field",
		})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			ErrorKind: "invalid_request",
			Message:   "message must not be empty",
		})
		return
	}

	requestID := uuid.New().String()
	log.Printf("CONTROLLER: [%s] chat request (use_knowledge_base=%t, history=%d turns)", requestID, req.UseKnowledgeBase, len(req.History))

	resp := cc.assistant.Answer(c.Request.Context(), req)
	log.Printf("CONTROLLER: [%s] replied with %d sources, %d tokens", requestID, len(resp.Sources), resp.TokenUsage.TotalTokens)
	c.JSON(http.StatusOK, resp)
}

// Reindex handles POST /api/v1/reindex: a full synchronous rebuild.
func (cc *ChatController) Reindex(c *gin.Context) {
	stats, err := cc.indexer.Rebuild(c.Request.Context(), cc.kbDir)
	if err != nil {
		kind, ok := services.KindOf(err)
		if !ok {
			kind = services.ErrKindIngestion
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			ErrorKind: string(kind),
			Message:   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, models.ReindexResponse{
		Documents: stats.Documents,
		Chunks:    stats.Chunks,
	})
}

// Usage handles GET /api/v1/usage.
func (cc *ChatController) Usage(c *gin.Context) {
	turns, cumulative := cc.usage.Snapshot()
	c.JSON(http.StatusOK, models.UsageResponse{
		Turns:      turns,
		Cumulative: cumulative,
	})
}

// Documents handles GET /api/v1/documents, listing what the current index
// snapshot actually contains.
func (cc *ChatController) Documents(c *gin.Context) {
	docs := make([]models.IndexedDocument, 0)
	if index := cc.holder.Snapshot(); index != nil {
		for name, chunks := range index.Documents() {
			docs = append(docs, models.IndexedDocument{Name: name, Chunks: chunks})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })

	c.JSON(http.StatusOK, models.DocumentsResponse{
		Count:     len(docs),
		Documents: docs,
	})
}
