package services

import (
	"context"
	"log"

	"github.com/Etheryii/Ai-Assistant-New/models"
)

// User-facing replies for the two failure modes that abort a request.
// Degraded answers (no knowledge base, failed retrieval) still go through
// the model; these do not.
const (
	generationFailedReply = "I'm sorry, I couldn't generate a response right now. Please try again in a moment."
	budgetExceededReply   = "Your question and conversation history are too long for me to process in one turn. Please shorten your message or start a new conversation."
)

// ChatService is the conversation orchestrator. One Answer call drives the
// whole pipeline: optional retrieval, prompt assembly, a single completion
// call (plus the documented backoff retries), and token accounting.
type ChatService struct {
	retriever  *Retriever
	assembler  *PromptAssembler
	completion CompletionClient
	accountant *TokenAccountant
	system     string
}

// NewChatService wires the pipeline together. All collaborators are
// injected so tests can substitute doubles.
func NewChatService(retriever *Retriever, assembler *PromptAssembler, completion CompletionClient, accountant *TokenAccountant, system string) *ChatService {
	return &ChatService{
		retriever:  retriever,
		assembler:  assembler,
		completion: completion,
		accountant: accountant,
		system:     system,
	}
}

// Answer processes one user message and always returns a well-formed
// response. Retrieval failures degrade to a general-knowledge answer;
// generation failures produce an apology with zero token usage. The
// knowledge base is never mutated.
func (s *ChatService) Answer(ctx context.Context, req models.ChatRequest) models.ChatResponse {
	var retrieved []models.RetrievedChunk
	if req.UseKnowledgeBase {
		var err error
		retrieved, err = s.retriever.Retrieve(ctx, req.Message)
		if err != nil {
			log.Printf("SERVICE: retrieval failed, answering without context: %v", err)
			retrieved = nil
		}
	}

	history := make([]models.Turn, len(req.History))
	for i, turn := range req.History {
		history[i] = models.Turn{Role: turn.Role, Text: turn.Text}
	}

	prompt, cited, err := s.assembler.Build(s.system, retrieved, history, req.Message)
	if err != nil {
		log.Printf("SERVICE: prompt assembly failed: %v", err)
		return models.ChatResponse{
			Reply:   budgetExceededReply,
			Sources: []string{},
		}
	}

	completion, err := s.completion.Complete(ctx, prompt)
	if err != nil {
		log.Printf("SERVICE: generation failed: %v", err)
		return models.ChatResponse{
			Reply:   generationFailedReply,
			Sources: []string{},
		}
	}

	s.accountant.Record(completion.Usage)

	return models.ChatResponse{
		Reply:      completion.Text,
		Sources:    sourceLabels(cited),
		TokenUsage: completion.Usage,
	}
}

// sourceLabels extracts unique document names from the cited chunks,
// preserving relevance order. Always non-nil so the field serializes as an
// empty array rather than null.
func sourceLabels(cited []models.RetrievedChunk) []string {
	labels := make([]string, 0, len(cited))
	seen := make(map[string]bool, len(cited))
	for _, rc := range cited {
		if rc.Chunk.Source == "" || seen[rc.Chunk.Source] {
			continue
		}
		seen[rc.Chunk.Source] = true
		labels = append(labels, rc.Chunk.Source)
	}
	return labels
}
