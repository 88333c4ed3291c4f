package services

import (
	"context"
	"testing"

	"github.com/Etheryii/Ai-Assistant-New/models"
)

// stubEmbedder returns fixed vectors per text, or a scripted failure.
type stubEmbedder struct {
	vectors map[string][]float32
	fail    error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func populatedHolder(t *testing.T, chunks []models.Chunk, vectors [][]float32) *IndexHolder {
	t.Helper()
	idx := NewMemoryIndex()
	for i, chunk := range chunks {
		if err := idx.Insert(context.Background(), chunk, vectors[i]); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	holder := NewIndexHolder()
	holder.Store(idx)
	return holder
}

func newTestChatService(t *testing.T, embedder Embedder, holder *IndexHolder, completion CompletionClient, budget int) (*ChatService, *TokenAccountant) {
	t.Helper()
	accountant := NewTokenAccountant()
	svc := NewChatService(
		NewRetriever(embedder, holder, 5),
		NewPromptAssembler(wordCounter{}, budget),
		completion,
		accountant,
		"be helpful",
	)
	return svc, accountant
}

func TestAnswerWithKnowledgeBaseCitesSources(t *testing.T) {
	chunks := []models.Chunk{
		{ID: "r0", Source: "refund_policy.md", Text: "refunds take five days"},
		{ID: "s0", Source: "shipping.md", Text: "shipping takes two days"},
	}
	holder := populatedHolder(t, chunks, [][]float32{{1, 0}, {0, 1}})
	embedder := &stubEmbedder{vectors: map[string][]float32{"what is the refund policy": {1, 0}}}
	completion := &scriptedClient{results: []scriptedResult{{completion: okCompletion("Refunds take five days.")}}}

	svc, accountant := newTestChatService(t, embedder, holder, completion, 1000)
	resp := svc.Answer(context.Background(), models.ChatRequest{
		Message:          "what is the refund policy",
		UseKnowledgeBase: true,
	})

	if resp.Reply != "Refunds take five days." {
		t.Errorf("Reply = %q", resp.Reply)
	}
	if len(resp.Sources) == 0 || resp.Sources[0] != "refund_policy.md" {
		t.Errorf("Sources = %v, want refund_policy.md first", resp.Sources)
	}
	if resp.TokenUsage.TotalTokens != 15 {
		t.Errorf("TokenUsage = %+v, want total 15", resp.TokenUsage)
	}
	turns, usage := accountant.Snapshot()
	if turns != 1 || usage.TotalTokens != 15 {
		t.Errorf("accountant recorded %d turns / %+v, want 1 turn, 15 total", turns, usage)
	}
}

func TestAnswerWithoutKnowledgeBaseSkipsRetrieval(t *testing.T) {
	// A failing embedder proves retrieval is never attempted.
	embedder := &stubEmbedder{fail: NewEmbeddingError("must not be called", nil)}
	holder := populatedHolder(t,
		[]models.Chunk{{ID: "a", Source: "a.md", Text: "ctx"}},
		[][]float32{{1, 0}},
	)
	completion := &scriptedClient{results: []scriptedResult{{completion: okCompletion("general answer")}}}

	svc, _ := newTestChatService(t, embedder, holder, completion, 1000)
	resp := svc.Answer(context.Background(), models.ChatRequest{
		Message:          "hello",
		UseKnowledgeBase: false,
	})

	if resp.Reply != "general answer" {
		t.Errorf("Reply = %q", resp.Reply)
	}
	if resp.Sources == nil {
		t.Fatal("Sources is nil, want empty slice")
	}
	if len(resp.Sources) != 0 {
		t.Errorf("Sources = %v, want empty", resp.Sources)
	}
}

func TestAnswerDegradesWhenEmbeddingFails(t *testing.T) {
	embedder := &stubEmbedder{fail: NewEmbeddingError("ollama unreachable", nil)}
	holder := populatedHolder(t,
		[]models.Chunk{{ID: "a", Source: "a.md", Text: "ctx"}},
		[][]float32{{1, 0}},
	)
	completion := &scriptedClient{results: []scriptedResult{{completion: okCompletion("answered without context")}}}

	svc, _ := newTestChatService(t, embedder, holder, completion, 1000)
	resp := svc.Answer(context.Background(), models.ChatRequest{
		Message:          "question",
		UseKnowledgeBase: true,
	})

	if resp.Reply != "answered without context" {
		t.Errorf("Reply = %q, want degraded answer from the model", resp.Reply)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("Sources = %v, want empty after retrieval failure", resp.Sources)
	}
	if completion.calls != 1 {
		t.Errorf("completion called %d times, want 1", completion.calls)
	}
}

func TestAnswerEmptyKnowledgeBaseDegrades(t *testing.T) {
	// Empty index: retrieval yields nothing, the embedder is never called,
	// and the model answers from general knowledge.
	embedder := &stubEmbedder{fail: NewEmbeddingError("must not be called", nil)}
	holder := NewIndexHolder()
	completion := &scriptedClient{results: []scriptedResult{{completion: okCompletion("general knowledge answer")}}}

	svc, _ := newTestChatService(t, embedder, holder, completion, 1000)
	resp := svc.Answer(context.Background(), models.ChatRequest{
		Message:          "question",
		UseKnowledgeBase: true,
	})

	if resp.Reply != "general knowledge answer" {
		t.Errorf("Reply = %q", resp.Reply)
	}
	if resp.Sources == nil || len(resp.Sources) != 0 {
		t.Errorf("Sources = %v, want empty slice", resp.Sources)
	}
	if completion.calls != 1 {
		t.Errorf("completion called %d times, want 1", completion.calls)
	}
}

func TestAnswerGenerationFailureYieldsApology(t *testing.T) {
	embedder := &stubEmbedder{}
	holder := NewIndexHolder()
	completion := &scriptedClient{results: []scriptedResult{
		{err: NewGenerationError("model call failed after 3 attempts", nil)},
	}}

	svc, accountant := newTestChatService(t, embedder, holder, completion, 1000)
	resp := svc.Answer(context.Background(), models.ChatRequest{Message: "question"})

	if resp.Reply != generationFailedReply {
		t.Errorf("Reply = %q, want the apology message", resp.Reply)
	}
	if resp.Sources == nil || len(resp.Sources) != 0 {
		t.Errorf("Sources = %v, want empty slice", resp.Sources)
	}
	if resp.TokenUsage.TotalTokens != 0 {
		t.Errorf("TokenUsage = %+v, want zero on failure", resp.TokenUsage)
	}
	turns, _ := accountant.Snapshot()
	if turns != 0 {
		t.Errorf("accountant recorded %d turns for a failed generation, want 0", turns)
	}
}

func TestAnswerBudgetExceededSkipsCompletion(t *testing.T) {
	embedder := &stubEmbedder{}
	holder := NewIndexHolder()
	completion := &scriptedClient{results: []scriptedResult{{completion: okCompletion("should not run")}}}

	// Budget of 1 word cannot fit system ("be helpful" = 2) plus query.
	svc, accountant := newTestChatService(t, embedder, holder, completion, 1)
	resp := svc.Answer(context.Background(), models.ChatRequest{Message: "a very long question"})

	if resp.Reply != budgetExceededReply {
		t.Errorf("Reply = %q, want the budget message", resp.Reply)
	}
	if completion.calls != 0 {
		t.Errorf("completion called %d times, want 0", completion.calls)
	}
	turns, _ := accountant.Snapshot()
	if turns != 0 {
		t.Errorf("accountant recorded %d turns, want 0", turns)
	}
}

func TestAnswerDeduplicatesSources(t *testing.T) {
	chunks := []models.Chunk{
		{ID: "f0", Source: "faq.md", Text: "part one"},
		{ID: "f1", Source: "faq.md", Text: "part two"},
	}
	holder := populatedHolder(t, chunks, [][]float32{{1, 0}, {1, 0}})
	embedder := &stubEmbedder{}
	completion := &scriptedClient{results: []scriptedResult{{completion: okCompletion("ok")}}}

	svc, _ := newTestChatService(t, embedder, holder, completion, 1000)
	resp := svc.Answer(context.Background(), models.ChatRequest{
		Message:          "question",
		UseKnowledgeBase: true,
	})

	if len(resp.Sources) != 1 || resp.Sources[0] != "faq.md" {
		t.Errorf("Sources = %v, want exactly one faq.md entry", resp.Sources)
	}
}

func TestAnswerForwardsHistory(t *testing.T) {
	embedder := &stubEmbedder{}
	holder := NewIndexHolder()

	var captured *models.Prompt
	completion := &captureClient{reply: okCompletion("ok"), captured: &captured}

	svc, _ := newTestChatService(t, embedder, holder, completion, 1000)
	svc.Answer(context.Background(), models.ChatRequest{
		Message: "follow-up",
		History: []models.HistoryTurn{
			{Role: "user", Text: "first question"},
			{Role: "assistant", Text: "first answer"},
		},
	})

	if captured == nil {
		t.Fatal("completion never called")
	}
	if len(captured.History) != 2 {
		t.Fatalf("forwarded %d history turns, want 2", len(captured.History))
	}
	if captured.History[0].Role != "user" || captured.History[1].Role != "assistant" {
		t.Errorf("history roles = %q/%q", captured.History[0].Role, captured.History[1].Role)
	}
}

// captureClient records the prompt it receives.
type captureClient struct {
	reply    *models.Completion
	captured **models.Prompt
}

func (c *captureClient) Complete(_ context.Context, prompt *models.Prompt) (*models.Completion, error) {
	*c.captured = prompt
	return c.reply, nil
}
