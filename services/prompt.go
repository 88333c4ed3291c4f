package services

import (
	"fmt"
	"strings"

	"github.com/Etheryii/Ai-Assistant-New/models"
)

// PromptAssembler builds the model prompt from system instructions,
// retrieved context, conversation history and the current query, in that
// order, under a token budget.
//
// When the budget is exceeded it trims oldest history turns first, then the
// lowest-similarity retrieved chunks. The system instructions and the
// current query are never trimmed: recency and top relevance win over
// completeness.
type PromptAssembler struct {
	counter TokenCounter
	budget  int
}

// NewPromptAssembler creates an assembler with the given token budget.
func NewPromptAssembler(counter TokenCounter, budget int) *PromptAssembler {
	if budget <= 0 {
		budget = 8192
	}
	return &PromptAssembler{counter: counter, budget: budget}
}

// Build assembles the prompt and returns it along with the retrieved chunks
// that survived trimming, so the caller can cite exactly what the model saw.
func (p *PromptAssembler) Build(system string, retrieved []models.RetrievedChunk, history []models.Turn, query string) (*models.Prompt, []models.RetrievedChunk, error) {
	fixedCost := p.counter.Count(system) + p.counter.Count(query)
	if fixedCost > p.budget {
		return nil, nil, NewBudgetExceededError(
			fmt.Sprintf("system instructions and query need %d tokens, budget is %d", fixedCost, p.budget))
	}

	historyCost := 0
	for _, turn := range history {
		historyCost += p.counter.Count(turn.Text)
	}
	// Any surviving context also pays for the instruction wrapper around it.
	contextCost := 0
	if len(retrieved) > 0 {
		contextCost = p.wrapperCost()
	}
	for _, rc := range retrieved {
		contextCost += p.counter.Count(contextBlock(rc.Chunk))
	}

	// Drop oldest history turns first.
	keptHistory := history
	for fixedCost+historyCost+contextCost > p.budget && len(keptHistory) > 0 {
		historyCost -= p.counter.Count(keptHistory[0].Text)
		keptHistory = keptHistory[1:]
	}

	// Then drop the lowest-similarity chunks; retrieval results arrive in
	// descending score order, so trim from the tail.
	keptChunks := retrieved
	for fixedCost+historyCost+contextCost > p.budget && len(keptChunks) > 0 {
		last := keptChunks[len(keptChunks)-1]
		contextCost -= p.counter.Count(contextBlock(last.Chunk))
		keptChunks = keptChunks[:len(keptChunks)-1]
		if len(keptChunks) == 0 {
			contextCost -= p.wrapperCost()
		}
	}

	if fixedCost+historyCost+contextCost > p.budget {
		return nil, nil, NewBudgetExceededError(
			fmt.Sprintf("prompt still needs %d tokens after trimming, budget is %d",
				fixedCost+historyCost+contextCost, p.budget))
	}

	prompt := &models.Prompt{
		System:      system,
		History:     keptHistory,
		UserMessage: userMessage(keptChunks, query),
	}
	return prompt, keptChunks, nil
}

const (
	contextPreamble = "Answer the following question based on the provided context. If the context doesn't contain relevant information, say so.\n\nContext:\n"
	questionPrefix  = "\n\nQuestion: "
)

// wrapperCost is the fixed price of the answer-from-context instructions
// that userMessage wraps around surviving chunks.
func (p *PromptAssembler) wrapperCost() int {
	return p.counter.Count(contextPreamble) + p.counter.Count(questionPrefix)
}

// contextBlock renders one retrieved chunk tagged with its source label.
func contextBlock(chunk models.Chunk) string {
	return fmt.Sprintf("[Source: %s]\n%s", chunk.Source, chunk.Text)
}

// userMessage builds the final user content. With context it follows the
// answer-from-context format; without it the query passes through as-is.
func userMessage(retrieved []models.RetrievedChunk, query string) string {
	if len(retrieved) == 0 {
		return query
	}

	blocks := make([]string, len(retrieved))
	for i, rc := range retrieved {
		blocks[i] = contextBlock(rc.Chunk)
	}

	var sb strings.Builder
	sb.WriteString(contextPreamble)
	sb.WriteString(strings.Join(blocks, "\n\n"))
	sb.WriteString(questionPrefix)
	sb.WriteString(query)
	return sb.String()
}
