package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/Etheryii/Ai-Assistant-New/models"
)

// CompletionClient sends an assembled prompt to a text-generation model and
// returns the completion with its reported token counts.
type CompletionClient interface {
	Complete(ctx context.Context, prompt *models.Prompt) (*models.Completion, error)
}

// GeminiClient implements CompletionClient with the Google Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient wraps an existing genai client for the given model.
func NewGeminiClient(client *genai.Client, model string) *GeminiClient {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{client: client, model: model}
}

// Complete sends the prompt as a single chat exchange: system instructions
// in the config, prior turns as history, and the context-plus-query message
// as the one new user message. Exactly one API call per invocation.
func (g *GeminiClient) Complete(ctx context.Context, prompt *models.Prompt) (*models.Completion, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: textContent(prompt.System),
	}

	history := make([]*genai.Content, 0, len(prompt.History))
	for _, turn := range prompt.History {
		role := genai.RoleUser
		if turn.Role == "assistant" {
			role = genai.RoleModel
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: turn.Text}},
		})
	}

	session, err := g.client.Chats.Create(ctx, g.model, config, history)
	if err != nil {
		return nil, NewGenerationError("could not start chat session", err)
	}

	result, err := session.SendMessage(ctx, genai.Part{Text: prompt.UserMessage})
	if err != nil {
		return nil, NewGenerationError("gemini api call failed", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, NewGenerationError("gemini returned an empty completion", nil)
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}

	usage := models.TokenUsage{}
	if um := result.UsageMetadata; um != nil {
		usage.InputTokens = int(um.PromptTokenCount)
		usage.OutputTokens = int(um.CandidatesTokenCount)
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}

	return &models.Completion{Text: text.String(), Usage: usage}, nil
}

// textContent converts a plain string into genai content.
func textContent(s string) *genai.Content {
	contents := genai.Text(s)
	if len(contents) == 0 {
		return nil
	}
	return contents[0]
}

// RetryingCompletionClient wraps a CompletionClient with bounded exponential
// backoff and a per-attempt deadline. Only transient failures are retried,
// and only up to maxAttempts total calls; the caller is never handed a
// fabricated answer on failure.
type RetryingCompletionClient struct {
	inner       CompletionClient
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	timeout     time.Duration
}

// NewRetryingCompletionClient wraps inner with up to maxAttempts attempts,
// each bounded by timeout.
func NewRetryingCompletionClient(inner CompletionClient, maxAttempts int, baseDelay, timeout time.Duration) *RetryingCompletionClient {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RetryingCompletionClient{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    15 * time.Second,
		timeout:     timeout,
	}
}

func (r *RetryingCompletionClient) Complete(ctx context.Context, prompt *models.Prompt) (*models.Completion, error) {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := r.backoff(attempt)
			log.Printf("SERVICE: completion attempt %d/%d after %v: %v", attempt, r.maxAttempts, delay, lastErr)
			select {
			case <-ctx.Done():
				return nil, NewGenerationError("request cancelled while waiting to retry", ctx.Err())
			case <-time.After(delay):
			}
		}

		// Incoming contexts (HTTP requests, the CLI) carry no deadline of
		// their own, so each attempt gets one here.
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		completion, err := r.inner.Complete(attemptCtx, prompt)
		cancel()
		if err == nil {
			return completion, nil
		}
		lastErr = err

		if !isRetryable(err) {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	return nil, NewGenerationError(fmt.Sprintf("model call failed after %d attempts", r.maxAttempts), lastErr)
}

// backoff doubles the base delay per attempt, capped at maxDelay.
func (r *RetryingCompletionClient) backoff(attempt int) time.Duration {
	delay := r.baseDelay
	for i := 2; i < attempt; i++ {
		delay *= 2
		if delay > r.maxDelay {
			return r.maxDelay
		}
	}
	return delay
}

// isRetryable classifies transient failures: rate limits, server errors and
// timeouts retry; cancellations and client errors do not.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	errStr := err.Error()
	if strings.Contains(errStr, "429") || strings.Contains(errStr, "Too Many Requests") {
		return true
	}
	if strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, http.StatusText(http.StatusServiceUnavailable)) {
		return true
	}
	if strings.Contains(errStr, "400") ||
		strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "403") ||
		strings.Contains(errStr, "404") {
		return false
	}
	return true
}
