package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Etheryii/Ai-Assistant-New/models"
)

// scriptedClient returns canned results in order; the last entry repeats.
type scriptedClient struct {
	results []scriptedResult
	calls   int
}

type scriptedResult struct {
	completion *models.Completion
	err        error
}

func (s *scriptedClient) Complete(_ context.Context, _ *models.Prompt) (*models.Completion, error) {
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	r := s.results[i]
	return r.completion, r.err
}

func okCompletion(text string) *models.Completion {
	return &models.Completion{Text: text, Usage: models.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	inner := &scriptedClient{results: []scriptedResult{
		{err: errors.New("google api error 503: service unavailable")},
		{err: errors.New("google api error 429: rate limited")},
		{completion: okCompletion("recovered")},
	}}
	client := NewRetryingCompletionClient(inner, 3, time.Millisecond, time.Second)

	got, err := client.Complete(context.Background(), &models.Prompt{UserMessage: "q"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.Text != "recovered" {
		t.Errorf("Text = %q, want recovered", got.Text)
	}
	if inner.calls != 3 {
		t.Errorf("inner called %d times, want 3", inner.calls)
	}
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	inner := &scriptedClient{results: []scriptedResult{
		{err: errors.New("google api error 400: invalid request")},
	}}
	client := NewRetryingCompletionClient(inner, 3, time.Millisecond, time.Second)

	_, err := client.Complete(context.Background(), &models.Prompt{UserMessage: "q"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1 (client errors must not retry)", inner.calls)
	}
	if kind, ok := KindOf(err); !ok || kind != ErrKindGeneration {
		t.Errorf("error kind = %v (typed=%t), want %s", kind, ok, ErrKindGeneration)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	inner := &scriptedClient{results: []scriptedResult{
		{err: errors.New("google api error 500: internal")},
	}}
	client := NewRetryingCompletionClient(inner, 3, time.Millisecond, time.Second)

	_, err := client.Complete(context.Background(), &models.Prompt{UserMessage: "q"})
	if err == nil {
		t.Fatal("expected error after exhausting retries, got nil")
	}
	if inner.calls != 3 {
		t.Errorf("inner called %d times, want 3", inner.calls)
	}
	if kind, ok := KindOf(err); !ok || kind != ErrKindGeneration {
		t.Errorf("error kind = %v (typed=%t), want %s", kind, ok, ErrKindGeneration)
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	inner := &scriptedClient{results: []scriptedResult{
		{err: errors.New("google api error 503: service unavailable")},
	}}
	client := NewRetryingCompletionClient(inner, 5, 50*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, &models.Prompt{UserMessage: "q"})
	if err == nil {
		t.Fatal("expected error with cancelled context, got nil")
	}
	if inner.calls > 1 {
		t.Errorf("inner called %d times after cancellation, want at most 1", inner.calls)
	}
}

// blockingClient hangs until its context expires.
type blockingClient struct {
	calls int
}

func (b *blockingClient) Complete(ctx context.Context, _ *models.Prompt) (*models.Completion, error) {
	b.calls++
	<-ctx.Done()
	return nil, ctx.Err()
}

// deadlineClient records whether it was handed a context with a deadline.
type deadlineClient struct {
	hadDeadline bool
}

func (d *deadlineClient) Complete(ctx context.Context, _ *models.Prompt) (*models.Completion, error) {
	_, d.hadDeadline = ctx.Deadline()
	return okCompletion("ok"), nil
}

func TestRetryBoundsEachAttemptWithDeadline(t *testing.T) {
	inner := &deadlineClient{}
	client := NewRetryingCompletionClient(inner, 3, time.Millisecond, time.Second)

	// The caller's context carries no deadline; the wrapper must add one.
	if _, err := client.Complete(context.Background(), &models.Prompt{UserMessage: "q"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !inner.hadDeadline {
		t.Error("inner client received a context without a deadline")
	}
}

func TestRetryTimesOutHungCalls(t *testing.T) {
	inner := &blockingClient{}
	client := NewRetryingCompletionClient(inner, 2, time.Millisecond, 10*time.Millisecond)

	start := time.Now()
	_, err := client.Complete(context.Background(), &models.Prompt{UserMessage: "q"})
	if err == nil {
		t.Fatal("expected error from hung completion, got nil")
	}
	if kind, ok := KindOf(err); !ok || kind != ErrKindGeneration {
		t.Errorf("error kind = %v (typed=%t), want %s", kind, ok, ErrKindGeneration)
	}
	// Timeouts are retryable, so both attempts run, each bounded.
	if inner.calls != 2 {
		t.Errorf("inner called %d times, want 2", inner.calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("call took %v, want well under a second with 10ms attempt deadlines", elapsed)
	}
}

func TestIsRetryableClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"rate limit", errors.New("status 429 Too Many Requests"), true},
		{"server error", errors.New("status 502 bad gateway"), true},
		{"bad request", errors.New("status 400 bad request"), false},
		{"unauthorized", errors.New("status 401 unauthorized"), false},
		{"unknown", errors.New("connection reset by peer"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %t, want %t", tt.err, got, tt.want)
			}
		})
	}
}
