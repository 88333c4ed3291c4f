package services

import (
	"sync/atomic"

	"github.com/pkoukk/tiktoken-go"

	"github.com/Etheryii/Ai-Assistant-New/models"
)

// TokenCounter counts tokens with the same rules the target model bills by,
// so budget checks and accumulated usage stay consistent across turns.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts with the cl100k_base encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the cl100k_base encoding.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{encoding: encoding}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// TokenAccountant accumulates per-turn token usage for the lifetime of the
// process. Counters are atomic because answers may run concurrently.
// Accounting is observational only; it never influences routing.
type TokenAccountant struct {
	turns  atomic.Int64
	input  atomic.Int64
	output atomic.Int64
}

// NewTokenAccountant creates an accountant with zeroed counters.
func NewTokenAccountant() *TokenAccountant {
	return &TokenAccountant{}
}

// Record adds one turn's usage to the running totals.
func (a *TokenAccountant) Record(usage models.TokenUsage) {
	a.turns.Add(1)
	a.input.Add(int64(usage.InputTokens))
	a.output.Add(int64(usage.OutputTokens))
}

// Snapshot returns the number of recorded turns and the cumulative counts.
func (a *TokenAccountant) Snapshot() (int, models.TokenUsage) {
	in := int(a.input.Load())
	out := int(a.output.Load())
	return int(a.turns.Load()), models.TokenUsage{
		InputTokens:  in,
		OutputTokens: out,
		TotalTokens:  in + out,
	}
}
