package services

import (
	"errors"
	"fmt"
)

// ErrorKind identifies which pipeline stage failed. The kind string is what
// gets serialized as error_kind on the API boundary.
type ErrorKind string

const (
	ErrKindIngestion      ErrorKind = "ingestion_error"
	ErrKindEmbedding      ErrorKind = "embedding_error"
	ErrKindGeneration     ErrorKind = "generation_error"
	ErrKindBudgetExceeded ErrorKind = "budget_exceeded_error"
)

// PipelineError is a typed failure from one pipeline stage. Lower layers
// return these; the chat service is the single place that decides which
// kinds degrade gracefully and which abort the request.
type PipelineError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewIngestionError marks a knowledge-base read failure (non-fatal upstream).
func NewIngestionError(msg string, err error) *PipelineError {
	return &PipelineError{Kind: ErrKindIngestion, Msg: msg, Err: err}
}

// NewEmbeddingError marks a failed or timed-out embedding call.
func NewEmbeddingError(msg string, err error) *PipelineError {
	return &PipelineError{Kind: ErrKindEmbedding, Msg: msg, Err: err}
}

// NewGenerationError marks a model call that failed after bounded retries.
func NewGenerationError(msg string, err error) *PipelineError {
	return &PipelineError{Kind: ErrKindGeneration, Msg: msg, Err: err}
}

// NewBudgetExceededError marks a prompt that cannot fit the token budget
// even after maximal trimming.
func NewBudgetExceededError(msg string) *PipelineError {
	return &PipelineError{Kind: ErrKindBudgetExceeded, Msg: msg}
}

// KindOf extracts the pipeline error kind from an error chain.
func KindOf(err error) (ErrorKind, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}
