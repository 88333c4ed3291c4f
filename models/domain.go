package models

// Document represents a single knowledge-base file loaded into the system.
// Documents are immutable once loaded; a re-index reloads them from disk.
type Document struct {
	ID      string // derived from the absolute file path, stable across reloads
	Name    string // base file name, used as the citation label
	Path    string
	Content string
}

// Chunk is a bounded span of a document sized for embedding and retrieval.
type Chunk struct {
	ID         string
	DocumentID string
	Source     string // document name, carried for citation
	Text       string
	Index      int // sequence position within the document
}

// RetrievedChunk pairs a chunk with its similarity score for one query.
// Produced per query, never persisted.
type RetrievedChunk struct {
	Chunk Chunk
	Score float64
}

// Turn is a single prior exchange in the conversation. History is owned by
// the caller; the core never stores it.
type Turn struct {
	Role string // "user" or "assistant"
	Text string
}

// TokenUsage holds the token counts reported for a single model call.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Prompt is the fully assembled model input. Sections are already ordered
// and trimmed to the token budget by the assembler.
type Prompt struct {
	System  string
	History []Turn
	// UserMessage is the final user content: retrieved context (when any)
	// followed by the current question.
	UserMessage string
}

// Completion is the model's reply plus its reported token counts.
type Completion struct {
	Text  string
	Usage TokenUsage
}
