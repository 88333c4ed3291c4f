package models

// HistoryTurn is one prior conversation turn as sent by the caller.
type HistoryTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message          string        `json:"message"`
	UseKnowledgeBase bool          `json:"use_knowledge_base"`
	History          []HistoryTurn `json:"history,omitempty"`
}
