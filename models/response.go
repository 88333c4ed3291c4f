package models

// ChatResponse is the body returned by POST /api/v1/chat. It is always
// well-formed: a degraded answer still carries empty sources and zeroed usage.
type ChatResponse struct {
	Reply      string     `json:"reply"`
	Sources    []string   `json:"sources"`
	TokenUsage TokenUsage `json:"token_usage"`
}

// ErrorResponse is the wire shape for every error surfaced across the API.
type ErrorResponse struct {
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

// ReindexResponse reports the outcome of POST /api/v1/reindex.
type ReindexResponse struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}

// UsageResponse is the token accountant snapshot for GET /api/v1/usage.
type UsageResponse struct {
	Turns      int        `json:"turns"`
	Cumulative TokenUsage `json:"cumulative"`
}

// IndexedDocument summarizes one document in the current index snapshot.
type IndexedDocument struct {
	Name   string `json:"name"`
	Chunks int    `json:"chunks"`
}

// DocumentsResponse lists the documents behind GET /api/v1/documents.
type DocumentsResponse struct {
	Count     int               `json:"count"`
	Documents []IndexedDocument `json:"documents"`
}
