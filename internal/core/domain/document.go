package domain

// Upload describes a document accepted for ingestion.
// Path points at a temporary file owned by the ingestion run; it is removed
// when the run finishes, whatever the outcome.
type Upload struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`

	// BaseURL is the embedding service base URL, trailing slash removed
	BaseURL string `json:"base_url"`
}

// Chunk is a trimmed, non-empty window of document text
type Chunk struct {
	Index int    `json:"index"` // Position within the knowledge base
	Text  string `json:"text"`
}

// ScoredChunk is a retrieved chunk with its cosine similarity to the query
type ScoredChunk struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
	Chunk Chunk   `json:"chunk"`
}

// KnowledgeStats summarises the knowledge base
type KnowledgeStats struct {
	Chunks     int    `json:"chunks"`
	Dimensions int    `json:"dimensions"`
	Generation uint64 `json:"generation"`
}
