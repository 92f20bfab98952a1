package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyKnowledgeBase indicates a question was asked before anything was ingested
	ErrEmptyKnowledgeBase = errors.New("empty knowledge base")

	// ErrNoChunks indicates the extracted document text produced no chunks
	ErrNoChunks = errors.New("no text found in document")

	// ErrIngestionInProgress indicates another ingestion run is active
	ErrIngestionInProgress = errors.New("ingestion already in progress")

	// ErrDimensionMismatch indicates two vectors have different lengths
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrLengthMismatch indicates chunk and embedding counts differ
	ErrLengthMismatch = errors.New("chunk and embedding count mismatch")

	// ErrStaleGeneration indicates the knowledge base was cleared after a run started
	ErrStaleGeneration = errors.New("knowledge base was cleared during ingestion")

	// ErrUnsupportedDocument indicates no extractor handles the uploaded document type
	ErrUnsupportedDocument = errors.New("unsupported document type")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrEmbeddingFailed indicates the embedding service call failed
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrGenerationFailed indicates the generation service call failed
	ErrGenerationFailed = errors.New("generation failed")

	// ErrServiceUnavailable indicates the AI service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)
