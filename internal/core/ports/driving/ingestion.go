package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// IngestionService accepts documents and reports ingestion progress
type IngestionService interface {
	// Start accepts an upload and runs ingestion in the background.
	// Returns domain.ErrIngestionInProgress if another run is active.
	// The upload's temporary file is owned by the service once Start is called.
	Start(ctx context.Context, upload domain.Upload) (*domain.Job, error)

	// Status returns the knowledge base size and a snapshot of the job
	Status(ctx context.Context) (*domain.IngestionStatus, error)

	// Clear empties the knowledge base and resets the job to idle
	Clear(ctx context.Context) error
}
