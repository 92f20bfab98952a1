package driven

// AIServiceFactory creates AI services for a service base URL.
// The base URL is supplied per request, so services are created on demand.
type AIServiceFactory interface {
	// CreateEmbeddingService creates an embedding service talking to baseURL
	CreateEmbeddingService(baseURL string) (EmbeddingService, error)

	// CreateLLMService creates a generation service talking to baseURL
	CreateLLMService(baseURL string) (LLMService, error)
}
