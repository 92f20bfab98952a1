package mocks

import (
	"context"
	"sync"
)

// MockLLMService is a mock implementation of LLMService for testing.
// It records prompts and answers with a fixed response.
type MockLLMService struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
}

// NewMockLLMService creates a mock that answers every prompt with response
func NewMockLLMService(response string) *MockLLMService {
	return &MockLLMService{response: response}
}

func (m *MockLLMService) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *MockLLMService) Model() string {
	return "mock-llm"
}

func (m *MockLLMService) Ping(ctx context.Context) error {
	return nil
}

func (m *MockLLMService) Close() error {
	return nil
}

// SetError makes Generate fail with err; nil restores normal behaviour
func (m *MockLLMService) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Prompts returns every prompt received, in order
func (m *MockLLMService) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
