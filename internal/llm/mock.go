package llm

import (
	"context"

	"github.com/mockmate/mockmate/internal/domain"
)

// MockClient is a test double for Client.
type MockClient struct {
	ProviderName string
	ConverseFunc func(ctx context.Context, history []domain.Turn) (string, error)
	Calls        int
}

func (m *MockClient) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockClient) Converse(ctx context.Context, history []domain.Turn) (string, error) {
	m.Calls++
	if m.ConverseFunc != nil {
		return m.ConverseFunc(ctx, history)
	}
	return "mock reply", nil
}
