package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTokenProvider is a mock implementation of syncer.TokenProvider
type MockTokenProvider struct {
	mock.Mock
}

func (m *MockTokenProvider) Token(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockTokenProvider) Invalidate() {
	m.Called()
}
