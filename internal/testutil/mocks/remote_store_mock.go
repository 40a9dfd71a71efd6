package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/openamc/amctrack/internal/models"
)

// MockRemoteStore is a mock implementation of remote.Store
type MockRemoteStore struct {
	mock.Mock
}

func (m *MockRemoteStore) FetchStats(ctx context.Context, token, userID string) (*models.StatsAggregate, error) {
	args := m.Called(ctx, token, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StatsAggregate), args.Error(1)
}

func (m *MockRemoteStore) CreateStats(ctx context.Context, token, userID string, stats *models.StatsAggregate) error {
	args := m.Called(ctx, token, userID, stats)
	return args.Error(0)
}

func (m *MockRemoteStore) UpdateStats(ctx context.Context, token, userID string, stats *models.StatsAggregate) error {
	args := m.Called(ctx, token, userID, stats)
	return args.Error(0)
}
