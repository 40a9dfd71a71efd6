package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/openamc/amctrack/internal/models"
)

// MockProblemRepository is a mock implementation of problems.Repository
type MockProblemRepository struct {
	mock.Mock
}

func (m *MockProblemRepository) Get(ctx context.Context, id string) (*models.Problem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Problem), args.Error(1)
}

func (m *MockProblemRepository) List(ctx context.Context, filter models.ProblemFilter) ([]models.Problem, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Problem), args.Error(1)
}

func (m *MockProblemRepository) Count(ctx context.Context, filter models.ProblemFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockProblemRepository) Insert(ctx context.Context, p models.Problem) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProblemRepository) InsertBatch(ctx context.Context, ps []models.Problem) (int, error) {
	args := m.Called(ctx, ps)
	return args.Int(0), args.Error(1)
}

func (m *MockProblemRepository) Random(ctx context.Context, filter models.ProblemFilter, n int) ([]models.Problem, error) {
	args := m.Called(ctx, filter, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Problem), args.Error(1)
}

func (m *MockProblemRepository) Topics(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
