package problems

import (
	"context"

	"github.com/openamc/amctrack/internal/models"
)

// Repository handles problem-bank data access
type Repository interface {
	Get(ctx context.Context, id string) (*models.Problem, error)
	List(ctx context.Context, filter models.ProblemFilter) ([]models.Problem, error)
	Count(ctx context.Context, filter models.ProblemFilter) (int, error)
	Insert(ctx context.Context, p models.Problem) error
	InsertBatch(ctx context.Context, ps []models.Problem) (int, error)
	Random(ctx context.Context, filter models.ProblemFilter, n int) ([]models.Problem, error)
	Topics(ctx context.Context) ([]string, error)
}
