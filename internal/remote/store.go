package remote

import (
	"context"

	"github.com/openamc/amctrack/internal/models"
)

// Store is the remote tabular store holding one statistics row per user.
// Writes carry the full current counters, not deltas, so repeated flushes of
// the same un-cleared queue are idempotent at the row level.
type Store interface {
	// FetchStats returns the user's row, or (nil, nil) when no row exists yet.
	FetchStats(ctx context.Context, token, userID string) (*models.StatsAggregate, error)
	// CreateStats inserts a fresh row for the user.
	CreateStats(ctx context.Context, token, userID string, stats *models.StatsAggregate) error
	// UpdateStats partially updates the user's row with the given aggregate.
	UpdateStats(ctx context.Context, token, userID string, stats *models.StatsAggregate) error
}
