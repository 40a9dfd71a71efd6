package problems

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/openamc/amctrack/internal/logger"
	"github.com/openamc/amctrack/internal/models"
)

// ImportJSON reads a JSON array of problems and upserts them into the bank.
// Problems missing an id, topic, or answer are skipped with a warning rather
// than aborting the whole import.
func ImportJSON(ctx context.Context, repo Repository, r io.Reader) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("problem_import")

	var incoming []models.Problem
	if err := json.NewDecoder(r).Decode(&incoming); err != nil {
		return 0, fmt.Errorf("decode problem set: %w", err)
	}

	valid := make([]models.Problem, 0, len(incoming))
	for _, p := range incoming {
		if p.ID == "" || p.Topic == "" || p.Answer == "" {
			log.Warn("skipping invalid problem: id=%q, topic=%q", p.ID, p.Topic)
			continue
		}
		if p.Difficulty <= 0 {
			p.Difficulty = 1.0
		}
		valid = append(valid, p)
	}
	if len(valid) == 0 {
		return 0, fmt.Errorf("problem set contains no valid problems")
	}

	inserted, err := repo.InsertBatch(ctx, valid)
	if err != nil {
		return 0, err
	}
	log.Info("imported %d/%d problems", inserted, len(incoming))
	return inserted, nil
}
