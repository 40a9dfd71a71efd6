package jobs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/openamc/amctrack/internal/problems"
)

// ImportJob loads a JSON problem set into the local bank on a worker pool.
type ImportJob struct {
	Repo    problems.Repository
	Payload []byte
	Label   string
}

func (j *ImportJob) Name() string {
	return fmt.Sprintf("problem-import:%s", j.Label)
}

func (j *ImportJob) Run(ctx context.Context) error {
	_, err := problems.ImportJSON(ctx, j.Repo, bytes.NewReader(j.Payload))
	return err
}
