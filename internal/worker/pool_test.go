package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/openamc/amctrack/internal/worker"
)

type testJob struct {
	name string
	runs *atomic.Int32
	done chan struct{}
	err  error
}

func (j *testJob) Name() string { return j.name }

func (j *testJob) Run(ctx context.Context) error {
	if j.runs != nil {
		j.runs.Add(1)
	}
	if j.done != nil {
		close(j.done)
	}
	return j.err
}

func TestPool_RunsSubmittedJobs(t *testing.T) {
	p := worker.NewPool(2, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	var runs atomic.Int32
	dones := make([]chan struct{}, 3)
	for i := range dones {
		dones[i] = make(chan struct{})
		p.Submit(&testJob{name: "job", runs: &runs, done: dones[i]})
	}

	for _, done := range dones {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job was not picked up")
		}
	}
	assert.Equal(t, int32(3), runs.Load())
	p.Stop()
}

func TestPool_JobFailureDoesNotStopWorker(t *testing.T) {
	p := worker.NewPool(1, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	p.Submit(&testJob{name: "failing", err: errors.New("boom")})

	done := make(chan struct{})
	p.Submit(&testJob{name: "following", done: done})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the failed job")
	}
	p.Stop()
}

func TestPool_QueueSizeCountsPending(t *testing.T) {
	p := worker.NewPool(1, 4)

	assert.Equal(t, 0, p.QueueSize())
	p.Submit(&testJob{name: "a"})
	p.Submit(&testJob{name: "b"})
	assert.Equal(t, 2, p.QueueSize(), "jobs queue up until Start")
}

func TestPool_StopWaitsForInFlightJob(t *testing.T) {
	p := worker.NewPool(1, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	started := make(chan struct{})
	var finished atomic.Bool
	p.Submit(worker.JobFunc("slow", func(context.Context) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil
	}))

	<-started
	p.Stop()
	assert.True(t, finished.Load(), "Stop returns only after the running job completes")
}
