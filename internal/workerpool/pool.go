// Package workerpool runs N parallel worker goroutines that drain a shared
// dispatch channel of jobs, invoke each job's bound implementation, and
// report results on a completion channel (spec component L). Workers never
// touch run-state; the coordinator in internal/runtime is the only mutator.
package workerpool

import (
	"context"
	"fmt"
	"time"

	"github.com/flowforge/flowcore/common/metrics"
	"github.com/flowforge/flowcore/internal/flowerr"
	"github.com/flowforge/flowcore/internal/model"
	"github.com/flowforge/flowcore/internal/resolver"
)

// Pool owns a fixed number of worker goroutines reading from Dispatch and
// writing to Completion.
type Pool struct {
	Dispatch   <-chan *model.Job
	Completion chan<- *model.Job
	Registry   map[int]resolver.Implementation
	JobTimeout time.Duration
	Workers    int
}

// New builds a pool bound to registry (the function-id -> Implementation
// map produced by resolver.Resolve). jobTimeout <= 0 means no per-job
// deadline.
func New(dispatch <-chan *model.Job, completion chan<- *model.Job, registry map[int]resolver.Implementation, workers int, jobTimeout time.Duration) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		Dispatch:   dispatch,
		Completion: completion,
		Registry:   registry,
		JobTimeout: jobTimeout,
		Workers:    workers,
	}
}

// Run starts p.Workers goroutines and blocks until ctx is cancelled or
// Dispatch is closed and drained. Each worker loop is independent; a panic
// in one implementation is recovered and reported as that job's error
// without affecting the others.
func (p *Pool) Run(ctx context.Context) {
	done := make(chan struct{}, p.Workers)
	for i := 0; i < p.Workers; i++ {
		go func() {
			p.workerLoop(ctx)
			done <- struct{}{}
		}()
	}
	for i := 0; i < p.Workers; i++ {
		<-done
	}
}

func (p *Pool) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.Dispatch:
			if !ok {
				return
			}
			p.execute(ctx, job)
			select {
			case p.Completion <- job:
			case <-ctx.Done():
				return
			}
		}
	}
}

// execute invokes job's implementation, recovering from panics and applying
// JobTimeout, and populates job.Output/RunAgain/Err in place.
func (p *Pool) execute(ctx context.Context, job *model.Job) {
	impl, ok := p.Registry[job.FunctionID]
	if !ok {
		job.Err = flowerr.New(flowerr.UnresolvedImplementation, fmt.Errorf("function %d has no bound implementation", job.FunctionID))
		return
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if p.JobTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, p.JobTimeout)
		defer cancel()
	}

	rm := metrics.CaptureStart()
	job.Metrics = rm
	defer rm.Finalize()

	defer func() {
		if r := recover(); r != nil {
			job.Output = nil
			job.RunAgain = false
			job.Err = flowerr.New(flowerr.JobPanic, fmt.Errorf("panic: %v", r))
		}
	}()

	output, runAgain, err := impl.Invoke(runCtx, job.Inputs)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			job.Err = flowerr.New(flowerr.JobTimeout, err)
		} else {
			job.Err = err
		}
		return
	}

	job.Output = output
	job.RunAgain = runAgain
}
