// Package submission hosts one run of a compiled manifest end to end: it
// wires the scheduler (internal/runtime), the worker pool
// (internal/workerpool), the implementation resolver (internal/resolver)
// and the built-in context functions (internal/contextfns) together behind
// the callback interface and audit trail spec.md §4.M describes.
package submission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flowforge/flowcore/common/logger"
	"github.com/flowforge/flowcore/internal/contextfns"
	"github.com/flowforge/flowcore/internal/model"
	"github.com/flowforge/flowcore/internal/resolver"
	"github.com/flowforge/flowcore/internal/runtime"
	"github.com/flowforge/flowcore/internal/workerpool"
)

// Request describes one submission: what to run and how.
type Request struct {
	ManifestLocator string
	Manifest        *model.Manifest
	Concurrency     int
	JobTimeout      time.Duration
	Debug           bool
	DebuggerExpr    string
	// Channel is the external client transport for this submission's
	// context:// functions (stdio/file/image/args). Nil if the manifest
	// references none.
	Channel contextfns.ClientChannel
}

// Coordinator owns one submission's full lifecycle: dispatch/completion
// channels, the scheduler, the worker pool goroutines, and the audit trail.
// It is discarded once Run returns.
type Coordinator struct {
	id       string
	req      Request
	log      *logger.Logger
	audit    *AuditRepository
	debugger *Debugger

	coord *runtime.Coordinator
	pool  *workerpool.Pool
}

// New builds a Coordinator for req. bound is the function-id -> resolved
// Implementation map produced by resolver.Resolve.
func New(req Request, bound map[int]resolver.Implementation, log *logger.Logger, audit *AuditRepository) *Coordinator {
	id := uuid.NewString()
	dispatch := make(chan *model.Job, req.Concurrency)
	completion := make(chan *model.Job, req.Concurrency)

	c := &Coordinator{
		id:       id,
		req:      req,
		log:      log.WithSubmissionID(id),
		audit:    audit,
		debugger: NewDebugger(req.DebuggerExpr),
	}

	if req.Channel != nil {
		wireContextFuncs(bound, req.Manifest, req.Channel, c.log)
	}

	c.pool = workerpool.New(dispatch, completion, bound, req.Concurrency, req.JobTimeout)
	c.coord = runtime.NewCoordinator(req.Manifest, dispatch, completion, req.Concurrency, c)
	return c
}

// ID is the submission's generated identifier.
func (c *Coordinator) ID() string { return c.id }

// Run starts the worker pool and drives the scheduler to completion,
// recording the submission and its events to the audit repository as it
// goes. It returns the coordinator's overall result: nil on a normal
// termination, the propagating error otherwise.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.audit != nil {
		if err := c.audit.RecordSubmission(ctx, c.id, c.req.ManifestLocator, c.req.Concurrency, c.req.JobTimeout, c.req.Debug); err != nil {
			c.log.Error("failed to record submission", "error", err)
		}
	}

	poolCtx, cancelPool := context.WithCancel(ctx)
	defer cancelPool()

	poolDone := make(chan struct{})
	go func() {
		c.pool.Run(poolCtx)
		close(poolDone)
	}()

	runErr := c.coord.Run(ctx)
	cancelPool()
	<-poolDone

	ok := runErr == nil
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	if c.audit != nil {
		if err := c.audit.Finish(ctx, c.id, ok, errMsg); err != nil {
			c.log.Error("failed to finish submission audit", "error", err)
		}
	}

	c.recordEvent(ctx, "coordinator_exiting", map[string]interface{}{"ok": ok, "error": errMsg})
	return runErr
}

// FlowStarting implements runtime.Events.
func (c *Coordinator) FlowStarting() {
	c.log.Info("flow starting", "manifest", c.req.ManifestLocator)
	c.recordEvent(context.Background(), "flow_starting", map[string]interface{}{"manifest": c.req.ManifestLocator})
}

// ShouldEnterDebugger implements runtime.Events, polling the configured CEL
// breakpoint expression against the scheduler's current metrics.
func (c *Coordinator) ShouldEnterDebugger() bool {
	if !c.req.Debug {
		return false
	}
	enter, err := c.debugger.ShouldEnter(map[string]interface{}{
		"jobs_created":   c.coord.State.Metrics().JobsCreated,
		"jobs_completed": c.coord.State.Metrics().JobsCompleted,
	}, nil)
	if err != nil {
		c.log.Error("debugger expression failed", "error", err)
		return false
	}
	return enter
}

// JobErrored implements runtime.Events.
func (c *Coordinator) JobErrored(job *model.Job) {
	c.log.Error("job errored", "job_id", job.ID, "function_id", job.FunctionID, "error", job.Err)
	data := map[string]interface{}{
		"job_id":      job.ID,
		"function_id": job.FunctionID,
		"error":       fmt.Sprint(job.Err),
	}
	if job.Metrics != nil {
		data["runtime_metrics"] = job.Metrics.ToMap()
	}
	c.recordEvent(context.Background(), "job_error", data)
}

// FlowEnded implements runtime.Events.
func (c *Coordinator) FlowEnded(metrics runtime.Metrics) {
	c.log.Info("flow ended", "jobs_created", metrics.JobsCreated, "jobs_completed", metrics.JobsCompleted, "max_in_flight", metrics.MaxInFlight)
	c.recordEvent(context.Background(), "flow_ended", metrics)
}

func (c *Coordinator) recordEvent(ctx context.Context, kind string, data interface{}) {
	if c.audit == nil {
		return
	}
	if err := c.audit.RecordEvent(ctx, c.id, kind, data); err != nil {
		c.log.Error("failed to record event", "kind", kind, "error", err)
	}
}

// wireContextFuncs binds the built-in context:// functions over channel
// into bound, overriding any entries resolver.Resolve already placed there
// for names the manifest actually references.
func wireContextFuncs(bound map[int]resolver.Implementation, manifest *model.Manifest, channel contextfns.ClientChannel, log *logger.Logger) {
	registry := contextfns.Registry(channel, log)
	const prefix = "context://"
	for _, fn := range manifest.Functions {
		if !strings.HasPrefix(fn.Implementation, prefix) {
			continue
		}
		name := strings.TrimPrefix(fn.Implementation, prefix)
		if impl, ok := registry[name]; ok {
			bound[fn.ID] = impl
		}
	}
}
