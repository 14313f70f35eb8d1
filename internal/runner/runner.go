// Package runner accepts proof requests and drives each job through its
// single terminal transition. Submission is synchronous only for cheap
// shape checks; the proving work runs detached and reports exclusively
// through the job registry and the log trail.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sudokulabs/proofd/internal/job"
	"github.com/sudokulabs/proofd/internal/joblog"
	"github.com/sudokulabs/proofd/internal/observability"
	"github.com/sudokulabs/proofd/internal/prover"
	"github.com/sudokulabs/proofd/internal/sudoku"
)

// ErrBadDimensions is returned synchronously; no job is created for it.
// The message is part of the API contract.
var ErrBadDimensions = errors.New("Invalid board dimensions")

type Runner struct {
	registry job.Registry
	trail    *joblog.Store
	prover   prover.Prover
	metrics  *observability.Metrics

	group *errgroup.Group
	ctx   context.Context
}

// New creates a runner whose detached jobs observe ctx for cancellation of
// the prover call. Jobs themselves are never cancelled individually.
func New(ctx context.Context, registry job.Registry, trail *joblog.Store, p prover.Prover, metrics *observability.Metrics) *Runner {
	g, gctx := errgroup.WithContext(ctx)
	return &Runner{
		registry: registry,
		trail:    trail,
		prover:   p,
		metrics:  metrics,
		group:    g,
		ctx:      gctx,
	}
}

// Submit validates board dimensions, registers a new job and detaches the
// proving work. It returns the job id immediately; everything after this
// point is observable only through the registry and the trail.
func (r *Runner) Submit(initial, solution sudoku.Board) (string, error) {
	if !sudoku.ValidDimensions(initial) || !sudoku.ValidDimensions(solution) {
		return "", ErrBadDimensions
	}

	id := job.NewID()
	if err := r.registry.Create(id); err != nil {
		return "", fmt.Errorf("register job: %w", err)
	}
	r.trail.Append(id, "job created")
	r.metrics.JobCreated(r.ctx)
	log.Printf("Job %s created", id)

	r.group.Go(func() error {
		r.execute(id, initial, solution)
		return nil
	})

	return id, nil
}

// Wait blocks until all detached jobs have reached a terminal state.
func (r *Runner) Wait() {
	r.group.Wait()
}

func (r *Runner) execute(id string, initial, solution sudoku.Board) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("internal error: %v", rec)
			log.Printf("Job %s panicked: %v", id, rec)
			r.trail.Append(id, "job failed: "+msg)
			if err := r.registry.Fail(id, msg); err != nil {
				log.Printf("Job %s: record panic failure: %v", id, err)
			}
			r.metrics.JobFailed(r.ctx, time.Since(start).Seconds())
		}
	}()

	r.trail.Append(id, "validating solution")
	if !sudoku.VerifyReplay(initial, solution) {
		r.fail(id, start, "Invalid solution", "validation failed: invalid solution")
		return
	}
	r.trail.Append(id, "solution validated")

	r.trail.Append(id, "generating proof")
	result, err := r.prover.Prove(r.ctx, id, initial, solution)
	if err != nil {
		r.fail(id, start, err.Error(), "proof generation failed: "+err.Error())
		return
	}

	r.trail.Append(id, "proof saved: "+result.Proof)
	r.trail.Append(id, "job complete")
	if err := r.registry.Complete(id, result); err != nil {
		log.Printf("Job %s: record completion: %v", id, err)
		return
	}
	r.metrics.JobCompleted(r.ctx, time.Since(start).Seconds())
	log.Printf("Job %s complete: %s", id, result.Proof)
}

func (r *Runner) fail(id string, start time.Time, errMsg, trailLine string) {
	r.trail.Append(id, trailLine)
	if err := r.registry.Fail(id, errMsg); err != nil {
		log.Printf("Job %s: record failure: %v", id, err)
		return
	}
	r.metrics.JobFailed(r.ctx, time.Since(start).Seconds())
	log.Printf("Job %s failed: %s", id, errMsg)
}
