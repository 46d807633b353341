// Package syncrun executes ordered, idempotent synchronization phases
// that reconcile local offline-first state against the remote source
// of truth. A runner is single-flight: one cycle at a time, with
// cooperative cancellation at phase boundaries.
package syncrun

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/postr/internal/store"
)

// Context is the shared state handed to every phase in a run.
type Context struct {
	Store  *store.Store
	UserID string
	Now    time.Time // logical "now" fixed for the whole cycle
}

// Phase is a named unit of sync work. Phases are stateless and
// re-creatable; the caller owns the ordered list.
type Phase interface {
	Name() string
	Run(ctx context.Context, sc *Context) error
}

// Runner executes phases strictly in order.
//
// State machine: Idle -> Running -> Idle, with a best-effort Aborting
// path while Running. At most one run is in flight per Runner; a
// concurrent Run call is a no-op. Phase failures are logged and do
// not stop the cycle, and Run itself never returns an error from a
// phase.
type Runner struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	gen     uint64 // incremented per run; guards stale cleanup after Abort

	log *slog.Logger
}

// NewRunner creates an idle runner. log may be nil.
func NewRunner(log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{log: log}
}

// Run executes phases in order. If a run is already in flight it
// returns immediately without doing any work (single-flight).
//
// Cancellation — via Abort or the parent ctx — is checked before each
// phase; an executing phase is never preempted, though phases should
// honor ctx themselves where they can.
func (r *Runner) Run(ctx context.Context, phases []Phase, sc *Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.log.Debug("sync cycle already running, ignoring")
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	token := uuid.NewString()
	log := r.log.With("run", token)
	log.Info("sync cycle starting", "phases", len(phases), "user", sc.UserID)

	defer func() {
		r.mu.Lock()
		// After an Abort, a fresh run may already own the runner;
		// only the run that still owns it resets the state.
		if r.gen == gen {
			r.running = false
			r.cancel = nil
		}
		r.mu.Unlock()
		cancel()
		log.Info("sync cycle finished")
	}()

	for _, phase := range phases {
		if runCtx.Err() != nil {
			log.Info("sync cycle aborted", "before_phase", phase.Name())
			return
		}
		log.Debug("running phase", "phase", phase.Name())
		if err := runPhase(runCtx, phase, sc); err != nil {
			// Partial-failure isolation: one broken phase must not
			// block the rest of the cycle.
			log.Error("phase failed", "phase", phase.Name(), "error", err)
		}
	}
}

// runPhase executes a single phase, converting a panic into a phase
// error so a broken phase cannot take down the cycle.
func runPhase(ctx context.Context, phase Phase, sc *Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("phase %s panicked: %v", phase.Name(), rec)
		}
	}()
	return phase.Run(ctx, sc)
}

// Abort signals cancellation and marks the runner idle immediately.
// The in-flight phase, if any, finishes on its own; cancellation is
// cooperative, not preemptive.
func (r *Runner) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.running = false
	r.log.Debug("sync cycle abort requested")
}

// IsRunning reports whether a cycle is in flight.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
