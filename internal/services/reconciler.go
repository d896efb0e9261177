package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	// Interval is how often a pass runs (default: 15m)
	Interval time.Duration
	// RunOnStart runs one pass before the first tick.
	RunOnStart bool
}

func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{Interval: 15 * time.Minute, RunOnStart: true}
}

// Reconciler periodically runs a repair pass that brings the mirror back in
// line with the store, covering events lost while the broker was down.
type Reconciler struct {
	pass   func(context.Context) error
	config ReconcilerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReconciler(pass func(context.Context) error, config ReconcilerConfig) *Reconciler {
	if config.Interval <= 0 {
		config.Interval = DefaultReconcilerConfig().Interval
	}
	return &Reconciler{pass: pass, config: config}
}

// Start begins the loop. Returns an error if already running.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("reconciler is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	slog.InfoContext(ctx, "Reconciler started", "interval", r.config.Interval)
	return nil
}

// Stop signals the loop and waits for the running pass to finish.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.running = false
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Reconciler stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Reconciler stop timed out")
		return ctx.Err()
	}
}

func (r *Reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Reconciler) runLoop(ctx context.Context) {
	r.mu.Lock()
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()
	defer close(doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	if r.config.RunOnStart {
		r.runPass(ctx)
	}
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runPass(ctx)
		}
	}
}

func (r *Reconciler) runPass(ctx context.Context) {
	start := time.Now()
	if err := r.pass(ctx); err != nil {
		slog.ErrorContext(ctx, "Reconcile pass failed", "error", err, "duration", time.Since(start))
		return
	}
	slog.DebugContext(ctx, "Reconcile pass completed", "duration", time.Since(start))
}
