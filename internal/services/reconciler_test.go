package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestReconcilerRunsOnStartAndOnTick(t *testing.T) {
	var passes atomic.Int32
	r := NewReconciler(func(context.Context) error {
		passes.Add(1)
		return nil
	}, ReconcilerConfig{Interval: 10 * time.Millisecond, RunOnStart: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Error("expected error when starting a running reconciler")
	}

	deadline := time.Now().Add(2 * time.Second)
	for passes.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if passes.Load() < 3 {
		t.Fatalf("expected at least 3 passes, got %d", passes.Load())
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if r.IsRunning() {
		t.Error("reconciler should not be running after Stop")
	}
}

func TestReconcilerSurvivesFailingPass(t *testing.T) {
	var passes atomic.Int32
	r := NewReconciler(func(context.Context) error {
		passes.Add(1)
		return errors.New("sheet unavailable")
	}, ReconcilerConfig{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for passes.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if passes.Load() < 2 {
		t.Fatalf("loop stopped after a failed pass")
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("stop after cancel: %v", err)
	}
}

func TestReconcilerStopNotRunning(t *testing.T) {
	r := NewReconciler(func(context.Context) error { return nil }, ReconcilerConfig{})
	if err := r.Stop(context.Background()); err != nil {
		t.Errorf("stop on idle reconciler: %v", err)
	}
	if r.config.Interval != 15*time.Minute {
		t.Errorf("expected default interval, got %v", r.config.Interval)
	}
}
