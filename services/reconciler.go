package services

import (
	"context"
	"sync"
	"time"

	"backport-keeper/internal/logger"
	"backport-keeper/internal/models"
)

/**
 * Background reconciliation loop for one installer generation
 * @description
 * - Owns at most one goroutine; Start replaces any previous run after
 *   cancelling it and waiting for it to exit, so two passes never
 *   overlap across reconfigurations
 * - The loop sleeps the configured check interval between passes and
 *   self-terminates once the target backport is active
 * - Cancellation is cooperative: it is observed at the sleep points,
 *   in-flight external commands are not force-killed
 */
type Reconciler struct {
	// lifecycle serializes whole Start/Stop sequences so a racing Start
	// can never overwrite another caller's handles between its Stop and
	// its publish, which would leak the first loop without a cancel path.
	lifecycle sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

/**
 * Start the reconciliation loop for the given installer
 * @param {*Installer} ins - Installer generation the loop works against
 * @description
 * - Cancels and joins a previously running loop first (replace, not stack)
 * - The new loop runs until convergence or cancellation
 */
func (r *Reconciler) Start(ins *Installer) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.stopCurrent()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go r.run(ctx, ins, done)
}

/**
 * Stop the reconciliation loop and wait for acknowledgement
 * @description
 * - Safe to call when no loop is running or after self-termination
 * - Returns only after the loop goroutine has exited
 */
func (r *Reconciler) Stop() {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	r.stopCurrent()
}

// stopCurrent cancels and joins the current loop, if any. Callers must
// hold the lifecycle mutex.
func (r *Reconciler) stopCurrent() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Running reports whether a loop goroutine is currently alive.
func (r *Reconciler) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

func (r *Reconciler) run(ctx context.Context, ins *Installer, done chan struct{}) {
	defer close(done)

	interval := ins.Config().CheckInterval
	logger.Infof("Reconciliation loop started (interval %s)", interval)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Reconciliation loop cancelled")
			return
		case <-time.After(interval):
		}

		if r.pass(ctx, ins) {
			logger.Info("Target backport active, reconciliation loop finished")
			return
		}
	}
}

/**
 * Perform one reconciliation pass
 * @param {context.Context} ctx - Loop context
 * @param {*Installer} ins - Installer to reconcile
 * @returns {bool} Returns true when the target state is reached
 * @description
 * - Inspects the current status; on target, removes leftover package
 *   files when cleanup is enabled and reports convergence
 * - Otherwise runs the install procedure with the configured
 *   force_reinstall flag; a failed pass is logged and retried on the
 *   next interval, it never stops the loop
 */
func (r *Reconciler) pass(ctx context.Context, ins *Installer) bool {
	recordReconcilePass()

	status := ins.Inspect(ctx)
	if status.Status == models.StatusError {
		logger.Errorf("Reconciliation pass failed to inspect status: %s", status.Error)
		return false
	}

	if status.IsBackported {
		if status.BackportFilesExist && ins.Config().CleanupAfterInstall {
			result := ins.CleanupFiles()
			if !result.Success {
				logger.Warnf("Failed to clean up leftover backport files: %s", result.Error)
			}
		}
		return true
	}

	result := ins.Install(ctx, ins.Config().ForceReinstall)
	if !result.Success {
		logger.Errorf("Reconciliation install attempt failed: %s", result.Error)
		return false
	}
	return result.IsBackported
}
