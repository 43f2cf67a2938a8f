package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/foreman/internal/logging"
)

// cronParser accepts standard 5-field expressions.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Reconciler periodically recomputes every project status. It picks up
// writes made by other processes, which never reach this process's
// subscription loop.
type Reconciler struct {
	ctrl     *Controller
	schedule cron.Schedule
	now      func() time.Time
}

// NewReconciler parses spec and returns a Reconciler for ctrl.
func NewReconciler(ctrl *Controller, spec string) (*Reconciler, error) {
	sched, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: reconcile schedule %q: %w", spec, err)
	}
	return &Reconciler{ctrl: ctrl, schedule: sched, now: time.Now}, nil
}

// Next returns the first fire time after t.
func (r *Reconciler) Next(t time.Time) time.Time {
	return r.schedule.Next(t)
}

// Run sweeps at every scheduled time until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	for {
		now := r.now()
		wait := r.Next(now).Sub(now)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		r.Sweep(ctx)
	}
}

// Sweep runs one reconciliation pass and logs the result.
func (r *Reconciler) Sweep(ctx context.Context) {
	start := time.Now()
	changed, err := r.ctrl.ReconcileAll(ctx)
	if err != nil {
		logging.Warn("lifecycle: reconcile sweep incomplete", "changed", changed, "error", err)
		return
	}
	logging.Debug("lifecycle: reconcile sweep", "changed", changed, "took", time.Since(start))
}
