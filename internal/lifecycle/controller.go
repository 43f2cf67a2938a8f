// Package lifecycle validates subproject mode transitions and keeps each
// project's status equal to the rollup of its subprojects' modes.
package lifecycle

import (
	"context"
	"errors"

	"github.com/zulandar/foreman/internal/fault"
	"github.com/zulandar/foreman/internal/logging"
	"github.com/zulandar/foreman/internal/models"
	"github.com/zulandar/foreman/internal/status"
	"github.com/zulandar/foreman/internal/store"
)

// Controller applies lifecycle rules on top of the store.
type Controller struct {
	store *store.Store
}

// New returns a Controller over st.
func New(st *store.Store) *Controller {
	return &Controller{store: st}
}

// Transition moves a subproject to target. Only build -> complete is
// accepted here, and only when at least one task status exists and every
// recorded status is done. planned -> build belongs to the build pipeline.
func (c *Controller) Transition(ctx context.Context, subprojectID string, target models.SubprojectMode) (*models.Subproject, error) {
	const op = "lifecycle: transition"
	if !target.Valid() {
		return nil, fault.New(fault.InvalidTransition, op, "unknown mode %q", target)
	}
	sp, err := c.store.GetSubproject(ctx, subprojectID)
	if err != nil {
		return nil, err
	}

	switch {
	case sp.Mode == models.ModePlanned && target == models.ModeBuild:
		return nil, fault.New(fault.InvalidTransition, op,
			"planned -> build only happens by running the build pipeline")
	case sp.Mode == models.ModeBuild && target == models.ModeComplete:
		// handled below
	default:
		return nil, fault.New(fault.InvalidTransition, op, "%s -> %s is not permitted", sp.Mode, target)
	}

	statuses, err := c.store.ListTaskStatuses(ctx, subprojectID)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, fault.New(fault.InvalidTransition, op, "no task has a recorded status")
	}
	if status.SubprojectMode(statuses) != models.ModeComplete {
		counts := status.CountByStatus(statuses)
		return nil, fault.New(fault.InvalidTransition, op,
			"%d of %d tasks are done", counts.Done, counts.Total)
	}

	// The checks above explain the common refusals. CompleteSubproject
	// repeats them inside its UPDATE, which is what makes them hold.
	updated, err := c.store.CompleteSubproject(ctx, subprojectID)
	if err != nil {
		if errors.Is(err, fault.ErrConflict) {
			return nil, &fault.Error{Kind: fault.InvalidTransition, Op: op,
				Msg: "subproject or its tasks changed concurrently", Err: err}
		}
		return nil, err
	}
	logging.Info("lifecycle: subproject complete", "subproject", subprojectID, "project", updated.ProjectID)
	c.Rollup(ctx, updated.ProjectID)
	return updated, nil
}

// RecomputeProject derives the status of projectID from its subprojects
// and writes it when it differs from the stored value.
func (c *Controller) RecomputeProject(ctx context.Context, projectID string) (models.ProjectStatus, error) {
	p, err := c.store.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	sps, err := c.store.ListSubprojects(ctx, projectID)
	if err != nil {
		return "", err
	}
	next := status.ProjectStatus(sps)
	if next == p.Status {
		return next, nil
	}
	if err := c.store.SetProjectStatus(ctx, projectID, next); err != nil {
		return "", err
	}
	logging.Debug("lifecycle: project status changed", "project", projectID, "from", p.Status, "to", next)
	return next, nil
}

// Rollup is the best-effort form of RecomputeProject used after child
// writes. Failures are logged; the subscription loop and the reconcile
// sweep converge later.
func (c *Controller) Rollup(ctx context.Context, projectID string) {
	if _, err := c.RecomputeProject(ctx, projectID); err != nil && !errors.Is(err, fault.ErrNotFound) {
		logging.Warn("lifecycle: project rollup failed", "project", projectID, "error", err)
	}
}

// CreateSubproject adds a planned subproject and rolls up its project.
func (c *Controller) CreateSubproject(ctx context.Context, projectID, name string) (*models.Subproject, error) {
	sp, err := c.store.CreateSubproject(ctx, projectID, name)
	if err != nil {
		return nil, err
	}
	c.Rollup(ctx, projectID)
	return sp, nil
}

// DeleteSubproject removes a subproject and rolls up its project.
func (c *Controller) DeleteSubproject(ctx context.Context, subprojectID string) error {
	sp, err := c.store.DeleteSubproject(ctx, subprojectID)
	if err != nil {
		return err
	}
	c.Rollup(ctx, sp.ProjectID)
	return nil
}

// Start subscribes to subproject changes and recomputes the owning
// project's status for each one until ctx is done. The subscription is in
// place when Start returns; the returned channel closes once the loop has
// exited.
func (c *Controller) Start(ctx context.Context) <-chan struct{} {
	events := c.store.WatchSubprojects(ctx, "")
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			logging.Debug("lifecycle: subproject event", "type", ev.Type, "project", ev.ProjectID,
				"subproject", ev.SubprojectID, "seq", ev.Seq)
			c.Rollup(ctx, ev.ProjectID)
		}
	}()
	return done
}

// ReconcileAll recomputes every project and returns how many statuses it
// changed.
func (c *Controller) ReconcileAll(ctx context.Context) (int, error) {
	projects, err := c.store.ListProjects(ctx)
	if err != nil {
		return 0, err
	}
	changed := 0
	var errs []error
	for _, p := range projects {
		next, err := c.RecomputeProject(ctx, p.ID)
		if err != nil {
			if !errors.Is(err, fault.ErrNotFound) {
				errs = append(errs, err)
			}
			continue
		}
		if next != p.Status {
			changed++
		}
	}
	return changed, errors.Join(errs...)
}
