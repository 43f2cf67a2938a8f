// Package pipeline runs plan-to-build: it aggregates a planned
// subproject's notes, has the generator write a PRD and a task breakdown,
// stores both in one guarded write that moves the subproject into build,
// and rolls up the project status.
//
// A run either leaves the subproject in build with both artifacts, or
// leaves it exactly as it was.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/zulandar/foreman/internal/aggregate"
	"github.com/zulandar/foreman/internal/fault"
	"github.com/zulandar/foreman/internal/logging"
	"github.com/zulandar/foreman/internal/models"
	"github.com/zulandar/foreman/internal/notify"
	"github.com/zulandar/foreman/internal/store"
	"github.com/zulandar/foreman/internal/taskmd"
)

// Store is the slice of the store gateway a run needs.
type Store interface {
	GetProject(ctx context.Context, id string) (*models.Project, error)
	GetSubproject(ctx context.Context, id string) (*models.Subproject, error)
	ListNotes(ctx context.Context, subprojectID string, order store.Order) ([]models.Note, error)
	SetArtifacts(ctx context.Context, id, prd, tasks string, mode models.SubprojectMode) (*models.Subproject, error)
}

// Generator synthesizes the two artifacts.
type Generator interface {
	SynthesizePRD(ctx context.Context, aggregated string) (string, error)
	SynthesizeTasks(ctx context.Context, prd string) (string, error)
}

// Rollup recomputes a project's status after its subproject changed mode.
type Rollup interface {
	RecomputeProject(ctx context.Context, projectID string) (models.ProjectStatus, error)
}

// Options tune an Orchestrator. Zero values mean no deadline, UTC
// timestamps and no notifications.
type Options struct {
	Deadline time.Duration
	Location *time.Location
	Notifier notify.Notifier
}

// Result is the outcome of a successful run.
type Result struct {
	Subproject    *models.Subproject
	Tasks         []taskmd.Task
	ProjectStatus models.ProjectStatus
}

// terminalGrace bounds how long a terminal event waits for a consumer once
// the run's context is done.
const terminalGrace = 250 * time.Millisecond

// notifyTimeout bounds one outcome notification.
const notifyTimeout = 10 * time.Second

// Orchestrator runs pipelines. At most one run per subproject is in flight
// in this process.
type Orchestrator struct {
	store    Store
	gen      Generator
	rollup   Rollup
	notifier notify.Notifier
	loc      *time.Location
	deadline time.Duration
	now      func() time.Time

	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// New returns an Orchestrator.
func New(st Store, gen Generator, rollup Rollup, opts Options) *Orchestrator {
	o := &Orchestrator{
		store:    st,
		gen:      gen,
		rollup:   rollup,
		notifier: opts.Notifier,
		loc:      opts.Location,
		deadline: opts.Deadline,
		now:      time.Now,
		running:  make(map[string]struct{}),
	}
	if o.notifier == nil {
		o.notifier = notify.Nop{}
	}
	if o.loc == nil {
		o.loc = time.UTC
	}
	return o
}

// Running reports whether a run for subprojectID is in flight.
func (o *Orchestrator) Running(subprojectID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.running[subprojectID]
	return ok
}

func (o *Orchestrator) acquire(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.running[id]; ok {
		return false
	}
	o.running[id] = struct{}{}
	return true
}

func (o *Orchestrator) release(id string) {
	o.mu.Lock()
	delete(o.running, id)
	o.mu.Unlock()
}

// Wait blocks until outstanding outcome notifications are delivered.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// LetsBuildIt runs the pipeline for subprojectID. Progress events are sent
// on progress, which may be nil and is closed when LetsBuildIt returns.
// Each send blocks until the consumer receives it or ctx is done.
// Cancelling ctx is how a consumer abandons the run: the next checkpoint
// fails it with Cancelled (or Timeout for an expired deadline) and nothing
// is written.
func (o *Orchestrator) LetsBuildIt(ctx context.Context, subprojectID string, progress chan<- Event) (*Result, error) {
	if progress != nil {
		defer close(progress)
	}
	r := &run{o: o, id: subprojectID, progress: progress, started: o.now()}

	if !o.acquire(subprojectID) {
		err := fault.New(fault.AlreadyRunning, "pipeline", "a build is already running for subproject %s", subprojectID)
		r.fail(ctx, err)
		return nil, err
	}
	defer o.release(subprojectID)

	if o.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.deadline)
		defer cancel()
	}

	res, err := r.execute(ctx)
	if err != nil {
		err = publicError(err)
		r.fail(ctx, err)
		return nil, err
	}
	return res, nil
}

// run is the state of one invocation.
type run struct {
	o        *Orchestrator
	id       string
	progress chan<- Event
	started  time.Time

	step Step
	sp   *models.Subproject
}

func (r *run) execute(ctx context.Context) (*Result, error) {
	o := r.o
	sp, err := o.store.GetSubproject(ctx, r.id)
	if err != nil {
		return nil, err
	}
	if sp.Mode != models.ModePlanned {
		return nil, fault.New(fault.InvalidState, "pipeline", "subproject %s is %s, not planned", r.id, sp.Mode)
	}
	r.sp = sp

	if err := r.enter(ctx, StepAggregating); err != nil {
		return nil, err
	}
	notes, err := o.store.ListNotes(ctx, r.id, store.Ascending)
	if err != nil {
		return nil, err
	}
	doc := aggregate.Notes(notes, o.loc)
	if aggregate.IsEmpty(doc) {
		return nil, fault.New(fault.EmptyInput, "pipeline", "subproject %s has no notes", r.id)
	}

	if err := r.enter(ctx, StepGeneratingPRD); err != nil {
		return nil, err
	}
	prd, err := o.gen.SynthesizePRD(ctx, doc)
	if err := generated(ctx, "prd", prd, err); err != nil {
		return nil, err
	}

	if err := r.enter(ctx, StepGeneratingTasks); err != nil {
		return nil, err
	}
	tasks, err := o.gen.SynthesizeTasks(ctx, prd)
	if err := generated(ctx, "tasks", tasks, err); err != nil {
		return nil, err
	}

	if err := r.enter(ctx, StepPersisting); err != nil {
		return nil, err
	}
	updated, err := o.store.SetArtifacts(ctx, r.id, prd, tasks, models.ModeBuild)
	if err != nil {
		return nil, err
	}

	// The subproject is in build now. Cancellation can no longer fail the
	// run, so the rollup and the final event use a detached context.
	r.sp = updated
	r.step = StepDone
	done := context.WithoutCancel(ctx)
	res := &Result{Subproject: updated, Tasks: taskmd.Parse(tasks)}
	res.ProjectStatus, err = o.rollup.RecomputeProject(done, updated.ProjectID)
	if err != nil {
		logging.Warn("pipeline: project rollup failed", "project", updated.ProjectID, "error", err)
	}
	r.send(ctx, Event{Step: StepDone, Index: StepDone.Index(), Total: TotalSteps, Message: stepMessages[StepDone]})

	logging.Info("pipeline: subproject moved to build", "subproject", r.id,
		"tasks", len(res.Tasks), "took", time.Since(r.started))
	logging.Debug("pipeline: task ids", "subproject", r.id, "ids", taskmd.IDs(res.Tasks))
	r.notify(notify.Event{Outcome: notify.Succeeded, Tasks: len(res.Tasks)})
	return res, nil
}

// enter checks for cancellation and then reports step as started.
func (r *run) enter(ctx context.Context, step Step) error {
	if err := fault.FromContext(ctx, "pipeline: before "+string(step)); err != nil {
		return err
	}
	r.step = step
	logging.Debug("pipeline: step", "subproject", r.id, "step", step)
	ev := Event{Step: step, Index: step.Index(), Total: TotalSteps, Message: stepMessages[step]}
	if r.progress == nil {
		return nil
	}
	select {
	case r.progress <- ev:
		return nil
	case <-ctx.Done():
		return fault.FromContext(ctx, "pipeline: report "+string(step))
	}
}

// generated validates one generator call. Output that arrives after the
// run was cancelled is discarded.
func generated(ctx context.Context, what, out string, err error) error {
	if cerr := fault.FromContext(ctx, "pipeline: generate "+what); cerr != nil {
		return cerr
	}
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) == "" {
		return fault.New(fault.EmptyOutput, "pipeline", "generator returned empty %s markdown", what)
	}
	return nil
}

// send delivers a terminal event. Once ctx is done the consumer gets a
// short grace period to receive it.
func (r *run) send(ctx context.Context, ev Event) {
	if r.progress == nil {
		return
	}
	if ctx.Err() == nil {
		select {
		case r.progress <- ev:
			return
		case <-ctx.Done():
		}
	}
	t := time.NewTimer(terminalGrace)
	defer t.Stop()
	select {
	case r.progress <- ev:
	case <-t.C:
	}
}

func (r *run) fail(ctx context.Context, err error) {
	kind := fault.KindOf(err)
	r.send(ctx, Event{
		Step:    StepFailed,
		Index:   r.step.Index(),
		Total:   TotalSteps,
		Message: err.Error(),
		Kind:    kind,
	})
	if r.step == "" {
		// Guard failures: nothing ran, nothing to report.
		logging.Debug("pipeline: rejected", "subproject", r.id, "kind", kind, "error", err)
		return
	}
	logging.Warn("pipeline: failed", "subproject", r.id, "step", r.step, "kind", kind, "error", err)
	r.notify(notify.Event{Outcome: notify.Failed, Kind: kind, Message: err.Error()})
}

// notify delivers the outcome in the background.
func (r *run) notify(ev notify.Event) {
	o := r.o
	ev.SubprojectID = r.id
	ev.Duration = o.now().Sub(r.started)
	if r.sp != nil {
		ev.SubprojectName = r.sp.Name
		ev.ProjectID = r.sp.ProjectID
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if ev.ProjectID != "" {
			if p, err := o.store.GetProject(ctx, ev.ProjectID); err == nil {
				ev.ProjectName = p.Name
			}
		}
		if err := o.notifier.Notify(ctx, ev); err != nil {
			logging.Warn("pipeline: outcome notification failed", "subproject", ev.SubprojectID, "error", err)
		}
	}()
}

// publicError maps internal kinds onto the ones callers see. A guarded
// write that lost its race means the subproject left planned mid-run.
func publicError(err error) error {
	if errors.Is(err, fault.ErrConflict) {
		return &fault.Error{Kind: fault.InvalidState, Op: "pipeline", Msg: "subproject is no longer planned", Err: err}
	}
	return err
}
