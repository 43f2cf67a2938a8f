package store

import (
	"context"
	"sync"
	"time"

	"github.com/zulandar/foreman/internal/logging"
	"github.com/zulandar/foreman/internal/models"
)

// ChangeType names the kind of subproject row change.
type ChangeType string

const (
	SubprojectCreated ChangeType = "created"
	SubprojectUpdated ChangeType = "updated"
	SubprojectDeleted ChangeType = "deleted"
)

// SubprojectEvent describes one committed subproject write.
type SubprojectEvent struct {
	Type         ChangeType
	ProjectID    string
	SubprojectID string
	Mode         models.SubprojectMode
	Seq          uint64
	At           time.Time
}

// subscriberBuffer bounds how far a subscriber may lag before events are
// dropped for it.
const subscriberBuffer = 64

type subscriber struct {
	projectID string // empty matches every project
	ch        chan SubprojectEvent
}

// hub is the subscription dispatch table. Writers for a project hold that
// project's lock across commit and publish, so subscribers observe events in
// commit order per project.
type hub struct {
	mu    sync.Mutex
	seq   uint64
	subs  map[*subscriber]struct{}
	locks map[string]*projectLock
}

type projectLock struct {
	mu   sync.Mutex
	refs int
}

func newHub() *hub {
	return &hub{
		subs:  make(map[*subscriber]struct{}),
		locks: make(map[string]*projectLock),
	}
}

// lock serializes subproject writes for projectID and returns the unlock
// function.
func (h *hub) lock(projectID string) func() {
	h.mu.Lock()
	l, ok := h.locks[projectID]
	if !ok {
		l = &projectLock{}
		h.locks[projectID] = l
	}
	l.refs++
	h.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		h.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(h.locks, projectID)
		}
		h.mu.Unlock()
	}
}

func (h *hub) subscribe(projectID string) *subscriber {
	sub := &subscriber{projectID: projectID, ch: make(chan SubprojectEvent, subscriberBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
	h.mu.Unlock()
}

func (h *hub) publish(ev SubprojectEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	ev.Seq = h.seq
	for sub := range h.subs {
		if sub.projectID != "" && sub.projectID != ev.ProjectID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			logging.Warn("store: subscriber lagging, subproject event dropped",
				"project", ev.ProjectID, "subproject", ev.SubprojectID, "seq", ev.Seq)
		}
	}
}

// WatchSubprojects streams committed subproject changes for projectID, or
// for every project when projectID is empty. The channel closes when ctx is
// done. A subscriber that falls more than a buffer behind loses events;
// periodic reconciliation covers that gap.
func (s *Store) WatchSubprojects(ctx context.Context, projectID string) <-chan SubprojectEvent {
	sub := s.hub.subscribe(projectID)
	go func() {
		<-ctx.Done()
		s.hub.unsubscribe(sub)
	}()
	return sub.ch
}

func (s *Store) emit(typ ChangeType, sp *models.Subproject) {
	s.hub.publish(SubprojectEvent{
		Type:         typ,
		ProjectID:    sp.ProjectID,
		SubprojectID: sp.ID,
		Mode:         sp.Mode,
		At:           s.now(),
	})
}
