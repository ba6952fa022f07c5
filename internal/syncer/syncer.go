package syncer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/zulandar/crewdeck/internal/models"
)

// TrailLimit caps the derived activity trail: the ten most recently
// prepended entries, newest first.
const TrailLimit = 10

// defaultInterval matches the server-side cache window.
const defaultInterval = 30 * time.Second

// pollErrMessage is the advisory error surfaced while the previous view is
// retained.
const pollErrMessage = "Failed to load agent data"

// AlertSink receives alert notifications as they are synthesized. The
// notify router implements it; a nil sink drops alerts.
type AlertSink interface {
	Alert(ctx context.Context, n models.Notification)
}

// Synchronizer holds the latest accepted snapshot plus locally-queued
// optimistic mutations, and reconciles each new snapshot against them. All
// state transitions happen under one lock, so overlapping poll completions
// and user edits cannot corrupt the view.
type Synchronizer struct {
	client   Client
	interval time.Duration
	sink     AlertSink
	now      func() time.Time

	mu               sync.Mutex
	snap             models.Snapshot   // effective view (server + overrides)
	haveSnap         bool
	overrides        map[string]string // task id -> pending optimistic status
	notifications    []models.Notification
	localActivities  []models.Activity // synthesized locally, newest first
	serverActivities []models.Activity // as last reported by the server
	trail            []models.Activity // derived, capped at TrailLimit
	lastErr          string
	prevAgentStatus  map[string]string
	seenActivities   map[string]bool
}

// Opts holds parameters for creating a Synchronizer.
type Opts struct {
	Client   Client
	Interval time.Duration // defaults to 30s
	Alerts   AlertSink     // optional
	Now      func() time.Time
}

// New creates a Synchronizer.
func New(opts Opts) (*Synchronizer, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("syncer: client is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Synchronizer{
		client:          opts.Client,
		interval:        opts.Interval,
		sink:            opts.Alerts,
		now:             now,
		overrides:       make(map[string]string),
		prevAgentStatus: make(map[string]string),
		seenActivities:  make(map[string]bool),
	}, nil
}

// Run polls once immediately and then on the fixed interval until ctx is
// cancelled. Polls are strictly sequential; a poll that completes after
// cancellation is discarded rather than committed.
func (s *Synchronizer) Run(ctx context.Context) error {
	if err := s.Poll(ctx); err != nil && ctx.Err() == nil {
		log.Printf("syncer: poll: %v", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Poll(ctx); err != nil && ctx.Err() == nil {
				log.Printf("syncer: poll: %v", err)
			}
		}
	}
}

// Poll fetches one snapshot and reconciles it into the local view. On
// failure the previous view is retained unchanged and an advisory error is
// recorded; the next poll cycle is the retry.
func (s *Synchronizer) Poll(ctx context.Context) error {
	server, err := s.client.GetSnapshot(ctx)

	// A poll that lands after teardown must not touch the view.
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		s.mu.Lock()
		s.lastErr = pollErrMessage
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	alerts := s.synthesizeNotifications(server)
	effective, remaining := Reconcile(server, s.overrides)
	s.snap = effective
	s.overrides = remaining
	s.serverActivities = server.Activities
	s.rebuildTrail()
	s.lastErr = ""
	s.haveSnap = true
	s.mu.Unlock()

	s.dispatchAlerts(ctx, alerts)
	return nil
}

// ChangeTaskStatus applies a board move optimistically: the task's status
// changes immediately, the override is queued until the server confirms it,
// and one activity entry is synthesized. An unknown task id or status is a
// silent no-op, since the board can be stale relative to the server.
func (s *Synchronizer) ChangeTaskStatus(taskID, newStatus string) {
	if !models.ValidTaskStatus(newStatus) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task := s.snap.Task(taskID)
	if task == nil {
		return
	}

	task.Status = newStatus
	s.overrides[taskID] = newStatus

	agent := task.Assignee
	if agent == "" {
		agent = "System"
	}
	act := models.Activity{
		ID:        ulid.Make().String(),
		Agent:     agent,
		Action:    fmt.Sprintf("moved task %q to %s", task.Title, newStatus),
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Type:      models.ActivityTask,
	}
	s.localActivities = append([]models.Activity{act}, s.localActivities...)
	if len(s.localActivities) > TrailLimit {
		s.localActivities = s.localActivities[:TrailLimit]
	}
	s.rebuildTrail()
}

// MarkNotificationRead flips one notification to read. The flip is
// monotonic; marking an already-read or unknown id is a no-op.
func (s *Synchronizer) MarkNotificationRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			return
		}
	}
}

// MarkAllNotificationsRead flips every notification to read.
func (s *Synchronizer) MarkAllNotificationsRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		s.notifications[i].Read = true
	}
}

// UnreadCount is recomputed from the notification set on every call, never
// stored.
func (s *Synchronizer) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.UnreadCount(s.notifications)
}

// View returns a copy of the current effective snapshot and whether any
// snapshot has been accepted yet.
func (s *Synchronizer) View() (models.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySnapshot(s.snap), s.haveSnap
}

// Trail returns a copy of the derived activity trail, newest first.
func (s *Synchronizer) Trail() []models.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Activity, len(s.trail))
	copy(out, s.trail)
	return out
}

// Notifications returns a copy of the current notification set, newest
// first.
func (s *Synchronizer) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// LastError returns the advisory error from the most recent failed poll,
// or "" after a successful one.
func (s *Synchronizer) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Stats summarizes the fleet. Every field is derived from current state.
type Stats struct {
	TotalAgents     int
	ActiveAgents    int
	TasksCompleted  int
	TotalTasks      int
	TasksInProgress int
	Unread          int
}

// Stats recomputes the fleet summary from the current view.
func (s *Synchronizer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		TotalAgents:     len(s.snap.Agents),
		ActiveAgents:    models.ActiveAgentCount(s.snap.Agents),
		TasksCompleted:  models.CompletedTotal(s.snap.Agents),
		TotalTasks:      len(s.snap.Tasks),
		TasksInProgress: models.TaskStatusCounts(s.snap.Tasks)[models.TaskInProgress],
		Unread:          models.UnreadCount(s.notifications),
	}
}

// rebuildTrail recomputes the derived trail: locally-synthesized entries
// first, then server-reported ones, capped at TrailLimit. Callers hold the
// lock.
func (s *Synchronizer) rebuildTrail() {
	trail := make([]models.Activity, 0, TrailLimit)
	seen := make(map[string]bool, TrailLimit)

	for _, act := range s.localActivities {
		if len(trail) == TrailLimit {
			break
		}
		trail = append(trail, act)
		seen[act.ID] = true
	}
	for _, act := range s.serverActivities {
		if len(trail) == TrailLimit {
			break
		}
		if seen[act.ID] {
			continue
		}
		trail = append(trail, act)
	}
	s.trail = trail
}

// synthesizeNotifications derives notifications from a fresh server
// snapshot: an agent newly reporting blocked yields an alert, an unseen
// activity of type "notification" yields a system notification. Returns
// the alerts for fan-out. Callers hold the lock.
func (s *Synchronizer) synthesizeNotifications(server models.Snapshot) []models.Notification {
	var alerts []models.Notification

	nextStatus := make(map[string]string, len(server.Agents))
	for _, a := range server.Agents {
		nextStatus[a.ID] = a.Status
		prev, known := s.prevAgentStatus[a.ID]
		if a.Status == models.AgentBlocked && known && prev != models.AgentBlocked {
			n := models.Notification{
				ID:        ulid.Make().String(),
				Message:   fmt.Sprintf("Agent %s is blocked", a.Name),
				Timestamp: s.now().UTC().Format(time.RFC3339),
				Type:      models.NotifyAlert,
				Agent:     a.Name,
			}
			s.notifications = append([]models.Notification{n}, s.notifications...)
			alerts = append(alerts, n)
		}
	}
	s.prevAgentStatus = nextStatus

	currentIDs := make(map[string]bool, len(server.Activities))
	for _, act := range server.Activities {
		currentIDs[act.ID] = true
		if act.Type != models.ActivityNotification || s.seenActivities[act.ID] {
			continue
		}
		n := models.Notification{
			ID:        ulid.Make().String(),
			Message:   fmt.Sprintf("%s: %s", act.Agent, act.Action),
			Timestamp: s.now().UTC().Format(time.RFC3339),
			Type:      models.NotifySystem,
			Agent:     act.Agent,
		}
		s.notifications = append([]models.Notification{n}, s.notifications...)
	}
	for id := range currentIDs {
		s.seenActivities[id] = true
	}
	// The seen set only needs to cover ids the server may still report.
	if len(s.seenActivities) > 64*TrailLimit {
		for id := range s.seenActivities {
			if !currentIDs[id] {
				delete(s.seenActivities, id)
			}
		}
	}

	return alerts
}

// dispatchAlerts hands alert notifications to the sink outside the lock.
func (s *Synchronizer) dispatchAlerts(ctx context.Context, alerts []models.Notification) {
	if s.sink == nil {
		return
	}
	for _, n := range alerts {
		s.sink.Alert(ctx, n)
	}
}

func copySnapshot(snap models.Snapshot) models.Snapshot {
	out := snap
	out.Agents = append([]models.Agent(nil), snap.Agents...)
	out.Tasks = append([]models.Task(nil), snap.Tasks...)
	out.Activities = append([]models.Activity(nil), snap.Activities...)
	out.Normalize()
	return out
}
