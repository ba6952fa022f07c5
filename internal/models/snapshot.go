// Package models defines the Crewdeck data contract shared by the
// aggregator, the HTTP API, and the synchronizer.
package models

import (
	"fmt"
	"strings"
)

// Agent statuses as reported by the upstream status document.
const (
	AgentIdle    = "idle"
	AgentActive  = "active"
	AgentBlocked = "blocked"
)

// Task statuses. These are the five board columns; any status may move to
// any other status, there is no enforced workflow order.
const (
	TaskInbox      = "inbox"
	TaskAssigned   = "assigned"
	TaskInProgress = "inProgress"
	TaskReview     = "review"
	TaskDone       = "done"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Activity types.
const (
	ActivityTask         = "task"
	ActivityStatus       = "status"
	ActivityNotification = "notification"
)

// Notification types.
const (
	NotifyMention = "mention"
	NotifySystem  = "system"
	NotifyAlert   = "alert"
)

// TaskStatuses lists the five board columns in display order.
func TaskStatuses() []string {
	return []string{TaskInbox, TaskAssigned, TaskInProgress, TaskReview, TaskDone}
}

// ValidTaskStatus reports whether s is one of the five board columns.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskInbox, TaskAssigned, TaskInProgress, TaskReview, TaskDone:
		return true
	}
	return false
}

// Agent is a worker reported by the upstream status document. Agents are
// upstream-owned and never mutated locally.
type Agent struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Role           string  `json:"role,omitempty"`
	Status         string  `json:"status"`
	TasksCompleted int     `json:"tasksCompleted"`
	LastActive     string  `json:"lastActive"`
	CurrentTask    *string `json:"currentTask,omitempty"`
}

// Task is a board item. All fields are upstream-owned except Status, which
// the synchronizer may override optimistically.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Assignee    string   `json:"assignee"`
	Priority    string   `json:"priority"`
	DueDate     string   `json:"dueDate,omitempty"`
	Tags        []string `json:"tags"`
}

// Activity is one entry in the append-only activity feed. IDs are
// time-ordered by construction (upstream convention, ULIDs locally).
type Activity struct {
	ID        string `json:"id"`
	Agent     string `json:"agent"`
	AgentID   string `json:"agentId,omitempty"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
}

// Notification is a client-side alert. Read is the only mutable field and
// only ever flips false to true.
type Notification struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
	Type      string `json:"type"`
	Agent     string `json:"agent,omitempty"`
}

// Snapshot is one merged, self-consistent view of agents, tasks, and
// activities at a point in time. It is the unit of transfer between the
// aggregator and the synchronizer. On the wire the three collections are
// always present, defaulting to empty. Error is set only on the 500 payload.
type Snapshot struct {
	Agents     []Agent    `json:"agents"`
	Tasks      []Task     `json:"tasks"`
	Activities []Activity `json:"activities"`
	LastUpdate string     `json:"lastUpdate,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Normalize replaces nil collections with empty ones so the wire form never
// carries an absent field.
func (s *Snapshot) Normalize() {
	if s.Agents == nil {
		s.Agents = []Agent{}
	}
	if s.Tasks == nil {
		s.Tasks = []Task{}
	}
	if s.Activities == nil {
		s.Activities = []Activity{}
	}
}

// Validate checks the snapshot invariants that rendering and keying logic
// depend on: unique agent and task ids, non-negative completion counts.
// Upstream-owned enum fields are passed through untouched, so unknown
// statuses are reported but unknowns in free-text fields are not.
func (s *Snapshot) Validate() error {
	var errs []string

	seenAgents := make(map[string]bool, len(s.Agents))
	for _, a := range s.Agents {
		if a.ID == "" {
			errs = append(errs, "agent with empty id")
			continue
		}
		if seenAgents[a.ID] {
			errs = append(errs, fmt.Sprintf("duplicate agent id %q", a.ID))
		}
		seenAgents[a.ID] = true
		if a.TasksCompleted < 0 {
			errs = append(errs, fmt.Sprintf("agent %q has negative tasksCompleted", a.ID))
		}
	}

	seenTasks := make(map[string]bool, len(s.Tasks))
	for _, t := range s.Tasks {
		if t.ID == "" {
			errs = append(errs, "task with empty id")
			continue
		}
		if seenTasks[t.ID] {
			errs = append(errs, fmt.Sprintf("duplicate task id %q", t.ID))
		}
		seenTasks[t.ID] = true
		if !ValidTaskStatus(t.Status) {
			errs = append(errs, fmt.Sprintf("task %q has unknown status %q", t.ID, t.Status))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("models: invalid snapshot: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Task returns the task with the given id, or nil if absent.
func (s *Snapshot) Task(id string) *Task {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return &s.Tasks[i]
		}
	}
	return nil
}
