package syncer

import "github.com/zulandar/crewdeck/internal/models"

// Reconcile applies pending local task-status overrides on top of a server
// snapshot: for any task with a pending override, the local status wins
// until the server itself reports that status, at which point the override
// is confirmed and dropped. Agents are server-owned and pass through
// untouched. The inputs are not mutated; the surviving overrides are
// returned alongside the effective view.
func Reconcile(server models.Snapshot, overrides map[string]string) (models.Snapshot, map[string]string) {
	effective := server
	effective.Tasks = make([]models.Task, len(server.Tasks))
	copy(effective.Tasks, server.Tasks)

	remaining := make(map[string]string, len(overrides))
	for id, status := range overrides {
		remaining[id] = status
	}

	for i := range effective.Tasks {
		id := effective.Tasks[i].ID
		status, ok := remaining[id]
		if !ok {
			continue
		}
		if effective.Tasks[i].Status == status {
			// Upstream caught up; the override is confirmed.
			delete(remaining, id)
			continue
		}
		effective.Tasks[i].Status = status
	}

	// Overrides for tasks the server no longer reports are dropped: there
	// is nothing left to apply them to.
	for id := range remaining {
		if !taskPresent(effective.Tasks, id) {
			delete(remaining, id)
		}
	}

	effective.Normalize()
	return effective, remaining
}

func taskPresent(tasks []models.Task, id string) bool {
	for i := range tasks {
		if tasks[i].ID == id {
			return true
		}
	}
	return false
}
