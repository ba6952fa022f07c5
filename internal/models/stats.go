package models

// Fleet-level aggregates are always recomputed from current state, never
// stored, so they cannot drift from the collections they summarize.

// ActiveAgentCount returns the number of agents with status "active".
func ActiveAgentCount(agents []Agent) int {
	n := 0
	for _, a := range agents {
		if a.Status == AgentActive {
			n++
		}
	}
	return n
}

// AgentStatusCounts returns agent counts keyed by status.
func AgentStatusCounts(agents []Agent) map[string]int {
	counts := make(map[string]int)
	for _, a := range agents {
		counts[a.Status]++
	}
	return counts
}

// CompletedTotal returns the sum of tasksCompleted across all agents.
func CompletedTotal(agents []Agent) int {
	sum := 0
	for _, a := range agents {
		sum += a.TasksCompleted
	}
	return sum
}

// TaskStatusCounts returns task counts keyed by board column.
func TaskStatusCounts(tasks []Task) map[string]int {
	counts := make(map[string]int)
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}

// UnreadCount returns the number of notifications with read = false.
func UnreadCount(ns []Notification) int {
	n := 0
	for _, x := range ns {
		if !x.Read {
			n++
		}
	}
	return n
}
