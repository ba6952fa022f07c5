package syncer

import (
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/crewdeck/internal/models"
)

// FormatView renders the synchronizer's state as a human-readable terminal
// dashboard: fleet stats, the agent table, the task board columns, the
// activity trail, and unread notifications.
func FormatView(snap models.Snapshot, trail []models.Activity, notifications []models.Notification, lastErr string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Crewdeck — agents: %d (%d active) | tasks: %d | completed: %d | unread: %d\n",
		len(snap.Agents),
		models.ActiveAgentCount(snap.Agents),
		len(snap.Tasks),
		models.CompletedTotal(snap.Agents),
		models.UnreadCount(notifications)))
	if snap.LastUpdate != "" {
		b.WriteString(fmt.Sprintf("Updated: %s\n", formatStamp(snap.LastUpdate)))
	}
	if lastErr != "" {
		b.WriteString(fmt.Sprintf("! %s\n", lastErr))
	}
	b.WriteString("\n")

	// Agent table.
	b.WriteString("AGENTS\n")
	b.WriteString(fmt.Sprintf("%-14s %-18s %-9s %10s %-20s\n",
		"ID", "NAME", "STATUS", "COMPLETED", "LAST ACTIVE"))
	for _, a := range snap.Agents {
		b.WriteString(fmt.Sprintf("%-14s %-18s %-9s %10d %-20s\n",
			a.ID, a.Name, a.Status, a.TasksCompleted, formatStamp(a.LastActive)))
	}
	if len(snap.Agents) == 0 {
		b.WriteString("  (no agents)\n")
	}
	b.WriteString("\n")

	// Task board.
	counts := models.TaskStatusCounts(snap.Tasks)
	b.WriteString("BOARD\n")
	for _, status := range models.TaskStatuses() {
		b.WriteString(fmt.Sprintf("%-12s %3d", status, counts[status]))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	// Activity trail.
	b.WriteString("ACTIVITY\n")
	for _, act := range trail {
		b.WriteString(fmt.Sprintf("  %-20s %s — %s\n", formatStamp(act.Timestamp), act.Agent, act.Action))
	}
	if len(trail) == 0 {
		b.WriteString("  (no recent activity)\n")
	}

	// Unread notifications.
	unread := models.UnreadCount(notifications)
	if unread > 0 {
		b.WriteString("\nNOTIFICATIONS\n")
		for _, n := range notifications {
			if n.Read {
				continue
			}
			b.WriteString(fmt.Sprintf("  [%s] %s\n", n.Type, n.Message))
		}
	}

	return b.String()
}

// formatStamp renders an upstream timestamp as local wall-clock time,
// passing unparseable values through untouched.
func formatStamp(stamp string) string {
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return stamp
	}
	return t.Local().Format("15:04:05")
}
