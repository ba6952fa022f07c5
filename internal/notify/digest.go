package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zulandar/crewdeck/internal/archive"
	"github.com/zulandar/crewdeck/internal/models"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration parses a 5-field cron expression and returns the duration
// until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

// ValidCron reports whether expr is a parseable 5-field cron expression.
func ValidCron(expr string) bool {
	_, err := cronParser.Parse(expr)
	return err == nil
}

// DigestReport holds fleet metrics for a digest period.
type DigestReport struct {
	PeriodStart    time.Time
	PeriodEnd      time.Time
	TotalAgents    int
	ActiveAgents   int
	BlockedAgents  int
	TotalTasks     int
	TasksDone      int
	TasksCompleted int
	CompletedDelta int // completed since the period baseline; -1 when no baseline
	Activities     int
}

// Digester builds periodic fleet digests from the snapshot archive.
type Digester struct {
	store *archive.Store
	now   func() time.Time
}

// NewDigester creates a Digester over the archive.
func NewDigester(store *archive.Store) *Digester {
	return &Digester{store: store, now: time.Now}
}

// Build computes the digest for the window ending now. Returns nil when the
// archive holds no snapshots, so an idle deployment stays quiet.
func (d *Digester) Build(window time.Duration) (*DigestReport, error) {
	until := d.now()
	since := until.Add(-window)

	recs, err := d.store.Recent(1)
	if err != nil {
		return nil, fmt.Errorf("notify: digest: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}

	var current models.Snapshot
	if err := json.Unmarshal([]byte(recs[0].Payload), &current); err != nil {
		return nil, fmt.Errorf("notify: digest: decode snapshot: %w", err)
	}

	report := &DigestReport{
		PeriodStart:    since,
		PeriodEnd:      until,
		TotalAgents:    len(current.Agents),
		ActiveAgents:   models.ActiveAgentCount(current.Agents),
		TotalTasks:     len(current.Tasks),
		TasksDone:      models.TaskStatusCounts(current.Tasks)[models.TaskDone],
		TasksCompleted: models.CompletedTotal(current.Agents),
		CompletedDelta: -1,
		Activities:     len(current.Activities),
	}
	for _, a := range current.Agents {
		if a.Status == models.AgentBlocked {
			report.BlockedAgents++
		}
	}

	baseline, err := d.store.FirstSince(since)
	if err != nil {
		return nil, fmt.Errorf("notify: digest: %w", err)
	}
	if baseline != nil && baseline.ID != recs[0].ID {
		var old models.Snapshot
		if err := json.Unmarshal([]byte(baseline.Payload), &old); err == nil {
			report.CompletedDelta = report.TasksCompleted - models.CompletedTotal(old.Agents)
		}
	}

	return report, nil
}

// Format renders a digest report as a chat message.
func Format(report *DigestReport) Message {
	var bodyLines []string
	bodyLines = append(bodyLines, fmt.Sprintf("**Period**: %s – %s",
		report.PeriodStart.Format("Jan 2 15:04"),
		report.PeriodEnd.Format("Jan 2 15:04")))
	bodyLines = append(bodyLines, fmt.Sprintf("**Agents**: %d (%d active, %d blocked)",
		report.TotalAgents, report.ActiveAgents, report.BlockedAgents))
	bodyLines = append(bodyLines, fmt.Sprintf("**Tasks**: %d open, %d done, %d completed all-time",
		report.TotalTasks, report.TasksDone, report.TasksCompleted))
	if report.CompletedDelta >= 0 {
		bodyLines = append(bodyLines, fmt.Sprintf("**Completed this period**: %d", report.CompletedDelta))
	}

	severity := "info"
	if report.BlockedAgents > 0 {
		severity = "warning"
	}

	fields := []Field{
		{Name: "Agents", Value: fmt.Sprintf("%d", report.TotalAgents), Short: true},
		{Name: "Active", Value: fmt.Sprintf("%d", report.ActiveAgents), Short: true},
		{Name: "Tasks", Value: fmt.Sprintf("%d", report.TotalTasks), Short: true},
		{Name: "Completed", Value: fmt.Sprintf("%d", report.TasksCompleted), Short: true},
	}
	if report.BlockedAgents > 0 {
		fields = append(fields, Field{Name: "Blocked", Value: fmt.Sprintf("%d", report.BlockedAgents), Short: true})
	}

	return Message{
		Title:    "Fleet Digest",
		Body:     strings.Join(bodyLines, "\n"),
		Severity: severity,
		Color:    severityColor(severity),
		Fields:   fields,
	}
}

// RunDigests fires a digest on the cron schedule until ctx is cancelled.
// The digest window spans the time since the previous fire.
func (d *Digester) RunDigests(ctx context.Context, router *Router, expr string) {
	if !ValidCron(expr) {
		log.Printf("notify: digest: invalid cron expression %q, digests disabled", expr)
		return
	}

	lastFire := d.now()
	for {
		wait := nextCronDuration(expr)
		if wait <= 0 {
			wait = time.Minute
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		fire := d.now()
		report, err := d.Build(fire.Sub(lastFire))
		lastFire = fire
		if err != nil {
			log.Printf("notify: digest: %v", err)
			continue
		}
		if report == nil {
			continue
		}
		router.Send(ctx, Format(report))
	}
}
