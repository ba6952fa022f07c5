package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/zulandar/crewdeck/internal/archive"
	"github.com/zulandar/crewdeck/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testStore(t *testing.T) *archive.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store, err := archive.NewStore(db)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func digestSnap(completed int, blocked bool) models.Snapshot {
	status := models.AgentActive
	if blocked {
		status = models.AgentBlocked
	}
	snap := models.Snapshot{
		Agents: []models.Agent{
			{ID: "1", Name: "scout", Status: status, TasksCompleted: completed},
			{ID: "2", Name: "sweeper", Status: models.AgentIdle},
		},
		Tasks: []models.Task{
			{ID: "101", Status: models.TaskDone},
			{ID: "102", Status: models.TaskInProgress},
		},
		LastUpdate: "2025-06-01T12:00:00Z",
	}
	snap.Normalize()
	return snap
}

func TestValidCron(t *testing.T) {
	if !ValidCron("0 9 * * *") {
		t.Error("daily 9am expression should parse")
	}
	if ValidCron("not a cron") {
		t.Error("garbage should not parse")
	}
	if ValidCron("* * * * * *") {
		t.Error("6-field expressions should not parse")
	}
}

func TestNextCronDuration(t *testing.T) {
	if d := nextCronDuration("* * * * *"); d <= 0 || d > time.Minute {
		t.Errorf("every-minute duration = %v", d)
	}
	if d := nextCronDuration("bogus"); d != 0 {
		t.Errorf("parse error duration = %v, want 0", d)
	}
}

func TestBuild_EmptyArchive(t *testing.T) {
	d := NewDigester(testStore(t))
	report, err := d.Build(24 * time.Hour)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if report != nil {
		t.Error("empty archive must yield a nil report")
	}
}

func TestBuild_FromLatestSnapshot(t *testing.T) {
	store := testStore(t)
	if err := store.Save(digestSnap(5, true)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	d := NewDigester(store)
	report, err := d.Build(24 * time.Hour)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if report == nil {
		t.Fatal("expected a report")
	}
	if report.TotalAgents != 2 || report.ActiveAgents != 0 || report.BlockedAgents != 1 {
		t.Errorf("agents = %d/%d/%d", report.TotalAgents, report.ActiveAgents, report.BlockedAgents)
	}
	if report.TasksDone != 1 || report.TotalTasks != 2 {
		t.Errorf("tasks = %d done of %d", report.TasksDone, report.TotalTasks)
	}
	if report.TasksCompleted != 5 {
		t.Errorf("TasksCompleted = %d, want 5", report.TasksCompleted)
	}
	// A single record has no baseline to diff against.
	if report.CompletedDelta != -1 {
		t.Errorf("CompletedDelta = %d, want -1", report.CompletedDelta)
	}
}

func TestBuild_DeltaAgainstBaseline(t *testing.T) {
	store := testStore(t)
	if err := store.Save(digestSnap(5, false)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(digestSnap(9, false)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	d := NewDigester(store)
	report, err := d.Build(24 * time.Hour)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if report.TasksCompleted != 9 {
		t.Errorf("TasksCompleted = %d, want latest snapshot's 9", report.TasksCompleted)
	}
	if report.CompletedDelta != 4 {
		t.Errorf("CompletedDelta = %d, want 4", report.CompletedDelta)
	}
}

func TestFormat_Digest(t *testing.T) {
	msg := Format(&DigestReport{
		PeriodStart:    time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		PeriodEnd:      time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		TotalAgents:    3,
		ActiveAgents:   2,
		TotalTasks:     5,
		TasksDone:      1,
		TasksCompleted: 12,
		CompletedDelta: 4,
	})
	if msg.Title != "Fleet Digest" {
		t.Errorf("title = %q", msg.Title)
	}
	if msg.Severity != "info" || msg.Color != ColorInfo {
		t.Errorf("severity = %q color = %q", msg.Severity, msg.Color)
	}
	for _, want := range []string{"3 (2 active, 0 blocked)", "Completed this period**: 4"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q:\n%s", want, msg.Body)
		}
	}
}

func TestFormat_BlockedEscalatesSeverity(t *testing.T) {
	msg := Format(&DigestReport{TotalAgents: 1, BlockedAgents: 1, CompletedDelta: -1})
	if msg.Severity != "warning" || msg.Color != ColorWarning {
		t.Errorf("severity = %q color = %q, want warning", msg.Severity, msg.Color)
	}
}
