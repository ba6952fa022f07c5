package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/crewdeck/internal/aggregate"
	"github.com/zulandar/crewdeck/internal/archive"
	"github.com/zulandar/crewdeck/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubSource is a test double for source.Source.
type stubSource struct {
	name  string
	body  string
	err   error
	panic bool
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Fetch(ctx context.Context) ([]byte, error) {
	if s.panic {
		panic("boom")
	}
	return []byte(s.body), s.err
}

const statusBody = `{"agents":{"1":{"id":"1","name":"scout","status":"active","tasksCompleted":3,"lastActive":"2025-06-01T11:59:00Z"}},"tasks":[{"id":"101","title":"Index repos","description":"","status":"assigned","assignee":"scout","priority":"high","tags":[]}],"lastUpdate":"2025-06-01T12:00:00Z"}`
const activityBody = `{"activities":[{"id":"a1","agent":"scout","action":"claimed task","timestamp":"2025-06-01T11:59:30Z","type":"task"}]}`

func testRouter(t *testing.T, status, activity *stubSource, arch *archive.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	agg, err := aggregate.New(aggregate.Opts{Status: status, Activity: activity})
	if err != nil {
		t.Fatalf("aggregator: %v", err)
	}
	router := gin.New()
	registerRoutes(router, agg, arch)
	return router
}

func testArchive(t *testing.T) *archive.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	store, err := archive.NewStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestStart_NilAggregator(t *testing.T) {
	err := Start(context.Background(), StartOpts{})
	if err == nil {
		t.Fatal("expected error for nil aggregator")
	}
	if !strings.Contains(err.Error(), "aggregator is required") {
		t.Errorf("error = %q, want aggregator required", err)
	}
}

func TestHealthz(t *testing.T) {
	router := testRouter(t,
		&stubSource{name: "status", body: statusBody},
		&stubSource{name: "activity", body: activityBody},
		nil,
	)
	w := get(router, "/healthz")
	if w.Code != http.StatusOK {
		t.Errorf("code = %d, want 200", w.Code)
	}
}

func TestStatus_Success(t *testing.T) {
	router := testRouter(t,
		&stubSource{name: "status", body: statusBody},
		&stubSource{name: "activity", body: activityBody},
		nil,
	)

	w := get(router, "/api/status")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", w.Code)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Agents) != 1 || len(snap.Tasks) != 1 || len(snap.Activities) != 1 {
		t.Errorf("snapshot = %d agents, %d tasks, %d activities; want 1/1/1",
			len(snap.Agents), len(snap.Tasks), len(snap.Activities))
	}
	if snap.LastUpdate != "2025-06-01T12:00:00Z" {
		t.Errorf("LastUpdate = %q", snap.LastUpdate)
	}
}

func TestStatus_DegradedSourceStillOK(t *testing.T) {
	router := testRouter(t,
		&stubSource{name: "status", err: fmt.Errorf("upstream down")},
		&stubSource{name: "activity", body: activityBody},
		nil,
	)

	w := get(router, "/api/status")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d, a single failed source must not fail the call", w.Code)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Agents) != 0 || len(snap.Activities) != 1 {
		t.Errorf("snapshot = %d agents, %d activities; want 0 agents, 1 activity",
			len(snap.Agents), len(snap.Activities))
	}
}

func TestStatus_UnrecoverableFailure(t *testing.T) {
	router := testRouter(t,
		&stubSource{name: "status", panic: true},
		&stubSource{name: "activity", body: activityBody},
		nil,
	)

	w := get(router, "/api/status")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500", w.Code)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Error == "" {
		t.Error("500 payload must carry a descriptive error")
	}
	if snap.Agents == nil || snap.Tasks == nil || snap.Activities == nil {
		t.Error("500 payload must carry empty-but-well-typed collections")
	}
}

func TestHistory_NotConfigured(t *testing.T) {
	router := testRouter(t,
		&stubSource{name: "status", body: statusBody},
		&stubSource{name: "activity", body: activityBody},
		nil,
	)
	w := get(router, "/api/history")
	if w.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404 when archive is disabled", w.Code)
	}
}

func TestHistory_ReturnsArchivedSnapshots(t *testing.T) {
	arch := testArchive(t)
	router := testRouter(t,
		&stubSource{name: "status", body: statusBody},
		&stubSource{name: "activity", body: activityBody},
		arch,
	)

	// Two polls with the same lastUpdate archive one row.
	get(router, "/api/status")
	get(router, "/api/status")

	w := get(router, "/api/history?limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", w.Code)
	}

	var resp struct {
		Snapshots []models.SnapshotRecord `json:"snapshots"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Snapshots) != 1 {
		t.Fatalf("len(snapshots) = %d, want 1 (consecutive duplicates skipped)", len(resp.Snapshots))
	}
	if resp.Snapshots[0].AgentCount != 1 || resp.Snapshots[0].TaskCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", resp.Snapshots[0].AgentCount, resp.Snapshots[0].TaskCount)
	}
}

func TestRecorder_SkipsErrorAndEmpty(t *testing.T) {
	arch := testArchive(t)
	rec := &recorder{store: arch}

	rec.record(models.Snapshot{}) // no lastUpdate
	rec.record(aggregate.ErrorSnapshot("nope"))

	recs, err := arch.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("len(recs) = %d, want 0", len(recs))
	}
}
