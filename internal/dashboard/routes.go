package dashboard

import (
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/crewdeck/internal/aggregate"
	"github.com/zulandar/crewdeck/internal/archive"
	"github.com/zulandar/crewdeck/internal/models"
)

// statusUnavailable is the descriptive error served with the 500 payload.
const statusUnavailable = "Failed to fetch agent status"

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, agg *aggregate.Aggregator, arch *archive.Store) {
	rec := &recorder{store: arch}

	router.GET("/healthz", handleHealthz())
	router.GET("/api/status", handleStatus(agg, rec))
	router.GET("/api/history", handleHistory(arch))
	router.GET("/api/events", handleSSE(agg))
}

func handleHealthz() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// handleStatus serves the merged snapshot. Per-source failures are already
// absorbed by the aggregator; anything that still escapes yields the
// structured error payload with empty collections rather than a raw error.
func handleStatus(agg *aggregate.Aggregator, rec *recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := agg.GetSnapshot(c.Request.Context())
		if err != nil {
			log.Printf("dashboard: aggregation failed: %v", err)
			c.JSON(http.StatusInternalServerError, aggregate.ErrorSnapshot(statusUnavailable))
			return
		}
		rec.record(snap)
		c.JSON(http.StatusOK, snap)
	}
}

// handleHistory serves recently archived snapshots, newest first.
func handleHistory(arch *archive.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if arch == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "archive is not configured"})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		recs, err := arch.Recent(limit)
		if err != nil {
			log.Printf("dashboard: history: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read history"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"snapshots": recs})
	}
}

// recorder archives snapshots, skipping consecutive duplicates so a 30s
// cache window doesn't produce identical rows on every poll.
type recorder struct {
	store *archive.Store
	mu    sync.Mutex
	last  string
}

func (r *recorder) record(snap models.Snapshot) {
	if r.store == nil || snap.LastUpdate == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if snap.LastUpdate == r.last {
		return
	}
	if err := r.store.Save(snap); err != nil {
		log.Printf("dashboard: archive: %v", err)
		return
	}
	r.last = snap.LastUpdate
}
