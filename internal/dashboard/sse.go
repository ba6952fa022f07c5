package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/crewdeck/internal/aggregate"
)

// sseCheckInterval is how often the SSE loop looks for a fresh snapshot.
// The aggregator's cache bounds the upstream cost of checking this often.
const sseCheckInterval = 5 * time.Second

// handleSSE streams snapshots to browser clients as they change, so a
// connected dashboard doesn't have to poll /api/status itself.
func handleSSE(agg *aggregate.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		// Send connected event.
		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		// Track the last snapshot version pushed to this client.
		var lastSent string

		ctx := c.Request.Context()
		ticker := time.NewTicker(sseCheckInterval)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				snap, err := agg.GetSnapshot(ctx)
				if err != nil {
					log.Printf("dashboard: sse snapshot: %v", err)
					continue
				}
				if snap.LastUpdate == lastSent {
					continue
				}
				lastSent = snap.LastUpdate

				writeSSE(c.Writer, "snapshot", snap)
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
