// Package syncer is the client half of Crewdeck: it polls the aggregation
// API on a fixed interval and reconciles each snapshot with locally-applied
// optimistic edits, so a board move or a read flag is never clobbered by
// the next poll.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zulandar/crewdeck/internal/models"
)

// Client fetches merged snapshots. The HTTP implementation talks to the
// dashboard server; tests substitute a double.
type Client interface {
	GetSnapshot(ctx context.Context) (models.Snapshot, error)
}

// HTTPClient polls GET /api/status on a Crewdeck server.
type HTTPClient struct {
	base string
	hc   *http.Client
}

// NewHTTPClient creates a client for the given base URL, e.g.
// "http://localhost:8080".
func NewHTTPClient(base string) *HTTPClient {
	return &HTTPClient{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
	}
}

// GetSnapshot implements Client. Any non-200 response is a poll failure;
// the caller keeps its previous view.
func (c *HTTPClient) GetSnapshot(ctx context.Context) (models.Snapshot, error) {
	url := c.base + "/api/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("syncer: build request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("syncer: poll %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return models.Snapshot{}, fmt.Errorf("syncer: poll %s: unexpected status %d", url, resp.StatusCode)
	}

	var snap models.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("syncer: decode snapshot: %w", err)
	}
	snap.Normalize()
	return snap, nil
}
