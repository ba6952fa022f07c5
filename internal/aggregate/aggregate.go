// Package aggregate merges the two upstream documents into one normalized
// snapshot. Each source fails independently; a failed source degrades to
// empty collections for that poll cycle and the next poll is the retry.
package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/zulandar/crewdeck/internal/models"
	"github.com/zulandar/crewdeck/internal/source"
)

// statusDocument is the expected shape of the status source: agents keyed
// by id, tasks as an array, and the producer's own update timestamp.
type statusDocument struct {
	Agents     map[string]models.Agent `json:"agents"`
	Tasks      []models.Task           `json:"tasks"`
	LastUpdate string                  `json:"lastUpdate"`
}

// activityDocument is the expected shape of the activity source.
type activityDocument struct {
	Activities []models.Activity `json:"activities"`
}

// Aggregator fetches both sources concurrently and merges them. It holds
// the process-wide per-source cache; callers share one Aggregator.
type Aggregator struct {
	status   source.Source
	activity source.Source
	now      func() time.Time
}

// Opts holds parameters for creating an Aggregator.
type Opts struct {
	Status   source.Source
	Activity source.Source

	// Cache, when set, wraps both sources so repeated snapshots within the
	// TTL window reuse the last fetched bodies.
	Cache *source.Cache

	// Now is the clock used for the lastUpdate fallback. Defaults to time.Now.
	Now func() time.Time
}

// New creates an Aggregator.
func New(opts Opts) (*Aggregator, error) {
	if opts.Status == nil {
		return nil, fmt.Errorf("aggregate: status source is required")
	}
	if opts.Activity == nil {
		return nil, fmt.Errorf("aggregate: activity source is required")
	}

	statusSrc, activitySrc := opts.Status, opts.Activity
	if opts.Cache != nil {
		statusSrc = source.WithCache(statusSrc, opts.Cache)
		activitySrc = source.WithCache(activitySrc, opts.Cache)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Aggregator{status: statusSrc, activity: activitySrc, now: now}, nil
}

// GetSnapshot fetches both sources concurrently and merges them. A source
// that fails to fetch or parse resolves to absent and is logged, never
// raised; the returned snapshot always has well-typed collections. The
// error return covers only unexpected failures (a panic during fetch or
// merge), which the HTTP layer turns into the structured 500 payload.
func (a *Aggregator) GetSnapshot(ctx context.Context) (snap models.Snapshot, err error) {
	var (
		statusDoc   *statusDocument
		activityDoc *activityDocument
	)

	wg := conc.NewWaitGroup()
	wg.Go(func() { statusDoc = a.fetchStatus(ctx) })
	wg.Go(func() { activityDoc = a.fetchActivity(ctx) })
	if recovered := wg.WaitAndRecover(); recovered != nil {
		log.Printf("aggregate: panic during fetch: %v", recovered.Value)
		return models.Snapshot{}, fmt.Errorf("aggregate: fetch: %v", recovered.Value)
	}

	snap = merge(statusDoc, activityDoc, a.now())
	if verr := snap.Validate(); verr != nil {
		// Upstream content issues are an operability signal, not a failure:
		// the merged snapshot is still served as-is.
		log.Printf("aggregate: %v", verr)
	}
	return snap, nil
}

// fetchStatus fetches and parses the status document, or nil if unavailable.
func (a *Aggregator) fetchStatus(ctx context.Context) *statusDocument {
	body, err := a.status.Fetch(ctx)
	if err != nil {
		log.Printf("aggregate: status source unavailable: %v", err)
		return nil
	}
	var doc statusDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		log.Printf("aggregate: status source malformed: %v", err)
		return nil
	}
	return &doc
}

// fetchActivity fetches and parses the activity document, or nil if
// unavailable.
func (a *Aggregator) fetchActivity(ctx context.Context) *activityDocument {
	body, err := a.activity.Fetch(ctx)
	if err != nil {
		log.Printf("aggregate: activity source unavailable: %v", err)
		return nil
	}
	var doc activityDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		log.Printf("aggregate: activity source malformed: %v", err)
		return nil
	}
	return &doc
}

// merge applies the per-field fallback rules once both source resolutions
// are known. now is the lastUpdate fallback when the status source is
// silent, so the merged value is never earlier than the aggregation call.
func merge(status *statusDocument, activity *activityDocument, now time.Time) models.Snapshot {
	var snap models.Snapshot

	if status != nil {
		snap.Agents = agentValues(status.Agents)
		snap.Tasks = status.Tasks
		snap.LastUpdate = status.LastUpdate
	}
	if activity != nil {
		snap.Activities = activity.Activities
	}
	if snap.LastUpdate == "" {
		snap.LastUpdate = now.UTC().Format(time.RFC3339)
	}

	snap.Normalize()
	return snap
}

// agentValues flattens the keyed agent mapping into a slice in stable
// (key-sorted) order.
func agentValues(m map[string]models.Agent) []models.Agent {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	agents := make([]models.Agent, 0, len(m))
	for _, k := range keys {
		agents = append(agents, m[k])
	}
	return agents
}

// ErrorSnapshot builds the structured payload served with a 500 status:
// a descriptive error plus empty-but-well-typed collections, so downstream
// consumers never receive an absent list.
func ErrorSnapshot(msg string) models.Snapshot {
	snap := models.Snapshot{Error: msg}
	snap.Normalize()
	return snap
}
