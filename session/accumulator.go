package session

import (
	"fmt"
	"sort"

	"umn-housing-scraper/config"
	"umn-housing-scraper/models"
	"umn-housing-scraper/storage"
	"umn-housing-scraper/utils"
)

// Accumulator owns the two cross-session structures: the combined result
// set (listings admitted, keyed by listing_id) and the visited-building
// registry (buildings attempted). They are related but distinct — a building
// can be visited yet contribute zero admitted listings.
type Accumulator struct {
	store    storage.CombinedStore
	registry storage.VisitedRegistry
	sinks    []storage.ListingSink
	policy   config.DedupePolicy
	logger   *utils.Logger

	combined map[string]models.Listing
	visited  map[string]struct{}
}

// NewAccumulator loads the persisted combined set and registry and returns
// an accumulator ready for the first session.
func NewAccumulator(store storage.CombinedStore, registry storage.VisitedRegistry,
	policy config.DedupePolicy, logger *utils.Logger) (*Accumulator, error) {

	combined, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("accumulator: load combined set: %w", err)
	}
	visited, err := registry.Load()
	if err != nil {
		return nil, fmt.Errorf("accumulator: load registry: %w", err)
	}

	logger.Info("[dedupe] Loaded %d existing listings, %d visited buildings",
		len(combined), len(visited))

	return &Accumulator{
		store:    store,
		registry: registry,
		policy:   policy,
		logger:   logger,
		combined: combined,
		visited:  visited,
	}, nil
}

// AddSink registers an additional best-effort destination for flushes.
func (a *Accumulator) AddSink(sink storage.ListingSink) {
	a.sinks = append(a.sinks, sink)
}

// Register merges a listing into the combined set. It returns true if the
// listing was admitted, false if its listing_id was already present.
// Under the default first-seen-wins policy the stored record is never
// replaced; under last-write-wins the new record supersedes it (and the
// call still reports a rejected duplicate, since no new identity was added).
func (a *Accumulator) Register(l models.Listing) bool {
	if _, exists := a.combined[l.ListingID]; exists {
		if a.policy == config.LastWriteWins {
			a.combined[l.ListingID] = l
		}
		a.logger.Debug("[dedupe] Duplicate listing rejected: %s", l.ListingID)
		return false
	}
	a.combined[l.ListingID] = l
	return true
}

// AlreadyVisited reports whether a building identity was attempted in this
// or any previous session. Used to skip buildings before any scraping work
// is spent on them.
func (a *Accumulator) AlreadyVisited(buildingID string) bool {
	_, ok := a.visited[buildingID]
	return ok
}

// MarkVisited records a building identity as attempted.
func (a *Accumulator) MarkVisited(buildingID string) {
	a.visited[buildingID] = struct{}{}
}

// Size returns the number of unique listings accumulated so far.
func (a *Accumulator) Size() int {
	return len(a.combined)
}

// Listings returns the combined set sorted by listing_id.
func (a *Accumulator) Listings() []models.Listing {
	out := make([]models.Listing, 0, len(a.combined))
	for _, l := range a.combined {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ListingID < out[j].ListingID })
	return out
}

// Flush persists the combined set and the visited registry. Sink errors are
// logged and absorbed; store and registry errors propagate.
func (a *Accumulator) Flush() error {
	listings := a.Listings()

	if err := a.store.Write(listings); err != nil {
		return fmt.Errorf("accumulator: flush combined set: %w", err)
	}
	if err := a.registry.Write(a.visited); err != nil {
		return fmt.Errorf("accumulator: flush registry: %w", err)
	}

	for _, sink := range a.sinks {
		if err := sink.Write(listings); err != nil {
			a.logger.Warn("[dedupe] Sink write failed: %v", err)
		}
	}

	a.logger.Info("[dedupe] Flushed %d listings, %d visited buildings",
		len(listings), len(a.visited))
	return nil
}
