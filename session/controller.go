package session

import (
	"context"
	"errors"
	"sort"
	"time"

	"umn-housing-scraper/geo"
	"umn-housing-scraper/models"
	"umn-housing-scraper/services"
	"umn-housing-scraper/storage"
	"umn-housing-scraper/utils"
)

// ErrBlocked is reported by a Source when the site is serving challenge or
// access-denied pages instead of listings.
var ErrBlocked = errors.New("bot detection triggered")

// Source is the page-rendering collaborator boundary: it discovers building
// URLs on search-result pages and fetches raw extractions for them.
type Source interface {
	DiscoverBuildings(ctx context.Context, location string, maxPages int) ([]string, error)
	FetchBuilding(ctx context.Context, url string) (*models.RawBuilding, error)
}

// State is the controller's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCooldown
	StateStopped
)

// TerminationReason explains why the controller stopped.
type TerminationReason string

const (
	ReasonTargetReached TerminationReason = "target reached"
	ReasonSessionLimit  TerminationReason = "session limit reached"
	ReasonSingleSession TerminationReason = "single session completed"
	ReasonStopSignal    TerminationReason = "stop signal received"
)

// Options bound a controller run. Zero values for MaxBuildings and
// MaxSearchPages mean unlimited.
type Options struct {
	MaxSearchPages int
	MaxBuildings   int

	AutoRestart    bool
	MaxSessions    int
	Cooldown       time.Duration
	TargetListings int

	// Locations is the search-slug catalog rotated across sessions.
	Locations []string
}

// SessionRecord summarizes one completed session.
type SessionRecord struct {
	Location  string
	StartedAt time.Time
	EndedAt   time.Time
	Built     int
	Admitted  int
	Failure   string
}

// SessionState tracks the auto-restart campaign. It is created when the
// controller starts and summarized into logs at exit.
type SessionState struct {
	SessionsRun   int
	TotalListings int
	Sessions      []SessionRecord
	Reason        TerminationReason
}

// Controller orchestrates scraping sessions: single-session mode runs one
// bounded session; auto-restart mode repeats sessions with cooldowns until
// the target count is reached or the session limit is exhausted.
type Controller struct {
	opts    Options
	source  Source
	builder *services.Builder
	acc     *Accumulator
	logger  *utils.Logger

	// Optional per-session exports: every built listing (unfiltered) and
	// the subset passing the distance filter.
	unfilteredStore storage.CombinedStore
	sessionStore    storage.CombinedStore

	// Optional persisted per-location session counts for balanced
	// rotation.
	counter *storage.LocationCounter
	counts  map[string]int

	// sleep is injectable so tests can run without real delays.
	sleep func(ctx context.Context, d time.Duration) error

	consecutiveFailureLimit int
	blockedFailureLimit     int
}

// NewController wires a controller over the given collaborator, builder and
// accumulator.
func NewController(opts Options, source Source, builder *services.Builder,
	acc *Accumulator, logger *utils.Logger) *Controller {

	return &Controller{
		opts:    opts,
		source:  source,
		builder: builder,
		acc:     acc,
		logger:  logger,
		counts:  make(map[string]int),
		sleep:   sleepCtx,

		consecutiveFailureLimit: 10,
		blockedFailureLimit:     3,
	}
}

// SetSessionStores attaches the optional per-session CSV exports.
func (c *Controller) SetSessionStores(unfiltered, filtered storage.CombinedStore) {
	c.unfilteredStore = unfiltered
	c.sessionStore = filtered
}

// SetLocationCounter attaches the persisted per-location session counts.
func (c *Controller) SetLocationCounter(counter *storage.LocationCounter) error {
	counts, err := counter.Load()
	if err != nil {
		return err
	}
	c.counter = counter
	c.counts = counts
	return nil
}

// Run drives the session loop until a termination condition is met. The
// context carries the external stop signal; cancellation between buildings
// causes an orderly flush-and-stop.
func (c *Controller) Run(ctx context.Context) *SessionState {
	state := &SessionState{}

	for {
		location := c.nextLocation()
		c.logger.Info("[session] Starting session %d (location: %s)",
			state.SessionsRun+1, location)

		record := c.runSession(ctx, location)
		state.SessionsRun++
		state.Sessions = append(state.Sessions, record)
		state.TotalListings = c.acc.Size()

		c.bumpLocationCount(location)

		if err := c.acc.Flush(); err != nil {
			c.logger.Error("[session] Flush failed: %v", err)
		}

		c.logger.Info("[session] Session %d done — admitted %d, accumulated %d",
			state.SessionsRun, record.Admitted, state.TotalListings)

		if ctx.Err() != nil {
			state.Reason = ReasonStopSignal
			return state
		}

		next, reason := nextTransition(c.opts, state)
		switch next {
		case StateStopped:
			state.Reason = reason
			return state
		case StateCooldown:
			cooldown := c.opts.Cooldown
			if record.Admitted == 0 {
				// A zero-yield session usually means the site is
				// blocking; back off twice as long.
				cooldown *= 2
				c.logger.Warn("[session] Zero admissions — extending cooldown to %v", cooldown)
			}
			c.logger.Info("[session] Cooling down for %v before next session", cooldown)
			if err := c.sleep(ctx, cooldown); err != nil {
				state.Reason = ReasonStopSignal
				return state
			}
		}
	}
}

// nextTransition is the pure decision function: given the campaign state,
// compute the next controller state. Termination conditions are checked in
// order: target reached, session limit, single-session mode.
func nextTransition(opts Options, state *SessionState) (State, TerminationReason) {
	if opts.AutoRestart && opts.TargetListings > 0 && state.TotalListings >= opts.TargetListings {
		return StateStopped, ReasonTargetReached
	}
	if opts.AutoRestart && opts.MaxSessions > 0 && state.SessionsRun >= opts.MaxSessions {
		return StateStopped, ReasonSessionLimit
	}
	if !opts.AutoRestart {
		return StateStopped, ReasonSingleSession
	}
	return StateCooldown, ""
}

// runSession executes one bounded scraping session. Failures within the
// session are absorbed: the session ends early with its partial admissions
// kept, and the controller proceeds as if it ended normally.
func (c *Controller) runSession(ctx context.Context, location string) (record SessionRecord) {
	record = SessionRecord{Location: location, StartedAt: time.Now()}
	defer func() { record.EndedAt = time.Now() }()

	urls, err := c.source.DiscoverBuildings(ctx, location, c.opts.MaxSearchPages)
	if err != nil {
		c.logger.Error("[session] Building discovery failed: %v", err)
		record.Failure = err.Error()
		return record
	}

	if c.opts.MaxBuildings > 0 && len(urls) > c.opts.MaxBuildings {
		urls = urls[:c.opts.MaxBuildings]
	}
	c.logger.Info("[session] %d buildings queued", len(urls))

	var sessionAll, sessionFiltered []models.Listing
	consecutiveFailures := 0
	blockedSeen := false

	for i, url := range urls {
		if ctx.Err() != nil {
			c.logger.Warn("[session] Stop signal observed — ending session early")
			record.Failure = "stop signal"
			break
		}

		buildingID := urlIdentity(url)
		if c.acc.AlreadyVisited(buildingID) {
			c.logger.Debug("[session] Skipping visited building: %s", buildingID)
			continue
		}

		c.logger.Info("[session] Processing building %d/%d: %s", i+1, len(urls), url)

		raw, err := c.source.FetchBuilding(ctx, url)
		if err != nil {
			consecutiveFailures++
			if errors.Is(err, ErrBlocked) {
				blockedSeen = true
				c.logger.Warn("[session] Bot detection reported by collaborator")
			} else {
				c.logger.Error("[session] Building extraction failed: %v", err)
			}
			if blockedSeen && consecutiveFailures >= c.blockedFailureLimit {
				record.Failure = "repeated blocking detected"
				c.logger.Error("[session] %s — ending session early", record.Failure)
				break
			}
			if consecutiveFailures >= c.consecutiveFailureLimit {
				record.Failure = "too many consecutive failures"
				c.logger.Error("[session] %s — ending session early", record.Failure)
				break
			}
			continue
		}
		consecutiveFailures = 0

		c.acc.MarkVisited(buildingID)

		listings := c.builder.Build(ctx, raw)
		record.Built += len(listings)

		for _, l := range listings {
			sessionAll = append(sessionAll, l)
			if !l.WithinRadius(geo.SearchRadiusKm) {
				if l.DistToCampusKm == nil {
					c.logger.Warn("[session] No coordinates for %s — kept unfiltered only", l.ListingID)
				} else {
					c.logger.Info("[session] %s is %.2f km out — beyond %.1f km radius",
						l.ListingID, *l.DistToCampusKm, geo.SearchRadiusKm)
				}
				continue
			}
			sessionFiltered = append(sessionFiltered, l)
			if c.acc.Register(l) {
				record.Admitted++
			}
		}
	}

	c.exportSession(sessionAll, sessionFiltered)
	return record
}

func (c *Controller) exportSession(all, filtered []models.Listing) {
	if c.unfilteredStore != nil {
		if err := c.unfilteredStore.Write(all); err != nil {
			c.logger.Warn("[session] Unfiltered export failed: %v", err)
		}
	}
	if c.sessionStore != nil {
		if err := c.sessionStore.Write(filtered); err != nil {
			c.logger.Warn("[session] Session export failed: %v", err)
		}
	}
}

// nextLocation picks the least-scraped location so coverage stays balanced
// across the catalog. Ties resolve in catalog order.
func (c *Controller) nextLocation() string {
	if len(c.opts.Locations) == 0 {
		return ""
	}
	ordered := make([]string, len(c.opts.Locations))
	copy(ordered, c.opts.Locations)
	sort.SliceStable(ordered, func(i, j int) bool {
		return c.counts[ordered[i]] < c.counts[ordered[j]]
	})
	return ordered[0]
}

func (c *Controller) bumpLocationCount(location string) {
	if location == "" {
		return
	}
	c.counts[location]++
	if c.counter != nil {
		if err := c.counter.Write(c.counts); err != nil {
			c.logger.Warn("[session] Location counter write failed: %v", err)
		}
	}
}

// urlIdentity derives the cross-session building identity from a building
// URL, matching the Record Builder's derivation.
func urlIdentity(url string) string {
	return services.BuildingIdentity(&models.RawBuilding{SourceURL: url})
}

// sleepCtx blocks for d or until the context is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
