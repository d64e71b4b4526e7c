package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"umn-housing-scraper/config"
	"umn-housing-scraper/geo"
	"umn-housing-scraper/models"
	"umn-housing-scraper/services"
)

// nopGeocoder always misses. The fake source provides page coordinates, so
// the builder never consults it.
type nopGeocoder struct{}

func (nopGeocoder) Geocode(ctx context.Context, address string) (geo.Coordinate, bool) {
	return geo.Coordinate{}, false
}

// fakeSource yields a fixed number of fresh buildings per session, each with
// one priced unit located at campus.
type fakeSource struct {
	perSession  int
	next        int
	discoverErr error
	fetchErr    error
	locations   []string
}

func (f *fakeSource) DiscoverBuildings(ctx context.Context, location string, maxPages int) ([]string, error) {
	f.locations = append(f.locations, location)
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	urls := make([]string, 0, f.perSession)
	for i := 0; i < f.perSession; i++ {
		f.next++
		urls = append(urls, fmt.Sprintf("https://www.apartments.com/fake-bldg-minneapolis-mn/k%04d/", f.next))
	}
	return urls, nil
}

func (f *fakeSource) FetchBuilding(ctx context.Context, url string) (*models.RawBuilding, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	lat, lon := geo.CampusLat, geo.CampusLon
	return &models.RawBuilding{
		SourceURL:   url,
		Name:        "Fake Building",
		AddressText: "123 Main St, Minneapolis, MN 55414",
		Lat:         &lat,
		Lon:         &lon,
		Units: []models.RawUnit{
			{Label: "A1", BedsText: "1 bed", SqftText: "600", PriceText: "$1,100"},
		},
	}, nil
}

func newTestController(t *testing.T, opts Options, source Source) (*Controller, *Accumulator) {
	t.Helper()
	acc, _, _ := newTestAccumulator(t, config.FirstSeenWins)
	builder := services.NewBuilder(nopGeocoder{}, newTestLogger())
	ctrl := NewController(opts, source, builder, acc, newTestLogger())
	ctrl.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return ctrl, acc
}

func TestControllerStopsAtTarget(t *testing.T) {
	source := &fakeSource{perSession: 2}
	ctrl, acc := newTestController(t, Options{
		AutoRestart:    true,
		MaxSessions:    50,
		TargetListings: 5,
		Cooldown:       time.Minute,
		Locations:      []string{"minneapolis-mn"},
	}, source)

	state := ctrl.Run(context.Background())

	if state.Reason != ReasonTargetReached {
		t.Errorf("Reason = %q; want %q", state.Reason, ReasonTargetReached)
	}
	if state.SessionsRun != 3 {
		t.Errorf("SessionsRun = %d; want 3 (2 admissions per session, target 5)", state.SessionsRun)
	}
	if acc.Size() != 6 {
		t.Errorf("accumulated %d listings; want 6", acc.Size())
	}
}

func TestControllerStopsAtSessionLimit(t *testing.T) {
	source := &fakeSource{perSession: 1}
	ctrl, _ := newTestController(t, Options{
		AutoRestart:    true,
		MaxSessions:    3,
		TargetListings: 1000,
		Locations:      []string{"minneapolis-mn"},
	}, source)

	state := ctrl.Run(context.Background())

	if state.Reason != ReasonSessionLimit {
		t.Errorf("Reason = %q; want %q", state.Reason, ReasonSessionLimit)
	}
	if state.SessionsRun != 3 {
		t.Errorf("SessionsRun = %d; want 3", state.SessionsRun)
	}
}

func TestControllerSingleSession(t *testing.T) {
	source := &fakeSource{perSession: 4}
	ctrl, acc := newTestController(t, Options{
		AutoRestart: false,
		Locations:   []string{"minneapolis-mn"},
	}, source)

	state := ctrl.Run(context.Background())

	if state.Reason != ReasonSingleSession {
		t.Errorf("Reason = %q; want %q", state.Reason, ReasonSingleSession)
	}
	if state.SessionsRun != 1 {
		t.Errorf("SessionsRun = %d; want 1", state.SessionsRun)
	}
	if acc.Size() != 4 {
		t.Errorf("accumulated %d listings; want 4", acc.Size())
	}
}

func TestControllerAbsorbsDiscoveryFailure(t *testing.T) {
	source := &fakeSource{discoverErr: errors.New("network down")}
	ctrl, _ := newTestController(t, Options{
		AutoRestart: false,
		Locations:   []string{"minneapolis-mn"},
	}, source)

	state := ctrl.Run(context.Background())

	if state.Reason != ReasonSingleSession {
		t.Errorf("session failure must not abort the controller, got reason %q", state.Reason)
	}
	if len(state.Sessions) != 1 || state.Sessions[0].Failure == "" {
		t.Error("expected the session recorded as failed")
	}
}

func TestControllerBlockedCutoff(t *testing.T) {
	source := &fakeSource{perSession: 10, fetchErr: ErrBlocked}
	ctrl, acc := newTestController(t, Options{
		AutoRestart: false,
		Locations:   []string{"minneapolis-mn"},
	}, source)

	state := ctrl.Run(context.Background())

	if len(state.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(state.Sessions))
	}
	if state.Sessions[0].Failure != "repeated blocking detected" {
		t.Errorf("Failure = %q; want repeated blocking detected", state.Sessions[0].Failure)
	}
	if acc.Size() != 0 {
		t.Errorf("blocked session admitted %d listings", acc.Size())
	}
}

func TestControllerSkipsVisitedBuildings(t *testing.T) {
	source := &fakeSource{perSession: 2}
	ctrl, acc := newTestController(t, Options{
		AutoRestart: false,
		Locations:   []string{"minneapolis-mn"},
	}, source)

	// Pre-mark the first building the source will hand out.
	acc.MarkVisited("k0001")

	state := ctrl.Run(context.Background())

	if state.Sessions[0].Built != 1 {
		t.Errorf("Built = %d; want 1 (visited building skipped)", state.Sessions[0].Built)
	}
	if acc.Size() != 1 {
		t.Errorf("accumulated %d listings; want 1", acc.Size())
	}
}

func TestControllerBalancedRotation(t *testing.T) {
	source := &fakeSource{perSession: 2}
	ctrl, _ := newTestController(t, Options{
		AutoRestart:    true,
		MaxSessions:    3,
		TargetListings: 1000,
		Locations:      []string{"minneapolis-mn", "saint-paul-mn", "studios-minneapolis-mn"},
	}, source)

	ctrl.Run(context.Background())

	want := []string{"minneapolis-mn", "saint-paul-mn", "studios-minneapolis-mn"}
	if len(source.locations) != len(want) {
		t.Fatalf("source saw %d sessions; want %d", len(source.locations), len(want))
	}
	for i, loc := range want {
		if source.locations[i] != loc {
			t.Errorf("session %d ran %q; want %q", i+1, source.locations[i], loc)
		}
	}
}

func TestControllerCooldownDoublesOnZeroYield(t *testing.T) {
	newRun := func(perSession int) []time.Duration {
		source := &fakeSource{perSession: perSession}
		ctrl, _ := newTestController(t, Options{
			AutoRestart:    true,
			MaxSessions:    2,
			TargetListings: 1000,
			Cooldown:       time.Minute,
			Locations:      []string{"minneapolis-mn"},
		}, source)

		var slept []time.Duration
		ctrl.sleep = func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return ctx.Err()
		}
		ctrl.Run(context.Background())
		return slept
	}

	if slept := newRun(1); len(slept) != 1 || slept[0] != time.Minute {
		t.Errorf("yielding session slept %v; want [1m0s]", slept)
	}
	if slept := newRun(0); len(slept) != 1 || slept[0] != 2*time.Minute {
		t.Errorf("zero-yield session slept %v; want [2m0s]", slept)
	}
}

func TestControllerStopsOnCancel(t *testing.T) {
	source := &fakeSource{perSession: 2}
	ctrl, _ := newTestController(t, Options{
		AutoRestart:    true,
		MaxSessions:    50,
		TargetListings: 1000,
		Locations:      []string{"minneapolis-mn"},
	}, source)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := ctrl.Run(ctx)

	if state.Reason != ReasonStopSignal {
		t.Errorf("Reason = %q; want %q", state.Reason, ReasonStopSignal)
	}
}

func TestNextTransition(t *testing.T) {
	tests := []struct {
		name          string
		opts          Options
		sessions      int
		totalListings int
		wantState     State
		wantReason    TerminationReason
	}{
		{"target reached", Options{AutoRestart: true, MaxSessions: 50, TargetListings: 10}, 2, 10, StateStopped, ReasonTargetReached},
		{"target beats session limit", Options{AutoRestart: true, MaxSessions: 2, TargetListings: 10}, 2, 12, StateStopped, ReasonTargetReached},
		{"session limit", Options{AutoRestart: true, MaxSessions: 2, TargetListings: 100}, 2, 10, StateStopped, ReasonSessionLimit},
		{"single session", Options{AutoRestart: false}, 1, 0, StateStopped, ReasonSingleSession},
		{"keep going", Options{AutoRestart: true, MaxSessions: 5, TargetListings: 100}, 2, 10, StateCooldown, ""},
	}

	for _, tt := range tests {
		state := &SessionState{SessionsRun: tt.sessions, TotalListings: tt.totalListings}
		gotState, gotReason := nextTransition(tt.opts, state)
		if gotState != tt.wantState || gotReason != tt.wantReason {
			t.Errorf("%s: nextTransition = (%v, %q); want (%v, %q)",
				tt.name, gotState, gotReason, tt.wantState, tt.wantReason)
		}
	}
}
