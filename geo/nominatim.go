package geo

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"umn-housing-scraper/utils"
)

var (
	rangePrefixRegexp = regexp.MustCompile(`^\s*(\d+)-\d+(\s+)`)
	rangeAnyRegexp    = regexp.MustCompile(`\b(\d+)-\d+\b`)
	parenRegexp       = regexp.MustCompile(`\([^)]*\)`)
	zipRegexp         = regexp.MustCompile(`\b(\d{5})\b`)
	spaceRegexp       = regexp.MustCompile(`\s+`)
)

// nominatimResult is the subset of a Nominatim search hit we read.
type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocoder resolves a free-text address to a coordinate. Implementations
// must be non-fatal: an unresolvable address returns ok=false, never an error
// that escapes into the extraction pipeline.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinate, bool)
}

// Nominatim geocodes addresses against the OpenStreetMap Nominatim service.
//
// Requests are serialized — at most one in flight — and spaced by a minimum
// inter-request delay, per the service's usage policy. Results (including
// misses) are cached by normalized address for the lifetime of the process.
type Nominatim struct {
	client  *resty.Client
	limiter *rate.Limiter
	logger  *utils.Logger
	email   string

	mu    sync.Mutex
	cache map[string]cachedCoord
}

type cachedCoord struct {
	coord Coordinate
	ok    bool
}

// NewNominatim creates a geocoder with the given base URL, caller
// identification, and minimum delay between requests.
func NewNominatim(baseURL, userAgent, email string, minDelay time.Duration, logger *utils.Logger) *Nominatim {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetTimeout(15 * time.Second)

	interval := rate.Inf
	if minDelay > 0 {
		interval = rate.Every(minDelay)
	}

	return &Nominatim{
		client:  client,
		limiter: rate.NewLimiter(interval, 1),
		logger:  logger,
		email:   email,
		cache:   make(map[string]cachedCoord),
	}
}

// Geocode resolves an address to a coordinate. On service error or no-match
// it returns ok=false; the caller emits the listing without a distance.
func (n *Nominatim) Geocode(ctx context.Context, address string) (Coordinate, bool) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Coordinate{}, false
	}

	key := normalizeAddress(address)

	// The mutex also serializes the external calls themselves: the rate
	// limiter spaces requests, the lock keeps at most one in flight.
	n.mu.Lock()
	defer n.mu.Unlock()

	if hit, ok := n.cache[key]; ok {
		return hit.coord, hit.ok
	}

	coord, ok := n.lookup(ctx, address)
	n.cache[key] = cachedCoord{coord: coord, ok: ok}
	return coord, ok
}

// lookup queries Nominatim for the address and a few cleaned variants,
// returning the first hit.
func (n *Nominatim) lookup(ctx context.Context, address string) (Coordinate, bool) {
	attempted := make(map[string]struct{})

	for _, variant := range addressVariants(address) {
		if variant == "" {
			continue
		}
		if _, dup := attempted[variant]; dup {
			continue
		}
		attempted[variant] = struct{}{}

		if err := n.limiter.Wait(ctx); err != nil {
			return Coordinate{}, false
		}

		params := map[string]string{
			"q":              variant,
			"format":         "jsonv2",
			"limit":          "1",
			"addressdetails": "1",
			"countrycodes":   "us",
		}
		if n.email != "" {
			params["email"] = n.email
		}

		var results []nominatimResult
		resp, err := n.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(&results).
			Get("")
		if err != nil {
			n.logger.Warn("[geocode] Request failed for %q: %v", variant, err)
			continue
		}
		if resp.IsError() {
			n.logger.Warn("[geocode] HTTP %d for %q", resp.StatusCode(), variant)
			continue
		}
		if len(results) == 0 {
			n.logger.Debug("[geocode] No match for %q", variant)
			continue
		}

		lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
		lon, errLon := strconv.ParseFloat(results[0].Lon, 64)
		if errLat != nil || errLon != nil {
			n.logger.Warn("[geocode] Unparseable coordinates for %q", variant)
			continue
		}

		n.logger.Info("[geocode] Resolved %q -> %.6f, %.6f", variant, lat, lon)
		return Coordinate{Lat: lat, Lon: lon}, true
	}

	n.logger.Warn("[geocode] Could not resolve address: %s", address)
	return Coordinate{}, false
}

// addressVariants yields the address followed by progressively cleaned
// fallbacks. House-number ranges collapse to their first endpoint, which is
// what listing pages usually mean by "3413-3433 Main St".
func addressVariants(addr string) []string {
	variants := []string{strings.TrimSpace(addr)}

	if first := rangePrefixRegexp.ReplaceAllString(addr, "$1$2"); first != addr {
		variants = append(variants, strings.TrimSpace(first))
	}
	if noRange := rangeAnyRegexp.ReplaceAllString(addr, "$1"); noRange != addr {
		variants = append(variants, strings.TrimSpace(noRange))
	}

	// Some pages put a building name before the first comma.
	if idx := strings.Index(addr, ","); idx >= 0 {
		if after := strings.TrimSpace(addr[idx+1:]); after != "" {
			variants = append(variants, after)
		}
	}

	if noParen := strings.TrimSpace(parenRegexp.ReplaceAllString(addr, "")); noParen != addr {
		variants = append(variants, noParen)
	}

	if zip := zipRegexp.FindString(addr); zip != "" {
		street := strings.TrimSpace(strings.SplitN(addr, ",", 2)[0])
		variants = append(variants, street+", "+zip)
	}

	return variants
}

func normalizeAddress(addr string) string {
	return spaceRegexp.ReplaceAllString(strings.ToLower(strings.TrimSpace(addr)), " ")
}
