package services

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"umn-housing-scraper/geo"
	"umn-housing-scraper/models"
	"umn-housing-scraper/utils"
)

var (
	bedsRegexp    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:bed|br)`)
	bathsRegexp   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:bath|ba)`)
	sqftRegexp    = regexp.MustCompile(`(\d{1,3}(?:,\d{3})*)\s*(?:sq\.?\s*ft|sqft|sf)`)
	yearRegexp    = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	intRegexp     = regexp.MustCompile(`\d+`)
	zipCodeRegexp = regexp.MustCompile(`\b(\d{5})\b`)
	stateRegexp   = regexp.MustCompile(`\b([A-Z]{2})\b`)
	slugRegexp    = regexp.MustCompile(`[^a-z0-9]+`)
)

// Builder composes raw page extractions into normalized Listings, invoking
// the price and amenity classifiers and enriching with geocoded distance.
type Builder struct {
	geocoder geo.Geocoder
	logger   *utils.Logger
}

// NewBuilder creates a Builder using the given geocoder for location
// enrichment.
func NewBuilder(geocoder geo.Geocoder, logger *utils.Logger) *Builder {
	return &Builder{geocoder: geocoder, logger: logger}
}

// Build turns one raw building extraction into up to two normalized
// Listings — preferring one 1-bed and one 2-bed unit when available, and
// falling back to whatever priced units exist. Parse failures degrade to
// missing fields; Build itself never fails.
func (b *Builder) Build(ctx context.Context, raw *models.RawBuilding) []models.Listing {
	if raw == nil {
		return nil
	}

	amenities := ClassifyAmenities(raw.PageText)
	studentBranded := IsStudentBranded(raw.Name + " " + raw.PageText)

	street, city, state, zip := parseAddress(raw.AddressText)

	lat, lon := raw.Lat, raw.Lon
	if (lat == nil || lon == nil) && raw.AddressText != "" {
		if coord, ok := b.geocoder.Geocode(ctx, raw.AddressText); ok {
			lat, lon = &coord.Lat, &coord.Lon
		} else {
			b.logger.Warn("[builder] Listing retained without coordinates: %s", raw.AddressText)
		}
	}

	var dist *float64
	if lat != nil && lon != nil {
		d := round2(geo.DistToCampusKm(*lat, *lon))
		dist = &d
	}

	buildingID := BuildingIdentity(raw)
	now := time.Now()

	var listings []models.Listing
	for _, unit := range sampleUnits(raw.Units) {
		price := ClassifyPrice(unit.PriceText, unit.Label+" "+raw.PageText)

		l := models.Listing{
			ListingID: listingID(buildingID, unit),

			BuildingName: strings.TrimSpace(raw.Name),
			FullAddress:  strings.TrimSpace(raw.AddressText),
			Street:       street,
			City:         city,
			State:        state,
			Zip:          zip,

			Lat:            lat,
			Lon:            lon,
			DistToCampusKm: dist,

			UnitLabel: strings.TrimSpace(unit.Label),
			Beds:      parseBeds(unit.BedsText + " " + unit.Label),
			Baths:     parseBaths(unit.BathsText + " " + unit.Label),
			Sqft:      parseSqft(unit.SqftText + " " + unit.Label),

			RentRaw:         strings.TrimSpace(unit.PriceText),
			RentMin:         price.RentMin,
			RentMax:         price.RentMax,
			PriceType:       price.PriceType,
			IsPerBed:        price.IsPerBed,
			IsSharedBedroom: price.IsSharedBedroom,

			YearBuilt:    parseYear(raw.YearBuiltText),
			NumUnits:     parseInt(raw.NumUnitsText),
			BuildingType: strings.TrimSpace(raw.BuildingType),
			Stories:      parseInt(raw.StoriesText),

			Amenities:        amenities,
			IsStudentBranded: studentBranded,

			ScrapeDate: now,
			SourceURL:  raw.SourceURL,
		}
		listings = append(listings, l)
	}

	return listings
}

// BuildingIdentity derives the stable cross-session key for a building from
// its canonical source URL, falling back to the normalized address.
func BuildingIdentity(raw *models.RawBuilding) string {
	if slug := urlSlug(raw.SourceURL); slug != "" {
		return slug
	}
	return slugify(raw.AddressText)
}

// listingID combines the building identity with the unit label (or bed
// count) so re-scraping the same unit yields the same id. Price changes do
// not change identity.
func listingID(buildingID string, unit models.RawUnit) string {
	key := slugify(unit.Label)
	if key == "" {
		if beds := parseBeds(unit.BedsText); beds != nil {
			key = fmt.Sprintf("%gbed", *beds)
		} else {
			key = "0bed"
		}
	}
	return buildingID + "-" + key
}

// sampleUnits selects up to two units per building: the largest 1-bed and
// the largest 2-bed when present, topped up from the remaining priced units.
func sampleUnits(units []models.RawUnit) []models.RawUnit {
	if len(units) == 0 {
		return nil
	}

	priced := make([]models.RawUnit, 0, len(units))
	for _, u := range units {
		if strings.TrimSpace(u.PriceText) == "" {
			continue
		}
		if strings.Contains(strings.ToLower(u.PriceText), "call") {
			continue
		}
		priced = append(priced, u)
	}
	if len(priced) == 0 {
		return nil
	}

	largestByBeds := func(target float64) (models.RawUnit, bool) {
		var best models.RawUnit
		bestSqft := -1
		found := false
		for _, u := range priced {
			beds := parseBeds(u.BedsText + " " + u.Label)
			if beds == nil || *beds != target {
				continue
			}
			sqft := 0
			if s := parseSqft(u.SqftText + " " + u.Label); s != nil {
				sqft = *s
			}
			if !found || sqft > bestSqft {
				best, bestSqft, found = u, sqft, true
			}
		}
		return best, found
	}

	var selected []models.RawUnit
	if u, ok := largestByBeds(1); ok {
		selected = append(selected, u)
	}
	if u, ok := largestByBeds(2); ok {
		selected = append(selected, u)
	}

	if len(selected) < 2 {
		remaining := make([]models.RawUnit, 0, len(priced))
		for _, u := range priced {
			if !containsUnit(selected, u) {
				remaining = append(remaining, u)
			}
		}
		sort.SliceStable(remaining, func(i, j int) bool {
			bi, bj := parseBeds(remaining[i].BedsText+" "+remaining[i].Label),
				parseBeds(remaining[j].BedsText+" "+remaining[j].Label)
			return derefOr(bi, math.MaxFloat64) < derefOr(bj, math.MaxFloat64)
		})
		for _, u := range remaining {
			selected = append(selected, u)
			if len(selected) >= 2 {
				break
			}
		}
	}

	if len(selected) > 2 {
		selected = selected[:2]
	}
	return selected
}

func containsUnit(units []models.RawUnit, u models.RawUnit) bool {
	for _, s := range units {
		if s == u {
			return true
		}
	}
	return false
}

// parseBeds extracts a bedroom count; "studio" counts as zero bedrooms.
func parseBeds(text string) *float64 {
	lower := strings.ToLower(text)
	if m := bedsRegexp.FindStringSubmatch(lower); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return &v
		}
	}
	if strings.Contains(lower, "studio") {
		v := 0.0
		return &v
	}
	return nil
}

func parseBaths(text string) *float64 {
	if m := bathsRegexp.FindStringSubmatch(strings.ToLower(text)); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return &v
		}
	}
	return nil
}

func parseSqft(text string) *int {
	if m := sqftRegexp.FindStringSubmatch(strings.ToLower(text)); m != nil {
		v, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err == nil {
			return &v
		}
	}
	return nil
}

func parseYear(text string) *int {
	if m := yearRegexp.FindStringSubmatch(text); m != nil {
		v, err := strconv.Atoi(m[1])
		if err == nil {
			return &v
		}
	}
	return nil
}

func parseInt(text string) *int {
	if m := intRegexp.FindString(strings.ReplaceAll(text, ",", "")); m != "" {
		v, err := strconv.Atoi(m)
		if err == nil {
			return &v
		}
	}
	return nil
}

// parseAddress splits "street, city, ST zip" text into its components.
func parseAddress(text string) (street, city, state, zip string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if m := zipCodeRegexp.FindStringSubmatch(text); m != nil {
		zip = m[1]
	}
	segments := strings.Split(text, ",")
	if len(segments) >= 1 {
		street = strings.TrimSpace(segments[0])
	}
	if len(segments) >= 2 {
		city = strings.TrimSpace(segments[1])
	}
	if len(segments) >= 3 {
		if m := stateRegexp.FindStringSubmatch(segments[2]); m != nil {
			state = m[1]
		}
	}
	return
}

// urlSlug returns the last non-empty path segment of a building URL.
func urlSlug(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return strings.ToLower(parts[i])
		}
	}
	return ""
}

func slugify(text string) string {
	s := slugRegexp.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), "-")
	return strings.Trim(s, "-")
}

func derefOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
