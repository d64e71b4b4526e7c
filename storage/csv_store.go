package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"umn-housing-scraper/models"
)

// csvHeader is the full Listing schema in column order. Load and Write must
// agree on it exactly.
var csvHeader = []string{
	"listing_id", "building_name", "full_address", "street", "city", "state", "zip",
	"lat", "lon", "dist_to_campus_km",
	"unit_label", "beds", "baths", "sqft",
	"rent_raw", "rent_min", "rent_max", "price_type", "is_per_bed", "is_shared_bedroom",
	"year_built", "num_units", "building_type", "stories",
	"has_in_unit_laundry", "has_on_site_laundry", "has_dishwasher", "has_ac",
	"has_heat_included", "has_water_included", "has_internet_included", "is_furnished",
	"has_gym", "has_pool", "has_rooftop_or_clubroom", "has_parking_available",
	"has_garage", "pets_allowed", "is_student_branded",
	"scrape_date", "source_url",
}

// CSVStore persists listings to a CSV file with the full Listing schema.
// Rows are written sorted by listing_id, so flushing the same set twice
// produces byte-identical files.
type CSVStore struct {
	path string
}

// NewCSVStore creates a store writing to the given path. Intermediate
// directories are created automatically.
func NewCSVStore(path string) (*CSVStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &CSVStore{path: path}, nil
}

// Load reads the persisted listing set, keyed by listing_id. A missing file
// yields an empty set.
func (s *CSVStore) Load() (map[string]models.Listing, error) {
	listings := make(map[string]models.Listing)

	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return listings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: read %q: %w", s.path, err)
	}
	if len(rows) == 0 {
		return listings, nil
	}

	// Map header names to indexes so column reordering in old files
	// doesn't corrupt the load.
	idx := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		idx[name] = i
	}
	get := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	for _, row := range rows[1:] {
		id := get(row, "listing_id")
		if id == "" {
			continue
		}

		l := models.Listing{
			ListingID:    id,
			BuildingName: get(row, "building_name"),
			FullAddress:  get(row, "full_address"),
			Street:       get(row, "street"),
			City:         get(row, "city"),
			State:        get(row, "state"),
			Zip:          get(row, "zip"),

			Lat:            parseFloatPtr(get(row, "lat")),
			Lon:            parseFloatPtr(get(row, "lon")),
			DistToCampusKm: parseFloatPtr(get(row, "dist_to_campus_km")),

			UnitLabel: get(row, "unit_label"),
			Beds:      parseFloatPtr(get(row, "beds")),
			Baths:     parseFloatPtr(get(row, "baths")),
			Sqft:      parseIntPtr(get(row, "sqft")),

			RentRaw:         get(row, "rent_raw"),
			RentMin:         parseFloatPtr(get(row, "rent_min")),
			RentMax:         parseFloatPtr(get(row, "rent_max")),
			PriceType:       models.PriceType(get(row, "price_type")),
			IsPerBed:        parseBool(get(row, "is_per_bed")),
			IsSharedBedroom: parseBool(get(row, "is_shared_bedroom")),

			YearBuilt:    parseIntPtr(get(row, "year_built")),
			NumUnits:     parseIntPtr(get(row, "num_units")),
			BuildingType: get(row, "building_type"),
			Stories:      parseIntPtr(get(row, "stories")),

			Amenities: models.AmenitySet{
				HasInUnitLaundry:    parseBool(get(row, "has_in_unit_laundry")),
				HasOnSiteLaundry:    parseBool(get(row, "has_on_site_laundry")),
				HasDishwasher:       parseBool(get(row, "has_dishwasher")),
				HasAC:               parseBool(get(row, "has_ac")),
				HasHeatIncluded:     parseBool(get(row, "has_heat_included")),
				HasWaterIncluded:    parseBool(get(row, "has_water_included")),
				HasInternetIncluded: parseBool(get(row, "has_internet_included")),
				IsFurnished:         parseBool(get(row, "is_furnished")),
				HasGym:              parseBool(get(row, "has_gym")),
				HasPool:             parseBool(get(row, "has_pool")),
				HasRooftopOrClub:    parseBool(get(row, "has_rooftop_or_clubroom")),
				HasParking:          parseBool(get(row, "has_parking_available")),
				HasGarage:           parseBool(get(row, "has_garage")),
				PetsAllowed:         parseBool(get(row, "pets_allowed")),
			},
			IsStudentBranded: parseBool(get(row, "is_student_branded")),

			SourceURL: get(row, "source_url"),
		}
		if ts, err := time.Parse(time.RFC3339, get(row, "scrape_date")); err == nil {
			l.ScrapeDate = ts
		}

		listings[id] = l
	}

	return listings, nil
}

// Write persists the given listings, replacing the previous file contents.
func (s *CSVStore) Write(listings []models.Listing) error {
	sorted := make([]models.Listing, len(listings))
	copy(sorted, listings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ListingID < sorted[j].ListingID })

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for _, l := range sorted {
		row := []string{
			l.ListingID, l.BuildingName, l.FullAddress, l.Street, l.City, l.State, l.Zip,
			fmtFloatPtr(l.Lat), fmtFloatPtr(l.Lon), fmtFloatPtr(l.DistToCampusKm),
			l.UnitLabel, fmtFloatPtr(l.Beds), fmtFloatPtr(l.Baths), fmtIntPtr(l.Sqft),
			l.RentRaw, fmtFloatPtr(l.RentMin), fmtFloatPtr(l.RentMax), string(l.PriceType),
			fmtBool(l.IsPerBed), fmtBool(l.IsSharedBedroom),
			fmtIntPtr(l.YearBuilt), fmtIntPtr(l.NumUnits), l.BuildingType, fmtIntPtr(l.Stories),
			fmtBool(l.Amenities.HasInUnitLaundry), fmtBool(l.Amenities.HasOnSiteLaundry),
			fmtBool(l.Amenities.HasDishwasher), fmtBool(l.Amenities.HasAC),
			fmtBool(l.Amenities.HasHeatIncluded), fmtBool(l.Amenities.HasWaterIncluded),
			fmtBool(l.Amenities.HasInternetIncluded), fmtBool(l.Amenities.IsFurnished),
			fmtBool(l.Amenities.HasGym), fmtBool(l.Amenities.HasPool),
			fmtBool(l.Amenities.HasRooftopOrClub), fmtBool(l.Amenities.HasParking),
			fmtBool(l.Amenities.HasGarage), fmtBool(l.Amenities.PetsAllowed),
			fmtBool(l.IsStudentBranded),
			l.ScrapeDate.UTC().Format(time.RFC3339), l.SourceURL,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func fmtFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func fmtIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func fmtBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func parseFloatPtr(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseIntPtr(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// Older files may carry integers as "3.0".
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil
		}
		v = int(f)
	}
	return &v
}

func parseBool(s string) bool {
	switch s {
	case "true", "True", "1":
		return true
	}
	return false
}
