package models

import "time"

// PriceType classifies how rent is quoted on a listing.
type PriceType string

const (
	PricePerUnit PriceType = "per_unit"
	PricePerBed  PriceType = "per_bed"
	PriceRange   PriceType = "range"
	PriceFrom    PriceType = "from_price"
	PriceUnknown PriceType = "unknown"
)

// RawUnit is one floorplan/unit block as extracted from a building page.
// Fields hold raw text; anything the page didn't show arrives empty.
type RawUnit struct {
	Label     string
	BedsText  string
	BathsText string
	SqftText  string
	PriceText string
}

// RawBuilding is the unprocessed extraction for one building, handed over
// by the page-rendering layer before any normalization.
type RawBuilding struct {
	SourceURL   string
	Name        string
	AddressText string

	// PageText is the full visible page text, used for amenity and
	// student-branding classification.
	PageText string

	YearBuiltText string
	NumUnitsText  string
	StoriesText   string
	BuildingType  string

	// Lat/Lon are set when the page itself exposes coordinates
	// (JSON-LD or map attributes), sparing a geocoding call.
	Lat *float64
	Lon *float64

	Units []RawUnit
}

// AmenitySet holds one boolean per amenity category. Absence of evidence
// is recorded as false, never as missing.
type AmenitySet struct {
	HasInUnitLaundry    bool
	HasOnSiteLaundry    bool
	HasDishwasher       bool
	HasAC               bool
	HasHeatIncluded     bool
	HasWaterIncluded    bool
	HasInternetIncluded bool
	IsFurnished         bool
	HasGym              bool
	HasPool             bool
	HasRooftopOrClub    bool
	HasParking          bool
	HasGarage           bool
	PetsAllowed         bool
}

// Listing is one normalized unit observation tied to a building. Numeric
// fields are nil when the source page omitted them — never zero-defaulted.
// A Listing is immutable once registered with the accumulator; corrections
// require a superseding record, not an edit.
type Listing struct {
	ListingID string

	BuildingName string
	FullAddress  string
	Street       string
	City         string
	State        string
	Zip          string

	Lat            *float64
	Lon            *float64
	DistToCampusKm *float64

	UnitLabel string
	Beds      *float64
	Baths     *float64
	Sqft      *int

	RentRaw         string
	RentMin         *float64
	RentMax         *float64
	PriceType       PriceType
	IsPerBed        bool
	IsSharedBedroom bool

	YearBuilt    *int
	NumUnits     *int
	BuildingType string
	Stories      *int

	Amenities        AmenitySet
	IsStudentBranded bool

	ScrapeDate time.Time
	SourceURL  string
}

// WithinRadius reports whether the listing resolved to coordinates inside
// the campus search radius. Listings without a distance never pass.
func (l *Listing) WithinRadius(radiusKm float64) bool {
	return l.DistToCampusKm != nil && *l.DistToCampusKm <= radiusKm
}

// SummaryReport holds the computed statistics over the accumulated dataset,
// printed at controller exit.
type SummaryReport struct {
	TotalListings    int
	WithCoordinates  int
	StudentBranded   int
	PerBedPriced     int
	SharedBedroom    int
	AverageRent      float64
	MinRent          float64
	MaxRent          float64
	ListingsByBeds   map[string]int
	ScrapedAt        time.Time
}
