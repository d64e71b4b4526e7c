package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"umn-housing-scraper/models"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func sampleListing(id string) models.Listing {
	return models.Listing{
		ListingID:    id,
		BuildingName: "The Archive",
		FullAddress:  "240 Oak St SE, Minneapolis, MN 55414",
		Street:       "240 Oak St SE",
		City:         "Minneapolis",
		State:        "MN",
		Zip:          "55414",

		Lat:            fptr(44.9756),
		Lon:            fptr(-93.2271),
		DistToCampusKm: fptr(0.74),

		UnitLabel: "A1",
		Beds:      fptr(1),
		Baths:     fptr(1),
		Sqft:      iptr(624),

		RentRaw:   "$1,399",
		RentMin:   fptr(1399),
		RentMax:   fptr(1399),
		PriceType: models.PricePerUnit,

		YearBuilt: iptr(2019),

		Amenities:        models.AmenitySet{HasInUnitLaundry: true, HasAC: true},
		IsStudentBranded: true,

		ScrapeDate: time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
		SourceURL:  "https://www.apartments.com/the-archive-minneapolis-mn/8z05mr1/",
	}
}

func TestCSVStoreRoundTrip(t *testing.T) {
	store, err := NewCSVStore(filepath.Join(t.TempDir(), "out", "combined.csv"))
	if err != nil {
		t.Fatalf("NewCSVStore: %v", err)
	}

	in := sampleListing("8z05mr1-a1")
	if err := store.Write([]models.Listing{in}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, ok := loaded["8z05mr1-a1"]
	if !ok {
		t.Fatalf("listing missing after round trip; loaded %d rows", len(loaded))
	}

	if got.BuildingName != in.BuildingName || got.Zip != in.Zip || got.UnitLabel != in.UnitLabel {
		t.Errorf("string fields corrupted: %+v", got)
	}
	if got.RentMin == nil || *got.RentMin != 1399 {
		t.Errorf("RentMin = %v; want 1399", got.RentMin)
	}
	if got.DistToCampusKm == nil || *got.DistToCampusKm != 0.74 {
		t.Errorf("DistToCampusKm = %v; want 0.74", got.DistToCampusKm)
	}
	if got.Sqft == nil || *got.Sqft != 624 {
		t.Errorf("Sqft = %v; want 624", got.Sqft)
	}
	if !got.Amenities.HasInUnitLaundry || !got.Amenities.HasAC || got.Amenities.HasPool {
		t.Errorf("amenities corrupted: %+v", got.Amenities)
	}
	if !got.IsStudentBranded {
		t.Error("IsStudentBranded lost")
	}
	if !got.ScrapeDate.Equal(in.ScrapeDate) {
		t.Errorf("ScrapeDate = %v; want %v", got.ScrapeDate, in.ScrapeDate)
	}
}

func TestCSVStoreMissingStaysMissing(t *testing.T) {
	store, err := NewCSVStore(filepath.Join(t.TempDir(), "combined.csv"))
	if err != nil {
		t.Fatalf("NewCSVStore: %v", err)
	}

	in := models.Listing{ListingID: "bare-1br", PriceType: models.PriceUnknown}
	if err := store.Write([]models.Listing{in}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := loaded["bare-1br"]

	if got.Lat != nil || got.Lon != nil || got.DistToCampusKm != nil {
		t.Error("missing coordinates must stay missing, not become zero")
	}
	if got.Beds != nil || got.Baths != nil || got.Sqft != nil {
		t.Error("missing unit fields must stay missing")
	}
	if got.RentMin != nil || got.RentMax != nil {
		t.Error("missing rent bounds must stay missing")
	}
}

func TestCSVStoreIdempotentRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combined.csv")
	store, err := NewCSVStore(path)
	if err != nil {
		t.Fatalf("NewCSVStore: %v", err)
	}

	// Write in one order, reload, write what was loaded in another order.
	listings := []models.Listing{sampleListing("c-1br"), sampleListing("a-1br"), sampleListing("b-1br")}
	if err := store.Write(listings); err != nil {
		t.Fatalf("Write: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	reordered := make([]models.Listing, 0, len(loaded))
	for _, id := range []string{"b-1br", "c-1br", "a-1br"} {
		reordered = append(reordered, loaded[id])
	}
	if err := store.Write(reordered); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(first) != string(second) {
		t.Error("rewriting the same set produced different bytes")
	}
}

func TestCSVStoreLoadMissingFile(t *testing.T) {
	store, err := NewCSVStore(filepath.Join(t.TempDir(), "never-written.csv"))
	if err != nil {
		t.Fatalf("NewCSVStore: %v", err)
	}
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty set, got %d rows", len(loaded))
	}
}
