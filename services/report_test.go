package services

import (
	"testing"

	"umn-housing-scraper/models"
)

func TestReportGenerate(t *testing.T) {
	svc := NewReportService(newTestLogger())

	lat, lon := 44.98, -93.24
	beds1, beds2 := 1.0, 2.0
	r1, r2, r3 := 900.0, 1200.0, 1500.0

	listings := []models.Listing{
		{ListingID: "a-1br", Lat: &lat, Lon: &lon, Beds: &beds1, RentMin: &r1, IsStudentBranded: true, IsPerBed: true},
		{ListingID: "b-2br", Lat: &lat, Lon: &lon, Beds: &beds2, RentMin: &r2},
		{ListingID: "c-2br", Beds: &beds2, RentMin: &r3, IsSharedBedroom: true},
		{ListingID: "d-0br"},
	}

	got := svc.Generate(listings)

	if got.TotalListings != 4 {
		t.Errorf("TotalListings = %d; want 4", got.TotalListings)
	}
	if got.WithCoordinates != 2 {
		t.Errorf("WithCoordinates = %d; want 2", got.WithCoordinates)
	}
	if got.StudentBranded != 1 || got.PerBedPriced != 1 || got.SharedBedroom != 1 {
		t.Errorf("flags: student=%d perBed=%d shared=%d; want 1/1/1",
			got.StudentBranded, got.PerBedPriced, got.SharedBedroom)
	}
	if got.MinRent != 900 || got.MaxRent != 1500 {
		t.Errorf("rent bounds = %.0f/%.0f; want 900/1500", got.MinRent, got.MaxRent)
	}
	if got.AverageRent != 1200 {
		t.Errorf("AverageRent = %.2f; want 1200", got.AverageRent)
	}
	if got.ListingsByBeds["1br"] != 1 || got.ListingsByBeds["2br"] != 2 || got.ListingsByBeds["unknown"] != 1 {
		t.Errorf("ListingsByBeds = %v", got.ListingsByBeds)
	}
}

func TestReportGenerateEmpty(t *testing.T) {
	svc := NewReportService(newTestLogger())
	got := svc.Generate(nil)
	if got.TotalListings != 0 || got.AverageRent != 0 {
		t.Errorf("empty report not zeroed: %+v", got)
	}
}

func TestBedsBucket(t *testing.T) {
	zero, one, threeFive := 0.0, 1.0, 3.5
	tests := []struct {
		beds *float64
		want string
	}{
		{nil, "unknown"},
		{&zero, "studio"},
		{&one, "1br"},
		{&threeFive, "3.5br"},
	}
	for _, tt := range tests {
		if got := bedsBucket(tt.beds); got != tt.want {
			t.Errorf("bedsBucket(%v) = %q; want %q", tt.beds, got, tt.want)
		}
	}
}
