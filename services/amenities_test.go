package services

import "testing"

func TestClassifyAmenitiesLaundryDisjoint(t *testing.T) {
	tests := []struct {
		text       string
		wantInUnit bool
		wantOnSite bool
	}{
		{"washer/dryer in unit, dishwasher", true, false},
		{"laundry room on first floor", false, true},
		{"in-unit laundry plus laundry facilities in the tower", true, true},
		{"hardwood floors throughout", false, false},
	}

	for _, tt := range tests {
		got := ClassifyAmenities(tt.text)
		if got.HasInUnitLaundry != tt.wantInUnit {
			t.Errorf("ClassifyAmenities(%q).HasInUnitLaundry = %v; want %v",
				tt.text, got.HasInUnitLaundry, tt.wantInUnit)
		}
		if got.HasOnSiteLaundry != tt.wantOnSite {
			t.Errorf("ClassifyAmenities(%q).HasOnSiteLaundry = %v; want %v",
				tt.text, got.HasOnSiteLaundry, tt.wantOnSite)
		}
	}
}

func TestClassifyAmenitiesIndependentFlags(t *testing.T) {
	got := ClassifyAmenities("Dishwasher in every kitchen")
	if !got.HasDishwasher {
		t.Error("expected HasDishwasher set")
	}
	if got.HasAC || got.HasGym || got.HasPool || got.PetsAllowed {
		t.Errorf("unrelated flags set for dishwasher-only text: %+v", got)
	}
}

func TestClassifyAmenitiesFullSet(t *testing.T) {
	text := "Central air, heat included, water included, wifi included, " +
		"furnished units, fitness center, pool, rooftop lounge, " +
		"garage parking, pet friendly"
	got := ClassifyAmenities(text)

	if !got.HasAC || !got.HasHeatIncluded || !got.HasWaterIncluded ||
		!got.HasInternetIncluded || !got.IsFurnished || !got.HasGym ||
		!got.HasPool || !got.HasRooftopOrClub || !got.HasParking ||
		!got.HasGarage || !got.PetsAllowed {
		t.Errorf("expected all mentioned amenities set, got %+v", got)
	}
}

func TestIsStudentBranded(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Premier student housing steps from campus", true},
		{"Individual lease options for every resident", true},
		{"Rent by the bed at The Quad", true},
		{"Luxury downtown living for professionals", false},
	}

	for _, tt := range tests {
		if got := IsStudentBranded(tt.text); got != tt.want {
			t.Errorf("IsStudentBranded(%q) = %v; want %v", tt.text, got, tt.want)
		}
	}
}
