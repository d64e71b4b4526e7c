package services

import (
	"strings"

	"umn-housing-scraper/models"
)

// amenityRule binds one amenity flag to its trigger phrases. Rules are an
// ordered table so new phrases can be added without touching control flow.
// Keyword sets are kept disjoint so one phrase never sets unrelated flags —
// in particular, in-unit and on-site laundry must stay distinguishable.
type amenityRule struct {
	set      func(*models.AmenitySet)
	keywords []string
}

var amenityRules = []amenityRule{
	{func(a *models.AmenitySet) { a.HasInUnitLaundry = true },
		[]string{"in-unit laundry", "in unit laundry", "washer/dryer in unit", "in unit washer", "washer and dryer in unit"}},
	{func(a *models.AmenitySet) { a.HasOnSiteLaundry = true },
		[]string{"on-site laundry", "on site laundry", "laundry facilities", "laundry facility", "laundry room"}},
	{func(a *models.AmenitySet) { a.HasDishwasher = true },
		[]string{"dishwasher"}},
	{func(a *models.AmenitySet) { a.HasAC = true },
		[]string{"air conditioning", "central air", "a/c"}},
	{func(a *models.AmenitySet) { a.HasHeatIncluded = true },
		[]string{"heat included"}},
	{func(a *models.AmenitySet) { a.HasWaterIncluded = true },
		[]string{"water included"}},
	{func(a *models.AmenitySet) { a.HasInternetIncluded = true },
		[]string{"internet included", "wifi included", "wi-fi included"}},
	{func(a *models.AmenitySet) { a.IsFurnished = true },
		[]string{"furnished"}},
	{func(a *models.AmenitySet) { a.HasGym = true },
		[]string{"fitness center", "fitness centre", "gym"}},
	{func(a *models.AmenitySet) { a.HasPool = true },
		[]string{"pool"}},
	{func(a *models.AmenitySet) { a.HasRooftopOrClub = true },
		[]string{"rooftop", "clubhouse", "clubroom", "club room"}},
	{func(a *models.AmenitySet) { a.HasParking = true },
		[]string{"parking"}},
	{func(a *models.AmenitySet) { a.HasGarage = true },
		[]string{"garage"}},
	{func(a *models.AmenitySet) { a.PetsAllowed = true },
		[]string{"pet friendly", "pet-friendly", "pets allowed", "pets welcome"}},
}

// studentKeywords mark university-housing or student-living branding.
var studentKeywords = []string{
	"student housing", "student living", "off-campus housing",
	"student community", "by the bed", "individual lease",
	"per bedroom", "collegiate", "student apartments",
}

// ClassifyAmenities scans free-text description/amenity content for each
// amenity category. Every flag is computed independently; absence of
// evidence yields false, never missing.
func ClassifyAmenities(text string) models.AmenitySet {
	var set models.AmenitySet
	lower := strings.ToLower(text)
	for _, rule := range amenityRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				rule.set(&set)
				break
			}
		}
	}
	return set
}

// IsStudentBranded reports whether building name or marketing copy carries
// university-housing branding markers.
func IsStudentBranded(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range studentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
