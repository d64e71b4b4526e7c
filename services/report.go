package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"umn-housing-scraper/models"
	"umn-housing-scraper/utils"
)

// ReportService computes and prints summary statistics over the accumulated
// listing set at controller exit.
type ReportService struct {
	logger *utils.Logger
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

// Generate builds a SummaryReport from the given listings.
func (s *ReportService) Generate(listings []models.Listing) *models.SummaryReport {
	report := &models.SummaryReport{
		ListingsByBeds: make(map[string]int),
		ScrapedAt:      time.Now(),
	}
	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var rents []float64
	for _, l := range listings {
		if l.Lat != nil && l.Lon != nil {
			report.WithCoordinates++
		}
		if l.IsStudentBranded {
			report.StudentBranded++
		}
		if l.IsPerBed {
			report.PerBedPriced++
		}
		if l.IsSharedBedroom {
			report.SharedBedroom++
		}
		if l.RentMin != nil {
			rents = append(rents, *l.RentMin)
		}
		report.ListingsByBeds[bedsBucket(l.Beds)]++
	}

	if len(rents) > 0 {
		report.MinRent = rents[0]
		report.MaxRent = rents[0]
		var total float64
		for _, r := range rents {
			total += r
			if r < report.MinRent {
				report.MinRent = r
			}
			if r > report.MaxRent {
				report.MaxRent = r
			}
		}
		report.AverageRent = math.Round(total/float64(len(rents))*100) / 100
	}

	return report
}

// Print writes a human-readable summary to stdout.
func (s *ReportService) Print(r *models.SummaryReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n%s\n", sep)
	fmt.Printf("  UMN HOUSING SCRAPE SUMMARY\n")
	fmt.Printf("%s\n\n", sep)

	fmt.Printf("  Overview\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Total unique listings : %d\n", r.TotalListings)
	fmt.Printf("  With coordinates      : %d\n", r.WithCoordinates)
	fmt.Printf("  Student-branded       : %d\n", r.StudentBranded)
	fmt.Printf("  Per-bed priced        : %d\n", r.PerBedPriced)
	fmt.Printf("  Shared bedrooms       : %d\n", r.SharedBedroom)
	fmt.Println()

	fmt.Printf("  Rent Statistics (monthly, rent_min)\n")
	fmt.Printf("  %s\n", thin)
	if r.AverageRent > 0 {
		fmt.Printf("  Average rent : $%.2f\n", r.AverageRent)
		fmt.Printf("  Minimum rent : $%.2f\n", r.MinRent)
		fmt.Printf("  Maximum rent : $%.2f\n", r.MaxRent)
	} else {
		fmt.Printf("  No rent data available\n")
	}
	fmt.Println()

	fmt.Printf("  Listings by Bedroom Count\n")
	fmt.Printf("  %s\n", thin)
	buckets := make([]string, 0, len(r.ListingsByBeds))
	for b := range r.ListingsByBeds {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)
	for _, b := range buckets {
		fmt.Printf("  %-10s %d\n", b, r.ListingsByBeds[b])
	}

	fmt.Printf("\n%s\n\n", sep)
}

func bedsBucket(beds *float64) string {
	if beds == nil {
		return "unknown"
	}
	if *beds == 0 {
		return "studio"
	}
	return fmt.Sprintf("%gbr", *beds)
}
