package services

import (
	"regexp"
	"strconv"
	"strings"

	"umn-housing-scraper/models"
)

var (
	// priceNumberRegexp captures dollar amounts with optional thousands
	// separators ("$1,200", "950.50").
	priceNumberRegexp = regexp.MustCompile(`\$?\s*(\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?)`)
	digitRegexp       = regexp.MustCompile(`\d`)
	fromRegexp        = regexp.MustCompile(`\b(?:from|starting\s+at)\b`)
	rangeSepRegexp    = regexp.MustCompile(`\d\s*(?:-|–|to)\s*\$?\s*\d`)

	perBedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`per\s+bed(?:room)?`),
		regexp.MustCompile(`by\s+the\s+bed`),
		regexp.MustCompile(`/\s*bed(?:room)?`),
		regexp.MustCompile(`per\s+person`),
		regexp.MustCompile(`individual\s+lease`),
		regexp.MustCompile(`bedroom\s+lease`),
	}

	sharedBedroomPatterns = []*regexp.Regexp{
		regexp.MustCompile(`shared\s+(?:bed)?room`),
		regexp.MustCompile(`double\s+occupancy`),
		regexp.MustCompile(`2x\s+occupancy`),
		regexp.MustCompile(`roommate\s+matching`),
		regexp.MustCompile(`\d+\s+beds?\s+per\s+room`),
	}
)

// PriceInfo is the classification of one raw price string.
type PriceInfo struct {
	RentMin         *float64
	RentMax         *float64
	PriceType       models.PriceType
	IsPerBed        bool
	IsSharedBedroom bool
}

// ClassifyPrice parses a raw price string into a price kind and numeric
// bounds. unitText is the surrounding unit/marketing text, consulted only
// for per-bed and shared-bedroom markers. The function never fails:
// unparseable input degrades to PriceUnknown with both bounds missing.
func ClassifyPrice(priceText, unitText string) PriceInfo {
	info := PriceInfo{PriceType: models.PriceUnknown}

	combined := strings.ToLower(priceText + " " + unitText)

	for _, p := range perBedPatterns {
		if p.MatchString(combined) {
			info.IsPerBed = true
			break
		}
	}
	for _, p := range sharedBedroomPatterns {
		if p.MatchString(combined) {
			info.IsSharedBedroom = true
			break
		}
	}

	if !digitRegexp.MatchString(priceText) {
		if info.IsPerBed {
			info.PriceType = models.PricePerBed
		}
		return info
	}

	numbers := extractAmounts(priceText)
	if len(numbers) == 0 {
		if info.IsPerBed {
			info.PriceType = models.PricePerBed
		}
		return info
	}

	lower := strings.ToLower(priceText)
	switch {
	case fromRegexp.MatchString(lower):
		info.RentMin = &numbers[0]
		info.RentMax = &numbers[0]
		info.PriceType = models.PriceFrom
	case len(numbers) == 2 && rangeSepRegexp.MatchString(priceText):
		lo, hi := numbers[0], numbers[1]
		if lo > hi {
			lo, hi = hi, lo
		}
		info.RentMin = &lo
		info.RentMax = &hi
		info.PriceType = models.PriceRange
	case len(numbers) == 1:
		info.RentMin = &numbers[0]
		info.RentMax = &numbers[0]
		info.PriceType = models.PricePerUnit
	default:
		lo, hi := numbers[0], numbers[0]
		for _, v := range numbers[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		info.RentMin = &lo
		info.RentMax = &hi
		info.PriceType = models.PriceRange
	}

	// The per-bed marker overrides the quote kind, but the numeric
	// extraction above still stands.
	if info.IsPerBed {
		info.PriceType = models.PricePerBed
	}

	return info
}

// extractAmounts pulls the dollar amounts out of a price string, stripping
// currency symbols and thousands separators. Tokens that fail to parse are
// skipped rather than raising.
func extractAmounts(text string) []float64 {
	matches := priceNumberRegexp.FindAllStringSubmatch(text, -1)
	amounts := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		amounts = append(amounts, v)
	}
	return amounts
}
