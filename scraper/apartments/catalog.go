package apartments

// Search slug catalog. Only URL formats verified to resolve on
// apartments.com are listed: city searches, ZIP searches, bedroom and
// price-band filters, property types and special categories. Neighborhood
// slugs on their own redirect or 404, so they are not used.

// Primary searches: the main city pages plus ZIP codes ordered roughly by
// distance to campus.
var primarySearches = []string{
	"minneapolis-mn",

	"minneapolis-mn-55414", // Dinkytown/Stadium Village
	"minneapolis-mn-55455", // campus
	"minneapolis-mn-55413", // Northeast
	"minneapolis-mn-55401", // Downtown
	"minneapolis-mn-55454", // West Bank/Cedar-Riverside
	"minneapolis-mn-55404", // Phillips/Seward
	"minneapolis-mn-55403", // Loring Park/Lowry Hill
	"minneapolis-mn-55406", // Longfellow
	"minneapolis-mn-55408", // Uptown
	"minneapolis-mn-55407", // Powderhorn

	"saint-paul-mn-55104", // Hamline-Midway
	"saint-paul-mn-55108", // Como

	"saint-paul-mn",
}

// Bedroom-count filter searches surface different buildings first.
var bedroomSearches = []string{
	"studios-minneapolis-mn",
	"1-bedrooms-minneapolis-mn",
	"2-bedrooms-minneapolis-mn",
	"3-bedrooms-minneapolis-mn",
	"4-bedrooms-minneapolis-mn",
}

// Price-band searches reorder results, exposing buildings that never make
// the first pages of the main city search.
var priceBandSearches = []string{
	"under-1000-minneapolis-mn",
	"under-1500-minneapolis-mn",
	"under-2000-minneapolis-mn",
	"1000-to-1500-minneapolis-mn",
	"1500-to-2000-minneapolis-mn",
	"over-2000-minneapolis-mn",
}

var propertyTypeSearches = []string{
	"condos-for-rent/minneapolis-mn",
	"townhomes-for-rent/minneapolis-mn",
	"houses-for-rent/minneapolis-mn",
}

var specialCategorySearches = []string{
	"pet-friendly-apartments/minneapolis-mn",
	"furnished-apartments/minneapolis-mn",
	"luxury-apartments/minneapolis-mn",
	"cheap-apartments/minneapolis-mn",
	"student-housing/minneapolis-mn",

	"pet-friendly-apartments/saint-paul-mn",
	"student-housing/saint-paul-mn",
}

// Catalog returns the full ordered list of search location slugs the
// controller rotates through across sessions.
func Catalog() []string {
	var slugs []string
	slugs = append(slugs, primarySearches...)
	slugs = append(slugs, bedroomSearches...)
	slugs = append(slugs, priceBandSearches...)
	slugs = append(slugs, propertyTypeSearches...)
	slugs = append(slugs, specialCategorySearches...)
	return slugs
}
