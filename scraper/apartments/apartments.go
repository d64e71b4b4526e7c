package apartments

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"umn-housing-scraper/config"
	"umn-housing-scraper/models"
	"umn-housing-scraper/session"
	"umn-housing-scraper/utils"
)

const (
	baseURL  = "https://www.apartments.com"
	platform = "apartments"
)

// Source renders apartments.com pages in a headless browser and hands raw
// extractions to the pipeline. It implements session.Source.
type Source struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig

	browserOnce sync.Once
	allocCtx    context.Context
	cancels     []context.CancelFunc
}

// New creates an apartments.com Source. The browser starts lazily on the
// first page request.
func New(cfg *config.Config, logger *utils.Logger) *Source {
	return &Source{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Close shuts down the headless browser if it was started.
func (s *Source) Close() {
	for i := len(s.cancels) - 1; i >= 0; i-- {
		s.cancels[i]()
	}
	s.cancels = nil
}

// browser returns the shared exec-allocator context, starting Chrome on
// first use.
func (s *Source) browser() context.Context {
	s.browserOnce.Do(func() {
		chromeBin := s.cfg.ChromeBin
		if chromeBin == "" {
			chromeBin = findChromeBinary()
		}
		s.logger.Info("[%s] Using browser binary: %s", platform, chromeBin)

		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", s.cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
			chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
				"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		)
		if chromeBin != "" {
			opts = append(opts, chromedp.ExecPath(chromeBin))
		}

		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
		s.cancels = append(s.cancels, cancelAlloc)

		// Suppress chromedp log noise
		silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
		s.cancels = append(s.cancels, cancelSilent)

		s.allocCtx = silentCtx
	})
	return s.allocCtx
}

// DiscoverBuildings walks the search result pages for one location slug and
// collects building detail URLs. It returns session.ErrBlocked when the site
// serves a challenge page instead of results.
func (s *Source) DiscoverBuildings(ctx context.Context, location string, maxPages int) ([]string, error) {
	allocCtx := s.browser()

	searchURL := fmt.Sprintf("%s/%s/", baseURL, location)
	s.logger.Info("[%s] Discovering buildings — start URL: %s", platform, searchURL)

	seen := make(map[string]struct{})
	var ordered []string

	currentURL := searchURL
	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		if ctx.Err() != nil {
			return ordered, ctx.Err()
		}

		links, nextURL, err := s.scrapeSearchPage(ctx, allocCtx, currentURL, page)
		if err != nil {
			if len(ordered) > 0 {
				s.logger.Warn("[%s] Page %d failed, keeping %d discovered buildings: %v",
					platform, page, len(ordered), err)
				return ordered, nil
			}
			return nil, err
		}

		added := 0
		for _, href := range links {
			u, ok := normalizeBuildingURL(href)
			if !ok {
				continue
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			ordered = append(ordered, u)
			added++
		}

		s.logger.Info("[%s] Page %d — %d new buildings (%d total)", platform, page, added, len(ordered))

		if nextURL == "" || added == 0 {
			break
		}
		currentURL = nextURL
	}

	return ordered, nil
}

// scrapeSearchPage loads one search results page and extracts property links
// plus the next-page URL.
func (s *Source) scrapeSearchPage(ctx, allocCtx context.Context, pageURL string, pageNum int) ([]string, string, error) {
	var links []string
	var nextURL string

	err := s.retry.Do(fmt.Sprintf("search-page-%d", pageNum), func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		tabCtx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 90*time.Second)
		defer cancelTimeout()

		type pageData struct {
			Links    []string `json:"links"`
			NextURL  string   `json:"nextUrl"`
			BodyText string   `json:"bodyText"`
			Cards    int      `json:"cards"`
		}
		var data pageData

		err := chromedp.Run(tabCtx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(5*time.Second),

			// Scroll to trigger lazy-loaded placards
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
			chromedp.Sleep(2*time.Second),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(2*time.Second),

			chromedp.Evaluate(`
				(function() {
					var links = [];
					var linkSelectors = [
						'article.placard a.property-link',
						'a.property-link',
						'.property-title a',
						'a[data-listingid]'
					];
					var anchors = [];
					for (var si = 0; si < linkSelectors.length; si++) {
						anchors = document.querySelectorAll(linkSelectors[si]);
						if (anchors.length > 0) break;
					}
					var seen = {};
					for (var i = 0; i < anchors.length; i++) {
						var href = anchors[i].href;
						if (!href || seen[href]) continue;
						seen[href] = true;
						links.push(href);
					}

					var nextUrl = '';
					var nextEl = document.querySelector('a.next') ||
					             document.querySelector('a[rel="next"]');
					if (nextEl && nextEl.href) nextUrl = nextEl.href;

					var cards = document.querySelectorAll('article.placard, .placard').length;
					var body = document.body ? document.body.innerText : '';

					return {
						links: links,
						nextUrl: nextUrl,
						bodyText: body.substring(0, 2000),
						cards: cards
					};
				})()
			`, &data),
		)
		if err != nil {
			return fmt.Errorf("chromedp search page: %w", err)
		}

		if blockedPage(data.BodyText, data.Cards > 0) {
			return session.ErrBlocked
		}

		links = data.Links
		nextURL = data.NextURL
		return nil
	})

	return links, nextURL, err
}

// FetchBuilding loads a building detail page and extracts the raw building
// record: name, address, page-provided coordinates, full page text and the
// floorplan rows.
func (s *Source) FetchBuilding(ctx context.Context, url string) (*models.RawBuilding, error) {
	allocCtx := s.browser()

	raw := &models.RawBuilding{SourceURL: url}

	err := s.retry.Do("building-page", func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		tabCtx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 60*time.Second)
		defer cancelTimeout()

		type unitRow struct {
			Label     string `json:"label"`
			BedsText  string `json:"bedsText"`
			BathsText string `json:"bathsText"`
			SqftText  string `json:"sqftText"`
			PriceText string `json:"priceText"`
		}
		type buildingData struct {
			Name         string    `json:"name"`
			Address      string    `json:"address"`
			LatText      string    `json:"latText"`
			LonText      string    `json:"lonText"`
			YearBuilt    string    `json:"yearBuilt"`
			NumUnits     string    `json:"numUnits"`
			Stories      string    `json:"stories"`
			BuildingType string    `json:"buildingType"`
			PageText     string    `json:"pageText"`
			Units        []unitRow `json:"units"`
			Cards        int       `json:"cards"`
		}
		var data buildingData

		err := chromedp.Run(tabCtx,
			chromedp.Navigate(url),
			chromedp.Sleep(4*time.Second),

			chromedp.Evaluate(`
				(function() {
					var result = {
						name: '', address: '', latText: '', lonText: '',
						yearBuilt: '', numUnits: '', stories: '',
						buildingType: '', pageText: '', units: [], cards: 0
					};

					// Name
					var nameEl = document.querySelector('h1.propertyName') ||
					             document.querySelector('h1.property-title') ||
					             document.querySelector('h1');
					if (nameEl) result.name = nameEl.innerText.trim();

					// Address
					var addrSelectors = [
						'.propertyAddressContainer', '.propertyAddress',
						'.property-address', '[itemprop="address"]', 'address'
					];
					for (var ai = 0; ai < addrSelectors.length; ai++) {
						var addrEl = document.querySelector(addrSelectors[ai]);
						if (addrEl) {
							var addr = addrEl.innerText.replace(/\s+/g, ' ').trim();
							if (addr.length > 5) { result.address = addr; break; }
						}
					}

					// JSON-LD: address and page-provided coordinates
					var scripts = document.querySelectorAll('script[type="application/ld+json"]');
					for (var si = 0; si < scripts.length; si++) {
						try {
							var parsed = JSON.parse(scripts[si].innerText);
							var items = Array.isArray(parsed) ? parsed : [parsed];
							for (var ii = 0; ii < items.length; ii++) {
								var item = items[ii];
								if (!item || typeof item !== 'object') continue;
								var addr2 = item.address;
								if (addr2 && typeof addr2 === 'object' && !result.address) {
									var street = addr2.streetAddress || '';
									var city = addr2.addressLocality || '';
									var state = addr2.addressRegion || '';
									var zip = addr2.postalCode || '';
									if (street && city) {
										result.address = (street + ', ' + city + ', ' + state + ' ' + zip).trim();
									}
								}
								var geo = item.geo || item.location;
								if (geo && typeof geo === 'object' && geo.latitude && geo.longitude) {
									result.latText = String(geo.latitude);
									result.lonText = String(geo.longitude);
								}
							}
						} catch (e) {}
						if (result.latText && result.address) break;
					}

					// Map element coordinate fallback
					if (!result.latText) {
						var mapEl = document.querySelector('#map, [data-latitude]');
						if (mapEl) {
							var la = mapEl.getAttribute('data-latitude');
							var lo = mapEl.getAttribute('data-longitude');
							if (la && lo) { result.latText = la; result.lonText = lo; }
						}
					}

					var body = document.body ? document.body.innerText : '';
					result.pageText = body;

					// Facts usually only appear in prose
					var yearMatch = body.match(/built\s+in\s+(\d{4})/i);
					if (yearMatch) result.yearBuilt = yearMatch[1];
					var unitsMatch = body.match(/(\d+)\s+units/i);
					if (unitsMatch) result.numUnits = unitsMatch[1];
					var storiesMatch = body.match(/(\d+)\s+stor(?:y|ies)/i);
					if (storiesMatch) result.stories = storiesMatch[1];

					// Floorplan rows
					var rowSelectors = [
						'tr.rentalGridRow', '.pricingGridItem', '.pricing-item',
						'article.pricingItem', '.floorplan-row', '[data-tid="floorplan"]'
					];
					var rows = [];
					for (var ri = 0; ri < rowSelectors.length; ri++) {
						rows = document.querySelectorAll(rowSelectors[ri]);
						if (rows.length > 0) break;
					}
					result.cards = rows.length;

					for (var i = 0; i < rows.length; i++) {
						var text = rows[i].innerText;
						var labelEl = rows[i].querySelector('.modelName, .planName, [class*="modelName"]');
						var label = labelEl ? labelEl.innerText.trim() : '';

						var bedsMatch = text.match(/(studio|\d+(?:\.\d+)?\s*(?:bed|br|bd))/i);
						var bathsMatch = text.match(/(\d+(?:\.\d+)?)\s*(?:bath|ba)/i);
						var sqftMatch = text.match(/([\d,]+)\s*(?:sq\.?\s*ft|square feet)/i);
						var priceMatch = text.match(/\$[\d,]+(?:\s*[-–]\s*\$?[\d,]+)?(?:\s*\/\s*\w+)?|call for rent/i);

						// Leave label empty when the row has no model name;
						// identity then derives from the bed count, not the
						// row position.
						result.units.push({
							label:     label,
							bedsText:  bedsMatch ? bedsMatch[1] : '',
							bathsText: bathsMatch ? bathsMatch[1] : '',
							sqftText:  sqftMatch ? sqftMatch[1] : '',
							priceText: priceMatch ? priceMatch[0] : ''
						});
					}

					return result;
				})()
			`, &data),
		)
		if err != nil {
			return fmt.Errorf("chromedp building extract: %w", err)
		}

		if blockedPage(data.PageText, data.Cards > 0 || data.Name != "") {
			return session.ErrBlocked
		}

		raw.Name = data.Name
		raw.AddressText = data.Address
		raw.PageText = data.PageText
		raw.YearBuiltText = data.YearBuilt
		raw.NumUnitsText = data.NumUnits
		raw.StoriesText = data.Stories
		raw.BuildingType = data.BuildingType
		raw.Lat = parseCoord(data.LatText)
		raw.Lon = parseCoord(data.LonText)

		for _, u := range data.Units {
			raw.Units = append(raw.Units, models.RawUnit{
				Label:     u.Label,
				BedsText:  u.BedsText,
				BathsText: u.BathsText,
				SqftText:  u.SqftText,
				PriceText: u.PriceText,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("[%s] Extracted %q — %d floorplan rows", platform, raw.Name, len(raw.Units))
	return raw, nil
}

// blockedPage reports whether the body text looks like a challenge or
// access-denied page. A page that still carries real listing content is not
// treated as blocked even if a keyword appears somewhere in it.
func blockedPage(bodyText string, hasContent bool) bool {
	if hasContent {
		return false
	}
	lower := strings.ToLower(bodyText)
	keywords := []string{
		"access denied",
		"blocked",
		"captcha",
		"pardon our interruption",
		"are you a robot",
	}
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// normalizeBuildingURL validates a candidate href and strips query params.
// Building detail URLs look like /<building-slug>/<property-key>/ with a
// hyphenated slug; search and filter pages never have the second segment.
func normalizeBuildingURL(href string) (string, bool) {
	u := strings.SplitN(href, "?", 2)[0]
	const prefix = "https://www.apartments.com/"
	if !strings.HasPrefix(u, prefix) {
		return "", false
	}
	if strings.Contains(u, "/search/") || strings.Contains(u, "bbox=") {
		return "", false
	}

	path := strings.Trim(strings.TrimPrefix(u, prefix), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		return "", false
	}
	slug, key := parts[0], parts[1]
	if len(slug) <= 5 || !strings.Contains(slug, "-") || key == "" {
		return "", false
	}
	// A purely numeric second segment is a paginated search page, not a
	// property key.
	if _, err := strconv.Atoi(key); err == nil {
		return "", false
	}
	return prefix + slug + "/" + key + "/", true
}

func parseCoord(text string) *float64 {
	if text == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return nil
	}
	return &v
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
