package apartments

import "testing"

func TestNormalizeBuildingURL(t *testing.T) {
	tests := []struct {
		href   string
		want   string
		wantOK bool
	}{
		{
			"https://www.apartments.com/the-archive-minneapolis-mn/8z05mr1/",
			"https://www.apartments.com/the-archive-minneapolis-mn/8z05mr1/",
			true,
		},
		{
			// query params stripped
			"https://www.apartments.com/the-laker-minneapolis-mn/ezrcwgm/?utm_source=feed",
			"https://www.apartments.com/the-laker-minneapolis-mn/ezrcwgm/",
			true,
		},
		{
			// trailing slash normalized on
			"https://www.apartments.com/moment-minneapolis-mn/s1qg2g4",
			"https://www.apartments.com/moment-minneapolis-mn/s1qg2g4/",
			true,
		},
		// city search page, no property key
		{"https://www.apartments.com/minneapolis-mn/", "", false},
		// paginated search page
		{"https://www.apartments.com/minneapolis-mn/2/", "", false},
		// map-bounded search
		{"https://www.apartments.com/minneapolis-mn/?bbox=1,2,3,4", "", false},
		// other domain
		{"https://www.example.com/the-archive-minneapolis-mn/8z05mr1/", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := normalizeBuildingURL(tt.href)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("normalizeBuildingURL(%q) = (%q, %v); want (%q, %v)",
				tt.href, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestBlockedPage(t *testing.T) {
	tests := []struct {
		name       string
		bodyText   string
		hasContent bool
		want       bool
	}{
		{"access denied page", "Access Denied\nYou don't have permission", false, true},
		{"challenge page", "Pardon Our Interruption... are you a robot?", false, true},
		{"captcha page", "please complete the CAPTCHA to continue", false, true},
		{"normal results", "48 apartments for rent in Minneapolis", true, false},
		{"keyword inside real content", "Reviews: my card got blocked once", true, false},
		{"empty page without content", "", false, false},
	}

	for _, tt := range tests {
		if got := blockedPage(tt.bodyText, tt.hasContent); got != tt.want {
			t.Errorf("%s: blockedPage = %v; want %v", tt.name, got, tt.want)
		}
	}
}

func TestCatalog(t *testing.T) {
	slugs := Catalog()
	if len(slugs) == 0 {
		t.Fatal("empty search catalog")
	}

	seen := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		if s == "" {
			t.Error("empty slug in catalog")
		}
		if _, dup := seen[s]; dup {
			t.Errorf("duplicate slug in catalog: %s", s)
		}
		seen[s] = struct{}{}
	}

	if slugs[0] != "minneapolis-mn" {
		t.Errorf("catalog should lead with the main city search, got %s", slugs[0])
	}
}

func TestParseCoord(t *testing.T) {
	if got := parseCoord("44.9731"); got == nil || *got != 44.9731 {
		t.Errorf("parseCoord(44.9731) = %v", got)
	}
	if got := parseCoord(""); got != nil {
		t.Error("parseCoord of empty string should be nil")
	}
	if got := parseCoord("not-a-number"); got != nil {
		t.Error("parseCoord of garbage should be nil")
	}
}
