package storage

import "umn-housing-scraper/models"

// CombinedStore persists the accumulated listing set. Writing the same set
// twice must produce identical content (idempotent flush).
type CombinedStore interface {
	Load() (map[string]models.Listing, error)
	Write(listings []models.Listing) error
}

// VisitedRegistry persists the set of building identities already attempted,
// read at session start and rewritten at session end.
type VisitedRegistry interface {
	Load() (map[string]struct{}, error)
	Write(ids map[string]struct{}) error
}

// ListingSink receives the combined set at flush time in addition to the
// primary store (e.g. a Postgres mirror). Sinks are best-effort.
type ListingSink interface {
	Write(listings []models.Listing) error
	Close() error
}
