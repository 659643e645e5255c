package domain

import "time"

// CatalogGame is the subset of an external catalog record mirrored locally.
type CatalogGame struct {
	ExternalID      int64
	Title           string
	ReleaseDate     *time.Time
	TBA             bool
	MetacriticScore *int
	Rating          *float64
	RatingsCount    *int
	CoverImage      *string
	BannerImage     *string
	Description     *string
}

type CatalogSearchResult struct {
	Count int
	Next  bool
	Games []CatalogGame
}
