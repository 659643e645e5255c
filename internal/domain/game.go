package domain

import (
	"slices"
	"time"
)

type ReleaseStatus string

const (
	ReleaseAlpha       ReleaseStatus = "alpha"
	ReleaseClosedBeta  ReleaseStatus = "closed_beta"
	ReleaseOpenBeta    ReleaseStatus = "open_beta"
	ReleaseEarlyAccess ReleaseStatus = "early_access"
	ReleaseComingSoon  ReleaseStatus = "coming_soon"
	ReleaseReleased    ReleaseStatus = "released"
	ReleaseCancelled   ReleaseStatus = "cancelled"
)

// ReleaseStatuses lists every accepted release status in lifecycle order.
func ReleaseStatuses() []ReleaseStatus {
	return []ReleaseStatus{
		ReleaseAlpha,
		ReleaseClosedBeta,
		ReleaseOpenBeta,
		ReleaseEarlyAccess,
		ReleaseComingSoon,
		ReleaseReleased,
		ReleaseCancelled,
	}
}

func (s ReleaseStatus) Valid() bool {
	return slices.Contains(ReleaseStatuses(), s)
}

// Terminal reports whether no further release transition is expected.
func (s ReleaseStatus) Terminal() bool {
	return s == ReleaseReleased || s == ReleaseCancelled
}

type AvailabilityStatus string

const (
	AvailabilityAvailable    AvailabilityStatus = "available"
	AvailabilityUnavailable  AvailabilityStatus = "unavailable"
	AvailabilityDelisted     AvailabilityStatus = "delisted"
	AvailabilityDiscontinued AvailabilityStatus = "discontinued"
	AvailabilityAbandonware  AvailabilityStatus = "abandonware"
)

func AvailabilityStatuses() []AvailabilityStatus {
	return []AvailabilityStatus{
		AvailabilityAvailable,
		AvailabilityUnavailable,
		AvailabilityDelisted,
		AvailabilityDiscontinued,
		AvailabilityAbandonware,
	}
}

func (s AvailabilityStatus) Valid() bool {
	return slices.Contains(AvailabilityStatuses(), s)
}

type Game struct {
	ID                 int64              `db:"id"`
	Title              string             `db:"title"`
	ReleaseStatus      ReleaseStatus      `db:"release_status"`
	AvailabilityStatus AvailabilityStatus `db:"availability_status"`
	ReleaseDate        *time.Time         `db:"release_date"`
	ExternalID         *int64             `db:"external_id"`

	// Mirrored from the external catalog.
	MetacriticScore *int     `db:"metacritic_score"`
	Rating          *float64 `db:"rating"`
	RatingsCount    *int     `db:"ratings_count"`
	CoverImage      *string  `db:"cover_image"`
	BannerImage     *string  `db:"banner_image"`
	Description     *string  `db:"description"`

	LastSynced *time.Time `db:"last_synced"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}
