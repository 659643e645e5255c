package lifecycle

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"release_tracker/internal/domain"
)

func date(s string) *time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestComputeCountdown_Labels(t *testing.T) {
	today := *date("2025-12-01")

	tests := []struct {
		name    string
		release *time.Time
		status  domain.ReleaseStatus
		days    *int
		label   string
	}{
		{"released ignores date", date("2030-01-01"), domain.ReleaseReleased, nil, "Released"},
		{"no date", nil, domain.ReleaseComingSoon, nil, "TBA"},
		{"past date", date("2025-11-01"), domain.ReleaseComingSoon, ptr(0), "Release day!"},
		{"today", date("2025-12-01"), domain.ReleaseComingSoon, ptr(0), "Release day!"},
		{"tomorrow", date("2025-12-02"), domain.ReleaseEarlyAccess, ptr(1), "Tomorrow"},
		{"two days", date("2025-12-03"), domain.ReleaseComingSoon, ptr(2), "2 days"},
		{"seven days", date("2025-12-08"), domain.ReleaseComingSoon, ptr(7), "7 days"},
		{"eight days", date("2025-12-09"), domain.ReleaseComingSoon, ptr(8), "1 week"},
		{"thirty days", date("2025-12-31"), domain.ReleaseComingSoon, ptr(30), "4 weeks"},
		{"thirty one days", date("2026-01-01"), domain.ReleaseComingSoon, ptr(31), "1 month"},
		{"sixty days", date("2026-01-30"), domain.ReleaseComingSoon, ptr(60), "2 months"},
		{"one year", date("2026-12-01"), domain.ReleaseComingSoon, ptr(365), "12 months"},
		{"over a year", date("2026-12-02"), domain.ReleaseComingSoon, ptr(366), "1 year"},
		{"three years", date("2028-12-31"), domain.ReleaseAlpha, ptr(1126), "3 years"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ComputeCountdown(tt.release, tt.status, today)
			assert.Equal(t, tt.label, c.CountdownLabel)
			assert.Equal(t, tt.days, c.DaysUntilRelease)
			assert.Equal(t, tt.status == domain.ReleaseReleased, c.IsReleased)
		})
	}
}

func TestComputeCountdown_DaysNullIffReleasedOrUndated(t *testing.T) {
	today := *date("2024-02-28")
	allowed := map[string]bool{"Release day!": true, "Tomorrow": true}

	for offset := -40; offset <= 1200; offset++ {
		release := today.AddDate(0, 0, offset)
		c := ComputeCountdown(&release, domain.ReleaseComingSoon, today)
		require.NotNil(t, c.DaysUntilRelease, "offset %d", offset)
		require.False(t, c.IsReleased)

		d := *c.DaysUntilRelease
		if offset <= 0 {
			require.Equal(t, 0, d)
		} else {
			require.Equal(t, offset, d)
		}

		switch {
		case d <= 1:
			require.True(t, allowed[c.CountdownLabel], "offset %d: %s", offset, c.CountdownLabel)
		case d <= 7:
			require.Equal(t, fmt.Sprintf("%d days", d), c.CountdownLabel)
		case d <= 30:
			require.Contains(t, c.CountdownLabel, "week")
		case d <= 365:
			require.Contains(t, c.CountdownLabel, "month")
		default:
			require.Contains(t, c.CountdownLabel, "year")
		}

		released := ComputeCountdown(&release, domain.ReleaseReleased, today)
		require.Nil(t, released.DaysUntilRelease)
	}

	undated := ComputeCountdown(nil, domain.ReleaseCancelled, today)
	assert.Nil(t, undated.DaysUntilRelease)
}

func TestComputeCountdown_LocalMidnightAcrossOffsets(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	// 23:30 local on Nov 30 is already Dec 1 in UTC.
	today := time.Date(2025, 11, 30, 23, 30, 0, 0, loc)
	c := ComputeCountdown(date("2025-12-01"), domain.ReleaseComingSoon, today)
	require.NotNil(t, c.DaysUntilRelease)
	assert.Equal(t, 1, *c.DaysUntilRelease)
	assert.Equal(t, "Tomorrow", c.CountdownLabel)

	// DST change in between must not shave a day.
	today = time.Date(2025, 3, 8, 0, 30, 0, 0, loc)
	c = ComputeCountdown(date("2025-03-10"), domain.ReleaseComingSoon, today)
	assert.Equal(t, 2, *c.DaysUntilRelease)
}

func TestShouldAutoRelease(t *testing.T) {
	today := *date("2025-06-15")

	tests := []struct {
		name    string
		status  domain.ReleaseStatus
		release *time.Time
		want    bool
	}{
		{"coming soon due today", domain.ReleaseComingSoon, date("2025-06-15"), true},
		{"beta overdue", domain.ReleaseOpenBeta, date("2025-01-01"), true},
		{"alpha tomorrow", domain.ReleaseAlpha, date("2025-06-16"), false},
		{"no date", domain.ReleaseComingSoon, nil, false},
		{"already released", domain.ReleaseReleased, date("2025-01-01"), false},
		{"cancelled", domain.ReleaseCancelled, date("2025-01-01"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &domain.Game{ID: 1, ReleaseStatus: tt.status, ReleaseDate: tt.release}
			assert.Equal(t, tt.want, ShouldAutoRelease(g, today))
		})
	}
}

func TestParseReleaseDate(t *testing.T) {
	assert.Equal(t, date("2025-12-31"), ParseReleaseDate("2025-12-31"))
	assert.Equal(t, date("2025-12-31"), ParseReleaseDate("2025-12-31T18:00:00Z"))
	assert.Nil(t, ParseReleaseDate(""))
	assert.Nil(t, ParseReleaseDate("soon™"))
	assert.Nil(t, ParseReleaseDate("2025-13-45"))
}

func TestPlanTransition(t *testing.T) {
	game := &domain.Game{
		ID:                 7,
		ReleaseStatus:      domain.ReleaseComingSoon,
		AvailabilityStatus: domain.AvailabilityUnavailable,
	}

	t.Run("release only", func(t *testing.T) {
		entry, err := PlanTransition(game, domain.TransitionRequest{
			NewReleaseStatus: statusPtr(domain.ReleaseReleased),
			Reason:           "launch",
		})
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, int64(7), entry.GameID)
		assert.Equal(t, domain.ReleaseComingSoon, *entry.PreviousReleaseStatus)
		assert.Equal(t, domain.ReleaseReleased, *entry.NewReleaseStatus)
		assert.Nil(t, entry.PreviousAvailabilityStatus)
		assert.Nil(t, entry.NewAvailabilityStatus)
		assert.Equal(t, "launch", entry.Reason)

		applied := Apply(*game, entry)
		assert.Equal(t, domain.ReleaseReleased, applied.ReleaseStatus)
		assert.Equal(t, domain.AvailabilityUnavailable, applied.AvailabilityStatus)
	})

	t.Run("both dimensions", func(t *testing.T) {
		actor := int64(3)
		entry, err := PlanTransition(game, domain.TransitionRequest{
			NewReleaseStatus:      statusPtr(domain.ReleaseReleased),
			NewAvailabilityStatus: availabilityPtr(domain.AvailabilityAvailable),
			ActorID:               &actor,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.AvailabilityAvailable, *entry.NewAvailabilityStatus)
		assert.Equal(t, "Manual status update", entry.Reason)
	})

	t.Run("no change", func(t *testing.T) {
		entry, err := PlanTransition(game, domain.TransitionRequest{
			NewReleaseStatus: statusPtr(domain.ReleaseComingSoon),
		})
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("outside allowed source statuses", func(t *testing.T) {
		cancelled := *game
		cancelled.ReleaseStatus = domain.ReleaseCancelled

		entry, err := PlanTransition(&cancelled, domain.TransitionRequest{
			NewReleaseStatus: statusPtr(domain.ReleaseReleased),
			OnlyFrom:         AutoReleaseStatuses(),
		})
		require.NoError(t, err)
		assert.Nil(t, entry)

		entry, err = PlanTransition(game, domain.TransitionRequest{
			NewReleaseStatus: statusPtr(domain.ReleaseReleased),
			OnlyFrom:         AutoReleaseStatuses(),
		})
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, domain.ReleaseReleased, *entry.NewReleaseStatus)
	})

	t.Run("invalid release status", func(t *testing.T) {
		_, err := PlanTransition(game, domain.TransitionRequest{
			NewReleaseStatus: statusPtr("launched"),
		})
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "release_status", verr.Field)
		assert.Contains(t, err.Error(), "coming_soon")
		assert.Contains(t, err.Error(), "released")
	})

	t.Run("invalid availability status", func(t *testing.T) {
		_, err := PlanTransition(game, domain.TransitionRequest{
			NewAvailabilityStatus: availabilityPtr("for_sale"),
		})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Accepted, "abandonware")
	})
}

func ptr(v int) *int { return &v }

func statusPtr(s domain.ReleaseStatus) *domain.ReleaseStatus { return &s }

func availabilityPtr(s domain.AvailabilityStatus) *domain.AvailabilityStatus { return &s }
