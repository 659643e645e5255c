// Package lifecycle holds the pure release/availability decision logic.
// Nothing here touches storage; callers persist what it decides.
package lifecycle

import (
	"fmt"
	"slices"
	"time"

	"release_tracker/internal/domain"
)

const dateLayout = "2006-01-02"

// AutoReleaseStatuses are the pre-release stages that flip to released once
// their release date arrives.
func AutoReleaseStatuses() []domain.ReleaseStatus {
	return []domain.ReleaseStatus{
		domain.ReleaseComingSoon,
		domain.ReleaseEarlyAccess,
		domain.ReleaseOpenBeta,
		domain.ReleaseClosedBeta,
		domain.ReleaseAlpha,
	}
}

// ShouldAutoRelease reports whether game must be moved to released as of today.
func ShouldAutoRelease(game *domain.Game, today time.Time) bool {
	if game == nil || game.ReleaseDate == nil {
		return false
	}
	if !slices.Contains(AutoReleaseStatuses(), game.ReleaseStatus) {
		return false
	}
	return DaysBetween(today, *game.ReleaseDate) <= 0
}

// CalendarDate strips t to its civil date, expressed as UTC midnight so that
// day arithmetic never crosses a DST or offset boundary.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from `from` to `to`, each
// read in its own location.
func DaysBetween(from, to time.Time) int {
	return int(CalendarDate(to).Sub(CalendarDate(from)).Hours() / 24)
}

// ComputeCountdown projects the countdown for a release date as seen on today.
func ComputeCountdown(releaseDate *time.Time, status domain.ReleaseStatus, today time.Time) domain.Countdown {
	c := domain.Countdown{ReleaseDate: releaseDate}

	if status == domain.ReleaseReleased {
		c.IsReleased = true
		c.CountdownLabel = "Released"
		return c
	}
	if releaseDate == nil {
		c.CountdownLabel = "TBA"
		return c
	}

	days := DaysBetween(today, *releaseDate)
	if days < 0 {
		days = 0
	}
	c.DaysUntilRelease = &days
	c.CountdownLabel = countdownLabel(days)
	return c
}

func countdownLabel(days int) string {
	switch {
	case days <= 0:
		return "Release day!"
	case days == 1:
		return "Tomorrow"
	case days <= 7:
		return fmt.Sprintf("%d days", days)
	case days <= 30:
		return plural(days/7, "week")
	case days <= 365:
		return plural(days/30, "month")
	default:
		return plural(days/365, "year")
	}
}

func plural(n int, unit string) string {
	if n > 1 {
		return fmt.Sprintf("%d %ss", n, unit)
	}
	return fmt.Sprintf("%d %s", n, unit)
}

// ParseReleaseDate accepts YYYY-MM-DD or RFC3339 input. Anything else yields
// nil rather than an error.
func ParseReleaseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d := CalendarDate(t)
		return &d
	}
	return nil
}

// FormatDate renders the civil date of t.
func FormatDate(t time.Time) string {
	return CalendarDate(t).Format(dateLayout)
}

// PlanTransition validates req against the current game and returns the
// history entry describing the change, or nil when nothing would change or
// the game's release status is outside req.OnlyFrom.
func PlanTransition(game *domain.Game, req domain.TransitionRequest) (*domain.StatusHistoryEntry, error) {
	if req.NewReleaseStatus != nil && !req.NewReleaseStatus.Valid() {
		return nil, domain.NewReleaseStatusError(string(*req.NewReleaseStatus))
	}
	if req.NewAvailabilityStatus != nil && !req.NewAvailabilityStatus.Valid() {
		return nil, domain.NewAvailabilityStatusError(string(*req.NewAvailabilityStatus))
	}
	if len(req.OnlyFrom) > 0 && !slices.Contains(req.OnlyFrom, game.ReleaseStatus) {
		return nil, nil
	}

	entry := &domain.StatusHistoryEntry{
		GameID:  game.ID,
		Reason:  req.Reason,
		ActorID: req.ActorID,
	}

	changed := false
	if req.NewReleaseStatus != nil && *req.NewReleaseStatus != game.ReleaseStatus {
		prev, next := game.ReleaseStatus, *req.NewReleaseStatus
		entry.PreviousReleaseStatus = &prev
		entry.NewReleaseStatus = &next
		changed = true
	}
	if req.NewAvailabilityStatus != nil && *req.NewAvailabilityStatus != game.AvailabilityStatus {
		prev, next := game.AvailabilityStatus, *req.NewAvailabilityStatus
		entry.PreviousAvailabilityStatus = &prev
		entry.NewAvailabilityStatus = &next
		changed = true
	}
	if !changed {
		return nil, nil
	}

	if entry.Reason == "" {
		entry.Reason = defaultReason(entry)
	}
	return entry, nil
}

// Apply returns a copy of game with the entry's targets applied.
func Apply(game domain.Game, entry *domain.StatusHistoryEntry) domain.Game {
	if entry.NewReleaseStatus != nil {
		game.ReleaseStatus = *entry.NewReleaseStatus
	}
	if entry.NewAvailabilityStatus != nil {
		game.AvailabilityStatus = *entry.NewAvailabilityStatus
	}
	return game
}

func defaultReason(entry *domain.StatusHistoryEntry) string {
	if entry.ActorID == nil {
		return "System status update"
	}
	return "Manual status update"
}
