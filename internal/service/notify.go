package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"release_tracker/internal/config"
	"release_tracker/internal/domain"
	"release_tracker/internal/lifecycle"
	"release_tracker/internal/telemetry"
)

// Notifier turns transitions and imminent releases into per-user
// notification rows and publishes each batch for downstream delivery.
type Notifier struct {
	games         GameStore
	wishlists     WishlistStore
	notifications NotificationStore
	publisher     Publisher
	metrics       *telemetry.NotificationMetrics
	location      *time.Location
	now           func() time.Time
	logger        *slog.Logger
	config        config.ReleaseConfig
}

// NewNotifier creates a notifier. publisher may be nil, in which case rows
// are only stored.
func NewNotifier(
	games GameStore,
	wishlists WishlistStore,
	notifications NotificationStore,
	publisher Publisher,
	metrics *telemetry.NotificationMetrics,
	location *time.Location,
	logger *slog.Logger,
	cfg config.ReleaseConfig,
) *Notifier {
	return &Notifier{
		games:         games,
		wishlists:     wishlists,
		notifications: notifications,
		publisher:     publisher,
		metrics:       metrics,
		location:      location,
		now:           time.Now,
		logger:        logger.With("component", "notifier"),
		config:        cfg,
	}
}

// NotifyTransition fans event out to everyone who wishlisted the game.
func (n *Notifier) NotifyTransition(ctx context.Context, event domain.TransitionEvent) (int, error) {
	audience, err := n.wishlists.UserIDsByGame(ctx, event.GameID)
	if err != nil {
		return 0, fmt.Errorf("load audience: %w", err)
	}
	return n.FanOut(ctx, event, audience)
}

// FanOut creates one notification per distinct user in audience and returns
// how many were created, including rows written before a failed insert.
func (n *Notifier) FanOut(ctx context.Context, event domain.TransitionEvent, audience []int64) (int, error) {
	users := distinct(audience)
	if len(users) == 0 {
		return 0, nil
	}

	kind, title, message := transitionMessage(event)
	return n.create(ctx, kind, event.GameID, event.GameTitle, title, message, users)
}

// RemindImminent notifies audience that game releases soon, unless a reminder
// for it was already created today. The check and the insert are separate
// statements, so concurrent callers may both insert.
func (n *Notifier) RemindImminent(ctx context.Context, game *domain.Game, countdown domain.Countdown, audience []int64) (int, error) {
	created, _, err := n.remind(ctx, game, countdown, audience)
	return created, err
}

func (n *Notifier) remind(ctx context.Context, game *domain.Game, countdown domain.Countdown, audience []int64) (int, bool, error) {
	users := distinct(audience)
	if len(users) == 0 {
		return 0, false, nil
	}

	exists, err := n.notifications.ExistsSince(ctx, game.ID, domain.NotificationReleaseReminder, n.startOfToday())
	if err != nil {
		return 0, false, fmt.Errorf("check existing reminders: %w", err)
	}
	if exists {
		return 0, true, nil
	}

	title, message := reminderMessage(game, countdown)
	created, err := n.create(ctx, domain.NotificationReleaseReminder, game.ID, game.Title, title, message, users)
	return created, false, err
}

// ReminderSweep reminds wishlisters of every unreleased game whose release
// date falls within the configured horizon.
func (n *Notifier) ReminderSweep(ctx context.Context) (*domain.ReminderReport, error) {
	today := n.now().In(n.location)
	until := today.AddDate(0, 0, n.config.ReminderHorizonDays)

	games, err := n.games.ListReleasingBetween(ctx, lifecycle.AutoReleaseStatuses(), today, until)
	if err != nil {
		return nil, fmt.Errorf("list imminent releases: %w", err)
	}

	report := &domain.ReminderReport{Errors: []domain.ItemError{}}

	for i := range games {
		game := &games[i]
		report.Examined++

		audience, err := n.wishlists.UserIDsByGame(ctx, game.ID)
		if err != nil {
			report.Errors = append(report.Errors, itemError(game, "audience", err))
			continue
		}

		countdown := lifecycle.ComputeCountdown(game.ReleaseDate, game.ReleaseStatus, today)
		created, skipped, err := n.remind(ctx, game, countdown, audience)
		report.Notifications += created
		if err != nil {
			n.logger.Error("failed to send release reminder", "game_id", game.ID, "error", err)
			report.Errors = append(report.Errors, itemError(game, "remind", err))
			continue
		}
		if skipped {
			report.Skipped++
		}
	}

	n.logger.Info("reminder sweep completed",
		"examined", report.Examined,
		"skipped", report.Skipped,
		"notifications", report.Notifications,
		"errors", len(report.Errors),
	)

	return report, nil
}

func (n *Notifier) create(ctx context.Context, kind domain.NotificationType, gameID int64, gameTitle, title, message string, users []int64) (int, error) {
	rows := make([]domain.Notification, len(users))
	for i, userID := range users {
		rows[i] = domain.Notification{
			UserID:  userID,
			Type:    kind,
			GameID:  gameID,
			Title:   title,
			Message: message,
		}
	}

	created, err := n.notifications.InsertBatch(ctx, rows)
	n.metrics.RecordCreated(ctx, string(kind), created)
	if err != nil {
		// Earlier chunks stay committed; report them alongside the error.
		return created, fmt.Errorf("insert notifications: %w", err)
	}

	n.logger.Debug("notifications created",
		"game_id", gameID,
		"type", kind,
		"count", created,
	)

	if n.publisher != nil {
		event := domain.NotificationEvent{
			Type:      kind,
			GameID:    gameID,
			GameTitle: gameTitle,
			Title:     title,
			Message:   message,
			UserIDs:   users,
			Timestamp: n.now().UTC(),
		}
		if err := n.publisher.PublishNotifications(ctx, event); err != nil {
			n.metrics.RecordPublishFailure(ctx, string(kind))
			n.logger.Warn("failed to publish notifications",
				"game_id", gameID,
				"type", kind,
				"error", err,
			)
		}
	}

	return created, nil
}

func (n *Notifier) startOfToday() time.Time {
	y, m, d := n.now().In(n.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, n.location)
}

func transitionMessage(event domain.TransitionEvent) (domain.NotificationType, string, string) {
	if event.Dimension == domain.DimensionRelease && event.NewStatus == string(domain.ReleaseReleased) {
		return domain.NotificationRelease,
			fmt.Sprintf("%s is out now!", event.GameTitle),
			fmt.Sprintf("%s has been released. Time to play!", event.GameTitle)
	}

	return domain.NotificationStatusChange,
		fmt.Sprintf("%s status changed", event.GameTitle),
		fmt.Sprintf("%s %s status changed from %s to %s",
			event.GameTitle, event.Dimension, humanize(event.PreviousStatus), humanize(event.NewStatus))
}

func reminderMessage(game *domain.Game, countdown domain.Countdown) (string, string) {
	when := "soon"
	if countdown.DaysUntilRelease != nil {
		switch days := *countdown.DaysUntilRelease; days {
		case 0:
			when = "today"
		case 1:
			when = "tomorrow"
		default:
			when = fmt.Sprintf("in %d days", days)
		}
	}

	message := fmt.Sprintf("%s releases %s", game.Title, when)
	if game.ReleaseDate != nil {
		message += fmt.Sprintf(" (%s)", lifecycle.FormatDate(*game.ReleaseDate))
	}

	return fmt.Sprintf("%s releases %s", game.Title, when), message + "."
}

func humanize(status string) string {
	if status == "" {
		return "unknown"
	}
	return strings.ReplaceAll(status, "_", " ")
}

func distinct(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
