package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"release_tracker/internal/domain"
	"release_tracker/internal/lifecycle"
)

const autoReleaseReason = "Automatically released on release date"

// StatusService owns every write to a game's status columns and keeps the
// history log in step with them.
type StatusService struct {
	games     GameStore
	history   HistoryStore
	txManager TransactionManager
	notifier  TransitionNotifier
	location  *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

func NewStatusService(
	games GameStore,
	history HistoryStore,
	txManager TransactionManager,
	notifier TransitionNotifier,
	location *time.Location,
	logger *slog.Logger,
) *StatusService {
	return &StatusService{
		games:     games,
		history:   history,
		txManager: txManager,
		notifier:  notifier,
		location:  location,
		now:       time.Now,
		logger:    logger.With("component", "status"),
	}
}

func (s *StatusService) today() time.Time {
	return s.now().In(s.location)
}

// ApplyTransition locks the game, applies req and appends exactly one history
// entry, all in one transaction. A request that changes nothing returns
// Changed=false and writes nothing.
func (s *StatusService) ApplyTransition(ctx context.Context, gameID int64, req domain.TransitionRequest) (*domain.TransitionResult, error) {
	var result *domain.TransitionResult

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		game, err := s.games.GetForUpdate(txCtx, gameID)
		if err != nil {
			return err
		}

		entry, err := lifecycle.PlanTransition(game, req)
		if err != nil {
			return err
		}
		if entry == nil {
			result = &domain.TransitionResult{Changed: false, Game: game}
			return nil
		}

		updated := lifecycle.Apply(*game, entry)
		if err := s.games.UpdateStatus(txCtx, gameID, updated.ReleaseStatus, updated.AvailabilityStatus); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if _, err := s.history.Append(txCtx, entry); err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		result = &domain.TransitionResult{Changed: true, Game: &updated, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply transition: %w", err)
	}

	if result.Changed {
		s.logger.Info("status transition applied",
			"game_id", gameID,
			"release_status", result.Game.ReleaseStatus,
			"availability_status", result.Game.AvailabilityStatus,
			"reason", result.Entry.Reason,
		)
	}

	return result, nil
}

// ChangeStatus applies a transition and notifies wishlisters of every changed
// dimension. Notification failures are logged and never undo the transition.
func (s *StatusService) ChangeStatus(ctx context.Context, gameID int64, req domain.TransitionRequest) (*domain.TransitionResult, error) {
	result, err := s.ApplyTransition(ctx, gameID, req)
	if err != nil {
		return nil, err
	}
	if !result.Changed {
		return result, nil
	}

	for _, event := range result.Entry.Events(result.Game.Title) {
		if _, err := s.notifier.NotifyTransition(ctx, event); err != nil {
			s.logger.Error("failed to notify transition",
				"game_id", gameID,
				"dimension", event.Dimension,
				"error", err,
			)
		}
	}

	return result, nil
}

// ListHistory returns one newest-first page of a game's history.
func (s *StatusService) ListHistory(ctx context.Context, gameID int64, page domain.Page) (*domain.PageResult[domain.StatusHistoryEntry], error) {
	if _, err := s.games.Get(ctx, gameID); err != nil {
		return nil, err
	}

	page = page.Normalize()
	entries, total, err := s.history.ListByGame(ctx, gameID, page)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	return newPageResult(entries, total, page), nil
}

// ListTimeline returns history across all games, optionally restricted to
// entries that touched one dimension.
func (s *StatusService) ListTimeline(ctx context.Context, dimension domain.Dimension, page domain.Page) (*domain.PageResult[domain.StatusHistoryEntry], error) {
	if !dimension.Valid() {
		return nil, domain.NewDimensionError(string(dimension))
	}

	page = page.Normalize()
	entries, total, err := s.history.ListTimeline(ctx, dimension, page)
	if err != nil {
		return nil, fmt.Errorf("list timeline: %w", err)
	}

	return newPageResult(entries, total, page), nil
}

func (s *StatusService) GetCountdown(ctx context.Context, gameID int64) (*domain.GameCountdown, error) {
	game, err := s.games.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	return &domain.GameCountdown{
		Game:      *game,
		Countdown: lifecycle.ComputeCountdown(game.ReleaseDate, game.ReleaseStatus, s.today()),
	}, nil
}

// ListUpcomingWithCountdowns returns unreleased games dated today or later,
// soonest first, followed by undated ones.
func (s *StatusService) ListUpcomingWithCountdowns(ctx context.Context, limit int) ([]domain.GameCountdown, error) {
	limit = domain.Page{Limit: limit}.Normalize().Limit
	today := s.today()

	games, err := s.games.ListUpcoming(ctx, lifecycle.AutoReleaseStatuses(), today, limit)
	if err != nil {
		return nil, fmt.Errorf("list upcoming games: %w", err)
	}

	out := make([]domain.GameCountdown, 0, len(games))
	for _, g := range games {
		out = append(out, domain.GameCountdown{
			Game:      g,
			Countdown: lifecycle.ComputeCountdown(g.ReleaseDate, g.ReleaseStatus, today),
		})
	}
	return out, nil
}

// AutoReleaseSweep releases every pre-release game whose date has arrived and
// notifies its wishlisters. Running it again on the same day is a no-op.
func (s *StatusService) AutoReleaseSweep(ctx context.Context) (*domain.SweepReport, error) {
	today := s.today()

	candidates, err := s.games.ListAutoReleaseCandidates(ctx, lifecycle.AutoReleaseStatuses(), today)
	if err != nil {
		return nil, fmt.Errorf("list auto-release candidates: %w", err)
	}

	report := &domain.SweepReport{Errors: []domain.ItemError{}}
	released := domain.ReleaseReleased

	for i := range candidates {
		game := &candidates[i]
		if !lifecycle.ShouldAutoRelease(game, today) {
			continue
		}
		report.Examined++

		result, err := s.ApplyTransition(ctx, game.ID, domain.TransitionRequest{
			NewReleaseStatus: &released,
			OnlyFrom:         lifecycle.AutoReleaseStatuses(),
			Reason:           autoReleaseReason,
		})
		if err != nil {
			s.logger.Error("auto-release failed", "game_id", game.ID, "error", err)
			report.Errors = append(report.Errors, itemError(game, "transition", err))
			continue
		}
		if !result.Changed {
			continue
		}
		report.Released++

		for _, event := range result.Entry.Events(game.Title) {
			n, err := s.notifier.NotifyTransition(ctx, event)
			report.Notifications += n
			if err != nil {
				s.logger.Error("failed to notify release", "game_id", game.ID, "error", err)
				report.Errors = append(report.Errors, itemError(game, "notify", err))
			}
		}
	}

	s.logger.Info("auto-release sweep completed",
		"examined", report.Examined,
		"released", report.Released,
		"notifications", report.Notifications,
		"errors", len(report.Errors),
	)

	return report, nil
}

func newPageResult[T any](items []T, total int, page domain.Page) *domain.PageResult[T] {
	if items == nil {
		items = []T{}
	}
	return &domain.PageResult[T]{
		Items:  items,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
}

func itemError(game *domain.Game, stage string, err error) domain.ItemError {
	ie := domain.ItemError{
		GameID: game.ID,
		Stage:  stage,
		Error:  err.Error(),
	}
	if game.ExternalID != nil {
		ie.ExternalID = *game.ExternalID
	}
	return ie
}
