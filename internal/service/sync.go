package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"release_tracker/internal/config"
	"release_tracker/internal/domain"
	"release_tracker/internal/lifecycle"
	"release_tracker/internal/telemetry"
)

const (
	catalogReleaseReason = "Released according to external catalog"

	stopReasonRateLimited = "rate limited by external catalog"
	stopReasonCancelled   = "cancelled"
)

// Stages recorded in sync report errors.
const (
	stageFetch      = "fetch"
	stageSave       = "save"
	stageTransition = "transition"
	stageNotify     = "notify"
)

type SyncService struct {
	catalog      CatalogClient
	games        GameStore
	transitioner Transitioner
	notifier     TransitionNotifier
	pacer        Pacer
	metrics      *telemetry.SyncMetrics
	location     *time.Location
	now          func() time.Time
	logger       *slog.Logger
	config       config.SyncConfig
}

func NewSyncService(
	catalog CatalogClient,
	games GameStore,
	transitioner Transitioner,
	notifier TransitionNotifier,
	pacer Pacer,
	metrics *telemetry.SyncMetrics,
	location *time.Location,
	logger *slog.Logger,
	cfg config.SyncConfig,
) *SyncService {
	return &SyncService{
		catalog:      catalog,
		games:        games,
		transitioner: transitioner,
		notifier:     notifier,
		pacer:        pacer,
		metrics:      metrics,
		location:     location,
		now:          time.Now,
		logger:       logger.With("component", "sync"),
		config:       cfg,
	}
}

// SyncBatch refreshes the least recently synced games from the catalog, one
// at a time. Per-item failures land in the report; only failing to load the
// batch is returned as an error. A rate limit from the catalog ends the run
// early with whatever was done so far.
func (s *SyncService) SyncBatch(ctx context.Context) (*domain.SyncReport, error) {
	report := domain.NewSyncReport(s.now())

	games, err := s.games.ListForSync(ctx, s.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list games for sync: %w", err)
	}

	logger := s.logger.With("run_id", report.RunID)
	logger.Info("starting sync", "candidates", len(games), "batch_size", s.config.BatchSize)

	for i := range games {
		if ctx.Err() != nil {
			report.StoppedEarly = true
			report.StopReason = stopReasonCancelled
			break
		}
		if err := s.pacer.Wait(ctx); err != nil {
			report.StoppedEarly = true
			report.StopReason = stopReasonCancelled
			break
		}

		// The item in flight finishes even if the run is cancelled meanwhile.
		err := s.syncItem(context.WithoutCancel(ctx), report, &games[i])
		if errors.Is(err, domain.ErrRateLimited) {
			report.StoppedEarly = true
			report.StopReason = stopReasonRateLimited
			logger.Warn("catalog rate limit reached, stopping sync early",
				"game_id", games[i].ID,
				"remaining", len(games)-i-1,
			)
			break
		}
	}

	s.finish(logger, report)
	return report, nil
}

// SyncOne refreshes a single game on demand.
func (s *SyncService) SyncOne(ctx context.Context, gameID int64) (*domain.SyncReport, error) {
	game, err := s.games.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.ExternalID == nil {
		return nil, &domain.ValidationError{
			Field:  "game_id",
			Value:  strconv.FormatInt(gameID, 10),
			Reason: "game has no external catalog id",
		}
	}

	report := domain.NewSyncReport(s.now())
	logger := s.logger.With("run_id", report.RunID)

	if err := s.syncItem(context.WithoutCancel(ctx), report, game); errors.Is(err, domain.ErrRateLimited) {
		report.StoppedEarly = true
		report.StopReason = stopReasonRateLimited
	}

	s.finish(logger, report)
	return report, nil
}

func (s *SyncService) finish(logger *slog.Logger, report *domain.SyncReport) {
	report.Duration = s.now().Sub(report.StartedAt)
	s.metrics.RecordRun(context.Background(), report.Duration, report.StoppedEarly)

	logger.Info("sync completed",
		"examined", report.Examined,
		"updated", report.Updated,
		"released", report.Released,
		"failed", report.Failed,
		"stopped_early", report.StoppedEarly,
		"duration", report.Duration,
	)
}

// syncItem mirrors one game's catalog fields and detects a release. The
// returned error is only used to decide whether the batch continues.
func (s *SyncService) syncItem(ctx context.Context, report *domain.SyncReport, game *domain.Game) error {
	report.Examined++
	externalID := *game.ExternalID

	remote, err := s.catalog.GetGame(ctx, externalID)
	if err != nil {
		s.fail(ctx, report, game, stageFetch, err)
		return err
	}

	merged := *game
	changes := mergeCatalogFields(&merged, remote)
	syncedAt := s.now()

	if len(changes) > 0 {
		merged.LastSynced = &syncedAt
		if err := s.games.SaveSynced(ctx, &merged); err != nil {
			s.fail(ctx, report, game, stageSave, err)
			return err
		}
		report.Updated++
		s.metrics.RecordItem(ctx, telemetry.ItemUpdated)
	} else {
		if err := s.games.TouchSynced(ctx, game.ID, syncedAt); err != nil {
			s.fail(ctx, report, game, stageSave, err)
			return err
		}
		s.metrics.RecordItem(ctx, telemetry.ItemUnchanged)
	}

	var item *domain.ItemChanges
	if len(changes) > 0 {
		report.Items = append(report.Items, domain.ItemChanges{
			GameID:     game.ID,
			ExternalID: externalID,
			Title:      game.Title,
			Changes:    changes,
		})
		item = &report.Items[len(report.Items)-1]
	}

	if !catalogShowsReleased(remote, syncedAt.In(s.location)) || game.ReleaseStatus.Terminal() {
		return nil
	}

	released, err := s.release(ctx, report, game)
	if err != nil {
		s.fail(ctx, report, game, stageTransition, err)
		return err
	}
	if !released {
		return nil
	}

	if item == nil {
		report.Items = append(report.Items, domain.ItemChanges{
			GameID:     game.ID,
			ExternalID: externalID,
			Title:      game.Title,
		})
		item = &report.Items[len(report.Items)-1]
	}
	item.Released = true

	return nil
}

// release moves game to released and notifies its wishlisters. Notification
// failures are captured in the report and do not fail the item.
func (s *SyncService) release(ctx context.Context, report *domain.SyncReport, game *domain.Game) (bool, error) {
	target := domain.ReleaseReleased
	result, err := s.transitioner.ApplyTransition(ctx, game.ID, domain.TransitionRequest{
		NewReleaseStatus: &target,
		OnlyFrom:         lifecycle.AutoReleaseStatuses(),
		Reason:           catalogReleaseReason,
	})
	if err != nil {
		return false, err
	}
	if !result.Changed {
		return false, nil
	}

	report.Released++
	s.metrics.RecordItem(ctx, telemetry.ItemReleased)

	for _, event := range result.Entry.Events(game.Title) {
		if _, err := s.notifier.NotifyTransition(ctx, event); err != nil {
			s.logger.Error("failed to notify release", "game_id", game.ID, "error", err)
			report.Errors = append(report.Errors, itemError(game, stageNotify, err))
		}
	}

	return true, nil
}

func (s *SyncService) fail(ctx context.Context, report *domain.SyncReport, game *domain.Game, stage string, err error) {
	report.Failed++
	report.Errors = append(report.Errors, itemError(game, stage, err))
	s.metrics.RecordItem(ctx, telemetry.ItemFailed)

	s.logger.Warn("failed to sync game",
		"game_id", game.ID,
		"stage", stage,
		"error", err,
	)
}

// catalogShowsReleased reports whether the catalog dates the game today or
// earlier and does not mark it as to be announced.
func catalogShowsReleased(remote *domain.CatalogGame, today time.Time) bool {
	if remote.TBA || remote.ReleaseDate == nil {
		return false
	}
	return lifecycle.DaysBetween(today, *remote.ReleaseDate) <= 0
}

// mergeCatalogFields copies allow-listed catalog fields onto game and
// returns what changed. A missing or empty catalog value never clears a
// stored one.
func mergeCatalogFields(game *domain.Game, remote *domain.CatalogGame) []domain.FieldChange {
	var changes []domain.FieldChange

	if remote.ReleaseDate != nil {
		incoming := lifecycle.FormatDate(*remote.ReleaseDate)
		var current any
		if game.ReleaseDate != nil {
			current = lifecycle.FormatDate(*game.ReleaseDate)
		}
		if current != incoming {
			date := lifecycle.CalendarDate(*remote.ReleaseDate)
			game.ReleaseDate = &date
			changes = append(changes, domain.FieldChange{Field: "release_date", OldValue: current, NewValue: incoming})
		}
	}

	changes = mergeField(changes, "metacritic_score", &game.MetacriticScore, remote.MetacriticScore)
	changes = mergeField(changes, "rating", &game.Rating, remote.Rating)
	changes = mergeField(changes, "ratings_count", &game.RatingsCount, remote.RatingsCount)
	changes = mergeField(changes, "cover_image", &game.CoverImage, nonBlank(remote.CoverImage))
	changes = mergeField(changes, "banner_image", &game.BannerImage, nonBlank(remote.BannerImage))
	changes = mergeField(changes, "description", &game.Description, nonBlank(remote.Description))

	return changes
}

func mergeField[T comparable](changes []domain.FieldChange, field string, dst **T, src *T) []domain.FieldChange {
	if src == nil {
		return changes
	}
	if *dst != nil && **dst == *src {
		return changes
	}

	var old any
	if *dst != nil {
		old = **dst
	}
	v := *src
	*dst = &v

	return append(changes, domain.FieldChange{Field: field, OldValue: old, NewValue: v})
}

func nonBlank(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
