package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"release_tracker/internal/domain"
)

type GameStore interface {
	Get(ctx context.Context, id int64) (*domain.Game, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Game, error)
	UpdateStatus(ctx context.Context, id int64, release domain.ReleaseStatus, availability domain.AvailabilityStatus) error
	ListAutoReleaseCandidates(ctx context.Context, statuses []domain.ReleaseStatus, onOrBefore time.Time) ([]domain.Game, error)
	ListReleasingBetween(ctx context.Context, statuses []domain.ReleaseStatus, from, to time.Time) ([]domain.Game, error)
	ListUpcoming(ctx context.Context, statuses []domain.ReleaseStatus, from time.Time, limit int) ([]domain.Game, error)
	ListForSync(ctx context.Context, limit int) ([]domain.Game, error)
	SaveSynced(ctx context.Context, game *domain.Game) error
	TouchSynced(ctx context.Context, id int64, at time.Time) error
}

type HistoryStore interface {
	Append(ctx context.Context, entry *domain.StatusHistoryEntry) (int64, error)
	ListByGame(ctx context.Context, gameID int64, page domain.Page) ([]domain.StatusHistoryEntry, int, error)
	ListTimeline(ctx context.Context, dimension domain.Dimension, page domain.Page) ([]domain.StatusHistoryEntry, int, error)
}

type WishlistStore interface {
	UserIDsByGame(ctx context.Context, gameID int64) ([]int64, error)
}

type NotificationStore interface {
	InsertBatch(ctx context.Context, notifications []domain.Notification) (int, error)
	ExistsSince(ctx context.Context, gameID int64, kind domain.NotificationType, since time.Time) (bool, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type CatalogClient interface {
	GetGame(ctx context.Context, externalID int64) (*domain.CatalogGame, error)
}

type Publisher interface {
	PublishNotifications(ctx context.Context, event domain.NotificationEvent) error
	Close() error
}

// Pacer spaces out calls to the external catalog.
type Pacer interface {
	Wait(ctx context.Context) error
}

type Transitioner interface {
	ApplyTransition(ctx context.Context, gameID int64, req domain.TransitionRequest) (*domain.TransitionResult, error)
}

type TransitionNotifier interface {
	NotifyTransition(ctx context.Context, event domain.TransitionEvent) (int, error)
}
