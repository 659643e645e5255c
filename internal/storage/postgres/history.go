package postgres

import (
	"context"
	"strconv"

	"github.com/jmoiron/sqlx"

	"release_tracker/internal/domain"
)

const historyColumns = `
	id, game_id, previous_release_status, new_release_status,
	previous_availability_status, new_availability_status,
	reason, actor_id, created_at`

type HistoryStore struct {
	db *sqlx.DB
}

func NewHistoryStore(db *sqlx.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Append inserts entry and fills in its generated id and timestamp.
func (s *HistoryStore) Append(ctx context.Context, entry *domain.StatusHistoryEntry) (int64, error) {
	query := `
		INSERT INTO status_history (
			game_id, previous_release_status, new_release_status,
			previous_availability_status, new_availability_status,
			reason, actor_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		entry.GameID,
		entry.PreviousReleaseStatus,
		entry.NewReleaseStatus,
		entry.PreviousAvailabilityStatus,
		entry.NewAvailabilityStatus,
		entry.Reason,
		entry.ActorID,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return 0, err
	}
	return entry.ID, nil
}

// ListByGame returns one newest-first page of a game's history and the total
// number of entries for that game.
func (s *HistoryStore) ListByGame(ctx context.Context, gameID int64, page domain.Page) ([]domain.StatusHistoryEntry, int, error) {
	return s.list(ctx, "WHERE game_id = $1", []any{gameID}, page)
}

// ListTimeline returns one newest-first page across all games, optionally
// restricted to entries touching one dimension.
func (s *HistoryStore) ListTimeline(ctx context.Context, dimension domain.Dimension, page domain.Page) ([]domain.StatusHistoryEntry, int, error) {
	var where string
	switch dimension {
	case domain.DimensionRelease:
		where = "WHERE new_release_status IS NOT NULL"
	case domain.DimensionAvailability:
		where = "WHERE new_availability_status IS NOT NULL"
	}
	return s.list(ctx, where, nil, page)
}

func (s *HistoryStore) list(ctx context.Context, where string, args []any, page domain.Page) ([]domain.StatusHistoryEntry, int, error) {
	exec := GetExecutor(ctx, s.db)
	page = page.Normalize()

	var total int
	if err := sqlx.GetContext(ctx, exec, &total, "SELECT COUNT(*) FROM status_history "+where, args...); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := "SELECT" + historyColumns + " FROM status_history " + where +
		" ORDER BY created_at DESC, id DESC LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)

	entries := []domain.StatusHistoryEntry{}
	err := sqlx.SelectContext(ctx, exec, &entries, query, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
