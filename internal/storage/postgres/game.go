package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"release_tracker/internal/domain"
)

const gameColumns = `
	id, title, release_status, availability_status, release_date, external_id,
	metacritic_score, rating, ratings_count, cover_image, banner_image, description,
	last_synced, created_at, updated_at`

const dateLayout = "2006-01-02"

type GameStore struct {
	db *sqlx.DB
}

func NewGameStore(db *sqlx.DB) *GameStore {
	return &GameStore{db: db}
}

func (s *GameStore) Get(ctx context.Context, id int64) (*domain.Game, error) {
	return s.get(ctx, `SELECT`+gameColumns+` FROM games WHERE id = $1`, id)
}

// GetForUpdate locks the game row until the surrounding transaction ends.
func (s *GameStore) GetForUpdate(ctx context.Context, id int64) (*domain.Game, error) {
	return s.get(ctx, `SELECT`+gameColumns+` FROM games WHERE id = $1 FOR UPDATE`, id)
}

func (s *GameStore) get(ctx context.Context, query string, id int64) (*domain.Game, error) {
	var game domain.Game
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &game, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *GameStore) UpdateStatus(ctx context.Context, id int64, release domain.ReleaseStatus, availability domain.AvailabilityStatus) error {
	query := `
		UPDATE games
		SET release_status = $2, availability_status = $3, updated_at = NOW()
		WHERE id = $1`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, id, release, availability)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("game %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListAutoReleaseCandidates returns games in one of statuses whose release
// date is on or before the given calendar date.
func (s *GameStore) ListAutoReleaseCandidates(ctx context.Context, statuses []domain.ReleaseStatus, onOrBefore time.Time) ([]domain.Game, error) {
	query := `SELECT` + gameColumns + `
		FROM games
		WHERE release_status = ANY($1)
			AND release_date IS NOT NULL
			AND release_date <= $2::date
		ORDER BY release_date, id`

	var games []domain.Game
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &games, query,
		pq.Array(statusStrings(statuses)), onOrBefore.Format(dateLayout))
	return games, err
}

// ListReleasingBetween returns games in one of statuses releasing within the
// inclusive calendar range [from, to].
func (s *GameStore) ListReleasingBetween(ctx context.Context, statuses []domain.ReleaseStatus, from, to time.Time) ([]domain.Game, error) {
	query := `SELECT` + gameColumns + `
		FROM games
		WHERE release_status = ANY($1)
			AND release_date BETWEEN $2::date AND $3::date
		ORDER BY release_date, id`

	var games []domain.Game
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &games, query,
		pq.Array(statusStrings(statuses)), from.Format(dateLayout), to.Format(dateLayout))
	return games, err
}

// ListUpcoming returns games in one of statuses that are either undated or
// dated on/after from, soonest first with undated games last.
func (s *GameStore) ListUpcoming(ctx context.Context, statuses []domain.ReleaseStatus, from time.Time, limit int) ([]domain.Game, error) {
	query := `SELECT` + gameColumns + `
		FROM games
		WHERE release_status = ANY($1)
			AND (release_date IS NULL OR release_date >= $2::date)
		ORDER BY release_date ASC NULLS LAST, id
		LIMIT $3`

	var games []domain.Game
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &games, query,
		pq.Array(statusStrings(statuses)), from.Format(dateLayout), limit)
	return games, err
}

// ListForSync returns externally sourced games, least recently synced first.
func (s *GameStore) ListForSync(ctx context.Context, limit int) ([]domain.Game, error) {
	query := `SELECT` + gameColumns + `
		FROM games
		WHERE external_id IS NOT NULL
		ORDER BY last_synced ASC NULLS FIRST, id
		LIMIT $1`

	var games []domain.Game
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &games, query, limit)
	return games, err
}

// SaveSynced writes the mirrored catalog fields and last_synced. Status
// columns are never written here; they only change through transitions.
func (s *GameStore) SaveSynced(ctx context.Context, game *domain.Game) error {
	query := `
		UPDATE games SET
			release_date = $2,
			metacritic_score = $3,
			rating = $4,
			ratings_count = $5,
			cover_image = $6,
			banner_image = $7,
			description = $8,
			last_synced = $9,
			updated_at = NOW()
		WHERE id = $1`

	var releaseDate any
	if game.ReleaseDate != nil {
		releaseDate = game.ReleaseDate.Format(dateLayout)
	}

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		game.ID,
		releaseDate,
		game.MetacriticScore,
		game.Rating,
		game.RatingsCount,
		game.CoverImage,
		game.BannerImage,
		game.Description,
		game.LastSynced,
	)
	return err
}

func (s *GameStore) TouchSynced(ctx context.Context, id int64, at time.Time) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE games SET last_synced = $2 WHERE id = $1",
		id, at,
	)
	return err
}

func statusStrings(statuses []domain.ReleaseStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
