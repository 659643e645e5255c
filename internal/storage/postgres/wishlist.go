package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// WishlistStore reads the wishlist relation, which is owned elsewhere.
type WishlistStore struct {
	db *sqlx.DB
}

func NewWishlistStore(db *sqlx.DB) *WishlistStore {
	return &WishlistStore{db: db}
}

func (s *WishlistStore) UserIDsByGame(ctx context.Context, gameID int64) ([]int64, error) {
	query := `SELECT DISTINCT user_id FROM wishlist_entries WHERE game_id = $1 ORDER BY user_id`

	var ids []int64
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &ids, query, gameID)
	return ids, err
}
