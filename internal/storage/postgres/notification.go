package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"release_tracker/internal/domain"
)

// insertChunk keeps a single statement well under the 65535 bind parameter limit.
const insertChunk = 1000

type NotificationStore struct {
	db *sqlx.DB
}

func NewNotificationStore(db *sqlx.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// InsertBatch appends notifications and returns how many rows were written.
func (s *NotificationStore) InsertBatch(ctx context.Context, notifications []domain.Notification) (int, error) {
	inserted := 0
	for start := 0; start < len(notifications); start += insertChunk {
		end := min(start+insertChunk, len(notifications))
		n, err := s.insertChunk(ctx, notifications[start:end])
		inserted += n
		if err != nil {
			return inserted, err
		}
	}
	return inserted, nil
}

func (s *NotificationStore) insertChunk(ctx context.Context, notifications []domain.Notification) (int, error) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO notifications (user_id, type, game_id, title, message, is_read) VALUES ")

	const cols = 6
	valueArgs := make([]any, 0, len(notifications)*cols)

	for i, n := range notifications {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for c := 0; c < cols; c++ {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(i*cols + c + 1))
		}
		sb.WriteString(")")
		valueArgs = append(valueArgs, n.UserID, n.Type, n.GameID, n.Title, n.Message, n.IsRead)
	}

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), valueArgs...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

// ExistsSince reports whether a notification of kind for the game was created
// at or after since.
func (s *NotificationStore) ExistsSince(ctx context.Context, gameID int64, kind domain.NotificationType, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE game_id = $1 AND type = $2 AND created_at >= $3
		)`

	var exists bool
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &exists, query, gameID, kind, since)
	return exists, err
}
