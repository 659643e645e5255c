package domain

import "time"

type NotificationType string

const (
	NotificationRelease         NotificationType = "release"
	NotificationStatusChange    NotificationType = "status_change"
	NotificationReleaseReminder NotificationType = "release_reminder"
)

type Notification struct {
	ID        int64            `db:"id"`
	UserID    int64            `db:"user_id"`
	Type      NotificationType `db:"type"`
	GameID    int64            `db:"game_id"`
	Title     string           `db:"title"`
	Message   string           `db:"message"`
	IsRead    bool             `db:"is_read"`
	CreatedAt time.Time        `db:"created_at"`
}

// NotificationEvent is published once per fan-out batch for downstream delivery.
type NotificationEvent struct {
	Type      NotificationType `json:"type"`
	GameID    int64            `json:"game_id"`
	GameTitle string           `json:"game_title"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	UserIDs   []int64          `json:"user_ids"`
	Timestamp time.Time        `json:"timestamp"`
}
