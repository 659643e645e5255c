package domain

import "time"

type Countdown struct {
	ReleaseDate      *time.Time `json:"release_date"`
	DaysUntilRelease *int       `json:"days_until_release"`
	IsReleased       bool       `json:"is_released"`
	CountdownLabel   string     `json:"countdown_label"`
}

type GameCountdown struct {
	Game      Game      `json:"game"`
	Countdown Countdown `json:"countdown"`
}
