package models

import "time"

// TeamRegistration is a roster entered for an event. The scoring core only
// refers to it by id and reads its name for display.
type TeamRegistration struct {
	ID          int       `json:"id"`
	EventID     int       `json:"event_id"`
	TeamName    string    `json:"team_name"`
	CaptainName string    `json:"captain_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
