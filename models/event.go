package models

import "time"

type LeaderboardEntry struct {
	Team          int `json:"team"`
	Points        int `json:"points"`
	MatchesPlayed int `json:"matches_played"`
	Wins          int `json:"wins"`
	Losses        int `json:"losses"`
	Draws         int `json:"draws"`
}

type Event struct {
	ID                int                `json:"id"`
	Name              string             `json:"name"`
	ScheduleGenerated bool               `json:"schedule_generated"`
	Leaderboard       []LeaderboardEntry `json:"leaderboard"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}
