package models

import "time"

type AutoPlayMatchInfo struct {
	MatchType    string    `json:"match_type"`
	Venue        string    `json:"venue"`
	City         string    `json:"city"`
	Dates        []string  `json:"dates"`
	Teams        [2]string `json:"teams"`
	TossWinner   string    `json:"toss_winner"`
	TossDecision string    `json:"toss_decision"`
}

// AutoPlayBall is one delivery read from a recorded scorecard.
type AutoPlayBall struct {
	Over       int        `json:"over"`
	Ball       int        `json:"ball"`
	Batter     string     `json:"batter"`
	Bowler     string     `json:"bowler"`
	NonStriker string     `json:"non_striker"`
	Runs       int        `json:"runs"`
	Extras     int        `json:"extras"`
	TotalRuns  int        `json:"total_runs"`
	ExtrasType ExtrasType `json:"extras_type"`
	IsWicket   bool       `json:"is_wicket"`
	WicketType WicketType `json:"wicket_type"`
	PlayerOut  string     `json:"player_out,omitempty"`
	Commentary string     `json:"commentary"`
}

type AutoPlayInnings struct {
	InningsNumber int            `json:"innings_number"`
	BattingTeam   string         `json:"batting_team"`
	BowlingTeam   string         `json:"bowling_team"`
	Balls         []AutoPlayBall `json:"balls"`
}

type PlaybackState struct {
	IsPlaying        bool       `json:"is_playing"`
	IsPaused         bool       `json:"is_paused"`
	CurrentInnings   int        `json:"current_innings"`
	CurrentBallIndex int        `json:"current_ball_index"`
	Speed            float64    `json:"speed"`
	LastPlayedAt     *time.Time `json:"last_played_at,omitempty"`
}

// AutoPlay holds a parsed scorecard attached to a fixture and the replay cursor.
type AutoPlay struct {
	ID               int               `json:"id"`
	MatchID          int               `json:"match_id"`
	Info             AutoPlayMatchInfo `json:"info"`
	Innings          []AutoPlayInnings `json:"innings"`
	Playback         PlaybackState     `json:"playback"`
	OriginalFileName string            `json:"original_file_name"`
	FileSize         int64             `json:"file_size"`
	FileKey          string            `json:"file_key,omitempty"`
	FileURL          string            `json:"file_url,omitempty"`
	UploadedAt       time.Time         `json:"uploaded_at"`
}

// TotalBalls is the number of deliveries across all innings.
func (a *AutoPlay) TotalBalls() int {
	n := 0
	for _, inn := range a.Innings {
		n += len(inn.Balls)
	}
	return n
}
