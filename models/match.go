package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "Scheduled"
	MatchStatusInProgress MatchStatus = "InProgress"
	MatchStatusCompleted  MatchStatus = "Completed"
	MatchStatusPostponed  MatchStatus = "Postponed"
)

func (s MatchStatus) IsValid() bool {
	switch s {
	case MatchStatusScheduled, MatchStatusInProgress, MatchStatusCompleted, MatchStatusPostponed:
		return true
	}
	return false
}

type FixtureStage string

const (
	StageRoundRobin FixtureStage = "RoundRobin"
	StageSemifinal  FixtureStage = "Semifinal"
	StageFinal      FixtureStage = "Final"
)

// Fixture is one scheduled game of an event. TeamA and TeamB are nil only
// for the Final until the semifinals are decided.
type Fixture struct {
	ID            int          `json:"id"`
	EventID       int          `json:"event_id"`
	TeamA         *int         `json:"team_a"`
	TeamB         *int         `json:"team_b"`
	Stage         FixtureStage `json:"stage"`
	Round         int          `json:"round"`
	ScheduledTime time.Time    `json:"scheduled_time"`
	Venue         string       `json:"venue"`
	Status        MatchStatus  `json:"status"`
	ScoreA        int          `json:"score_a"`
	ScoreB        int          `json:"score_b"`
	Winner        *int         `json:"winner,omitempty"`

	// LeaderboardApplied is set once the result has been counted in the
	// event leaderboard. A fixture is counted at most once.
	LeaderboardApplied bool `json:"leaderboard_applied"`

	// Live projection, refreshed by the scoring engine after each command.
	LiveOvers      float64 `json:"live_overs"`
	LiveWickets    int     `json:"live_wickets"`
	CurrentBatting *int    `json:"current_batting,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTeam reports whether teamID plays in the fixture.
func (f *Fixture) HasTeam(teamID int) bool {
	return (f.TeamA != nil && *f.TeamA == teamID) || (f.TeamB != nil && *f.TeamB == teamID)
}
