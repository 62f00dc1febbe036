package models

import (
	"strconv"
	"time"
)

type TossDecision string

const (
	TossDecisionBat  TossDecision = "bat"
	TossDecisionBowl TossDecision = "bowl"
)

// LiveMatchStatus is the phase of a live match.
type LiveMatchStatus string

const (
	LiveStatusInProgress       LiveMatchStatus = "inProgress"
	LiveStatusInnings1Complete LiveMatchStatus = "innings1Complete"
	LiveStatusInnings2Complete LiveMatchStatus = "innings2Complete"
	LiveStatusCompleted        LiveMatchStatus = "completed"
)

type MatchType string

const (
	MatchTypeT20 MatchType = "T20"
	MatchTypeT10 MatchType = "T10"
	MatchTypeODI MatchType = "ODI"
)

// Overs returns the overs limit of the format, 0 for unknown formats.
func (t MatchType) Overs() int {
	switch t {
	case MatchTypeT20:
		return 20
	case MatchTypeT10:
		return 10
	case MatchTypeODI:
		return 50
	default:
		return 0
	}
}

type ExtrasType string

const (
	ExtrasNone    ExtrasType = "none"
	ExtrasWide    ExtrasType = "wide"
	ExtrasWides   ExtrasType = "wides"
	ExtrasNoBall  ExtrasType = "noBall"
	ExtrasNoBalls ExtrasType = "noballs"
	ExtrasBye     ExtrasType = "bye"
	ExtrasByes    ExtrasType = "byes"
	ExtrasLegBye  ExtrasType = "legBye"
	ExtrasLegByes ExtrasType = "legbyes"
)

func (t ExtrasType) IsValid() bool {
	switch t {
	case ExtrasNone, ExtrasWide, ExtrasWides, ExtrasNoBall, ExtrasNoBalls,
		ExtrasBye, ExtrasByes, ExtrasLegBye, ExtrasLegByes:
		return true
	}
	return false
}

type WicketType string

const (
	WicketNone             WicketType = "none"
	WicketBowled           WicketType = "bowled"
	WicketCaught           WicketType = "caught"
	WicketCaughtAndBowled  WicketType = "caught and bowled"
	WicketCaughtBehind     WicketType = "caught behind"
	WicketLBW              WicketType = "lbw"
	WicketRunOut           WicketType = "runOut"
	WicketRunOutSpaced     WicketType = "run out"
	WicketStumped          WicketType = "stumped"
	WicketHitWicket        WicketType = "hitWicket"
	WicketHitWicketSpaced  WicketType = "hit wicket"
	WicketObstructingField WicketType = "obstructing the field"
	WicketHitBallTwice     WicketType = "hit the ball twice"
	WicketTimedOut         WicketType = "timed out"
	WicketRetiredHurt      WicketType = "retired hurt"
	WicketHandledBall      WicketType = "handled the ball"
)

func (t WicketType) IsValid() bool {
	switch t {
	case WicketNone, WicketBowled, WicketCaught, WicketCaughtAndBowled, WicketCaughtBehind,
		WicketLBW, WicketRunOut, WicketRunOutSpaced, WicketStumped, WicketHitWicket,
		WicketHitWicketSpaced, WicketObstructingField, WicketHitBallTwice, WicketTimedOut,
		WicketRetiredHurt, WicketHandledBall:
		return true
	}
	return false
}

// Delivery is one recorded ball. It is never changed after it is appended.
type Delivery struct {
	BallNumber      int        `json:"ball_number"`
	Over            string     `json:"over"`
	Batsman         string     `json:"batsman"`
	Bowler          string     `json:"bowler"`
	Runs            int        `json:"runs"`
	Extras          int        `json:"extras"`
	ExtrasType      ExtrasType `json:"extras_type"`
	IsWicket        bool       `json:"is_wicket"`
	WicketType      WicketType `json:"wicket_type"`
	DismissedPlayer string     `json:"dismissed_player"`
	Commentary      string     `json:"commentary"`
	Timestamp       time.Time  `json:"timestamp"`
}

type BatsmanStats struct {
	Player     string  `json:"player"`
	Runs       int     `json:"runs"`
	Balls      int     `json:"balls"`
	Fours      int     `json:"fours"`
	Sixes      int     `json:"sixes"`
	StrikeRate float64 `json:"strike_rate"`
}

type BowlerStats struct {
	Player  string  `json:"player"`
	Balls   int     `json:"balls"`
	Overs   float64 `json:"overs"`
	Maidens int     `json:"maidens"`
	Runs    int     `json:"runs"`
	Wickets int     `json:"wickets"`
	Economy float64 `json:"economy"`
}

type Innings struct {
	InningsNumber  int            `json:"innings_number"`
	BattingTeam    int            `json:"batting_team"`
	BowlingTeam    int            `json:"bowling_team"`
	Score          int            `json:"score"`
	Wickets        int            `json:"wickets"`
	Balls          int            `json:"balls"`
	Overs          float64        `json:"overs"`
	Extras         int            `json:"extras"`
	CurrentBatsmen []BatsmanStats `json:"current_batsmen"`
	CurrentBowler  *BowlerStats   `json:"current_bowler,omitempty"`
	BallByBall     []Delivery     `json:"ball_by_ball"`
	IsCompleted    bool           `json:"is_completed"`
}

type MatchResult struct {
	Winner  *int   `json:"winner,omitempty"`
	Margin  string `json:"margin,omitempty"`
	Summary string `json:"summary"`
}

// LiveMatch is the authoritative scoring document of one fixture.
type LiveMatch struct {
	ID             int             `json:"id"`
	MatchID        int             `json:"match_id"`
	TeamA          int             `json:"team_a"`
	TeamB          int             `json:"team_b"`
	TeamAName      string          `json:"team_a_name"`
	TeamBName      string          `json:"team_b_name"`
	TossWinner     int             `json:"toss_winner"`
	TossDecision   TossDecision    `json:"toss_decision"`
	MatchType      MatchType       `json:"match_type,omitempty"`
	TotalOvers     int             `json:"total_overs"`
	CurrentInnings int             `json:"current_innings"`
	Innings        []Innings       `json:"innings"`
	Status         LiveMatchStatus `json:"status"`
	Result         *MatchResult    `json:"result,omitempty"`
	LastUpdated    time.Time       `json:"last_updated"`
	CreatedAt      time.Time       `json:"created_at"`
	Version        int             `json:"-"`
}

// Current returns the innings pointed to by CurrentInnings, or nil.
func (m *LiveMatch) Current() *Innings {
	idx := m.CurrentInnings - 1
	if idx < 0 || idx >= len(m.Innings) {
		return nil
	}
	return &m.Innings[idx]
}

// TeamName returns the stored display name of a team, falling back to its id.
func (m *LiveMatch) TeamName(teamID int) string {
	switch {
	case teamID == m.TeamA && m.TeamAName != "":
		return m.TeamAName
	case teamID == m.TeamB && m.TeamBName != "":
		return m.TeamBName
	}
	return "Team " + strconv.Itoa(teamID)
}

// Clone returns a deep copy so a command can mutate it and discard it on failure.
func (m *LiveMatch) Clone() *LiveMatch {
	c := *m
	if m.Result != nil {
		r := *m.Result
		if m.Result.Winner != nil {
			w := *m.Result.Winner
			r.Winner = &w
		}
		c.Result = &r
	}
	c.Innings = make([]Innings, len(m.Innings))
	for i, inn := range m.Innings {
		ci := inn
		ci.CurrentBatsmen = make([]BatsmanStats, len(inn.CurrentBatsmen))
		copy(ci.CurrentBatsmen, inn.CurrentBatsmen)
		if inn.CurrentBowler != nil {
			b := *inn.CurrentBowler
			ci.CurrentBowler = &b
		}
		ci.BallByBall = make([]Delivery, len(inn.BallByBall))
		copy(ci.BallByBall, inn.BallByBall)
		c.Innings[i] = ci
	}
	return &c
}

// MatchSummary is the flattened projection kept on the fixture for list views.
type MatchSummary struct {
	ScoreA         int     `json:"score_a"`
	ScoreB         int     `json:"score_b"`
	Overs          float64 `json:"overs"`
	Wickets        int     `json:"wickets"`
	CurrentBatting *int    `json:"current_batting,omitempty"`
}
