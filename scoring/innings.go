package scoring

import (
	"fmt"
	"time"

	"github.com/Dosada05/uniplay/models"
)

// NewMatchParams describes a match at the moment scoring starts.
type NewMatchParams struct {
	MatchID      int
	TeamA        int
	TeamB        int
	TeamAName    string
	TeamBName    string
	TossWinner   int
	TossDecision models.TossDecision
	MatchType    models.MatchType
	TotalOvers   int
	Now          time.Time
}

// BattingOrder returns the team batting first and the team bowling first.
func BattingOrder(teamA, teamB, tossWinner int, decision models.TossDecision) (batting, bowling int, err error) {
	if tossWinner != teamA && tossWinner != teamB {
		return 0, 0, ErrInvalidToss
	}
	other := teamA
	if tossWinner == teamA {
		other = teamB
	}
	switch decision {
	case models.TossDecisionBat:
		return tossWinner, other, nil
	case models.TossDecisionBowl:
		return other, tossWinner, nil
	default:
		return 0, 0, ErrInvalidDecision
	}
}

// NewLiveMatch builds a match in progress with an empty first innings.
func NewLiveMatch(p NewMatchParams) (*models.LiveMatch, error) {
	batting, bowling, err := BattingOrder(p.TeamA, p.TeamB, p.TossWinner, p.TossDecision)
	if err != nil {
		return nil, err
	}
	return &models.LiveMatch{
		MatchID:        p.MatchID,
		TeamA:          p.TeamA,
		TeamB:          p.TeamB,
		TeamAName:      p.TeamAName,
		TeamBName:      p.TeamBName,
		TossWinner:     p.TossWinner,
		TossDecision:   p.TossDecision,
		MatchType:      p.MatchType,
		TotalOvers:     p.TotalOvers,
		CurrentInnings: 1,
		Innings:        []models.Innings{newInnings(1, batting, bowling)},
		Status:         models.LiveStatusInProgress,
		LastUpdated:    p.Now,
		CreatedAt:      p.Now,
	}, nil
}

func newInnings(number, batting, bowling int) models.Innings {
	return models.Innings{
		InningsNumber:  number,
		BattingTeam:    batting,
		BowlingTeam:    bowling,
		CurrentBatsmen: []models.BatsmanStats{},
		BallByBall:     []models.Delivery{},
	}
}

// CompleteInnings closes the current innings. Closing the first innings opens
// the second with the sides swapped; closing the second decides the match and
// returns its result.
func CompleteInnings(m *models.LiveMatch, at time.Time) (*models.MatchResult, error) {
	if m.Status == models.LiveStatusCompleted {
		return nil, ErrMatchCompleted
	}
	inn := m.Current()
	if inn == nil {
		return nil, ErrNoActiveInnings
	}
	inn.IsCompleted = true
	m.LastUpdated = at

	if m.CurrentInnings == 1 {
		m.Innings = append(m.Innings, newInnings(2, inn.BowlingTeam, inn.BattingTeam))
		m.CurrentInnings = 2
		m.Status = models.LiveStatusInnings1Complete
		return nil, nil
	}

	result := DecideResult(m)
	m.Result = &result
	m.Status = models.LiveStatusCompleted
	return &result, nil
}

// DecideResult compares the two innings scores. It expects both innings to exist.
func DecideResult(m *models.LiveMatch) models.MatchResult {
	first, second := m.Innings[0], m.Innings[1]

	var winner int
	var margin string
	switch {
	case second.Score > first.Score:
		winner = second.BattingTeam
		margin = fmt.Sprintf("%d wickets", MaxWickets-second.Wickets)
	case first.Score > second.Score:
		winner = first.BattingTeam
		margin = fmt.Sprintf("%d runs", first.Score-second.Score)
	default:
		return models.MatchResult{Summary: "Match Tied"}
	}

	return models.MatchResult{
		Winner:  &winner,
		Margin:  margin,
		Summary: fmt.Sprintf("%s won by %s", m.TeamName(winner), margin),
	}
}

// ReplaceCurrentPlayers assigns the batsmen and bowler of the current innings.
// Each given side is replaced wholesale with zeroed figures; an empty batsmen
// list or empty bowler name leaves that side as it is.
func ReplaceCurrentPlayers(m *models.LiveMatch, batsmen []string, bowler string) error {
	if m.Status == models.LiveStatusCompleted {
		return ErrMatchCompleted
	}
	inn := m.Current()
	if inn == nil {
		return ErrNoActiveInnings
	}
	if len(batsmen) > 0 {
		inn.CurrentBatsmen = make([]models.BatsmanStats, 0, len(batsmen))
		for _, name := range batsmen {
			inn.CurrentBatsmen = append(inn.CurrentBatsmen, models.BatsmanStats{Player: name})
		}
	}
	if bowler != "" {
		inn.CurrentBowler = &models.BowlerStats{Player: bowler}
	}
	return nil
}
