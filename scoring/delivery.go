package scoring

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Dosada05/uniplay/models"
)

const (
	BallsPerOver = 6
	MaxWickets   = 10

	unknownPlayer = "Unknown"
)

var (
	ErrNoActiveInnings  = errors.New("no active innings")
	ErrInningsCompleted = errors.New("innings is already completed")
	ErrMatchCompleted   = errors.New("match is already completed")
	ErrInvalidToss      = errors.New("toss winner must be one of the two teams")
	ErrInvalidDecision  = errors.New("toss decision must be bat or bowl")
)

// Ball is the outcome of one delivery as reported by the scorer.
// Zero values are replaced with defaults when the delivery is recorded.
type Ball struct {
	Runs            int
	Extras          int
	ExtrasType      models.ExtrasType
	IsWicket        bool
	WicketType      models.WicketType
	DismissedPlayer string
	Batsman         string
	Bowler          string
	Commentary      string
}

func (b Ball) withDefaults() Ball {
	if b.ExtrasType == "" {
		b.ExtrasType = models.ExtrasNone
	}
	if b.WicketType == "" {
		b.WicketType = models.WicketNone
	}
	if b.Batsman == "" {
		b.Batsman = unknownPlayer
	}
	if b.Bowler == "" {
		b.Bowler = unknownPlayer
	}
	if b.Commentary == "" {
		b.Commentary = fmt.Sprintf("%d runs", b.Runs)
	}
	return b
}

// OverLabel formats the position of the n-th ball of an innings (1-based).
// The sixth ball of an over is labelled with the bare over count.
func OverLabel(totalBalls int) string {
	overNum := totalBalls / BallsPerOver
	ballInOver := totalBalls % BallsPerOver
	if ballInOver == 0 {
		return strconv.Itoa(overNum)
	}
	return fmt.Sprintf("%d.%d", overNum, ballInOver)
}

// OversFromBalls converts a raw ball count to overs rounded to one decimal.
func OversFromBalls(balls int) float64 {
	return round(float64(balls)/BallsPerOver, 1)
}

// IsInningsOver reports whether an innings has hit its wicket or overs limit.
func IsInningsOver(inn *models.Innings, totalOvers int) bool {
	return inn.Wickets >= MaxWickets || inn.Overs >= float64(totalOvers)
}

// RecordDelivery appends one delivery to the current innings of m and updates
// every counter derived from it. m is left untouched when an error is returned.
func RecordDelivery(m *models.LiveMatch, b Ball, at time.Time) (models.Delivery, error) {
	if m.Status == models.LiveStatusCompleted {
		return models.Delivery{}, ErrMatchCompleted
	}
	inn := m.Current()
	if inn == nil {
		return models.Delivery{}, ErrNoActiveInnings
	}
	if inn.IsCompleted {
		return models.Delivery{}, ErrInningsCompleted
	}

	b = b.withDefaults()
	totalBalls := inn.Balls + 1

	d := models.Delivery{
		BallNumber:      totalBalls,
		Over:            OverLabel(totalBalls),
		Batsman:         b.Batsman,
		Bowler:          b.Bowler,
		Runs:            b.Runs,
		Extras:          b.Extras,
		ExtrasType:      b.ExtrasType,
		IsWicket:        b.IsWicket,
		WicketType:      b.WicketType,
		DismissedPlayer: b.DismissedPlayer,
		Commentary:      b.Commentary,
		Timestamp:       at,
	}
	inn.BallByBall = append(inn.BallByBall, d)

	inn.Balls = totalBalls
	inn.Score += b.Runs + b.Extras
	inn.Overs = OversFromBalls(inn.Balls)
	if b.Extras > 0 {
		inn.Extras += b.Extras
	}
	if b.IsWicket {
		inn.Wickets++
	}
	updatePlayerStats(inn, b)

	if m.Status == models.LiveStatusInnings1Complete && m.CurrentInnings == 2 {
		m.Status = models.LiveStatusInProgress
	}
	if IsInningsOver(inn, m.TotalOvers) {
		inn.IsCompleted = true
		if m.CurrentInnings == 1 {
			m.Status = models.LiveStatusInnings1Complete
		} else {
			m.Status = models.LiveStatusInnings2Complete
		}
	}
	m.LastUpdated = at

	return d, nil
}

func updatePlayerStats(inn *models.Innings, b Ball) {
	for i := range inn.CurrentBatsmen {
		bat := &inn.CurrentBatsmen[i]
		if bat.Player != b.Batsman {
			continue
		}
		bat.Runs += b.Runs
		bat.Balls++
		switch b.Runs {
		case 4:
			bat.Fours++
		case 6:
			bat.Sixes++
		}
		bat.StrikeRate = round(float64(bat.Runs)/float64(bat.Balls)*100, 2)
		break
	}

	if bowl := inn.CurrentBowler; bowl != nil && bowl.Player == b.Bowler {
		bowl.Balls++
		bowl.Runs += b.Runs + b.Extras
		if b.IsWicket {
			bowl.Wickets++
		}
		bowl.Overs = OversFromBalls(bowl.Balls)
		bowl.Economy = round(float64(bowl.Runs)/(float64(bowl.Balls)/BallsPerOver), 2)
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
