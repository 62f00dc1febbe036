// Package cricsheet reads ball-by-ball scorecards in the Cricsheet JSON
// format (https://cricsheet.org/format/json/) into replayable innings.
package cricsheet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Dosada05/uniplay/models"
)

var ErrInvalidFormat = errors.New("invalid cricsheet file")

// ValidationError lists every structural problem found in a file.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidFormat, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidFormat
}

type file struct {
	Info    *info     `json:"info"`
	Innings []innings `json:"innings"`
}

type info struct {
	MatchType string   `json:"match_type"`
	Venue     string   `json:"venue"`
	City      string   `json:"city"`
	Dates     []string `json:"dates"`
	Teams     []string `json:"teams"`
	Toss      struct {
		Winner   string `json:"winner"`
		Decision string `json:"decision"`
	} `json:"toss"`
}

type innings struct {
	Team  string `json:"team"`
	Overs []over `json:"overs"`
}

type over struct {
	Over       int        `json:"over"`
	Deliveries []delivery `json:"deliveries"`
}

type delivery struct {
	Batter     string `json:"batter"`
	Batsman    string `json:"batsman"`
	Bowler     string `json:"bowler"`
	NonStriker string `json:"non_striker"`
	Runs       struct {
		Batter int  `json:"batter"`
		Extras int  `json:"extras"`
		Total  *int `json:"total"`
	} `json:"runs"`
	Extras  map[string]int `json:"extras"`
	Wickets []struct {
		Kind      string `json:"kind"`
		PlayerOut string `json:"player_out"`
	} `json:"wickets"`
}

// Scorecard is a parsed file ready for replay.
type Scorecard struct {
	Info    models.AutoPlayMatchInfo
	Innings []models.AutoPlayInnings
	Players []string
}

// Parse validates and converts a Cricsheet JSON document.
func Parse(data []byte) (*Scorecard, error) {
	var f file
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if err := validate(&f); err != nil {
		return nil, err
	}

	sc := &Scorecard{
		Info: models.AutoPlayMatchInfo{
			MatchType:    orDefault(f.Info.MatchType, string(models.MatchTypeT20)),
			Venue:        orDefault(f.Info.Venue, "Unknown"),
			City:         orDefault(f.Info.City, "Unknown"),
			Dates:        f.Info.Dates,
			Teams:        [2]string{f.Info.Teams[0], f.Info.Teams[1]},
			TossWinner:   f.Info.Toss.Winner,
			TossDecision: f.Info.Toss.Decision,
		},
	}
	if sc.Info.Dates == nil {
		sc.Info.Dates = []string{}
	}

	players := make(map[string]struct{})
	for i, inn := range f.Innings {
		parsed := models.AutoPlayInnings{
			InningsNumber: i + 1,
			BattingTeam:   inn.Team,
			BowlingTeam:   otherTeam(sc.Info.Teams, inn.Team),
		}
		for _, o := range inn.Overs {
			for j, d := range o.Deliveries {
				ball := convertDelivery(o.Over, j+1, d)
				parsed.Balls = append(parsed.Balls, ball)
				for _, p := range []string{ball.Batter, ball.Bowler, ball.NonStriker, ball.PlayerOut} {
					if p != "" {
						players[p] = struct{}{}
					}
				}
			}
		}
		sc.Innings = append(sc.Innings, parsed)
	}

	sc.Players = make([]string, 0, len(players))
	for p := range players {
		sc.Players = append(sc.Players, p)
	}
	sort.Strings(sc.Players)
	return sc, nil
}

func validate(f *file) error {
	var problems []string
	if f.Info == nil {
		problems = append(problems, `missing "info" field`)
	} else if len(f.Info.Teams) != 2 {
		problems = append(problems, fmt.Sprintf(`"info.teams" must list two teams, found %d`, len(f.Info.Teams)))
	}
	if len(f.Innings) == 0 {
		problems = append(problems, `missing or empty "innings" field`)
	}
	for i, inn := range f.Innings {
		if inn.Team == "" {
			problems = append(problems, fmt.Sprintf(`innings %d: missing "team" field`, i+1))
		}
		if len(inn.Overs) == 0 {
			problems = append(problems, fmt.Sprintf(`innings %d: missing or empty "overs" field`, i+1))
		}
		for _, o := range inn.Overs {
			if len(o.Deliveries) == 0 {
				problems = append(problems, fmt.Sprintf(`innings %d over %d: no deliveries`, i+1, o.Over))
			}
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func convertDelivery(overNum, ballNum int, d delivery) models.AutoPlayBall {
	b := models.AutoPlayBall{
		Over:       overNum,
		Ball:       ballNum,
		Batter:     orDefault(orDefault(d.Batter, d.Batsman), "Unknown"),
		Bowler:     orDefault(d.Bowler, "Unknown"),
		NonStriker: d.NonStriker,
		Runs:       d.Runs.Batter,
		Extras:     d.Runs.Extras,
		ExtrasType: extrasType(d.Extras),
		WicketType: models.WicketNone,
	}
	b.TotalRuns = b.Runs + b.Extras
	if d.Runs.Total != nil {
		b.TotalRuns = *d.Runs.Total
	}

	kind := ""
	if len(d.Wickets) > 0 {
		w := d.Wickets[0]
		b.IsWicket = true
		kind = orDefault(w.Kind, string(models.WicketCaught))
		b.PlayerOut = orDefault(w.PlayerOut, b.Batter)
		// Kinds outside the scoring vocabulary still count as a wicket.
		if wt := models.WicketType(kind); wt.IsValid() {
			b.WicketType = wt
		}
	}
	b.Commentary = Commentary(b, kind)
	return b
}

func extrasType(extras map[string]int) models.ExtrasType {
	for _, t := range []models.ExtrasType{models.ExtrasWides, models.ExtrasNoBalls, models.ExtrasByes, models.ExtrasLegByes} {
		if extras[string(t)] > 0 {
			return t
		}
	}
	return models.ExtrasNone
}

// Commentary generates the line shown for a replayed ball. kind is the
// dismissal as written in the file.
func Commentary(b models.AutoPlayBall, kind string) string {
	switch {
	case b.IsWicket:
		return fmt.Sprintf("WICKET! %s is out %s!", b.PlayerOut, kind)
	case b.Runs == 6:
		return fmt.Sprintf("SIX! %s clears the boundary!", b.Batter)
	case b.Runs == 4:
		return fmt.Sprintf("FOUR! Beautiful shot by %s!", b.Batter)
	case b.ExtrasType == models.ExtrasWides:
		return fmt.Sprintf("Wide ball by %s", b.Bowler)
	case b.ExtrasType == models.ExtrasNoBalls:
		return fmt.Sprintf("No ball by %s", b.Bowler)
	case b.Runs == 0:
		return fmt.Sprintf("Dot ball, %s to %s", b.Bowler, b.Batter)
	case b.Runs == 1:
		return fmt.Sprintf("1 run to %s", b.Batter)
	default:
		return fmt.Sprintf("%d runs to %s", b.Runs, b.Batter)
	}
}

// InningsTotal is the replayed outcome of one innings.
type InningsTotal struct {
	Team    string
	Balls   int
	Runs    int
	Wickets int
}

// Totals sums every innings the way the scoring engine would replay it.
func (s *Scorecard) Totals() []InningsTotal {
	totals := make([]InningsTotal, 0, len(s.Innings))
	for _, inn := range s.Innings {
		t := InningsTotal{Team: inn.BattingTeam, Balls: len(inn.Balls)}
		for _, b := range inn.Balls {
			t.Runs += b.Runs + b.Extras
			if b.IsWicket {
				t.Wickets++
			}
		}
		totals = append(totals, t)
	}
	return totals
}

func otherTeam(teams [2]string, team string) string {
	if teams[0] == team {
		return teams[1]
	}
	return teams[0]
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
