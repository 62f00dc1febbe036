package prediction

import (
	"context"
	"fmt"
	"math"

	"github.com/Dosada05/uniplay/models"
)

// Heuristic projects the current innings from run rates and wickets lost.
type Heuristic struct{}

func (Heuristic) Predict(_ context.Context, m *models.LiveMatch) (*Prediction, error) {
	inn := m.Current()
	if inn == nil {
		return nil, fmt.Errorf("match %d has no innings to predict from", m.MatchID)
	}

	var p *Prediction
	if m.CurrentInnings == 1 {
		p = predictFirstInnings(m, inn)
	} else {
		p = predictChase(m, inn)
	}
	p.MatchID = m.MatchID
	p.Source = SourceHeuristic
	if len(p.KeyFactors) > maxKeyFactors {
		p.KeyFactors = p.KeyFactors[:maxKeyFactors]
	}
	return p, nil
}

func side(m *models.LiveMatch, team int) string {
	if team == m.TeamA {
		return MomentumTeamA
	}
	return MomentumTeamB
}

func opposite(s string) string {
	if s == MomentumTeamA {
		return MomentumTeamB
	}
	return MomentumTeamA
}

// probabilities converts the batting side's chance of winning into both teams'.
func probabilities(m *models.LiveMatch, battingTeam int, battingChance float64) WinProbability {
	a := battingChance
	if battingTeam != m.TeamA {
		a = 100 - battingChance
	}
	teamA := int(math.Round(a))
	return WinProbability{TeamA: teamA, TeamB: 100 - teamA}
}

func predictFirstInnings(m *models.LiveMatch, inn *models.Innings) *Prediction {
	p := &Prediction{Momentum: MomentumNeutral, Confidence: ConfidenceMedium}
	batting := side(m, inn.BattingTeam)

	oversRemaining := float64(m.TotalOvers) - inn.Overs
	runRate := 0.0
	if inn.Overs > 0 {
		runRate = float64(inn.Score) / inn.Overs
	}

	wicketFactor := math.Max(0.3, 1-float64(inn.Wickets)*0.08)
	acceleration := 1.15
	if oversRemaining <= 5 {
		acceleration = 1.3
	}
	projected := float64(inn.Score) + runRate*oversRemaining*wicketFactor*acceleration
	switch {
	case inn.Wickets >= 7:
		projected *= 0.85
	case inn.Wickets <= 2:
		projected *= 1.1
	}
	p.PredictedScore = int(math.Round(projected))

	var chance float64
	switch {
	case p.PredictedScore >= 200:
		chance = 70
		p.KeyFactors = append(p.KeyFactors, "Excellent batting display - high scoring rate")
	case p.PredictedScore >= 180:
		chance = 60
		p.KeyFactors = append(p.KeyFactors, "Strong total being built")
	case p.PredictedScore >= 160:
		chance = 50
		p.KeyFactors = append(p.KeyFactors, "Competitive score expected")
	case p.PredictedScore >= 140:
		chance = 40
		p.KeyFactors = append(p.KeyFactors, "Below par score - challenging target needed")
	default:
		chance = 30
		p.KeyFactors = append(p.KeyFactors, "Low scoring innings - defensive bowling dominance")
	}
	p.WinProbability = probabilities(m, inn.BattingTeam, chance)

	switch {
	case runRate > 9:
		p.KeyFactors = append(p.KeyFactors, fmt.Sprintf("Aggressive batting - %.2f run rate", runRate))
		p.Momentum = batting
	case runRate < 6:
		p.KeyFactors = append(p.KeyFactors, fmt.Sprintf("Slow scoring rate - %.2f RPO", runRate))
		p.Momentum = opposite(batting)
	default:
		p.KeyFactors = append(p.KeyFactors, fmt.Sprintf("Steady progress at %.2f RPO", runRate))
	}

	switch {
	case inn.Wickets <= 2 && inn.Overs > 10:
		p.KeyFactors = append(p.KeyFactors, "Solid foundation - wickets in hand")
		p.Confidence = ConfidenceHigh
	case inn.Wickets >= 6:
		p.KeyFactors = append(p.KeyFactors, "Lower order exposed - limited firepower")
	}

	outlook := "Wickets lost may restrict final total."
	if inn.Wickets <= 3 {
		outlook = "Good platform set for acceleration."
	}
	p.Reasoning = fmt.Sprintf("Based on current run rate of %.2f, %d wickets lost, and %.1f overs remaining, predicting a total of %d. %s",
		runRate, inn.Wickets, oversRemaining, p.PredictedScore, outlook)
	return p
}

func predictChase(m *models.LiveMatch, inn *models.Innings) *Prediction {
	p := &Prediction{Momentum: MomentumNeutral, Confidence: ConfidenceMedium}
	chasing := side(m, inn.BattingTeam)

	target := m.Innings[0].Score + 1
	runsNeeded := target - inn.Score
	oversRemaining := float64(m.TotalOvers) - inn.Overs
	wicketsRemaining := 10 - inn.Wickets

	runRate := 0.0
	if inn.Overs > 0 {
		runRate = float64(inn.Score) / inn.Overs
	}
	required := 0.0
	if oversRemaining > 0 {
		required = float64(runsNeeded) / oversRemaining
	}
	p.PredictedScore = target

	chance := 50.0
	switch diff := runRate - required; {
	case diff > 3:
		chance += 35
	case diff > 2:
		chance += 25
	case diff > 1:
		chance += 15
	case diff > 0:
		chance += 10
	case diff > -1:
		chance -= 10
	case diff > -2:
		chance -= 20
	default:
		chance -= 30
	}

	switch {
	case wicketsRemaining >= 8:
		chance += 10
	case wicketsRemaining >= 6:
		chance += 5
	case wicketsRemaining <= 2:
		chance -= 25
	case wicketsRemaining <= 3:
		chance -= 15
	}

	switch {
	case runsNeeded <= 20 && wicketsRemaining >= 4:
		chance += 15
		p.KeyFactors = append(p.KeyFactors, "Close to victory - comfortable position")
	case runsNeeded <= 10:
		chance += 20
		p.KeyFactors = append(p.KeyFactors, "Victory within reach")
	}
	if required > 12 && oversRemaining < 5 {
		chance -= 20
		p.KeyFactors = append(p.KeyFactors, "Very high required rate in death overs")
	}

	chance = math.Max(5, math.Min(95, chance))
	p.WinProbability = probabilities(m, inn.BattingTeam, chance)

	switch {
	case required > runRate+2:
		p.KeyFactors = append(p.KeyFactors, fmt.Sprintf("Required RR %.2f well above current RR %.2f", required, runRate))
		p.Momentum = opposite(chasing)
		p.Confidence = ConfidenceHigh
	case runRate > required+1:
		p.KeyFactors = append(p.KeyFactors, "Ahead of required rate - comfortable chase")
		p.Momentum = chasing
		p.Confidence = ConfidenceHigh
	default:
		p.KeyFactors = append(p.KeyFactors, fmt.Sprintf("Balanced chase - %d needed from %.1f overs", runsNeeded, oversRemaining))
	}

	switch {
	case wicketsRemaining >= 7:
		p.KeyFactors = append(p.KeyFactors, "Plenty of wickets in hand")
	case wicketsRemaining <= 3:
		p.KeyFactors = append(p.KeyFactors, "Running out of wickets - pressure mounting")
	}
	p.KeyFactors = append(p.KeyFactors, fmt.Sprintf("Current RR: %.2f | Required RR: %.2f", runRate, required))

	pace := "Behind the required rate - need acceleration."
	if runRate > required {
		pace = "Ahead of the required rate."
	}
	p.Reasoning = fmt.Sprintf("Chasing %d, need %d runs from %.1f overs with %d wickets remaining. %s",
		target, runsNeeded, oversRemaining, wicketsRemaining, pace)
	return p
}
