// Package prediction estimates the outcome of a live match.
package prediction

import (
	"context"
	"log/slog"

	"github.com/Dosada05/uniplay/models"
)

const (
	SourceHeuristic = "heuristic"
	SourceExternal  = "external"

	MomentumNeutral = "neutral"
	MomentumTeamA   = "teamA"
	MomentumTeamB   = "teamB"

	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"

	maxKeyFactors = 4
)

type WinProbability struct {
	TeamA int `json:"team_a"`
	TeamB int `json:"team_b"`
}

type Prediction struct {
	MatchID        int            `json:"match_id"`
	WinProbability WinProbability `json:"win_probability"`
	PredictedScore int            `json:"predicted_score"`
	KeyFactors     []string       `json:"key_factors"`
	Momentum       string         `json:"momentum"`
	Confidence     string         `json:"confidence"`
	Reasoning      string         `json:"reasoning"`
	Source         string         `json:"source"`
}

type Predictor interface {
	Predict(ctx context.Context, m *models.LiveMatch) (*Prediction, error)
}

// fallbackPredictor asks the primary predictor first and answers with the
// heuristic when it fails.
type fallbackPredictor struct {
	primary  Predictor
	fallback Predictor
	logger   *slog.Logger
}

// NewPredictor returns the heuristic alone when primary is nil.
func NewPredictor(primary Predictor, logger *slog.Logger) Predictor {
	if primary == nil {
		return Heuristic{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &fallbackPredictor{primary: primary, fallback: Heuristic{}, logger: logger}
}

func (p *fallbackPredictor) Predict(ctx context.Context, m *models.LiveMatch) (*Prediction, error) {
	pred, err := p.primary.Predict(ctx, m)
	if err == nil {
		return pred, nil
	}
	p.logger.Warn("external predictor failed, using heuristic",
		slog.Int("match_id", m.MatchID),
		slog.Any("error", err),
	)
	return p.fallback.Predict(ctx, m)
}
