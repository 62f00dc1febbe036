package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/Dosada05/uniplay/models"
)

var ErrInvalidPrediction = errors.New("predictor returned an invalid prediction")

// External runs a model process per request. The live match is written to
// its stdin as JSON and a Prediction is read from its stdout.
type External struct {
	name    string
	args    []string
	timeout time.Duration
}

// NewExternal splits command on whitespace. It returns nil for an empty command.
func NewExternal(command string, timeout time.Duration) *External {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil
	}
	return &External{name: parts[0], args: parts[1:], timeout: timeout}
}

func (e *External) Predict(ctx context.Context, m *models.LiveMatch) (*Prediction, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	input, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode match %d: %w", m.MatchID, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.name, e.args...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("predictor %s: %w", e.name, ctx.Err())
		}
		return nil, fmt.Errorf("predictor %s: %w: %s", e.name, err, strings.TrimSpace(stderr.String()))
	}

	var p Prediction
	if err := json.Unmarshal(stdout.Bytes(), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrediction, err)
	}
	wp := p.WinProbability
	if wp.TeamA < 0 || wp.TeamB < 0 || wp.TeamA+wp.TeamB != 100 {
		return nil, fmt.Errorf("%w: probabilities %d/%d", ErrInvalidPrediction, wp.TeamA, wp.TeamB)
	}

	p.MatchID = m.MatchID
	p.Source = SourceExternal
	if p.Momentum == "" {
		p.Momentum = MomentumNeutral
	}
	if p.KeyFactors == nil {
		p.KeyFactors = []string{}
	}
	return &p, nil
}
