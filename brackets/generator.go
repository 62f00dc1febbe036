package brackets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/uniplay/models"
)

var (
	ErrNotEnoughTeams = errors.New("at least two teams are required to generate a schedule")
	ErrInvalidTeamID  = errors.New("team ids must be positive")
	ErrDuplicateTeam  = errors.New("team appears more than once")
)

type GenerateScheduleParams struct {
	// TeamIDs in registration order.
	TeamIDs []int
	// BaseDate is the first match slot, normally tomorrow at 09:00.
	BaseDate time.Time
	// PriorMatches is the number of fixtures already placed before this stage.
	PriorMatches int
}

// ScheduledMatch is a fixture before it is persisted.
type ScheduledMatch struct {
	TeamA         *int
	TeamB         *int
	Stage         models.FixtureStage
	Round         int
	ScheduledTime time.Time
	Venue         string
}

type ScheduleGenerator interface {
	Generate(ctx context.Context, params GenerateScheduleParams) ([]*ScheduledMatch, error)

	GetName() string
}

// GenerateEventSchedule runs the round-robin stage and appends the knockout
// stage after it.
func GenerateEventSchedule(ctx context.Context, teamIDs []int, baseDate time.Time) ([]*ScheduledMatch, error) {
	params := GenerateScheduleParams{TeamIDs: teamIDs, BaseDate: baseDate}

	league, err := NewRoundRobinGenerator().Generate(ctx, params)
	if err != nil {
		return nil, err
	}

	params.PriorMatches = len(league)
	knockout, err := NewKnockoutGenerator().Generate(ctx, params)
	if err != nil {
		return nil, err
	}

	return append(league, knockout...), nil
}

func validateTeamIDs(teamIDs []int) error {
	if len(teamIDs) < 2 {
		return fmt.Errorf("%w (found %d)", ErrNotEnoughTeams, len(teamIDs))
	}
	seen := make(map[int]struct{}, len(teamIDs))
	for _, id := range teamIDs {
		if id <= 0 {
			return fmt.Errorf("%w: got %d", ErrInvalidTeamID, id)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateTeam, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func intPtr(v int) *int {
	return &v
}
