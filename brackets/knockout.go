package brackets

import (
	"context"

	"github.com/Dosada05/uniplay/models"
)

// KnockoutTeams is the number of teams that enter the knockout stage.
const KnockoutTeams = 4

const (
	semifinalDayOffset = 2
	finalDayOffset     = 5
	mainGround         = "Main Ground"
)

type KnockoutGenerator struct{}

func NewKnockoutGenerator() ScheduleGenerator {
	return &KnockoutGenerator{}
}

func (g *KnockoutGenerator) GetName() string {
	return "Knockout"
}

// Generate seeds two semifinals from the first four teams in registration
// order (1v4, 2v3) and adds a Final whose teams stay unset. Fewer than four
// teams produce no knockout games.
func (g *KnockoutGenerator) Generate(ctx context.Context, params GenerateScheduleParams) ([]*ScheduledMatch, error) {
	if len(params.TeamIDs) < KnockoutTeams {
		return []*ScheduledMatch{}, nil
	}
	if err := validateTeamIDs(params.TeamIDs); err != nil {
		return nil, err
	}

	top := params.TeamIDs[:KnockoutTeams]
	leagueDays := params.PriorMatches / MatchesPerDay

	return []*ScheduledMatch{
		{
			TeamA:         intPtr(top[0]),
			TeamB:         intPtr(top[3]),
			Stage:         models.StageSemifinal,
			Round:         1,
			ScheduledTime: dayAt(params.BaseDate, leagueDays+semifinalDayOffset, 14),
			Venue:         mainGround,
		},
		{
			TeamA:         intPtr(top[1]),
			TeamB:         intPtr(top[2]),
			Stage:         models.StageSemifinal,
			Round:         2,
			ScheduledTime: dayAt(params.BaseDate, leagueDays+semifinalDayOffset, 18),
			Venue:         "Ground 2",
		},
		{
			Stage:         models.StageFinal,
			Round:         1,
			ScheduledTime: dayAt(params.BaseDate, leagueDays+finalDayOffset, 16),
			Venue:         mainGround,
		},
	}, nil
}
