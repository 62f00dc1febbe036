package brackets

import (
	"context"

	"github.com/Dosada05/uniplay/models"
)

// byeSlot pads an odd roster. Team ids are always positive.
const byeSlot = 0

// Pairing is one game of the circle-method rotation.
type Pairing struct {
	Round int
	TeamA int
	TeamB int
}

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() ScheduleGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// Generate pairs every team with every other team once and places the games
// into consecutive day slots in generation order.
func (g *RoundRobinGenerator) Generate(ctx context.Context, params GenerateScheduleParams) ([]*ScheduledMatch, error) {
	pairings, err := CirclePairings(params.TeamIDs)
	if err != nil {
		return nil, err
	}

	matches := make([]*ScheduledMatch, 0, len(pairings))
	for i, p := range pairings {
		matches = append(matches, &ScheduledMatch{
			TeamA:         intPtr(p.TeamA),
			TeamB:         intPtr(p.TeamB),
			Stage:         models.StageRoundRobin,
			Round:         p.Round,
			ScheduledTime: SlotTime(params.BaseDate, params.PriorMatches+i),
			Venue:         SlotVenue(params.PriorMatches + i),
		})
	}
	return matches, nil
}

// CirclePairings runs the circle method: the first team stays fixed while the
// rest rotate one place per round. An odd roster gets a bye slot and games
// against it are dropped.
func CirclePairings(teamIDs []int) ([]Pairing, error) {
	if err := validateTeamIDs(teamIDs); err != nil {
		return nil, err
	}

	teams := make([]int, len(teamIDs), len(teamIDs)+1)
	copy(teams, teamIDs)
	if len(teams)%2 != 0 {
		teams = append(teams, byeSlot)
	}

	n := len(teams)
	rounds := n - 1
	perRound := n / 2
	fixed := teams[0]
	rotating := append([]int(nil), teams[1:]...)

	pairings := make([]Pairing, 0, n*(n-1)/2)
	add := func(round, a, b int) {
		if a == byeSlot || b == byeSlot {
			return
		}
		pairings = append(pairings, Pairing{Round: round, TeamA: a, TeamB: b})
	}

	last := len(rotating) - 1
	for r := 0; r < rounds; r++ {
		add(r+1, fixed, rotating[last])
		for i := 0; i < perRound-1; i++ {
			add(r+1, rotating[i], rotating[last-1-i])
		}
		tail := rotating[last]
		copy(rotating[1:], rotating[:last])
		rotating[0] = tail
	}

	return pairings, nil
}
