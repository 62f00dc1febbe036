package brackets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Dosada05/uniplay/models"
)

func teamIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func TestCirclePairingsFourTeams(t *testing.T) {
	pairings, err := CirclePairings([]int{1, 2, 3, 4})
	require.NoError(t, err)

	want := []Pairing{
		{Round: 1, TeamA: 1, TeamB: 4}, {Round: 1, TeamA: 2, TeamB: 3},
		{Round: 2, TeamA: 1, TeamB: 3}, {Round: 2, TeamA: 4, TeamB: 2},
		{Round: 3, TeamA: 1, TeamB: 2}, {Round: 3, TeamA: 3, TeamB: 4},
	}
	assert.Equal(t, want, pairings)
}

func TestCirclePairingsOddRosterDropsByes(t *testing.T) {
	pairings, err := CirclePairings([]int{10, 20, 30})
	require.NoError(t, err)
	require.Len(t, pairings, 3)

	seen := map[[2]int]bool{}
	for _, p := range pairings {
		assert.NotEqual(t, byeSlot, p.TeamA)
		assert.NotEqual(t, byeSlot, p.TeamB)
		seen[pairKey(p.TeamA, p.TeamB)] = true
	}
	assert.Len(t, seen, 3)
}

func TestCirclePairingsRejectsBadRosters(t *testing.T) {
	_, err := CirclePairings([]int{1})
	assert.ErrorIs(t, err, ErrNotEnoughTeams)

	_, err = CirclePairings([]int{1, 0})
	assert.ErrorIs(t, err, ErrInvalidTeamID)

	_, err = CirclePairings([]int{1, 2, 1})
	assert.ErrorIs(t, err, ErrDuplicateTeam)
}

func TestPropertyRoundRobinCompleteness(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 24).Draw(t, "teams")
		pairings, err := CirclePairings(teamIDs(n))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pairings) != n*(n-1)/2 {
			t.Fatalf("%d teams produced %d games, want %d", n, len(pairings), n*(n-1)/2)
		}

		seen := make(map[[2]int]bool, len(pairings))
		perRound := map[int]map[int]bool{}
		for _, p := range pairings {
			if p.TeamA == p.TeamB {
				t.Fatalf("team %d paired with itself", p.TeamA)
			}
			k := pairKey(p.TeamA, p.TeamB)
			if seen[k] {
				t.Fatalf("pair %v scheduled twice", k)
			}
			seen[k] = true

			if perRound[p.Round] == nil {
				perRound[p.Round] = map[int]bool{}
			}
			for _, team := range []int{p.TeamA, p.TeamB} {
				if perRound[p.Round][team] {
					t.Fatalf("team %d plays twice in round %d", team, p.Round)
				}
				perRound[p.Round][team] = true
			}
		}
	})
}

func TestRoundRobinSlots(t *testing.T) {
	base := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	matches, err := NewRoundRobinGenerator().Generate(context.Background(), GenerateScheduleParams{
		TeamIDs:  teamIDs(4),
		BaseDate: base,
	})
	require.NoError(t, err)
	require.Len(t, matches, 6)

	wantTimes := []time.Time{
		time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 3, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 3, 14, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 3, 18, 0, 0, 0, time.UTC),
	}
	for i, m := range matches {
		assert.Equal(t, wantTimes[i], m.ScheduledTime, "match %d", i)
		assert.Equal(t, SlotVenue(i), m.Venue)
		assert.Equal(t, models.StageRoundRobin, m.Stage)
	}
	assert.Equal(t, "Ground 1", matches[0].Venue)
	assert.Equal(t, "Ground 3", matches[2].Venue)
}

func TestBaseDate(t *testing.T) {
	now := time.Date(2026, 12, 31, 22, 15, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2027, 1, 1, 9, 0, 0, 0, time.UTC), BaseDate(now))
}

func TestKnockoutStage(t *testing.T) {
	base := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	matches, err := NewKnockoutGenerator().Generate(context.Background(), GenerateScheduleParams{
		TeamIDs:      []int{11, 12, 13, 14, 15},
		BaseDate:     base,
		PriorMatches: 10,
	})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	semi1, semi2, final := matches[0], matches[1], matches[2]
	assert.Equal(t, models.StageSemifinal, semi1.Stage)
	assert.Equal(t, 11, *semi1.TeamA)
	assert.Equal(t, 14, *semi1.TeamB)
	assert.Equal(t, time.Date(2026, 5, 7, 14, 0, 0, 0, time.UTC), semi1.ScheduledTime)
	assert.Equal(t, "Main Ground", semi1.Venue)

	assert.Equal(t, 12, *semi2.TeamA)
	assert.Equal(t, 13, *semi2.TeamB)
	assert.Equal(t, time.Date(2026, 5, 7, 18, 0, 0, 0, time.UTC), semi2.ScheduledTime)
	assert.Equal(t, "Ground 2", semi2.Venue)

	assert.Equal(t, models.StageFinal, final.Stage)
	assert.Nil(t, final.TeamA)
	assert.Nil(t, final.TeamB)
	assert.Equal(t, time.Date(2026, 5, 10, 16, 0, 0, 0, time.UTC), final.ScheduledTime)
}

func TestGenerateEventScheduleKnockoutCount(t *testing.T) {
	base := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	for n := 2; n <= 9; n++ {
		matches, err := GenerateEventSchedule(context.Background(), teamIDs(n), base)
		require.NoError(t, err)

		knockout := 0
		for _, m := range matches {
			if m.Stage != models.StageRoundRobin {
				knockout++
			}
		}
		want := 0
		if n >= KnockoutTeams {
			want = 3
		}
		assert.Equal(t, want, knockout, "%d teams", n)
		assert.Equal(t, n*(n-1)/2+want, len(matches), "%d teams", n)
	}
}
