package cricsheet

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/uniplay/models"
)

func loadShortMatch(t *testing.T) *Scorecard {
	t.Helper()
	data, err := os.ReadFile("testdata/short_match.json")
	require.NoError(t, err)
	sc, err := Parse(data)
	require.NoError(t, err)
	return sc
}

func TestParseInfo(t *testing.T) {
	sc := loadShortMatch(t)

	assert.Equal(t, "T20", sc.Info.MatchType)
	assert.Equal(t, "Eden Gardens", sc.Info.Venue)
	assert.Equal(t, [2]string{"Kolkata Knight Riders", "Sunrisers Hyderabad"}, sc.Info.Teams)
	assert.Equal(t, "Sunrisers Hyderabad", sc.Info.TossWinner)
	assert.Equal(t, "bat", sc.Info.TossDecision)
	assert.Equal(t, []string{"2024-05-26"}, sc.Info.Dates)
}

func TestParseInnings(t *testing.T) {
	sc := loadShortMatch(t)
	require.Len(t, sc.Innings, 2)

	first := sc.Innings[0]
	assert.Equal(t, 1, first.InningsNumber)
	assert.Equal(t, "Sunrisers Hyderabad", first.BattingTeam)
	assert.Equal(t, "Kolkata Knight Riders", first.BowlingTeam)
	require.Len(t, first.Balls, 4)

	assert.Equal(t, "Dot ball, Starc to Abhishek Sharma", first.Balls[0].Commentary)
	assert.Equal(t, "FOUR! Beautiful shot by Abhishek Sharma!", first.Balls[1].Commentary)

	wide := first.Balls[2]
	assert.Equal(t, models.ExtrasWides, wide.ExtrasType)
	assert.Equal(t, 1, wide.Extras)
	assert.Equal(t, "Wide ball by Starc", wide.Commentary)

	wicket := first.Balls[3]
	assert.True(t, wicket.IsWicket)
	assert.Equal(t, models.WicketCaught, wicket.WicketType)
	assert.Equal(t, "Abhishek Sharma", wicket.PlayerOut)
	assert.Equal(t, "WICKET! Abhishek Sharma is out caught!", wicket.Commentary)
	assert.Equal(t, 4, wicket.Ball)

	second := sc.Innings[1]
	assert.Equal(t, "SIX! Narine clears the boundary!", second.Balls[0].Commentary)
	assert.Equal(t, "1 run to Narine", second.Balls[1].Commentary)
	assert.Equal(t, models.ExtrasLegByes, second.Balls[2].ExtrasType)
	assert.Equal(t, "2 runs to Gurbaz", second.Balls[3].Commentary)

	assert.Equal(t, []string{"Abhishek Sharma", "Cummins", "Gurbaz", "Head", "Narine", "Starc"}, sc.Players)
}

func TestTotals(t *testing.T) {
	sc := loadShortMatch(t)
	assert.Equal(t, []InningsTotal{
		{Team: "Sunrisers Hyderabad", Balls: 4, Runs: 5, Wickets: 1},
		{Team: "Kolkata Knight Riders", Balls: 4, Runs: 10, Wickets: 0},
	}, sc.Totals())
}

func TestParseRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		problem string
	}{
		{"missing info", `{"innings":[{"team":"A","overs":[{"over":0,"deliveries":[{}]}]}]}`, `missing "info" field`},
		{"one team", `{"info":{"teams":["A"]},"innings":[{"team":"A","overs":[{"over":0,"deliveries":[{}]}]}]}`, `"info.teams" must list two teams, found 1`},
		{"no innings", `{"info":{"teams":["A","B"]}}`, `missing or empty "innings" field`},
		{"no team", `{"info":{"teams":["A","B"]},"innings":[{"overs":[{"over":0,"deliveries":[{}]}]}]}`, `innings 1: missing "team" field`},
		{"empty over", `{"info":{"teams":["A","B"]},"innings":[{"team":"A","overs":[{"over":3,"deliveries":[]}]}]}`, `innings 1 over 3: no deliveries`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.ErrorIs(t, err, ErrInvalidFormat)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Problems, tt.problem)
		})
	}

	_, err := Parse([]byte("not json"))
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestUnknownDismissalStillCountsAsWicket(t *testing.T) {
	sc, err := Parse([]byte(`{"info":{"teams":["A","B"]},"innings":[{"team":"A","overs":[{"over":0,"deliveries":[
		{"batter":"X","bowler":"Y","runs":{"batter":0,"extras":0,"total":0},"wickets":[{"player_out":"X","kind":"retired out"}]}
	]}]}]}`))
	require.NoError(t, err)
	ball := sc.Innings[0].Balls[0]
	assert.True(t, ball.IsWicket)
	assert.Equal(t, models.WicketNone, ball.WicketType)
	assert.Equal(t, "WICKET! X is out retired out!", ball.Commentary)
	assert.Equal(t, "B", sc.Innings[0].BowlingTeam)
	assert.Equal(t, "Unknown", sc.Info.Venue)
}
