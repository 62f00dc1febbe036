package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/uniplay/metrics"
	"github.com/Dosada05/uniplay/models"
	"github.com/Dosada05/uniplay/repositories"
)

func newScheduleFixture(t *testing.T, teams int) (*repositories.MemoryStore, *scheduleService, *models.Event, []int) {
	t.Helper()
	store := repositories.NewMemoryStore()
	event := store.CreateEvent("Spring League")
	ids := make([]int, 0, teams)
	for i := 0; i < teams; i++ {
		team, err := store.CreateTeam(event.ID, fmt.Sprintf("Team %c", 'A'+i), "captain")
		require.NoError(t, err)
		ids = append(ids, team.ID)
	}
	svc := NewScheduleService(store, store.Events(), store.Fixtures(), store.Teams(),
		metrics.NewRecorder(), discardLogger(), time.UTC).(*scheduleService)
	svc.now = func() time.Time { return testNow }
	return store, svc, event, ids
}

func countStage(fixtures []*models.Fixture, stage models.FixtureStage) int {
	n := 0
	for _, f := range fixtures {
		if f.Stage == stage {
			n++
		}
	}
	return n
}

func TestGenerateScheduleFourTeams(t *testing.T) {
	store, svc, event, ids := newScheduleFixture(t, 4)
	ctx := context.Background()

	res, err := svc.GenerateSchedule(ctx, event.ID)
	require.NoError(t, err)

	assert.Equal(t, 6, countStage(res.Fixtures, models.StageRoundRobin))
	assert.Equal(t, 2, countStage(res.Fixtures, models.StageSemifinal))
	assert.Equal(t, 1, countStage(res.Fixtures, models.StageFinal))

	first := res.Fixtures[0]
	assert.Equal(t, time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC), first.ScheduledTime)
	assert.Equal(t, "Ground 1", first.Venue)
	assert.Equal(t, models.MatchStatusScheduled, first.Status)

	final := res.Fixtures[len(res.Fixtures)-1]
	assert.Equal(t, models.StageFinal, final.Stage)
	assert.Nil(t, final.TeamA)
	assert.Nil(t, final.TeamB)

	semi1 := res.Fixtures[6]
	require.NotNil(t, semi1.TeamA)
	assert.Equal(t, ids[0], *semi1.TeamA)
	assert.Equal(t, ids[3], *semi1.TeamB)

	require.Len(t, res.Leaderboard, 4)
	for i, entry := range res.Leaderboard {
		assert.Equal(t, models.LeaderboardEntry{Team: ids[i]}, entry)
	}

	e, err := store.Events().GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, e.ScheduleGenerated)
	assert.Len(t, e.Leaderboard, 4)

	stored, err := store.Fixtures().ListByEvent(ctx, event.ID, repositories.FixtureFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 9)
}

func TestGenerateScheduleOddTeamsHasNoKnockoutBelowFour(t *testing.T) {
	_, svc, event, _ := newScheduleFixture(t, 3)
	res, err := svc.GenerateSchedule(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Len(t, res.Fixtures, 3)
	assert.Equal(t, 3, countStage(res.Fixtures, models.StageRoundRobin))
}

func TestGenerateScheduleIsOneShot(t *testing.T) {
	store, svc, event, _ := newScheduleFixture(t, 5)
	ctx := context.Background()

	_, err := svc.GenerateSchedule(ctx, event.ID)
	require.NoError(t, err)
	before, err := store.Fixtures().ListByEvent(ctx, event.ID, repositories.FixtureFilter{})
	require.NoError(t, err)

	_, err = svc.GenerateSchedule(ctx, event.ID)
	assert.ErrorIs(t, err, ErrScheduleAlreadyGenerated)

	after, err := store.Fixtures().ListByEvent(ctx, event.ID, repositories.FixtureFilter{})
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestGenerateScheduleConcurrentCallsCreateOneSchedule(t *testing.T) {
	store, _, event, _ := newScheduleFixture(t, 4)
	ctx := context.Background()

	// Separate service instances share no in-process lock, so only the
	// compare-and-set on the event guards them.
	const callers = 6
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		svc := NewScheduleService(store, store.Events(), store.Fixtures(), store.Teams(), nil, discardLogger(), time.UTC)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GenerateSchedule(ctx, event.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrScheduleAlreadyGenerated)
	}
	assert.Equal(t, 1, succeeded)

	fixtures, err := store.Fixtures().ListByEvent(ctx, event.ID, repositories.FixtureFilter{})
	require.NoError(t, err)
	assert.Len(t, fixtures, 9)
}

func TestGenerateScheduleErrors(t *testing.T) {
	_, svc, event, _ := newScheduleFixture(t, 1)
	ctx := context.Background()

	_, err := svc.GenerateSchedule(ctx, event.ID)
	assert.ErrorIs(t, err, ErrNotEnoughTeams)

	_, err = svc.GenerateSchedule(ctx, 9999)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestUpdateMatchResultAwardsRoundRobinWin(t *testing.T) {
	store, svc, event, ids := newScheduleFixture(t, 4)
	ctx := context.Background()

	res, err := svc.GenerateSchedule(ctx, event.ID)
	require.NoError(t, err)

	match := res.Fixtures[0]
	winner := *match.TeamB
	loser := *match.TeamA

	updated, err := svc.UpdateMatchResult(ctx, match.ID, UpdateMatchResultInput{
		Status: models.MatchStatusCompleted, ScoreA: 140, ScoreB: 141, Winner: &winner,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, updated.Status)

	board, err := svc.GetLeaderboard(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, board, len(ids))
	assert.Equal(t, models.LeaderboardEntry{Team: winner, Points: 2, MatchesPlayed: 1, Wins: 1}, board[0])

	for _, entry := range board {
		if entry.Team == loser {
			assert.Equal(t, models.LeaderboardEntry{Team: loser, MatchesPlayed: 1, Losses: 1}, entry)
		}
	}

	// Re-submitting a completed result must not count twice.
	_, err = svc.UpdateMatchResult(ctx, match.ID, UpdateMatchResultInput{
		Status: models.MatchStatusCompleted, ScoreA: 140, ScoreB: 141, Winner: &winner,
	})
	require.NoError(t, err)
	e, err := store.Events().GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Leaderboard[0].Points)
}

func TestUpdateMatchResultCountsMatchFinishedLive(t *testing.T) {
	lf := newLiveFixture(t)
	ctx := context.Background()
	svc := NewScheduleService(lf.store, lf.store.Events(), lf.store.Fixtures(), lf.store.Teams(),
		metrics.NewRecorder(), discardLogger(), time.UTC)

	lf.start(t, models.MatchTypeT20)
	lf.bowl(t, DeliveryInput{Runs: 4})
	_, err := lf.svc.CompleteInnings(ctx, lf.fixture.ID)
	require.NoError(t, err)
	lf.bowl(t, DeliveryInput{Runs: 1})
	m, err := lf.svc.CompleteInnings(ctx, lf.fixture.ID)
	require.NoError(t, err)
	require.NotNil(t, m.Result.Winner)
	winner := *m.Result.Winner
	assert.Equal(t, lf.teamA.ID, winner)

	f, err := lf.store.Fixtures().GetByID(ctx, lf.fixture.ID)
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusCompleted, f.Status)
	assert.False(t, f.LeaderboardApplied)

	updated, err := svc.UpdateMatchResult(ctx, lf.fixture.ID, UpdateMatchResultInput{
		Status: models.MatchStatusCompleted, ScoreA: 4, ScoreB: 1, Winner: &winner,
	})
	require.NoError(t, err)
	assert.True(t, updated.LeaderboardApplied)

	board, err := svc.GetLeaderboard(ctx, lf.event.ID)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, models.LeaderboardEntry{Team: winner, Points: 2, MatchesPlayed: 1, Wins: 1}, board[0])
	assert.Equal(t, models.LeaderboardEntry{Team: lf.teamB.ID, MatchesPlayed: 1, Losses: 1}, board[1])

	_, err = svc.UpdateMatchResult(ctx, lf.fixture.ID, UpdateMatchResultInput{
		Status: models.MatchStatusCompleted, ScoreA: 4, ScoreB: 1, Winner: &winner,
	})
	require.NoError(t, err)
	board, err = svc.GetLeaderboard(ctx, lf.event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, board[0].Points)
}

func TestUpdateMatchResultIgnoresKnockoutForLeaderboard(t *testing.T) {
	_, svc, event, _ := newScheduleFixture(t, 4)
	ctx := context.Background()

	res, err := svc.GenerateSchedule(ctx, event.ID)
	require.NoError(t, err)
	semi := res.Fixtures[6]
	require.Equal(t, models.StageSemifinal, semi.Stage)

	_, err = svc.UpdateMatchResult(ctx, semi.ID, UpdateMatchResultInput{
		Status: models.MatchStatusCompleted, Winner: semi.TeamA,
	})
	require.NoError(t, err)

	board, err := svc.GetLeaderboard(ctx, event.ID)
	require.NoError(t, err)
	for _, entry := range board {
		assert.Zero(t, entry.Points)
	}
}

func TestUpdateMatchResultValidation(t *testing.T) {
	_, svc, event, _ := newScheduleFixture(t, 2)
	ctx := context.Background()
	res, err := svc.GenerateSchedule(ctx, event.ID)
	require.NoError(t, err)

	stranger := 12345
	_, err = svc.UpdateMatchResult(ctx, res.Fixtures[0].ID, UpdateMatchResultInput{
		Status: models.MatchStatusCompleted, Winner: &stranger,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "winner")

	_, err = svc.UpdateMatchResult(ctx, res.Fixtures[0].ID, UpdateMatchResultInput{Status: "Abandoned"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "status")

	_, err = svc.UpdateMatchResult(ctx, 9999, UpdateMatchResultInput{Status: models.MatchStatusPostponed})
	assert.ErrorIs(t, err, ErrFixtureNotFound)
}

func TestApplyWinSortsByPoints(t *testing.T) {
	board := []models.LeaderboardEntry{{Team: 1}, {Team: 2}, {Team: 3}}

	board = ApplyWin(board, 3, 1)
	board = ApplyWin(board, 2, 1)
	board = ApplyWin(board, 3, 2)

	teams := make([]int, len(board))
	for i, e := range board {
		teams[i] = e.Team
	}
	assert.Equal(t, []int{3, 2, 1}, teams)
	assert.Equal(t, 4, board[0].Points)
	assert.Equal(t, 2, board[2].Losses)

	withNew := ApplyWin(nil, 7, 0)
	assert.Equal(t, []models.LeaderboardEntry{{Team: 7, Points: 2, Wins: 1, MatchesPlayed: 1}}, withNew)
}

func TestEventReads(t *testing.T) {
	store, svc, event, _ := newScheduleFixture(t, 4)
	ctx := context.Background()
	res, err := svc.GenerateSchedule(ctx, event.ID)
	require.NoError(t, err)

	schedule, err := svc.GetEventSchedule(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, schedule.Event.ID)
	assert.Len(t, schedule.Fixtures, len(res.Fixtures))

	_, err = svc.GetEventSchedule(ctx, 9999)
	assert.ErrorIs(t, err, ErrEventNotFound)

	require.NoError(t, store.Fixtures().UpdateStatus(ctx, res.Fixtures[0].ID, models.MatchStatusInProgress))
	inProgress, err := svc.ListFixtures(ctx, event.ID, []models.MatchStatus{models.MatchStatusInProgress})
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	assert.Equal(t, res.Fixtures[0].ID, inProgress[0].ID)

	_, err = svc.ListFixtures(ctx, event.ID, []models.MatchStatus{"Live"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestListLiveFixturesWindow(t *testing.T) {
	_, svc, event, _ := newScheduleFixture(t, 4)
	ctx := context.Background()
	res, err := svc.GenerateSchedule(ctx, event.ID)
	require.NoError(t, err)

	// First slot is 09:00 the next day; at 07:00 on that day the 09:00 match
	// is in the window and the 14:00 match is not.
	svc.now = func() time.Time { return time.Date(2026, 5, 2, 7, 0, 0, 0, time.UTC) }
	live, err := svc.ListLiveFixtures(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, res.Fixtures[0].ID, live[0].ID)
}
