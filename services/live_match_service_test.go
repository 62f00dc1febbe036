package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/uniplay/metrics"
	"github.com/Dosada05/uniplay/models"
)

func TestInitializeLiveMatch(t *testing.T) {
	lf := newLiveFixture(t)
	ctx := context.Background()

	m, err := lf.svc.Initialize(ctx, InitializeLiveMatchInput{
		MatchID:      lf.fixture.ID,
		TossWinner:   lf.teamA.ID,
		TossDecision: models.TossDecisionBowl,
		MatchType:    models.MatchTypeT10,
	})
	require.NoError(t, err)

	assert.Equal(t, 10, m.TotalOvers)
	assert.Equal(t, models.LiveStatusInProgress, m.Status)
	assert.Equal(t, lf.teamB.ID, m.Innings[0].BattingTeam)
	assert.Equal(t, "Falcons", m.TeamAName)
	assert.Equal(t, "Strikers", m.TeamBName)
	assert.Equal(t, testNow, m.CreatedAt)

	f, err := lf.store.Fixtures().GetByID(ctx, lf.fixture.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusInProgress, f.Status)
	require.NotNil(t, f.CurrentBatting)
	assert.Equal(t, lf.teamB.ID, *f.CurrentBatting)
}

func TestInitializeUsesDefaultOvers(t *testing.T) {
	lf := newLiveFixture(t)
	m := lf.start(t, "")
	assert.Equal(t, 20, m.TotalOvers)
}

func TestInitializeErrors(t *testing.T) {
	lf := newLiveFixture(t)
	ctx := context.Background()

	_, err := lf.svc.Initialize(ctx, InitializeLiveMatchInput{
		MatchID: 9999, TossWinner: lf.teamA.ID, TossDecision: models.TossDecisionBat,
	})
	assert.ErrorIs(t, err, ErrFixtureNotFound)

	_, err = lf.svc.Initialize(ctx, InitializeLiveMatchInput{
		MatchID: lf.fixture.ID, TossWinner: 424242, TossDecision: models.TossDecisionBat,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "toss_winner")

	_, err = lf.svc.Initialize(ctx, InitializeLiveMatchInput{
		MatchID: lf.fixture.ID, TossWinner: lf.teamA.ID, TossDecision: "field",
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "toss_decision")

	lf.start(t, models.MatchTypeT20)
	_, err = lf.svc.Initialize(ctx, InitializeLiveMatchInput{
		MatchID: lf.fixture.ID, TossWinner: lf.teamA.ID, TossDecision: models.TossDecisionBat,
	})
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestInitializeRequiresDeterminedTeams(t *testing.T) {
	lf := newLiveFixture(t)
	ctx := context.Background()

	final := &models.Fixture{EventID: lf.event.ID, Stage: models.StageFinal, Round: 1, Status: models.MatchStatusScheduled}
	require.NoError(t, lf.store.Fixtures().BatchCreate(ctx, []*models.Fixture{final}))

	_, err := lf.svc.Initialize(ctx, InitializeLiveMatchInput{
		MatchID: final.ID, TossWinner: lf.teamA.ID, TossDecision: models.TossDecisionBat,
	})
	assert.ErrorIs(t, err, ErrTeamsNotDetermined)
}

func TestGetOrAutoInitialize(t *testing.T) {
	lf := newLiveFixture(t)
	ctx := context.Background()

	m, err := lf.svc.GetOrAutoInitialize(ctx, lf.fixture.ID)
	require.NoError(t, err)
	assert.Equal(t, lf.teamA.ID, m.TossWinner)
	assert.Equal(t, models.TossDecisionBat, m.TossDecision)
	assert.Equal(t, lf.teamA.ID, m.Innings[0].BattingTeam)

	again, err := lf.svc.GetOrAutoInitialize(ctx, lf.fixture.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, again.ID)

	_, err = lf.svc.GetOrAutoInitialize(ctx, 9999)
	assert.ErrorIs(t, err, ErrFixtureNotFound)
}

func TestGetOrAutoInitializeRejectsFinishedFixture(t *testing.T) {
	lf := newLiveFixture(t)
	ctx := context.Background()
	require.NoError(t, lf.store.Fixtures().UpdateStatus(ctx, lf.fixture.ID, models.MatchStatusCompleted))

	_, err := lf.svc.GetOrAutoInitialize(ctx, lf.fixture.ID)
	assert.ErrorIs(t, err, ErrMatchNotLive)
}

func TestRecordDeliveryUpdatesScoreAndBroadcasts(t *testing.T) {
	lf := newLiveFixture(t)
	lf.start(t, models.MatchTypeT20)

	res := lf.bowl(t, DeliveryInput{Runs: 4, Batsman: "Kohli", Bowler: "Starc"})
	assert.Equal(t, 1, res.Delivery.BallNumber)
	assert.Equal(t, "0.1", res.Delivery.Over)
	assert.Equal(t, models.ExtrasNone, res.Delivery.ExtrasType)
	assert.Equal(t, 4, res.Innings.Score)
	assert.Equal(t, 4, res.Summary.ScoreA)

	res = lf.bowl(t, DeliveryInput{Extras: 1, ExtrasType: models.ExtrasWide})
	assert.Equal(t, 5, res.Innings.Score)
	assert.Equal(t, 1, res.Innings.Extras)
	assert.Equal(t, "0 runs", res.Delivery.Commentary)

	assert.Equal(t, []string{EventBallUpdated, EventBallUpdated}, lf.events.events())
	assert.Equal(t, MatchRoom(lf.fixture.ID), lf.events.calls[0].Room)

	f, err := lf.store.Fixtures().GetByID(context.Background(), lf.fixture.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, f.ScoreA)
	assert.Equal(t, 0.3, f.LiveOvers)
}

func TestRecordDeliveryValidation(t *testing.T) {
	lf := newLiveFixture(t)
	lf.start(t, models.MatchTypeT20)

	_, err := lf.svc.RecordDelivery(context.Background(), lf.fixture.ID, DeliveryInput{Runs: 21})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "runs")

	_, err = lf.svc.RecordDelivery(context.Background(), lf.fixture.ID, DeliveryInput{ExtrasType: "beamer"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "extras_type")

	_, err = lf.svc.RecordDelivery(context.Background(), 9999, DeliveryInput{Runs: 1})
	assert.ErrorIs(t, err, ErrLiveMatchNotFound)
	assert.Empty(t, lf.events.events())
}

func TestRecordDeliveryAcceptsOverthrowsAndLongWides(t *testing.T) {
	lf := newLiveFixture(t)
	lf.start(t, models.MatchTypeT20)

	lf.bowl(t, DeliveryInput{Runs: 7})
	res := lf.bowl(t, DeliveryInput{Extras: 9, ExtrasType: models.ExtrasWide})

	m, err := lf.svc.GetLiveMatch(context.Background(), lf.fixture.ID)
	require.NoError(t, err)
	assert.Equal(t, 16, m.Current().Score)
	assert.Equal(t, 9, m.Current().Extras)
	assert.Equal(t, 2, res.Delivery.BallNumber)
}

func TestRecordDeliveryOnClosedInningsConflicts(t *testing.T) {
	lf := newLiveFixture(t)
	lf.start(t, models.MatchTypeT20)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		lf.bowl(t, DeliveryInput{IsWicket: true, WicketType: models.WicketBowled})
	}
	m, err := lf.svc.GetLiveMatch(ctx, lf.fixture.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LiveStatusInnings1Complete, m.Status)

	_, err = lf.svc.RecordDelivery(ctx, lf.fixture.ID, DeliveryInput{Runs: 1})
	assert.ErrorIs(t, err, ErrInningsCompleted)

	after, err := lf.svc.GetLiveMatch(ctx, lf.fixture.ID)
	require.NoError(t, err)
	assert.Len(t, after.Innings[0].BallByBall, 10)
}

func TestFullMatchLifecycle(t *testing.T) {
	lf := newLiveFixture(t)
	lf.start(t, models.MatchTypeT20)
	ctx := context.Background()

	lf.bowl(t, DeliveryInput{Runs: 6})
	lf.bowl(t, DeliveryInput{Runs: 4})

	m, err := lf.svc.CompleteInnings(ctx, lf.fixture.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LiveStatusInnings1Complete, m.Status)
	assert.Equal(t, 2, m.CurrentInnings)
	assert.Equal(t, lf.teamB.ID, m.Current().BattingTeam)

	res := lf.bowl(t, DeliveryInput{Runs: 2})
	assert.Equal(t, models.LiveStatusInProgress, res.Status)
	assert.Equal(t, 1, res.Delivery.BallNumber)

	m, err = lf.svc.CompleteInnings(ctx, lf.fixture.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LiveStatusCompleted, m.Status)
	require.NotNil(t, m.Result)
	require.NotNil(t, m.Result.Winner)
	assert.Equal(t, lf.teamA.ID, *m.Result.Winner)
	assert.Equal(t, "8 runs", m.Result.Margin)
	assert.Equal(t, "Falcons won by 8 runs", m.Result.Summary)

	f, err := lf.store.Fixtures().GetByID(ctx, lf.fixture.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, f.Status)
	assert.Equal(t, 10, f.ScoreA)
	assert.Equal(t, 2, f.ScoreB)
	require.NotNil(t, f.Winner)
	assert.Equal(t, lf.teamA.ID, *f.Winner)

	_, err = lf.svc.CompleteInnings(ctx, lf.fixture.ID)
	assert.ErrorIs(t, err, ErrMatchCompleted)
	_, err = lf.svc.RecordDelivery(ctx, lf.fixture.ID, DeliveryInput{Runs: 1})
	assert.ErrorIs(t, err, ErrMatchCompleted)

	assert.Equal(t, []string{
		EventBallUpdated, EventBallUpdated, EventInningsComplete, EventBallUpdated, EventInningsComplete,
	}, lf.events.events())
	last := lf.events.calls[len(lf.events.calls)-1].Payload.(InningsCompletePayload)
	assert.Equal(t, models.LiveStatusCompleted, last.Status)
	require.NotNil(t, last.Result)

	e, err := lf.store.Events().GetByID(ctx, lf.event.ID)
	require.NoError(t, err)
	assert.Empty(t, e.Leaderboard)
}

func TestSecondInningsReachesLimit(t *testing.T) {
	lf := newLiveFixture(t)
	lf.start(t, models.MatchTypeT10)
	ctx := context.Background()

	_, err := lf.svc.CompleteInnings(ctx, lf.fixture.ID)
	require.NoError(t, err)

	var res *DeliveryResult
	for i := 0; i < 60; i++ {
		res = lf.bowl(t, DeliveryInput{})
	}
	assert.Equal(t, models.LiveStatusInnings2Complete, res.Status)
	assert.True(t, res.Innings.IsCompleted)
	assert.Equal(t, 10.0, res.Innings.Overs)

	m, err := lf.svc.CompleteInnings(ctx, lf.fixture.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LiveStatusCompleted, m.Status)
	assert.Equal(t, "Match Tied", m.Result.Summary)
	assert.Nil(t, m.Result.Winner)
}

func TestSetCurrentPlayers(t *testing.T) {
	lf := newLiveFixture(t)
	lf.start(t, models.MatchTypeT20)
	ctx := context.Background()

	players, err := lf.svc.SetCurrentPlayers(ctx, lf.fixture.ID, SetPlayersInput{
		Batsmen: []string{"Rohit", "Gill"},
		Bowler:  "Cummins",
	})
	require.NoError(t, err)
	require.Len(t, players.Batsmen, 2)
	assert.Equal(t, "Cummins", players.Bowler.Player)

	lf.bowl(t, DeliveryInput{Runs: 4, Batsman: "Rohit", Bowler: "Cummins"})
	m, err := lf.svc.GetLiveMatch(ctx, lf.fixture.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Current().CurrentBatsmen[0].Runs)
	assert.Equal(t, 1, m.Current().CurrentBatsmen[0].Fours)
	assert.Equal(t, 4, m.Current().CurrentBowler.Runs)

	_, err = lf.svc.SetCurrentPlayers(ctx, lf.fixture.ID, SetPlayersInput{})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = lf.svc.SetCurrentPlayers(ctx, lf.fixture.ID, SetPlayersInput{Batsmen: []string{"A", "A"}})
	assert.ErrorAs(t, err, &verr)

	assert.Contains(t, lf.events.events(), EventPlayersUpdated)
}

func TestCommentaryAndSummary(t *testing.T) {
	lf := newLiveFixture(t)
	lf.start(t, models.MatchTypeT20)
	ctx := context.Background()

	lf.bowl(t, DeliveryInput{Runs: 1, Commentary: "pushed to cover"})
	lf.bowl(t, DeliveryInput{Runs: 6, Commentary: "into the stands"})

	entries, err := lf.svc.GetCommentary(ctx, lf.fixture.ID, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "into the stands", entries[0].Commentary)

	summary, err := lf.svc.GetMatchSummary(ctx, lf.fixture.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.ScoreA)
	assert.Equal(t, 0, summary.ScoreB)

	_, err = lf.svc.GetCommentary(ctx, 9999, 5)
	assert.ErrorIs(t, err, ErrLiveMatchNotFound)
}

func TestConcurrentDeliveriesAreSerialized(t *testing.T) {
	lf := newLiveFixture(t)
	lf.start(t, models.MatchTypeODI)
	ctx := context.Background()

	const scorers, perScorer = 8, 5
	var wg sync.WaitGroup
	errs := make(chan error, scorers*perScorer)
	for i := 0; i < scorers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perScorer; j++ {
				if _, err := lf.svc.RecordDelivery(ctx, lf.fixture.ID, DeliveryInput{Runs: 1}); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	m, err := lf.svc.GetLiveMatch(ctx, lf.fixture.ID)
	require.NoError(t, err)
	inn := m.Current()
	assert.Equal(t, scorers*perScorer, inn.Score)
	require.Len(t, inn.BallByBall, scorers*perScorer)
	for i, d := range inn.BallByBall {
		assert.Equal(t, i+1, d.BallNumber)
	}
}

func TestBroadcastFailureDoesNotFailCommand(t *testing.T) {
	lf := newLiveFixture(t)
	lf.svc.broadcaster = panickingBroadcaster{}
	lf.svc.recorder = metrics.NewRecorder()
	lf.start(t, models.MatchTypeT20)

	res, err := lf.svc.RecordDelivery(context.Background(), lf.fixture.ID, DeliveryInput{Runs: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Innings.Score)
}
