package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/uniplay/models"
)

func seedFixture(t *testing.T, s *MemoryStore) (*models.Event, *models.Fixture) {
	t.Helper()
	ctx := context.Background()
	event := s.CreateEvent("Inter-college Cup")
	a, err := s.CreateTeam(event.ID, "Falcons", "Rao")
	require.NoError(t, err)
	b, err := s.CreateTeam(event.ID, "Strikers", "Iyer")
	require.NoError(t, err)

	f := &models.Fixture{
		EventID:       event.ID,
		TeamA:         &a.ID,
		TeamB:         &b.ID,
		Stage:         models.StageRoundRobin,
		Round:         1,
		ScheduledTime: time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC),
		Venue:         "Ground 1",
		Status:        models.MatchStatusScheduled,
	}
	require.NoError(t, s.Fixtures().BatchCreate(ctx, []*models.Fixture{f}))
	return event, f
}

func TestMemoryTransactionRollsBack(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	event, f := seedFixture(t, s)

	boom := errors.New("boom")
	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Events().MarkScheduleGenerated(ctx, event.ID))
		require.NoError(t, s.Fixtures().UpdateStatus(ctx, f.ID, models.MatchStatusInProgress))
		return boom
	})
	require.ErrorIs(t, err, boom)

	e, err := s.Events().GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.False(t, e.ScheduleGenerated)

	stored, err := s.Fixtures().GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusScheduled, stored.Status)
}

func TestMemoryRollbackKeepsWritesFromOutsideTheTransaction(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, f := seedFixture(t, s)
	require.NoError(t, s.AutoPlays().Upsert(ctx, &models.AutoPlay{MatchID: f.ID}))

	boom := errors.New("boom")
	written := make(chan error, 1)
	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		go func() {
			written <- s.AutoPlays().UpdatePlayback(context.Background(), f.ID,
				models.PlaybackState{CurrentInnings: 2, CurrentBallIndex: 5})
		}()
		require.NoError(t, s.Fixtures().UpdateStatus(ctx, f.ID, models.MatchStatusInProgress))
		time.Sleep(20 * time.Millisecond)
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, <-written)

	a, err := s.AutoPlays().GetByMatchID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Playback.CurrentInnings)
	assert.Equal(t, 5, a.Playback.CurrentBallIndex)

	stored, err := s.Fixtures().GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusScheduled, stored.Status)
}

func TestMemoryScheduleFlagIsCompareAndSet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	event := s.CreateEvent("Cup")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Events().MarkScheduleGenerated(ctx, event.ID); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrScheduleAlreadyGenerated)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)

	assert.ErrorIs(t, s.Events().MarkScheduleGenerated(ctx, 999), ErrEventNotFound)
}

func TestMemoryLiveMatchVersioning(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, f := seedFixture(t, s)

	m := &models.LiveMatch{MatchID: f.ID, TeamA: *f.TeamA, TeamB: *f.TeamB, CurrentInnings: 1,
		Innings: []models.Innings{{InningsNumber: 1}}, Status: models.LiveStatusInProgress}
	require.NoError(t, s.LiveMatches().Create(ctx, m))
	assert.ErrorIs(t, s.LiveMatches().Create(ctx, m), ErrLiveMatchExists)

	first, err := s.LiveMatches().GetByMatchID(ctx, f.ID)
	require.NoError(t, err)
	second, err := s.LiveMatches().GetByMatchID(ctx, f.ID)
	require.NoError(t, err)

	first.Innings[0].Score = 4
	require.NoError(t, s.LiveMatches().Update(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Innings[0].Score = 6
	assert.ErrorIs(t, s.LiveMatches().Update(ctx, second), ErrLiveMatchStale)

	stored, err := s.LiveMatches().GetByMatchID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Innings[0].Score)

	// Returned values do not alias the stored document.
	stored.Innings[0].Score = 100
	again, err := s.LiveMatches().GetByMatchID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, again.Innings[0].Score)
}

func TestMemoryLiveMatchRequiresFixture(t *testing.T) {
	s := NewMemoryStore()
	err := s.LiveMatches().Create(context.Background(), &models.LiveMatch{MatchID: 42})
	assert.ErrorIs(t, err, ErrLiveMatchFixtureInvalid)
}

func TestMemoryListFixturesFilters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	event, f := seedFixture(t, s)
	require.NoError(t, s.Fixtures().UpdateStatus(ctx, f.ID, models.MatchStatusCompleted))

	later := &models.Fixture{
		EventID: event.ID, Stage: models.StageFinal, Round: 1,
		ScheduledTime: f.ScheduledTime.Add(72 * time.Hour), Status: models.MatchStatusScheduled,
	}
	require.NoError(t, s.Fixtures().BatchCreate(ctx, []*models.Fixture{later}))

	all, err := s.Fixtures().ListByEvent(ctx, event.ID, FixtureFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, f.ID, all[0].ID)

	scheduled, err := s.Fixtures().ListByEvent(ctx, event.ID, FixtureFilter{
		Statuses: []models.MatchStatus{models.MatchStatusScheduled},
	})
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, later.ID, scheduled[0].ID)

	to := f.ScheduledTime.Add(time.Hour)
	early, err := s.Fixtures().ListByEvent(ctx, event.ID, FixtureFilter{To: &to})
	require.NoError(t, err)
	require.Len(t, early, 1)
	assert.Equal(t, f.ID, early[0].ID)
}

func TestMemoryTeamsInRegistrationOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	event := s.CreateEvent("Cup")
	names := []string{"Falcons", "Strikers", "Titans"}
	for _, n := range names {
		_, err := s.CreateTeam(event.ID, n, "")
		require.NoError(t, err)
	}

	teams, err := s.Teams().ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, teams, 3)
	for i, team := range teams {
		assert.Equal(t, names[i], team.TeamName)
	}

	byID, err := s.Teams().GetByIDs(ctx, []int{teams[2].ID, 9999})
	require.NoError(t, err)
	assert.Len(t, byID, 1)
	assert.Equal(t, "Titans", byID[teams[2].ID].TeamName)
}
