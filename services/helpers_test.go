package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dosada05/uniplay/metrics"
	"github.com/Dosada05/uniplay/models"
	"github.com/Dosada05/uniplay/repositories"
)

var testNow = time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)

type broadcastCall struct {
	Room    string
	Event   string
	Payload interface{}
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (b *recordingBroadcaster) Broadcast(room, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, broadcastCall{Room: room, Event: event, Payload: payload})
}

func (b *recordingBroadcaster) events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.calls))
	for _, c := range b.calls {
		names = append(names, c.Event)
	}
	return names
}

type panickingBroadcaster struct{}

func (panickingBroadcaster) Broadcast(string, string, interface{}) { panic("socket closed") }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type liveFixture struct {
	store   *repositories.MemoryStore
	svc     *liveMatchService
	events  *recordingBroadcaster
	event   *models.Event
	teamA   *models.TeamRegistration
	teamB   *models.TeamRegistration
	fixture *models.Fixture
}

func newLiveFixture(t *testing.T) *liveFixture {
	t.Helper()
	store := repositories.NewMemoryStore()
	event := store.CreateEvent("Inter-college Cup")
	a, err := store.CreateTeam(event.ID, "Falcons", "Rao")
	require.NoError(t, err)
	b, err := store.CreateTeam(event.ID, "Strikers", "Iyer")
	require.NoError(t, err)

	f := &models.Fixture{
		EventID:       event.ID,
		TeamA:         &a.ID,
		TeamB:         &b.ID,
		Stage:         models.StageRoundRobin,
		Round:         1,
		ScheduledTime: testNow,
		Venue:         "Ground 1",
		Status:        models.MatchStatusScheduled,
	}
	require.NoError(t, store.Fixtures().BatchCreate(context.Background(), []*models.Fixture{f}))

	events := &recordingBroadcaster{}
	svc := NewLiveMatchService(store, store.LiveMatches(), store.Fixtures(), store.Teams(),
		events, metrics.NewRecorder(), discardLogger(), 20).(*liveMatchService)
	svc.now = func() time.Time { return testNow }

	return &liveFixture{store: store, svc: svc, events: events, event: event, teamA: a, teamB: b, fixture: f}
}

// start initializes the fixture's match with teamA batting and the given overs.
func (lf *liveFixture) start(t *testing.T, matchType models.MatchType) *models.LiveMatch {
	t.Helper()
	m, err := lf.svc.Initialize(context.Background(), InitializeLiveMatchInput{
		MatchID:      lf.fixture.ID,
		TossWinner:   lf.teamA.ID,
		TossDecision: models.TossDecisionBat,
		MatchType:    matchType,
	})
	require.NoError(t, err)
	return m
}

func (lf *liveFixture) bowl(t *testing.T, input DeliveryInput) *DeliveryResult {
	t.Helper()
	res, err := lf.svc.RecordDelivery(context.Background(), lf.fixture.ID, input)
	require.NoError(t, err)
	return res
}
