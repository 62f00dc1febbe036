package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/uniplay/models"
)

type memoryTxKey struct{}

// MemoryStore keeps every table in process memory. It backs local runs with
// STORAGE_DRIVER=memory and the service tests. Transactions are serialized
// and roll back by restoring a snapshot of the maps. Writes outside a
// transaction wait for any open one to finish.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	events      map[int]models.Event
	teams       map[int]models.TeamRegistration
	fixtures    map[int]models.Fixture
	liveMatches map[int]models.LiveMatch
	autoplays   map[int]models.AutoPlay
	lastID      int

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:      make(map[int]models.Event),
		teams:       make(map[int]models.TeamRegistration),
		fixtures:    make(map[int]models.Fixture),
		liveMatches: make(map[int]models.LiveMatch),
		autoplays:   make(map[int]models.AutoPlay),
		now:         time.Now,
	}
}

func (s *MemoryStore) LiveMatches() LiveMatchRepository { return memoryLiveMatches{s} }
func (s *MemoryStore) Fixtures() FixtureRepository { return memoryFixtures{s} }
func (s *MemoryStore) Events() EventRepository { return memoryEvents{s} }
func (s *MemoryStore) Teams() TeamRepository { return memoryTeams{s} }
func (s *MemoryStore) AutoPlays() AutoPlayRepository { return memoryAutoPlays{s} }

type memorySnapshot struct {
	events      map[int]models.Event
	teams       map[int]models.TeamRegistration
	fixtures    map[int]models.Fixture
	liveMatches map[int]models.LiveMatch
	autoplays   map[int]models.AutoPlay
	lastID      int
}

// Stored values are replaced on every write and never mutated in place, so
// copying the maps is enough to snapshot them.
func (s *MemoryStore) snapshot() memorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return memorySnapshot{
		events:      copyMap(s.events),
		teams:       copyMap(s.teams),
		fixtures:    copyMap(s.fixtures),
		liveMatches: copyMap(s.liveMatches),
		autoplays:   copyMap(s.autoplays),
		lastID:      s.lastID,
	}
}

func (s *MemoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = snap.events
	s.teams = snap.teams
	s.fixtures = snap.fixtures
	s.liveMatches = snap.liveMatches
	s.autoplays = snap.autoplays
	s.lastID = snap.lastID
}

func (s *MemoryStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(memoryTxKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	return fn(context.WithValue(ctx, memoryTxKey{}, true))
}

// writeLock guards a single write. Outside a transaction it also takes txMu,
// so an open transaction that rolls back cannot discard the write.
func (s *MemoryStore) writeLock(ctx context.Context) func() {
	if ctx.Value(memoryTxKey{}) != nil {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

func (s *MemoryStore) nextID() int {
	s.lastID++
	return s.lastID
}

// CreateEvent registers an event. Event management lives outside this
// service; the method exists for seeding.
func (s *MemoryStore) CreateEvent(name string) *models.Event {
	defer s.writeLock(context.Background())()
	now := s.now()
	e := models.Event{
		ID:          s.nextID(),
		Name:        name,
		Leaderboard: []models.LeaderboardEntry{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.events[e.ID] = e
	return copyEvent(e)
}

// CreateTeam registers a team for an event, for seeding.
func (s *MemoryStore) CreateTeam(eventID int, name, captain string) (*models.TeamRegistration, error) {
	defer s.writeLock(context.Background())()
	if _, ok := s.events[eventID]; !ok {
		return nil, ErrEventNotFound
	}
	t := models.TeamRegistration{
		ID:          s.nextID(),
		EventID:     eventID,
		TeamName:    name,
		CaptainName: captain,
		CreatedAt:   s.now(),
	}
	s.teams[t.ID] = t
	return &t, nil
}

// --- live matches ---

type memoryLiveMatches struct{ s *MemoryStore }

func (r memoryLiveMatches) Create(ctx context.Context, m *models.LiveMatch) error {
	defer r.s.writeLock(ctx)()
	if _, ok := r.s.liveMatches[m.MatchID]; ok {
		return ErrLiveMatchExists
	}
	if _, ok := r.s.fixtures[m.MatchID]; !ok {
		return ErrLiveMatchFixtureInvalid
	}
	m.ID = r.s.nextID()
	m.Version = 1
	r.s.liveMatches[m.MatchID] = *m.Clone()
	return nil
}

func (r memoryLiveMatches) GetByMatchID(ctx context.Context, matchID int) (*models.LiveMatch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.liveMatches[matchID]
	if !ok {
		return nil, ErrLiveMatchNotFound
	}
	return m.Clone(), nil
}

func (r memoryLiveMatches) GetByMatchIDForUpdate(ctx context.Context, matchID int) (*models.LiveMatch, error) {
	return r.GetByMatchID(ctx, matchID)
}

func (r memoryLiveMatches) Update(ctx context.Context, m *models.LiveMatch) error {
	defer r.s.writeLock(ctx)()
	stored, ok := r.s.liveMatches[m.MatchID]
	if !ok || stored.Version != m.Version {
		return ErrLiveMatchStale
	}
	m.Version++
	r.s.liveMatches[m.MatchID] = *m.Clone()
	return nil
}

// --- fixtures ---

type memoryFixtures struct{ s *MemoryStore }

func (r memoryFixtures) GetByID(ctx context.Context, id int) (*models.Fixture, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	f, ok := r.s.fixtures[id]
	if !ok {
		return nil, ErrFixtureNotFound
	}
	return &f, nil
}

func (r memoryFixtures) GetByIDForUpdate(ctx context.Context, id int) (*models.Fixture, error) {
	return r.GetByID(ctx, id)
}

func (r memoryFixtures) BatchCreate(ctx context.Context, fixtures []*models.Fixture) error {
	defer r.s.writeLock(ctx)()
	for _, f := range fixtures {
		if _, ok := r.s.events[f.EventID]; !ok {
			return ErrFixtureEventInvalid
		}
		for _, team := range []*int{f.TeamA, f.TeamB} {
			if team == nil {
				continue
			}
			if _, ok := r.s.teams[*team]; !ok {
				return ErrFixtureTeamInvalid
			}
		}
	}
	now := r.s.now()
	for _, f := range fixtures {
		f.ID = r.s.nextID()
		f.CreatedAt = now
		f.UpdatedAt = now
		r.s.fixtures[f.ID] = *f
	}
	return nil
}

func (r memoryFixtures) UpdateStatus(ctx context.Context, id int, status models.MatchStatus) error {
	defer r.s.writeLock(ctx)()
	f, ok := r.s.fixtures[id]
	if !ok {
		return ErrFixtureNotFound
	}
	f.Status = status
	f.UpdatedAt = r.s.now()
	r.s.fixtures[id] = f
	return nil
}

func (r memoryFixtures) UpdateResult(ctx context.Context, f *models.Fixture) error {
	defer r.s.writeLock(ctx)()
	stored, ok := r.s.fixtures[f.ID]
	if !ok {
		return ErrFixtureNotFound
	}
	stored.Status = f.Status
	stored.ScoreA = f.ScoreA
	stored.ScoreB = f.ScoreB
	stored.Winner = f.Winner
	stored.LeaderboardApplied = f.LeaderboardApplied
	stored.UpdatedAt = r.s.now()
	f.UpdatedAt = stored.UpdatedAt
	r.s.fixtures[f.ID] = stored
	return nil
}

func (r memoryFixtures) UpdateLiveSummary(ctx context.Context, id int, summary models.MatchSummary) error {
	defer r.s.writeLock(ctx)()
	f, ok := r.s.fixtures[id]
	if !ok {
		return ErrFixtureNotFound
	}
	f.ScoreA = summary.ScoreA
	f.ScoreB = summary.ScoreB
	f.LiveOvers = summary.Overs
	f.LiveWickets = summary.Wickets
	f.CurrentBatting = summary.CurrentBatting
	f.UpdatedAt = r.s.now()
	r.s.fixtures[id] = f
	return nil
}

func (r memoryFixtures) ListByEvent(ctx context.Context, eventID int, filter FixtureFilter) ([]*models.Fixture, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	fixtures := make([]*models.Fixture, 0)
	for _, f := range r.s.fixtures {
		if f.EventID != eventID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, f.Status) {
			continue
		}
		if filter.From != nil && f.ScheduledTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && f.ScheduledTime.After(*filter.To) {
			continue
		}
		f := f
		fixtures = append(fixtures, &f)
	}
	sort.Slice(fixtures, func(i, j int) bool {
		if !fixtures[i].ScheduledTime.Equal(fixtures[j].ScheduledTime) {
			return fixtures[i].ScheduledTime.Before(fixtures[j].ScheduledTime)
		}
		return fixtures[i].ID < fixtures[j].ID
	})
	return fixtures, nil
}

func containsStatus(statuses []models.MatchStatus, s models.MatchStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// --- events ---

type memoryEvents struct{ s *MemoryStore }

func (r memoryEvents) GetByID(ctx context.Context, id int) (*models.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	return copyEvent(e), nil
}

func (r memoryEvents) GetByIDForUpdate(ctx context.Context, id int) (*models.Event, error) {
	return r.GetByID(ctx, id)
}

func (r memoryEvents) MarkScheduleGenerated(ctx context.Context, id int) error {
	defer r.s.writeLock(ctx)()
	e, ok := r.s.events[id]
	if !ok {
		return ErrEventNotFound
	}
	if e.ScheduleGenerated {
		return ErrScheduleAlreadyGenerated
	}
	e.ScheduleGenerated = true
	e.UpdatedAt = r.s.now()
	r.s.events[id] = e
	return nil
}

func (r memoryEvents) UpdateLeaderboard(ctx context.Context, id int, leaderboard []models.LeaderboardEntry) error {
	defer r.s.writeLock(ctx)()
	e, ok := r.s.events[id]
	if !ok {
		return ErrEventNotFound
	}
	e.Leaderboard = append([]models.LeaderboardEntry{}, leaderboard...)
	e.UpdatedAt = r.s.now()
	r.s.events[id] = e
	return nil
}

func copyEvent(e models.Event) *models.Event {
	e.Leaderboard = append([]models.LeaderboardEntry{}, e.Leaderboard...)
	return &e
}

// --- teams ---

type memoryTeams struct{ s *MemoryStore }

func (r memoryTeams) ListByEvent(ctx context.Context, eventID int) ([]*models.TeamRegistration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	teams := make([]*models.TeamRegistration, 0)
	for _, t := range r.s.teams {
		if t.EventID == eventID {
			t := t
			teams = append(teams, &t)
		}
	}
	sort.Slice(teams, func(i, j int) bool {
		if !teams[i].CreatedAt.Equal(teams[j].CreatedAt) {
			return teams[i].CreatedAt.Before(teams[j].CreatedAt)
		}
		return teams[i].ID < teams[j].ID
	})
	return teams, nil
}

func (r memoryTeams) GetByIDs(ctx context.Context, ids []int) (map[int]*models.TeamRegistration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	teams := make(map[int]*models.TeamRegistration, len(ids))
	for _, id := range ids {
		if t, ok := r.s.teams[id]; ok {
			teams[id] = &t
		}
	}
	return teams, nil
}

// --- auto-play ---

type memoryAutoPlays struct{ s *MemoryStore }

func (r memoryAutoPlays) Upsert(ctx context.Context, a *models.AutoPlay) error {
	defer r.s.writeLock(ctx)()
	if _, ok := r.s.fixtures[a.MatchID]; !ok {
		return ErrAutoPlayFixtureInvalid
	}
	if existing, ok := r.s.autoplays[a.MatchID]; ok {
		a.ID = existing.ID
	} else {
		a.ID = r.s.nextID()
	}
	r.s.autoplays[a.MatchID] = *a
	return nil
}

func (r memoryAutoPlays) GetByMatchID(ctx context.Context, matchID int) (*models.AutoPlay, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.autoplays[matchID]
	if !ok {
		return nil, ErrAutoPlayNotFound
	}
	return &a, nil
}

func (r memoryAutoPlays) UpdatePlayback(ctx context.Context, matchID int, state models.PlaybackState) error {
	defer r.s.writeLock(ctx)()
	a, ok := r.s.autoplays[matchID]
	if !ok {
		return ErrAutoPlayNotFound
	}
	a.Playback = state
	r.s.autoplays[matchID] = a
	return nil
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
