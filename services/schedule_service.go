package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/uniplay/brackets"
	"github.com/Dosada05/uniplay/metrics"
	"github.com/Dosada05/uniplay/models"
	"github.com/Dosada05/uniplay/repositories"
)

const (
	roundRobinWinPoints = 2
	liveWindow          = 3 * time.Hour
)

type ScheduleResult struct {
	Fixtures    []*models.Fixture         `json:"fixtures"`
	Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
}

type EventSchedule struct {
	Event    *models.Event     `json:"event"`
	Fixtures []*models.Fixture `json:"fixtures"`
}

type UpdateMatchResultInput struct {
	Status models.MatchStatus `json:"status" validate:"required,match_status"`
	ScoreA int                `json:"score_a" validate:"min=0"`
	ScoreB int                `json:"score_b" validate:"min=0"`
	Winner *int               `json:"winner" validate:"omitempty,gt=0"`
}

type ScheduleService interface {
	GenerateSchedule(ctx context.Context, eventID int) (*ScheduleResult, error)
	UpdateMatchResult(ctx context.Context, fixtureID int, input UpdateMatchResultInput) (*models.Fixture, error)
	GetLeaderboard(ctx context.Context, eventID int) ([]models.LeaderboardEntry, error)
	ListFixtures(ctx context.Context, eventID int, statuses []models.MatchStatus) ([]*models.Fixture, error)
	GetEventSchedule(ctx context.Context, eventID int) (*EventSchedule, error)
	ListLiveFixtures(ctx context.Context, eventID int) ([]*models.Fixture, error)
}

type scheduleService struct {
	tx          repositories.Transactor
	eventRepo   repositories.EventRepository
	fixtureRepo repositories.FixtureRepository
	teamRepo    repositories.TeamRepository
	recorder    *metrics.Recorder
	logger      *slog.Logger
	locks       *keyedMutex
	location    *time.Location
	now         func() time.Time
}

func NewScheduleService(
	tx repositories.Transactor,
	eventRepo repositories.EventRepository,
	fixtureRepo repositories.FixtureRepository,
	teamRepo repositories.TeamRepository,
	recorder *metrics.Recorder,
	logger *slog.Logger,
	location *time.Location,
) ScheduleService {
	if logger == nil {
		logger = slog.Default()
	}
	if location == nil {
		location = time.Local
	}
	return &scheduleService{
		tx:          tx,
		eventRepo:   eventRepo,
		fixtureRepo: fixtureRepo,
		teamRepo:    teamRepo,
		recorder:    recorder,
		logger:      logger,
		locks:       newKeyedMutex(),
		location:    location,
		now:         time.Now,
	}
}

// GenerateSchedule builds the full fixture list of an event once. The
// schedule flag is claimed with a compare-and-set inside the same transaction
// that inserts the fixtures, so a concurrent second call fails without
// writing anything.
func (s *scheduleService) GenerateSchedule(ctx context.Context, eventID int) (res *ScheduleResult, err error) {
	started := time.Now()
	defer func() { s.recorder.ObserveCommand("generate_schedule", started, err) }()

	unlock := s.locks.Lock(eventID)
	defer unlock()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if event.ScheduleGenerated {
		return nil, ErrScheduleAlreadyGenerated
	}

	teams, err := s.teamRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams of event %d: %w", eventID, err)
	}
	if len(teams) < 2 {
		return nil, fmt.Errorf("%w (found %d)", ErrNotEnoughTeams, len(teams))
	}

	teamIDs := make([]int, len(teams))
	for i, t := range teams {
		teamIDs[i] = t.ID
	}

	planned, err := brackets.GenerateEventSchedule(ctx, teamIDs, brackets.BaseDate(s.now().In(s.location)))
	if err != nil {
		if errors.Is(err, brackets.ErrNotEnoughTeams) {
			return nil, ErrNotEnoughTeams
		}
		return nil, fmt.Errorf("failed to generate schedule for event %d: %w", eventID, err)
	}

	fixtures := make([]*models.Fixture, len(planned))
	for i, p := range planned {
		fixtures[i] = &models.Fixture{
			EventID:       eventID,
			TeamA:         p.TeamA,
			TeamB:         p.TeamB,
			Stage:         p.Stage,
			Round:         p.Round,
			ScheduledTime: p.ScheduledTime,
			Venue:         p.Venue,
			Status:        models.MatchStatusScheduled,
		}
	}

	leaderboard := make([]models.LeaderboardEntry, len(teamIDs))
	for i, id := range teamIDs {
		leaderboard[i] = models.LeaderboardEntry{Team: id}
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.eventRepo.MarkScheduleGenerated(ctx, eventID); err != nil {
			return handleRepositoryError(err)
		}
		if err := s.fixtureRepo.BatchCreate(ctx, fixtures); err != nil {
			return fmt.Errorf("failed to store fixtures: %w", handleRepositoryError(err))
		}
		if err := s.eventRepo.UpdateLeaderboard(ctx, eventID, leaderboard); err != nil {
			return fmt.Errorf("failed to seed leaderboard: %w", handleRepositoryError(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("schedule generated",
		slog.Int("event_id", eventID),
		slog.Int("teams", len(teamIDs)),
		slog.Int("fixtures", len(fixtures)),
	)
	return &ScheduleResult{Fixtures: fixtures, Leaderboard: leaderboard}, nil
}

// UpdateMatchResult stores a fixture's outcome. The first transition of a
// round-robin fixture to Completed with a winner updates the leaderboard.
func (s *scheduleService) UpdateMatchResult(ctx context.Context, fixtureID int, input UpdateMatchResultInput) (f *models.Fixture, err error) {
	started := time.Now()
	defer func() { s.recorder.ObserveCommand("update_match_result", started, err) }()

	if err := validateInput(input); err != nil {
		return nil, err
	}

	current, err := s.fixtureRepo.GetByID(ctx, fixtureID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if input.Winner != nil && !current.HasTeam(*input.Winner) {
		return nil, newValidationError("winner", "must be one of the fixture's teams")
	}

	unlock := s.locks.Lock(current.EventID)
	defer unlock()

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		fixture, txErr := s.fixtureRepo.GetByIDForUpdate(ctx, fixtureID)
		if txErr != nil {
			return handleRepositoryError(txErr)
		}
		fixture.Status = input.Status
		fixture.ScoreA = input.ScoreA
		fixture.ScoreB = input.ScoreB
		fixture.Winner = input.Winner

		// A match finished by the live engine is already Completed here, so
		// the award is keyed on the fixture's own flag, not on its old status.
		award := !fixture.LeaderboardApplied && fixture.Status == models.MatchStatusCompleted &&
			fixture.Stage == models.StageRoundRobin && fixture.Winner != nil
		if award {
			fixture.LeaderboardApplied = true
		}
		if txErr = s.fixtureRepo.UpdateResult(ctx, fixture); txErr != nil {
			return handleRepositoryError(txErr)
		}

		if award {
			if txErr = s.awardWin(ctx, fixture); txErr != nil {
				return txErr
			}
		}

		f = fixture
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match result updated",
		slog.Int("fixture_id", fixtureID),
		slog.String("status", string(f.Status)),
	)
	return f, nil
}

func (s *scheduleService) awardWin(ctx context.Context, f *models.Fixture) error {
	event, err := s.eventRepo.GetByIDForUpdate(ctx, f.EventID)
	if err != nil {
		return handleRepositoryError(err)
	}

	winner := *f.Winner
	loser := 0
	switch {
	case f.TeamA != nil && *f.TeamA != winner:
		loser = *f.TeamA
	case f.TeamB != nil && *f.TeamB != winner:
		loser = *f.TeamB
	}

	leaderboard := ApplyWin(event.Leaderboard, winner, loser)
	if err := s.eventRepo.UpdateLeaderboard(ctx, f.EventID, leaderboard); err != nil {
		return fmt.Errorf("failed to update leaderboard of event %d: %w", f.EventID, handleRepositoryError(err))
	}
	return nil
}

// ApplyWin returns a copy of the leaderboard with one decided round-robin
// result applied, sorted by points descending. Equal points keep their
// previous relative order. A loser of 0 records only the win.
func ApplyWin(leaderboard []models.LeaderboardEntry, winner, loser int) []models.LeaderboardEntry {
	out := make([]models.LeaderboardEntry, len(leaderboard))
	copy(out, leaderboard)

	entry := func(team int) *models.LeaderboardEntry {
		for i := range out {
			if out[i].Team == team {
				return &out[i]
			}
		}
		out = append(out, models.LeaderboardEntry{Team: team})
		return &out[len(out)-1]
	}

	w := entry(winner)
	w.Points += roundRobinWinPoints
	w.Wins++
	w.MatchesPlayed++

	if loser != 0 {
		l := entry(loser)
		l.Losses++
		l.MatchesPlayed++
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Points > out[j].Points })
	return out
}

func (s *scheduleService) GetLeaderboard(ctx context.Context, eventID int) ([]models.LeaderboardEntry, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return event.Leaderboard, nil
}

func (s *scheduleService) ListFixtures(ctx context.Context, eventID int, statuses []models.MatchStatus) ([]*models.Fixture, error) {
	for _, st := range statuses {
		if !st.IsValid() {
			return nil, newValidationError("status", fmt.Sprintf("%q is not a valid value", st))
		}
	}
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, handleRepositoryError(err)
	}
	return s.fixtureRepo.ListByEvent(ctx, eventID, repositories.FixtureFilter{Statuses: statuses})
}

func (s *scheduleService) GetEventSchedule(ctx context.Context, eventID int) (*EventSchedule, error) {
	schedule := &EventSchedule{}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		event, err := s.eventRepo.GetByID(gCtx, eventID)
		if err != nil {
			return handleRepositoryError(err)
		}
		schedule.Event = event
		return nil
	})
	g.Go(func() error {
		fixtures, err := s.fixtureRepo.ListByEvent(gCtx, eventID, repositories.FixtureFilter{})
		if err != nil {
			return fmt.Errorf("failed to list fixtures of event %d: %w", eventID, err)
		}
		schedule.Fixtures = fixtures
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return schedule, nil
}

// ListLiveFixtures returns the fixtures a live-scores page should show:
// not yet finished and scheduled within three hours of now.
func (s *scheduleService) ListLiveFixtures(ctx context.Context, eventID int) ([]*models.Fixture, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, handleRepositoryError(err)
	}
	now := s.now()
	from, to := now.Add(-liveWindow), now.Add(liveWindow)
	return s.fixtureRepo.ListByEvent(ctx, eventID, repositories.FixtureFilter{
		Statuses: []models.MatchStatus{models.MatchStatusScheduled, models.MatchStatusInProgress},
		From:     &from,
		To:       &to,
	})
}
