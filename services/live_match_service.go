package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/uniplay/metrics"
	"github.com/Dosada05/uniplay/models"
	"github.com/Dosada05/uniplay/repositories"
	"github.com/Dosada05/uniplay/scoring"
)

type InitializeLiveMatchInput struct {
	MatchID      int                 `json:"match_id" validate:"required,gt=0"`
	TossWinner   int                 `json:"toss_winner" validate:"required,gt=0"`
	TossDecision models.TossDecision `json:"toss_decision" validate:"required,toss_decision"`
	MatchType    models.MatchType    `json:"match_type" validate:"omitempty,match_type"`
}

// DeliveryInput is one ball as entered by the scorer. Every field is optional.
type DeliveryInput struct {
	Runs            int               `json:"runs" validate:"min=0,max=20"`
	Extras          int               `json:"extras" validate:"min=0,max=20"`
	ExtrasType      models.ExtrasType `json:"extras_type" validate:"omitempty,extras_type"`
	IsWicket        bool              `json:"is_wicket"`
	WicketType      models.WicketType `json:"wicket_type" validate:"omitempty,wicket_type"`
	DismissedPlayer string            `json:"dismissed_player" validate:"max=100"`
	Batsman         string            `json:"batsman" validate:"max=100"`
	Bowler          string            `json:"bowler" validate:"max=100"`
	Commentary      string            `json:"commentary" validate:"max=500"`
}

func (in DeliveryInput) ball() scoring.Ball {
	return scoring.Ball{
		Runs:            in.Runs,
		Extras:          in.Extras,
		ExtrasType:      in.ExtrasType,
		IsWicket:        in.IsWicket,
		WicketType:      in.WicketType,
		DismissedPlayer: in.DismissedPlayer,
		Batsman:         in.Batsman,
		Bowler:          in.Bowler,
		Commentary:      in.Commentary,
	}
}

type SetPlayersInput struct {
	Batsmen []string `json:"batsmen" validate:"omitempty,max=2,unique,dive,required,max=100"`
	Bowler  string   `json:"bowler" validate:"max=100"`
}

type InningsSummary struct {
	InningsNumber  int                   `json:"innings_number"`
	BattingTeam    int                   `json:"batting_team"`
	BowlingTeam    int                   `json:"bowling_team"`
	Score          int                   `json:"score"`
	Wickets        int                   `json:"wickets"`
	Balls          int                   `json:"balls"`
	Overs          float64               `json:"overs"`
	Extras         int                   `json:"extras"`
	IsCompleted    bool                  `json:"is_completed"`
	CurrentBatsmen []models.BatsmanStats `json:"current_batsmen"`
	CurrentBowler  *models.BowlerStats   `json:"current_bowler,omitempty"`
}

func summarizeInnings(inn *models.Innings) InningsSummary {
	return InningsSummary{
		InningsNumber:  inn.InningsNumber,
		BattingTeam:    inn.BattingTeam,
		BowlingTeam:    inn.BowlingTeam,
		Score:          inn.Score,
		Wickets:        inn.Wickets,
		Balls:          inn.Balls,
		Overs:          inn.Overs,
		Extras:         inn.Extras,
		IsCompleted:    inn.IsCompleted,
		CurrentBatsmen: inn.CurrentBatsmen,
		CurrentBowler:  inn.CurrentBowler,
	}
}

// DeliveryResult is returned to the scorer and broadcast as ball-updated.
type DeliveryResult struct {
	MatchID  int                    `json:"match_id"`
	Delivery models.Delivery        `json:"delivery"`
	Innings  InningsSummary         `json:"innings"`
	Summary  models.MatchSummary    `json:"match_summary"`
	Status   models.LiveMatchStatus `json:"status"`
}

type InningsCompletePayload struct {
	MatchID        int                    `json:"match_id"`
	Status         models.LiveMatchStatus `json:"status"`
	CurrentInnings int                    `json:"current_innings"`
	Result         *models.MatchResult    `json:"result,omitempty"`
}

type CurrentPlayers struct {
	Batsmen []models.BatsmanStats `json:"batsmen"`
	Bowler  *models.BowlerStats   `json:"bowler"`
}

type LiveMatchService interface {
	Initialize(ctx context.Context, input InitializeLiveMatchInput) (*models.LiveMatch, error)
	GetOrAutoInitialize(ctx context.Context, matchID int) (*models.LiveMatch, error)
	GetLiveMatch(ctx context.Context, matchID int) (*models.LiveMatch, error)
	RecordDelivery(ctx context.Context, matchID int, input DeliveryInput) (*DeliveryResult, error)
	CompleteInnings(ctx context.Context, matchID int) (*models.LiveMatch, error)
	SetCurrentPlayers(ctx context.Context, matchID int, input SetPlayersInput) (*CurrentPlayers, error)
	GetCommentary(ctx context.Context, matchID int, limit int) ([]scoring.CommentaryEntry, error)
	GetMatchSummary(ctx context.Context, matchID int) (*models.MatchSummary, error)
}

type liveMatchService struct {
	tx           repositories.Transactor
	liveRepo     repositories.LiveMatchRepository
	fixtureRepo  repositories.FixtureRepository
	teamRepo     repositories.TeamRepository
	broadcaster  Broadcaster
	recorder     *metrics.Recorder
	logger       *slog.Logger
	locks        *keyedMutex
	defaultOvers int
	now          func() time.Time
}

func NewLiveMatchService(
	tx repositories.Transactor,
	liveRepo repositories.LiveMatchRepository,
	fixtureRepo repositories.FixtureRepository,
	teamRepo repositories.TeamRepository,
	broadcaster Broadcaster,
	recorder *metrics.Recorder,
	logger *slog.Logger,
	defaultOvers int,
) LiveMatchService {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if defaultOvers <= 0 {
		defaultOvers = models.MatchTypeT20.Overs()
	}
	return &liveMatchService{
		tx:           tx,
		liveRepo:     liveRepo,
		fixtureRepo:  fixtureRepo,
		teamRepo:     teamRepo,
		broadcaster:  broadcaster,
		recorder:     recorder,
		logger:       logger,
		locks:        newKeyedMutex(),
		defaultOvers: defaultOvers,
		now:          time.Now,
	}
}

func (s *liveMatchService) Initialize(ctx context.Context, input InitializeLiveMatchInput) (m *models.LiveMatch, err error) {
	started := time.Now()
	defer func() { s.recorder.ObserveCommand("initialize", started, err) }()

	if err := validateInput(input); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(input.MatchID)
	defer unlock()

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		created, txErr := s.initialize(ctx, input.MatchID, input.TossWinner, input.TossDecision, input.MatchType)
		m = created
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("live match initialized",
		slog.Int("match_id", m.MatchID),
		slog.Int("batting_team", m.Innings[0].BattingTeam),
		slog.Int("total_overs", m.TotalOvers),
	)
	return m, nil
}

// initialize must run inside a transaction while holding the match lock.
func (s *liveMatchService) initialize(ctx context.Context, matchID, tossWinner int, decision models.TossDecision, matchType models.MatchType) (*models.LiveMatch, error) {
	fixture, err := s.fixtureRepo.GetByIDForUpdate(ctx, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	if _, err := s.liveRepo.GetByMatchID(ctx, matchID); err == nil {
		return nil, ErrAlreadyInitialized
	} else if !errors.Is(err, repositories.ErrLiveMatchNotFound) {
		return nil, fmt.Errorf("failed to check live match %d: %w", matchID, err)
	}

	if fixture.TeamA == nil || fixture.TeamB == nil {
		return nil, ErrTeamsNotDetermined
	}
	teamA, teamB := *fixture.TeamA, *fixture.TeamB

	totalOvers := matchType.Overs()
	if totalOvers == 0 {
		totalOvers = s.defaultOvers
	}

	teams, err := s.teamRepo.GetByIDs(ctx, []int{teamA, teamB})
	if err != nil {
		return nil, fmt.Errorf("failed to load teams of match %d: %w", matchID, err)
	}

	now := s.now()
	m, err := scoring.NewLiveMatch(scoring.NewMatchParams{
		MatchID:      matchID,
		TeamA:        teamA,
		TeamB:        teamB,
		TeamAName:    teamName(teams, teamA),
		TeamBName:    teamName(teams, teamB),
		TossWinner:   tossWinner,
		TossDecision: decision,
		MatchType:    matchType,
		TotalOvers:   totalOvers,
		Now:          now,
	})
	if err != nil {
		return nil, handleScoringError(err)
	}

	if err := s.liveRepo.Create(ctx, m); err != nil {
		return nil, handleRepositoryError(err)
	}
	if err := s.fixtureRepo.UpdateStatus(ctx, matchID, models.MatchStatusInProgress); err != nil {
		return nil, handleRepositoryError(err)
	}
	if _, err := s.projectSummary(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func teamName(teams map[int]*models.TeamRegistration, id int) string {
	if t, ok := teams[id]; ok {
		return t.TeamName
	}
	return ""
}

func (s *liveMatchService) GetLiveMatch(ctx context.Context, matchID int) (*models.LiveMatch, error) {
	m, err := s.liveRepo.GetByMatchID(ctx, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return m, nil
}

// GetOrAutoInitialize lets viewers open a fixture that is due before a scorer
// has set the toss. The default toss is teamA choosing to bat.
func (s *liveMatchService) GetOrAutoInitialize(ctx context.Context, matchID int) (*models.LiveMatch, error) {
	m, err := s.liveRepo.GetByMatchID(ctx, matchID)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, repositories.ErrLiveMatchNotFound) {
		return nil, err
	}

	fixture, err := s.fixtureRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if fixture.Status != models.MatchStatusScheduled && fixture.Status != models.MatchStatusInProgress {
		return nil, fmt.Errorf("%w: fixture %d is %s", ErrMatchNotLive, matchID, fixture.Status)
	}
	if fixture.TeamA == nil {
		return nil, ErrTeamsNotDetermined
	}

	unlock := s.locks.Lock(matchID)
	defer unlock()

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		created, txErr := s.initialize(ctx, matchID, *fixture.TeamA, models.TossDecisionBat, "")
		m = created
		return txErr
	})
	if errors.Is(err, ErrAlreadyInitialized) {
		return s.GetLiveMatch(ctx, matchID)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("live match auto-initialized", slog.Int("match_id", matchID))
	return m, nil
}

func (s *liveMatchService) RecordDelivery(ctx context.Context, matchID int, input DeliveryInput) (result *DeliveryResult, err error) {
	started := time.Now()
	defer func() { s.recorder.ObserveCommand("record_delivery", started, err) }()

	if err := validateInput(input); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(matchID)
	defer unlock()

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, txErr := s.liveRepo.GetByMatchIDForUpdate(ctx, matchID)
		if txErr != nil {
			return handleRepositoryError(txErr)
		}

		next := current.Clone()
		delivery, txErr := scoring.RecordDelivery(next, input.ball(), s.now())
		if txErr != nil {
			return handleScoringError(txErr)
		}
		if txErr = s.liveRepo.Update(ctx, next); txErr != nil {
			return handleRepositoryError(txErr)
		}

		summary, txErr := s.projectSummary(ctx, next)
		if txErr != nil {
			return txErr
		}

		result = &DeliveryResult{
			MatchID:  matchID,
			Delivery: delivery,
			Innings:  summarizeInnings(next.Current()),
			Summary:  summary,
			Status:   next.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.IncDeliveries()
	s.broadcast(matchID, EventBallUpdated, result)

	if result.Innings.IsCompleted {
		s.logger.Info("innings reached its limit",
			slog.Int("match_id", matchID),
			slog.Int("innings", result.Innings.InningsNumber),
			slog.Int("score", result.Innings.Score),
			slog.Int("wickets", result.Innings.Wickets),
		)
	}
	return result, nil
}

func (s *liveMatchService) CompleteInnings(ctx context.Context, matchID int) (m *models.LiveMatch, err error) {
	started := time.Now()
	defer func() { s.recorder.ObserveCommand("complete_innings", started, err) }()

	unlock := s.locks.Lock(matchID)
	defer unlock()

	var result *models.MatchResult
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, txErr := s.liveRepo.GetByMatchIDForUpdate(ctx, matchID)
		if txErr != nil {
			return handleRepositoryError(txErr)
		}

		next := current.Clone()
		result, txErr = scoring.CompleteInnings(next, s.now())
		if txErr != nil {
			return handleScoringError(txErr)
		}
		if txErr = s.liveRepo.Update(ctx, next); txErr != nil {
			return handleRepositoryError(txErr)
		}

		summary, txErr := s.projectSummary(ctx, next)
		if txErr != nil {
			return txErr
		}
		if next.Status == models.LiveStatusCompleted {
			if txErr = s.recordFinalScore(ctx, matchID, summary, result); txErr != nil {
				return txErr
			}
		}

		m = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(matchID, EventInningsComplete, InningsCompletePayload{
		MatchID:        matchID,
		Status:         m.Status,
		CurrentInnings: m.CurrentInnings,
		Result:         result,
	})

	logAttrs := []any{slog.Int("match_id", matchID), slog.String("status", string(m.Status))}
	if result != nil {
		logAttrs = append(logAttrs, slog.String("result", result.Summary))
	}
	s.logger.Info("innings completed", logAttrs...)
	return m, nil
}

// recordFinalScore pushes the decided result onto the fixture. Scores are
// assigned by team identity, not by innings order.
func (s *liveMatchService) recordFinalScore(ctx context.Context, matchID int, summary models.MatchSummary, result *models.MatchResult) error {
	fixture, err := s.fixtureRepo.GetByIDForUpdate(ctx, matchID)
	if err != nil {
		return handleRepositoryError(err)
	}
	fixture.Status = models.MatchStatusCompleted
	fixture.ScoreA = summary.ScoreA
	fixture.ScoreB = summary.ScoreB
	fixture.Winner = nil
	if result != nil {
		fixture.Winner = result.Winner
	}
	if err := s.fixtureRepo.UpdateResult(ctx, fixture); err != nil {
		return handleRepositoryError(err)
	}
	return nil
}

// projectSummary refreshes the denormalized live figures on the fixture.
// It is the only writer of those fields.
func (s *liveMatchService) projectSummary(ctx context.Context, m *models.LiveMatch) (models.MatchSummary, error) {
	summary := scoring.Summarize(m)
	if err := s.fixtureRepo.UpdateLiveSummary(ctx, m.MatchID, summary); err != nil {
		return summary, fmt.Errorf("failed to project summary of match %d: %w", m.MatchID, handleRepositoryError(err))
	}
	return summary, nil
}

func (s *liveMatchService) SetCurrentPlayers(ctx context.Context, matchID int, input SetPlayersInput) (players *CurrentPlayers, err error) {
	started := time.Now()
	defer func() { s.recorder.ObserveCommand("set_players", started, err) }()

	if err := validateInput(input); err != nil {
		return nil, err
	}
	if len(input.Batsmen) == 0 && input.Bowler == "" {
		return nil, newValidationError("batsmen", "batsmen or bowler must be provided")
	}

	unlock := s.locks.Lock(matchID)
	defer unlock()

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, txErr := s.liveRepo.GetByMatchIDForUpdate(ctx, matchID)
		if txErr != nil {
			return handleRepositoryError(txErr)
		}

		next := current.Clone()
		if txErr = scoring.ReplaceCurrentPlayers(next, input.Batsmen, input.Bowler); txErr != nil {
			return handleScoringError(txErr)
		}
		next.LastUpdated = s.now()
		if txErr = s.liveRepo.Update(ctx, next); txErr != nil {
			return handleRepositoryError(txErr)
		}

		inn := next.Current()
		players = &CurrentPlayers{Batsmen: inn.CurrentBatsmen, Bowler: inn.CurrentBowler}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(matchID, EventPlayersUpdated, players)
	return players, nil
}

func (s *liveMatchService) GetCommentary(ctx context.Context, matchID int, limit int) ([]scoring.CommentaryEntry, error) {
	m, err := s.liveRepo.GetByMatchID(ctx, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return scoring.RecentCommentary(m, limit), nil
}

func (s *liveMatchService) GetMatchSummary(ctx context.Context, matchID int) (*models.MatchSummary, error) {
	m, err := s.liveRepo.GetByMatchID(ctx, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	summary := scoring.Summarize(m)
	return &summary, nil
}

func (s *liveMatchService) broadcast(matchID int, event string, payload interface{}) {
	safeBroadcast(s.logger, s.broadcaster, MatchRoom(matchID), event, payload)
}
