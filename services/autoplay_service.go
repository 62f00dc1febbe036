package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dosada05/uniplay/cricsheet"
	"github.com/Dosada05/uniplay/metrics"
	"github.com/Dosada05/uniplay/models"
	"github.com/Dosada05/uniplay/repositories"
	"github.com/Dosada05/uniplay/storage"
)

const (
	DefaultPlaybackSpeed = 1.0

	// Innings beyond the second (super overs) are not replayed.
	maxReplayedInnings = 2
)

var playbackSpeeds = []float64{0.5, 1, 2, 3}

func validSpeed(speed float64) bool {
	for _, s := range playbackSpeeds {
		if s == speed {
			return true
		}
	}
	return false
}

type PlaybackStatus struct {
	MatchID        int        `json:"match_id"`
	IsPlaying      bool       `json:"is_playing"`
	IsPaused       bool       `json:"is_paused"`
	CurrentInnings int        `json:"current_innings"`
	CurrentBall    int        `json:"current_ball"`
	TotalBalls     int        `json:"total_balls"`
	Speed          float64    `json:"speed"`
	Progress       float64    `json:"progress"`
	LastPlayedAt   *time.Time `json:"last_played_at,omitempty"`
}

func newPlaybackStatus(a *models.AutoPlay) *PlaybackStatus {
	pb := a.Playback
	st := &PlaybackStatus{
		MatchID:        a.MatchID,
		IsPlaying:      pb.IsPlaying,
		IsPaused:       pb.IsPaused,
		CurrentInnings: pb.CurrentInnings,
		CurrentBall:    pb.CurrentBallIndex,
		Speed:          pb.Speed,
		LastPlayedAt:   pb.LastPlayedAt,
	}
	if idx := pb.CurrentInnings - 1; idx >= 0 && idx < len(a.Innings) {
		st.TotalBalls = len(a.Innings[idx].Balls)
	}
	if st.TotalBalls > 0 {
		st.Progress = float64(st.CurrentBall) / float64(st.TotalBalls) * 100
	}
	return st
}

type AutoPlayService interface {
	Upload(ctx context.Context, matchID int, fileName string, data []byte) (*models.AutoPlay, error)
	Start(ctx context.Context, matchID int, speed float64) (*PlaybackStatus, error)
	Pause(ctx context.Context, matchID int) (*PlaybackStatus, error)
	ChangeSpeed(ctx context.Context, matchID int, speed float64) (*PlaybackStatus, error)
	Stop(ctx context.Context, matchID int) (*PlaybackStatus, error)
	Status(ctx context.Context, matchID int) (*PlaybackStatus, error)
	// Shutdown stops every running playback and waits for them to exit.
	Shutdown()
}

type playbackTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type autoPlayService struct {
	repo         repositories.AutoPlayRepository
	fixtureRepo  repositories.FixtureRepository
	liveRepo     repositories.LiveMatchRepository
	live         LiveMatchService
	uploader     storage.FileUploader
	broadcaster  Broadcaster
	recorder     *metrics.Recorder
	logger       *slog.Logger
	baseInterval time.Duration
	now          func() time.Time

	mu    sync.Mutex
	tasks map[int]*playbackTask
}

// NewAutoPlayService wires the replay registry. uploader may be nil, in
// which case uploaded files are not archived.
func NewAutoPlayService(
	repo repositories.AutoPlayRepository,
	fixtureRepo repositories.FixtureRepository,
	liveRepo repositories.LiveMatchRepository,
	live LiveMatchService,
	uploader storage.FileUploader,
	broadcaster Broadcaster,
	recorder *metrics.Recorder,
	logger *slog.Logger,
	baseInterval time.Duration,
) AutoPlayService {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if baseInterval <= 0 {
		baseInterval = 3 * time.Second
	}
	return &autoPlayService{
		repo:         repo,
		fixtureRepo:  fixtureRepo,
		liveRepo:     liveRepo,
		live:         live,
		uploader:     uploader,
		broadcaster:  broadcaster,
		recorder:     recorder,
		logger:       logger,
		baseInterval: baseInterval,
		now:          time.Now,
		tasks:        make(map[int]*playbackTask),
	}
}

func (s *autoPlayService) Upload(ctx context.Context, matchID int, fileName string, data []byte) (*models.AutoPlay, error) {
	if _, err := s.fixtureRepo.GetByID(ctx, matchID); err != nil {
		return nil, handleRepositoryError(err)
	}
	if _, err := s.liveRepo.GetByMatchID(ctx, matchID); err != nil {
		if errors.Is(err, repositories.ErrLiveMatchNotFound) {
			return nil, ErrLiveMatchRequired
		}
		return nil, err
	}

	sc, err := cricsheet.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScorecard, err)
	}

	// A new file replaces the old one, so any replay of it must end first.
	s.stopTask(matchID)

	if fileName == "" {
		fileName = "uploaded.json"
	}
	a := &models.AutoPlay{
		MatchID:          matchID,
		Info:             sc.Info,
		Innings:          sc.Innings,
		Playback:         models.PlaybackState{CurrentInnings: 1, Speed: DefaultPlaybackSpeed},
		OriginalFileName: fileName,
		FileSize:         int64(len(data)),
		UploadedAt:       s.now(),
	}

	if s.uploader != nil {
		key := fmt.Sprintf("autoplay/match_%d/%s.json", matchID, uuid.NewString())
		res, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(data))
		if err != nil {
			s.logger.Warn("failed to archive scorecard", slog.Int("match_id", matchID), slog.Any("error", err))
		} else {
			a.FileKey = res.Key
			a.FileURL = res.Location
		}
	}

	previousKey := ""
	if prev, err := s.repo.GetByMatchID(ctx, matchID); err == nil {
		previousKey = prev.FileKey
	} else if !errors.Is(err, repositories.ErrAutoPlayNotFound) {
		return nil, err
	}

	if err := s.repo.Upsert(ctx, a); err != nil {
		return nil, handleRepositoryError(err)
	}

	if s.uploader != nil && previousKey != "" && previousKey != a.FileKey {
		if err := s.uploader.Delete(ctx, previousKey); err != nil {
			s.logger.Warn("failed to delete replaced scorecard",
				slog.Int("match_id", matchID), slog.String("key", previousKey), slog.Any("error", err))
		}
	}

	s.logger.Info("scorecard uploaded",
		slog.Int("match_id", matchID),
		slog.Int("innings", len(a.Innings)),
		slog.Int("balls", a.TotalBalls()),
		slog.Int("players", len(sc.Players)),
	)
	return a, nil
}

func (s *autoPlayService) Start(ctx context.Context, matchID int, speed float64) (*PlaybackStatus, error) {
	if speed == 0 {
		speed = DefaultPlaybackSpeed
	}
	if !validSpeed(speed) {
		return nil, ErrInvalidPlaybackSpeed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, running := s.tasks[matchID]; running {
		return nil, ErrAutoPlayAlreadyRunning
	}
	a, err := s.repo.GetByMatchID(ctx, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if a.Playback.CurrentInnings < 1 {
		a.Playback.CurrentInnings = 1
	}
	if a.Playback.CurrentInnings > replayedInnings(a) {
		return nil, fmt.Errorf("%w: replay already finished, stop it to restart", ErrMatchCompleted)
	}

	a.Playback.IsPlaying = true
	a.Playback.IsPaused = false
	a.Playback.Speed = speed
	if err := s.repo.UpdatePlayback(ctx, matchID, a.Playback); err != nil {
		return nil, handleRepositoryError(err)
	}

	s.startTaskLocked(matchID, speed)
	s.logger.Info("auto-play started", slog.Int("match_id", matchID), slog.Float64("speed", speed))
	return newPlaybackStatus(a), nil
}

func (s *autoPlayService) Pause(ctx context.Context, matchID int) (*PlaybackStatus, error) {
	s.stopTask(matchID)
	return s.updatePlayback(ctx, matchID, func(pb *models.PlaybackState) {
		pb.IsPlaying = false
		pb.IsPaused = true
	})
}

// ChangeSpeed stores the new speed and, when a replay is running, restarts
// its ticker at the new interval from the same ball.
func (s *autoPlayService) ChangeSpeed(ctx context.Context, matchID int, speed float64) (*PlaybackStatus, error) {
	if !validSpeed(speed) {
		return nil, ErrInvalidPlaybackSpeed
	}

	s.mu.Lock()
	task, running := s.tasks[matchID]
	if running {
		delete(s.tasks, matchID)
	}
	s.mu.Unlock()
	if running {
		task.cancel()
		<-task.done
	}

	st, err := s.updatePlayback(ctx, matchID, func(pb *models.PlaybackState) { pb.Speed = speed })
	if err != nil {
		return nil, err
	}
	if running {
		s.mu.Lock()
		if _, taken := s.tasks[matchID]; !taken {
			s.startTaskLocked(matchID, speed)
		}
		s.mu.Unlock()
	}
	return st, nil
}

// Stop ends a replay and rewinds it to the first ball.
func (s *autoPlayService) Stop(ctx context.Context, matchID int) (*PlaybackStatus, error) {
	s.stopTask(matchID)
	return s.updatePlayback(ctx, matchID, func(pb *models.PlaybackState) {
		pb.IsPlaying = false
		pb.IsPaused = false
		pb.CurrentInnings = 1
		pb.CurrentBallIndex = 0
	})
}

func (s *autoPlayService) Status(ctx context.Context, matchID int) (*PlaybackStatus, error) {
	a, err := s.repo.GetByMatchID(ctx, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return newPlaybackStatus(a), nil
}

func (s *autoPlayService) Shutdown() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = make(map[int]*playbackTask)
	s.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
	}
	for _, t := range tasks {
		<-t.done
	}
	s.recorder.SetActivePlaybacks(0)
}

func (s *autoPlayService) updatePlayback(ctx context.Context, matchID int, mutate func(*models.PlaybackState)) (*PlaybackStatus, error) {
	a, err := s.repo.GetByMatchID(ctx, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	mutate(&a.Playback)
	if err := s.repo.UpdatePlayback(ctx, matchID, a.Playback); err != nil {
		return nil, handleRepositoryError(err)
	}
	return newPlaybackStatus(a), nil
}

// startTaskLocked launches the replay goroutine. s.mu must be held.
func (s *autoPlayService) startTaskLocked(matchID int, speed float64) {
	ctx, cancel := context.WithCancel(context.Background())
	task := &playbackTask{cancel: cancel, done: make(chan struct{})}
	s.tasks[matchID] = task
	s.recorder.SetActivePlaybacks(len(s.tasks))

	interval := time.Duration(float64(s.baseInterval) / speed)
	go s.run(ctx, task, matchID, interval)
}

// stopTask cancels the replay of matchID, if any, and waits for it to exit.
func (s *autoPlayService) stopTask(matchID int) {
	s.mu.Lock()
	task, ok := s.tasks[matchID]
	if ok {
		delete(s.tasks, matchID)
		s.recorder.SetActivePlaybacks(len(s.tasks))
	}
	s.mu.Unlock()

	if ok {
		task.cancel()
		<-task.done
	}
}

func (s *autoPlayService) run(ctx context.Context, task *playbackTask, matchID int, interval time.Duration) {
	defer close(task.done)
	defer func() {
		s.mu.Lock()
		if s.tasks[matchID] == task {
			delete(s.tasks, matchID)
			s.recorder.SetActivePlaybacks(len(s.tasks))
		}
		s.mu.Unlock()
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// A step in flight is finished even if the task is cancelled meanwhile,
		// so the stored cursor always matches the recorded deliveries.
		finished, err := s.step(context.WithoutCancel(ctx), matchID)
		if err != nil {
			s.logger.Error("auto-play stopped on error", slog.Int("match_id", matchID), slog.Any("error", err))
			s.markStopped(matchID)
			return
		}
		if finished {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func replayedInnings(a *models.AutoPlay) int {
	return min(len(a.Innings), maxReplayedInnings)
}

// step plays one tick: the next ball, or the close of an innings whose data
// is exhausted. It reports whether the replay has finished.
func (s *autoPlayService) step(ctx context.Context, matchID int) (bool, error) {
	a, err := s.repo.GetByMatchID(ctx, matchID)
	if err != nil {
		return false, err
	}
	pb := a.Playback
	if !pb.IsPlaying {
		return true, nil
	}
	if pb.CurrentInnings < 1 {
		pb.CurrentInnings = 1
	}

	if pb.CurrentInnings > replayedInnings(a) {
		return true, s.finish(ctx, matchID, pb)
	}

	balls := a.Innings[pb.CurrentInnings-1].Balls
	if pb.CurrentBallIndex >= len(balls) {
		if _, err := s.live.CompleteInnings(ctx, matchID); err != nil && !errors.Is(err, ErrMatchCompleted) {
			return false, fmt.Errorf("complete innings %d: %w", pb.CurrentInnings, err)
		}
		pb.CurrentInnings++
		pb.CurrentBallIndex = 0
		if pb.CurrentInnings > replayedInnings(a) {
			return true, s.finish(ctx, matchID, pb)
		}
		return false, s.savePlayback(ctx, matchID, pb)
	}

	ball := balls[pb.CurrentBallIndex]
	res, err := s.live.RecordDelivery(ctx, matchID, DeliveryInput{
		Runs:            ball.Runs,
		Extras:          ball.Extras,
		ExtrasType:      ball.ExtrasType,
		IsWicket:        ball.IsWicket,
		WicketType:      ball.WicketType,
		DismissedPlayer: ball.PlayerOut,
		Batsman:         ball.Batter,
		Bowler:          ball.Bowler,
		Commentary:      ball.Commentary,
	})

	var verr *ValidationError
	switch {
	case err == nil:
		pb.CurrentBallIndex++
		if res.Innings.IsCompleted {
			pb.CurrentBallIndex = len(balls)
		}
	case errors.Is(err, ErrInningsCompleted):
		pb.CurrentBallIndex = len(balls)
	case errors.Is(err, ErrMatchCompleted):
		return true, s.finish(ctx, matchID, pb)
	case errors.As(err, &verr):
		s.logger.Warn("skipping unplayable ball",
			slog.Int("match_id", matchID),
			slog.Int("innings", pb.CurrentInnings),
			slog.Int("ball_index", pb.CurrentBallIndex),
			slog.Any("error", err),
		)
		pb.CurrentBallIndex++
	default:
		return false, err
	}

	at := s.now()
	pb.LastPlayedAt = &at
	return false, s.savePlayback(ctx, matchID, pb)
}

// finish closes whatever is left of the live match and announces the end.
func (s *autoPlayService) finish(ctx context.Context, matchID int, pb models.PlaybackState) error {
	for i := 0; i < maxReplayedInnings; i++ {
		m, err := s.live.CompleteInnings(ctx, matchID)
		if errors.Is(err, ErrMatchCompleted) {
			break
		}
		if err != nil {
			return fmt.Errorf("complete match: %w", err)
		}
		if m.Status == models.LiveStatusCompleted {
			break
		}
	}

	safeBroadcast(s.logger, s.broadcaster, MatchRoom(matchID), EventMatchComplete, map[string]interface{}{
		"match_id": matchID,
		"message":  "Auto-play completed",
	})

	pb.IsPlaying = false
	pb.IsPaused = false
	if err := s.savePlayback(ctx, matchID, pb); err != nil {
		return err
	}
	s.logger.Info("auto-play finished", slog.Int("match_id", matchID))
	return nil
}

func (s *autoPlayService) markStopped(matchID int) {
	ctx := context.Background()
	a, err := s.repo.GetByMatchID(ctx, matchID)
	if err != nil {
		return
	}
	a.Playback.IsPlaying = false
	_ = s.repo.UpdatePlayback(ctx, matchID, a.Playback)
}

func (s *autoPlayService) savePlayback(ctx context.Context, matchID int, pb models.PlaybackState) error {
	if err := s.repo.UpdatePlayback(ctx, matchID, pb); err != nil {
		return fmt.Errorf("save playback of match %d: %w", matchID, err)
	}
	return nil
}
