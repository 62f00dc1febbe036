package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Dosada05/uniplay/models"
)

var (
	ErrAutoPlayNotFound       = errors.New("auto-play data not found")
	ErrAutoPlayFixtureInvalid = errors.New("auto-play data references a missing fixture")
)

type AutoPlayRepository interface {
	// Upsert stores the scorecard of a fixture, replacing any previous upload.
	Upsert(ctx context.Context, a *models.AutoPlay) error
	GetByMatchID(ctx context.Context, matchID int) (*models.AutoPlay, error)
	UpdatePlayback(ctx context.Context, matchID int, state models.PlaybackState) error
}

type postgresAutoPlayRepository struct {
	db *sql.DB
}

func NewPostgresAutoPlayRepository(db *sql.DB) AutoPlayRepository {
	return &postgresAutoPlayRepository{db: db}
}

func (r *postgresAutoPlayRepository) Upsert(ctx context.Context, a *models.AutoPlay) error {
	info, err := json.Marshal(a.Info)
	if err != nil {
		return fmt.Errorf("failed to encode match info: %w", err)
	}
	innings, err := json.Marshal(a.Innings)
	if err != nil {
		return fmt.Errorf("failed to encode innings: %w", err)
	}
	playback, err := json.Marshal(a.Playback)
	if err != nil {
		return fmt.Errorf("failed to encode playback state: %w", err)
	}

	query := `
		INSERT INTO autoplays (match_id, info, innings, playback, original_file_name, file_size, file_key, file_url, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (match_id) DO UPDATE SET
			info = EXCLUDED.info,
			innings = EXCLUDED.innings,
			playback = EXCLUDED.playback,
			original_file_name = EXCLUDED.original_file_name,
			file_size = EXCLUDED.file_size,
			file_key = EXCLUDED.file_key,
			file_url = EXCLUDED.file_url,
			uploaded_at = EXCLUDED.uploaded_at
		RETURNING id`
	err = getExecutor(ctx, r.db).QueryRowContext(ctx, query,
		a.MatchID, info, innings, playback, a.OriginalFileName, a.FileSize, a.FileKey, a.FileURL, a.UploadedAt,
	).Scan(&a.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return ErrAutoPlayFixtureInvalid
		}
		return err
	}
	return nil
}

func (r *postgresAutoPlayRepository) GetByMatchID(ctx context.Context, matchID int) (*models.AutoPlay, error) {
	query := `
		SELECT id, match_id, info, innings, playback, original_file_name, file_size, file_key, file_url, uploaded_at
		FROM autoplays
		WHERE match_id = $1`

	var (
		a                       models.AutoPlay
		info, innings, playback []byte
	)
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, matchID).Scan(
		&a.ID, &a.MatchID, &info, &innings, &playback, &a.OriginalFileName, &a.FileSize, &a.FileKey, &a.FileURL, &a.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAutoPlayNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(info, &a.Info); err != nil {
		return nil, fmt.Errorf("failed to decode match info for match %d: %w", matchID, err)
	}
	if err := json.Unmarshal(innings, &a.Innings); err != nil {
		return nil, fmt.Errorf("failed to decode innings for match %d: %w", matchID, err)
	}
	if err := json.Unmarshal(playback, &a.Playback); err != nil {
		return nil, fmt.Errorf("failed to decode playback state for match %d: %w", matchID, err)
	}
	return &a, nil
}

func (r *postgresAutoPlayRepository) UpdatePlayback(ctx context.Context, matchID int, state models.PlaybackState) error {
	playback, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode playback state: %w", err)
	}
	result, err := getExecutor(ctx, r.db).ExecContext(ctx,
		`UPDATE autoplays SET playback = $1 WHERE match_id = $2`, playback, matchID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrAutoPlayNotFound)
}
