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
	ErrLiveMatchNotFound       = errors.New("live match not found")
	ErrLiveMatchExists         = errors.New("live match already exists for this fixture")
	ErrLiveMatchFixtureInvalid = errors.New("live match references a missing fixture")
	ErrLiveMatchStale          = errors.New("live match was modified concurrently")
)

type LiveMatchRepository interface {
	Create(ctx context.Context, m *models.LiveMatch) error
	GetByMatchID(ctx context.Context, matchID int) (*models.LiveMatch, error)
	// GetByMatchIDForUpdate locks the row until the surrounding transaction ends.
	GetByMatchIDForUpdate(ctx context.Context, matchID int) (*models.LiveMatch, error)
	// Update stores m if its Version is still current and bumps the Version.
	Update(ctx context.Context, m *models.LiveMatch) error
}

type postgresLiveMatchRepository struct {
	db *sql.DB
}

func NewPostgresLiveMatchRepository(db *sql.DB) LiveMatchRepository {
	return &postgresLiveMatchRepository{db: db}
}

func (r *postgresLiveMatchRepository) Create(ctx context.Context, m *models.LiveMatch) error {
	state, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode live match %d: %w", m.MatchID, err)
	}

	query := `
		INSERT INTO live_matches (match_id, status, state, version, last_updated, created_at)
		VALUES ($1, $2, $3, 1, $4, $5)
		RETURNING id, version`
	err = getExecutor(ctx, r.db).QueryRowContext(ctx, query,
		m.MatchID, m.Status, state, m.LastUpdated, m.CreatedAt,
	).Scan(&m.ID, &m.Version)
	if err != nil {
		return handleLiveMatchError(err)
	}
	return nil
}

func (r *postgresLiveMatchRepository) GetByMatchID(ctx context.Context, matchID int) (*models.LiveMatch, error) {
	return r.get(ctx, matchID, false)
}

func (r *postgresLiveMatchRepository) GetByMatchIDForUpdate(ctx context.Context, matchID int) (*models.LiveMatch, error) {
	return r.get(ctx, matchID, inTransaction(ctx))
}

func (r *postgresLiveMatchRepository) get(ctx context.Context, matchID int, lock bool) (*models.LiveMatch, error) {
	query := `SELECT id, state, version FROM live_matches WHERE match_id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var (
		id      int
		state   []byte
		version int
	)
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, matchID).Scan(&id, &state, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLiveMatchNotFound
		}
		return nil, err
	}

	var m models.LiveMatch
	if err := json.Unmarshal(state, &m); err != nil {
		return nil, fmt.Errorf("failed to decode live match %d: %w", matchID, err)
	}
	m.ID = id
	m.Version = version
	return &m, nil
}

func (r *postgresLiveMatchRepository) Update(ctx context.Context, m *models.LiveMatch) error {
	state, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode live match %d: %w", m.MatchID, err)
	}

	query := `
		UPDATE live_matches
		SET status = $1, state = $2, last_updated = $3, version = version + 1
		WHERE match_id = $4 AND version = $5
		RETURNING version`
	err = getExecutor(ctx, r.db).QueryRowContext(ctx, query,
		m.Status, state, m.LastUpdated, m.MatchID, m.Version,
	).Scan(&m.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrLiveMatchStale
		}
		return err
	}
	return nil
}

func handleLiveMatchError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23505" && pqErr.Constraint == "live_matches_match_id_key":
			return ErrLiveMatchExists
		case pqErr.Code == "23503" && pqErr.Constraint == "live_matches_match_id_fkey":
			return ErrLiveMatchFixtureInvalid
		}
	}
	return err
}
