package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/uniplay/models"
)

var (
	ErrEventNotFound            = errors.New("event not found")
	ErrScheduleAlreadyGenerated = errors.New("schedule already generated for this event")
)

type EventRepository interface {
	GetByID(ctx context.Context, id int) (*models.Event, error)
	GetByIDForUpdate(ctx context.Context, id int) (*models.Event, error)
	// MarkScheduleGenerated flips schedule_generated from false to true.
	// It fails with ErrScheduleAlreadyGenerated when the flag is already set.
	MarkScheduleGenerated(ctx context.Context, id int) error
	UpdateLeaderboard(ctx context.Context, id int, leaderboard []models.LeaderboardEntry) error
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) GetByID(ctx context.Context, id int) (*models.Event, error) {
	return r.get(ctx, id, false)
}

func (r *postgresEventRepository) GetByIDForUpdate(ctx context.Context, id int) (*models.Event, error) {
	return r.get(ctx, id, inTransaction(ctx))
}

func (r *postgresEventRepository) get(ctx context.Context, id int, lock bool) (*models.Event, error) {
	query := `
		SELECT id, name, schedule_generated, leaderboard, created_at, updated_at
		FROM events
		WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var (
		e           models.Event
		leaderboard []byte
	)
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Name, &e.ScheduleGenerated, &leaderboard, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	e.Leaderboard = []models.LeaderboardEntry{}
	if len(leaderboard) > 0 {
		if err := json.Unmarshal(leaderboard, &e.Leaderboard); err != nil {
			return nil, fmt.Errorf("failed to decode leaderboard of event %d: %w", id, err)
		}
	}
	return &e, nil
}

func (r *postgresEventRepository) MarkScheduleGenerated(ctx context.Context, id int) error {
	executor := getExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx,
		`UPDATE events SET schedule_generated = TRUE, updated_at = NOW() WHERE id = $1 AND schedule_generated = FALSE`,
		id,
	)
	if err != nil {
		return err
	}
	if err := checkAffectedRows(result, ErrScheduleAlreadyGenerated); err == nil {
		return nil
	} else if !errors.Is(err, ErrScheduleAlreadyGenerated) {
		return err
	}

	var exists bool
	if err := executor.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrEventNotFound
	}
	return ErrScheduleAlreadyGenerated
}

func (r *postgresEventRepository) UpdateLeaderboard(ctx context.Context, id int, leaderboard []models.LeaderboardEntry) error {
	if leaderboard == nil {
		leaderboard = []models.LeaderboardEntry{}
	}
	payload, err := json.Marshal(leaderboard)
	if err != nil {
		return fmt.Errorf("failed to encode leaderboard of event %d: %w", id, err)
	}
	result, err := getExecutor(ctx, r.db).ExecContext(ctx,
		`UPDATE events SET leaderboard = $1, updated_at = NOW() WHERE id = $2`,
		payload, id,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}
