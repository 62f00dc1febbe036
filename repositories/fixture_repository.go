package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/Dosada05/uniplay/models"
)

var (
	ErrFixtureNotFound     = errors.New("fixture not found")
	ErrFixtureEventInvalid = errors.New("fixture references a missing event")
	ErrFixtureTeamInvalid  = errors.New("fixture references a missing team")
)

// FixtureFilter narrows ListByEvent. Zero values mean no restriction.
type FixtureFilter struct {
	Statuses []models.MatchStatus
	From     *time.Time
	To       *time.Time
}

type FixtureRepository interface {
	GetByID(ctx context.Context, id int) (*models.Fixture, error)
	GetByIDForUpdate(ctx context.Context, id int) (*models.Fixture, error)
	BatchCreate(ctx context.Context, fixtures []*models.Fixture) error
	UpdateStatus(ctx context.Context, id int, status models.MatchStatus) error
	UpdateResult(ctx context.Context, f *models.Fixture) error
	UpdateLiveSummary(ctx context.Context, id int, summary models.MatchSummary) error
	ListByEvent(ctx context.Context, eventID int, filter FixtureFilter) ([]*models.Fixture, error)
}

type postgresFixtureRepository struct {
	db *sql.DB
}

func NewPostgresFixtureRepository(db *sql.DB) FixtureRepository {
	return &postgresFixtureRepository{db: db}
}

const fixtureColumns = `
	id, event_id, team_a, team_b, stage, round, scheduled_time, venue, status,
	score_a, score_b, winner, live_overs, live_wickets, current_batting, leaderboard_applied,
	created_at, updated_at`

func (r *postgresFixtureRepository) scanFixture(row rowScanner) (*models.Fixture, error) {
	var (
		f                            models.Fixture
		teamA, teamB, winner, batter sql.NullInt64
	)
	err := row.Scan(
		&f.ID, &f.EventID, &teamA, &teamB, &f.Stage, &f.Round, &f.ScheduledTime, &f.Venue, &f.Status,
		&f.ScoreA, &f.ScoreB, &winner, &f.LiveOvers, &f.LiveWickets, &batter, &f.LeaderboardApplied,
		&f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFixtureNotFound
		}
		return nil, err
	}
	f.TeamA = nullIntPtr(teamA)
	f.TeamB = nullIntPtr(teamB)
	f.Winner = nullIntPtr(winner)
	f.CurrentBatting = nullIntPtr(batter)
	return &f, nil
}

func (r *postgresFixtureRepository) GetByID(ctx context.Context, id int) (*models.Fixture, error) {
	query := `SELECT ` + fixtureColumns + ` FROM fixtures WHERE id = $1`
	return r.scanFixture(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *postgresFixtureRepository) GetByIDForUpdate(ctx context.Context, id int) (*models.Fixture, error) {
	query := `SELECT ` + fixtureColumns + ` FROM fixtures WHERE id = $1`
	if inTransaction(ctx) {
		query += ` FOR UPDATE`
	}
	return r.scanFixture(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
}

// BatchCreate inserts all fixtures with one prepared statement. It must run
// inside a transaction so a failure leaves no partial schedule behind.
func (r *postgresFixtureRepository) BatchCreate(ctx context.Context, fixtures []*models.Fixture) error {
	if len(fixtures) == 0 {
		return nil
	}
	tx, ok := ctx.Value(txContextKey{}).(*sql.Tx)
	if !ok {
		return errors.New("BatchCreate requires a transaction")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fixtures (event_id, team_a, team_b, stage, round, scheduled_time, venue, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`)
	if err != nil {
		return fmt.Errorf("BatchCreate failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, f := range fixtures {
		err = stmt.QueryRowContext(ctx,
			f.EventID, f.TeamA, f.TeamB, f.Stage, f.Round, f.ScheduledTime, f.Venue, f.Status,
		).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
		if err != nil {
			return fmt.Errorf("BatchCreate failed for fixture %d of event %d: %w", i, f.EventID, handleFixtureError(err))
		}
	}
	return nil
}

func (r *postgresFixtureRepository) UpdateStatus(ctx context.Context, id int, status models.MatchStatus) error {
	query := `UPDATE fixtures SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrFixtureNotFound)
}

func (r *postgresFixtureRepository) UpdateResult(ctx context.Context, f *models.Fixture) error {
	query := `
		UPDATE fixtures
		SET status = $1, score_a = $2, score_b = $3, winner = $4, leaderboard_applied = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query,
		f.Status, f.ScoreA, f.ScoreB, f.Winner, f.LeaderboardApplied, f.ID,
	).Scan(&f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrFixtureNotFound
		}
		return handleFixtureError(err)
	}
	return nil
}

func (r *postgresFixtureRepository) UpdateLiveSummary(ctx context.Context, id int, summary models.MatchSummary) error {
	query := `
		UPDATE fixtures
		SET score_a = $1, score_b = $2, live_overs = $3, live_wickets = $4, current_batting = $5, updated_at = NOW()
		WHERE id = $6`
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		summary.ScoreA, summary.ScoreB, summary.Overs, summary.Wickets, summary.CurrentBatting, id,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrFixtureNotFound)
}

func (r *postgresFixtureRepository) ListByEvent(ctx context.Context, eventID int, filter FixtureFilter) ([]*models.Fixture, error) {
	var qb strings.Builder
	qb.WriteString(`SELECT ` + fixtureColumns + ` FROM fixtures WHERE event_id = $1`)
	args := []interface{}{eventID}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		fmt.Fprintf(&qb, " AND status = ANY($%d)", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		fmt.Fprintf(&qb, " AND scheduled_time >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		fmt.Fprintf(&qb, " AND scheduled_time <= $%d", len(args))
	}
	qb.WriteString(" ORDER BY scheduled_time ASC, id ASC")

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fixtures := make([]*models.Fixture, 0)
	for rows.Next() {
		f, errScan := r.scanFixture(rows)
		if errScan != nil {
			return nil, errScan
		}
		fixtures = append(fixtures, f)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return fixtures, nil
}

func handleFixtureError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		switch pqErr.Constraint {
		case "fixtures_event_id_fkey":
			return ErrFixtureEventInvalid
		case "fixtures_team_a_fkey", "fixtures_team_b_fkey", "fixtures_winner_fkey":
			return ErrFixtureTeamInvalid
		}
	}
	return err
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
