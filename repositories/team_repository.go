package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/Dosada05/uniplay/models"
)

type TeamRepository interface {
	// ListByEvent returns the teams registered for an event in registration order.
	ListByEvent(ctx context.Context, eventID int) ([]*models.TeamRegistration, error)
	GetByIDs(ctx context.Context, ids []int) (map[int]*models.TeamRegistration, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) ListByEvent(ctx context.Context, eventID int) ([]*models.TeamRegistration, error) {
	query := `
		SELECT id, event_id, team_name, captain_name, created_at
		FROM team_registrations
		WHERE event_id = $1
		ORDER BY created_at ASC, id ASC`
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.TeamRegistration, 0)
	for rows.Next() {
		t, errScan := scanTeam(rows)
		if errScan != nil {
			return nil, errScan
		}
		teams = append(teams, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresTeamRepository) GetByIDs(ctx context.Context, ids []int) (map[int]*models.TeamRegistration, error) {
	teams := make(map[int]*models.TeamRegistration, len(ids))
	if len(ids) == 0 {
		return teams, nil
	}

	ids64 := make([]int64, len(ids))
	for i, id := range ids {
		ids64[i] = int64(id)
	}
	query := `
		SELECT id, event_id, team_name, captain_name, created_at
		FROM team_registrations
		WHERE id = ANY($1)`
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, pq.Array(ids64))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		t, errScan := scanTeam(rows)
		if errScan != nil {
			return nil, errScan
		}
		teams[t.ID] = t
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func scanTeam(row rowScanner) (*models.TeamRegistration, error) {
	var (
		t       models.TeamRegistration
		captain sql.NullString
	)
	if err := row.Scan(&t.ID, &t.EventID, &t.TeamName, &captain, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.CaptainName = captain.String
	return &t, nil
}
