package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mergington/activity-signup/internal/model"
)

// Schema creates the tables used by PostgresStore. Roster order is the
// insertion order recorded in position.
const Schema = `
CREATE TABLE IF NOT EXISTS activities (
	name             TEXT PRIMARY KEY,
	description      TEXT NOT NULL,
	schedule         TEXT NOT NULL,
	max_participants INTEGER NOT NULL CHECK (max_participants >= 0)
);

CREATE TABLE IF NOT EXISTS participants (
	id            UUID PRIMARY KEY,
	activity_name TEXT NOT NULL REFERENCES activities (name) ON DELETE CASCADE,
	email         TEXT NOT NULL,
	position      BIGSERIAL,
	created_at    TIMESTAMPTZ NOT NULL,
	UNIQUE (activity_name, email)
);

CREATE INDEX IF NOT EXISTS participants_roster_idx ON participants (activity_name, position);
`

// PostgresStore keeps the directory in PostgreSQL so several replicas can
// share one set of rosters.
type PostgresStore struct {
	db   *pgxpool.Pool
	opts Options
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *pgxpool.Pool, opts Options) *PostgresStore {
	return &PostgresStore{db: db, opts: opts}
}

// Migrate creates the schema if it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Load replaces the whole directory with the seed catalog in one transaction.
func (s *PostgresStore) Load(ctx context.Context, seed map[string]model.Activity) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM participants`); err != nil {
		return fmt.Errorf("clear participants: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM activities`); err != nil {
		return fmt.Errorf("clear activities: %w", err)
	}

	now := time.Now().UTC()
	for _, name := range sortedNames(seed) {
		a := seed[name]
		_, err := tx.Exec(ctx,
			`INSERT INTO activities (name, description, schedule, max_participants)
			 VALUES ($1, $2, $3, $4)`,
			name, a.Description, a.Schedule, a.MaxParticipants,
		)
		if err != nil {
			return fmt.Errorf("insert activity %q: %w", name, err)
		}
		for _, email := range a.Participants {
			if err := insertParticipant(ctx, tx, name, email, now); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Seeded reports whether the catalog has been loaded before.
func (s *PostgresStore) Seeded(ctx context.Context) (bool, error) {
	var seeded bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM activities)`).Scan(&seeded); err != nil {
		return false, fmt.Errorf("check seeded: %w", err)
	}
	return seeded, nil
}

// List returns every activity with its roster in signup order.
func (s *PostgresStore) List(ctx context.Context) (map[string]model.Activity, error) {
	rows, err := s.db.Query(ctx,
		`SELECT name, description, schedule, max_participants FROM activities`,
	)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.Activity)
	for rows.Next() {
		var name string
		a := model.Activity{Participants: []string{}}
		if err := rows.Scan(&name, &a.Description, &a.Schedule, &a.MaxParticipants); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out[name] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	prows, err := s.db.Query(ctx,
		`SELECT activity_name, email FROM participants ORDER BY activity_name, position`,
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer prows.Close()

	for prows.Next() {
		var name, email string
		if err := prows.Scan(&name, &email); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		a, ok := out[name]
		if !ok {
			continue
		}
		a.Participants = append(a.Participants, email)
		out[name] = a
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return out, nil
}

// Enroll adds email to the roster inside a transaction holding the
// activity row lock.
//
// SELECT … FOR UPDATE serialises concurrent signups for the same activity:
// without it two requests could both pass the duplicate (or capacity) check
// before either inserts. The UNIQUE constraint backs up the duplicate check.
func (s *PostgresStore) Enroll(ctx context.Context, activity, email string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	maxParticipants, err := lockActivity(ctx, tx, activity)
	if err != nil {
		return err
	}

	var total, dup int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE email = $2)
		 FROM participants WHERE activity_name = $1`,
		activity, email,
	).Scan(&total, &dup)
	if err != nil {
		return fmt.Errorf("check roster: %w", err)
	}
	if dup > 0 {
		return ErrAlreadyRegistered
	}
	if s.opts.EnforceCapacity && total >= maxParticipants {
		return ErrActivityFull
	}

	if err := insertParticipant(ctx, tx, activity, email, time.Now().UTC()); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Withdraw removes email from the roster. Positions of the remaining rows
// are untouched, so their relative order is kept.
func (s *PostgresStore) Withdraw(ctx context.Context, activity, email string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := lockActivity(ctx, tx, activity); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM participants WHERE activity_name = $1 AND email = $2`,
		activity, email,
	)
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotRegistered
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func lockActivity(ctx context.Context, tx pgx.Tx, activity string) (int, error) {
	var maxParticipants int
	err := tx.QueryRow(ctx,
		`SELECT max_participants FROM activities WHERE name = $1 FOR UPDATE`,
		activity,
	).Scan(&maxParticipants)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("lock activity row: %w", err)
	}
	return maxParticipants, nil
}

func insertParticipant(ctx context.Context, tx pgx.Tx, activity, email string, at time.Time) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO participants (id, activity_name, email, created_at)
		 VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), activity, email, at,
	)
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}
