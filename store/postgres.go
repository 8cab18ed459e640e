// Package store persists dispatched alerts in Postgres for the history API.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"heimdall/model"
)

type DB struct {
	Pool *pgxpool.Pool
}

func Connect(databaseURL string) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}
	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

func Migrate(db *DB) error {
	ctx := context.Background()
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS alerts (
			id             TEXT PRIMARY KEY,
			rule_ref       TEXT NOT NULL,
			server         TEXT NOT NULL DEFAULT '',
			execution_id   TEXT NOT NULL DEFAULT '',
			enforcement_id TEXT NOT NULL DEFAULT '',
			comments       TEXT NOT NULL DEFAULT '',
			state          TEXT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_alerts_rule ON alerts(rule_ref, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at DESC);
	`)
	return err
}

func (db *DB) InsertAlert(ctx context.Context, rec *model.AlertRecord) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO alerts (id, rule_ref, server, execution_id, enforcement_id, comments, state, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.RuleRef, rec.Server, rec.ExecutionID, rec.EnforcementID, rec.Comments, rec.State, rec.CreatedAt,
	)
	return err
}

// ListAlerts returns recent alerts, newest first, optionally filtered by
// rule ref.
func (db *DB) ListAlerts(ctx context.Context, ruleRef string, limit int) ([]model.AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, rule_ref, server, execution_id, enforcement_id, comments, state, created_at
		 FROM alerts`
	args := []any{}
	if ruleRef != "" {
		query += " WHERE rule_ref = $1 ORDER BY created_at DESC LIMIT $2"
		args = append(args, ruleRef, limit)
	} else {
		query += " ORDER BY created_at DESC LIMIT $1"
		args = append(args, limit)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []model.AlertRecord
	for rows.Next() {
		var a model.AlertRecord
		if err := rows.Scan(&a.ID, &a.RuleRef, &a.Server, &a.ExecutionID, &a.EnforcementID, &a.Comments, &a.State, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// PruneAlerts deletes alerts older than the retention period and returns how
// many rows went away.
func (db *DB) PruneAlerts(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM alerts WHERE created_at < $1`,
		time.Now().Add(-retention),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Healthy checks the database connection.
func (db *DB) Healthy(ctx context.Context) error {
	var n int
	return db.Pool.QueryRow(ctx, "SELECT 1").Scan(&n)
}
