package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/playperu/pacer/internal/pacer"
)

// DocStore implements Store using per-model tables with JSONB data columns.
// The schema comes from the migrations package.
type DocStore struct {
	db *sql.DB
}

func NewDocStore(db *sql.DB) *DocStore {
	return &DocStore{db: db}
}

// Check pings the database; it satisfies health.Checker.
func (s *DocStore) Check(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Generic helpers: same shape, just take table instead of collection.

func (s *DocStore) get(ctx context.Context, table, id string, dest any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT json(data) FROM %s WHERE id = ?`, table), id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// all decodes every document of a table, in the given order, through fn.
func (s *DocStore) all(ctx context.Context, table, orderBy string, fn func([]byte) error) error {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT json(data) FROM %s ORDER BY %s`, table, orderBy),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return err
		}
		if err := fn([]byte(data)); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *DocStore) ListPacers(ctx context.Context) ([]pacer.Pacer, error) {
	pacers := []pacer.Pacer{}
	err := s.all(ctx, "pacers", "created_at, id", func(data []byte) error {
		var p pacer.Pacer
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		pacers = append(pacers, p)
		return nil
	})
	return pacers, err
}

func (s *DocStore) GetPacer(ctx context.Context, id string) (pacer.Pacer, error) {
	var p pacer.Pacer
	err := s.get(ctx, "pacers", id, &p)
	return p, err
}

func (s *DocStore) PutPacer(ctx context.Context, p pacer.Pacer) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pacers (id, name, data) VALUES (?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, data = excluded.data`,
		p.ID, p.Name, string(data),
	)
	return err
}

func (s *DocStore) CountPacers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pacers`).Scan(&n)
	return n, err
}

// SaveRun stores the run and its GPS trace in one transaction.
func (s *DocStore) SaveRun(ctx context.Context, r ArchivedRun, points []pacer.GPSPoint) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if points == nil {
		points = []pacer.GPSPoint{}
	}
	trace, err := json.Marshal(points)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, runner_id, started_at, data) VALUES (?, ?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET runner_id = excluded.runner_id, started_at = excluded.started_at, data = excluded.data`,
		r.Session.ID, r.Session.RunnerID, formatTime(r.Session.StartTime), string(data),
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO run_points (run_id, data) VALUES (?, jsonb(?))`,
		r.Session.ID, string(trace),
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *DocStore) GetRun(ctx context.Context, id string) (ArchivedRun, error) {
	var r ArchivedRun
	err := s.get(ctx, "runs", id, &r)
	return r, err
}

// ListRuns returns archived runs, newest first.
func (s *DocStore) ListRuns(ctx context.Context) ([]ArchivedRun, error) {
	runs := []ArchivedRun{}
	err := s.all(ctx, "runs", "started_at DESC, id", func(data []byte) error {
		var r ArchivedRun
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		runs = append(runs, r)
		return nil
	})
	return runs, err
}

func (s *DocStore) RunPoints(ctx context.Context, id string) ([]pacer.GPSPoint, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM run_points WHERE run_id = ?`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var points []pacer.GPSPoint
	if err := json.Unmarshal([]byte(data), &points); err != nil {
		return nil, err
	}
	return points, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
