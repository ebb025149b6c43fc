package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ppiankov/hazardscore/internal/model"
)

const timeLayout = time.RFC3339Nano

// SQLiteRepository stores reports in a SQLite database
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository opens (or creates) the database at dsn and migrates the schema
func NewSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// SQLite serialises writers; one connection avoids "database is locked"
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	r := &SQLiteRepository{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS reports (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id     TEXT    NOT NULL,
			text        TEXT    NOT NULL DEFAULT '',
			hazard_type TEXT    NOT NULL,
			lat         REAL,
			lon         REAL,
			score       REAL    NOT NULL DEFAULT 0,
			phase       TEXT    NOT NULL DEFAULT 'provisional',
			timestamp   TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_reports_user_id     ON reports(user_id);
		CREATE INDEX IF NOT EXISTS idx_reports_hazard_type ON reports(hazard_type);
	`)
	return err
}

// Create inserts a provisional report and fills in ID and Timestamp
func (r *SQLiteRepository) Create(ctx context.Context, rep *model.Report) error {
	if rep.Timestamp.IsZero() {
		rep.Timestamp = r.now().UTC()
	}
	if rep.Phase == "" {
		rep.Phase = model.PhaseProvisional
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO reports (user_id, text, hazard_type, lat, lon, score, phase, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.UserID, rep.Text, rep.HazardType, rep.Lat, rep.Lon, rep.Score, string(rep.Phase),
		rep.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read report id: %w", err)
	}
	rep.ID = id
	return nil
}

const selectColumns = `SELECT id, user_id, text, hazard_type, lat, lon, score, phase, timestamp FROM reports`

// Get returns a single report
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*model.Report, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rep, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get report %d: %w", id, err)
	}
	return rep, nil
}

// ByHazardType returns every report with the given category
func (r *SQLiteRepository) ByHazardType(ctx context.Context, hazardType string) ([]model.Report, error) {
	return r.query(ctx, selectColumns+` WHERE hazard_type = ? ORDER BY id`, hazardType)
}

// CountByUser returns the total number of reports by userID
func (r *SQLiteRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reports for %s: %w", userID, err)
	}
	return n, nil
}

// Finalize writes the aggregated score
func (r *SQLiteRepository) Finalize(ctx context.Context, id int64, score float64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reports SET score = ?, phase = ? WHERE id = ?`,
		score, string(model.PhaseFinal), id)
	if err != nil {
		return fmt.Errorf("finalize report %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize report %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Dashboard returns surfaced reports ordered by ID
func (r *SQLiteRepository) Dashboard(ctx context.Context, threshold float64) ([]model.Report, error) {
	return r.query(ctx, selectColumns+` WHERE score >= ? AND hazard_type != ? ORDER BY id`,
		threshold, model.HazardIgnore)
}

// Close closes the database
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]model.Report, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*model.Report, error) {
	var (
		rep      model.Report
		lat, lon sql.NullFloat64
		phase    string
		ts       string
	)
	if err := s.Scan(&rep.ID, &rep.UserID, &rep.Text, &rep.HazardType, &lat, &lon, &rep.Score, &phase, &ts); err != nil {
		return nil, err
	}

	// SQLite stores NaN as NULL
	rep.Lat = nullToNaN(lat)
	rep.Lon = nullToNaN(lon)

	created, err := time.Parse(timeLayout, ts)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	rep.Timestamp = created
	rep.Phase = model.Phase(phase)
	return &rep, nil
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
