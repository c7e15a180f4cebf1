// Package store persists conversion run history via DuckDB: one row per run,
// plus the mappings it produced and the failures it recorded. Prior-stage
// artifacts survive a failed run for diagnostics.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/fairsailau/congabox2/internal/errlog"
	"github.com/fairsailau/congabox2/internal/model"
)

// Store manages run-history persistence.
type Store struct {
	DB      *sql.DB
	DataDir string
}

// New opens (or creates) the DuckDB database in the given data directory.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "congabox2.duckdb")
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}

	s := &Store{DB: db, DataDir: dataDir}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) migrate() error {
	seqs := []string{
		"CREATE SEQUENCE IF NOT EXISTS runs_seq",
		"CREATE SEQUENCE IF NOT EXISTS run_mappings_seq",
		"CREATE SEQUENCE IF NOT EXISTS run_errors_seq",
	}
	for _, seq := range seqs {
		if _, err := s.DB.Exec(seq); err != nil {
			return fmt.Errorf("creating sequence: %w", err)
		}
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY DEFAULT nextval('runs_seq'),
			started_at TEXT NOT NULL,
			finished_at TEXT,
			status TEXT NOT NULL,
			template_name TEXT,
			query_name TEXT,
			schema_name TEXT,
			model TEXT,
			csv_path TEXT,
			archive_path TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS run_mappings (
			id INTEGER PRIMARY KEY DEFAULT nextval('run_mappings_seq'),
			run_id INTEGER NOT NULL REFERENCES runs(id),
			conga_field TEXT NOT NULL,
			box_field TEXT NOT NULL,
			notes TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS run_errors (
			id INTEGER PRIMARY KEY DEFAULT nextval('run_errors_seq'),
			run_id INTEGER NOT NULL REFERENCES runs(id),
			type TEXT NOT NULL,
			message TEXT NOT NULL,
			context TEXT,
			logged_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration %q: %w", stmt[:40], err)
		}
	}

	return nil
}

// BeginRun records the start of a conversion and returns the new run's ID.
func (s *Store) BeginRun(templateName, queryName, schemaName, genModel string) (int64, error) {
	var id int64
	err := s.DB.QueryRow(
		`INSERT INTO runs (started_at, status, template_name, query_name, schema_name, model)
		 VALUES (?, 'running', ?, ?, ?, ?) RETURNING id`,
		time.Now().UTC().Format(time.RFC3339), templateName, queryName, schemaName, genModel,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// FinishRun marks a run complete or failed and records its output paths.
func (s *Store) FinishRun(runID int64, status, csvPath, archivePath string) error {
	_, err := s.DB.Exec(
		"UPDATE runs SET finished_at = ?, status = ?, csv_path = ?, archive_path = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339), status, csvPath, archivePath, runID,
	)
	return err
}

// WriteMappings saves a run's mapping records.
func (s *Store) WriteMappings(runID int64, records []model.MappingRecord) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM run_mappings WHERE run_id = ?", runID); err != nil {
		return err
	}

	stmt, err := tx.Prepare("INSERT INTO run_mappings (run_id, conga_field, box_field, notes) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(runID, rec.CongaField, rec.BoxField, rec.Notes); err != nil {
			return fmt.Errorf("inserting mapping %q: %w", rec.CongaField, err)
		}
	}

	return tx.Commit()
}

// ReadMappings loads a run's mapping records in insertion order.
func (s *Store) ReadMappings(runID int64) ([]model.MappingRecord, error) {
	rows, err := s.DB.Query(
		"SELECT conga_field, box_field, notes FROM run_mappings WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.MappingRecord
	for rows.Next() {
		var rec model.MappingRecord
		var notes sql.NullString
		if err := rows.Scan(&rec.CongaField, &rec.BoxField, &notes); err != nil {
			return nil, err
		}
		rec.Notes = notes.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecordError persists one failure entry against a run.
func (s *Store) RecordError(runID int64, entry errlog.Entry) error {
	ctx, _ := json.Marshal(entry.Context)
	_, err := s.DB.Exec(
		"INSERT INTO run_errors (run_id, type, message, context, logged_at) VALUES (?, ?, ?, ?, ?)",
		runID, entry.Type, entry.Message, string(ctx), entry.Timestamp.Format(time.RFC3339),
	)
	return err
}

// ReadErrors loads a run's failure entries in logged order.
func (s *Store) ReadErrors(runID int64) ([]errlog.Entry, error) {
	rows, err := s.DB.Query(
		"SELECT type, message, context, logged_at FROM run_errors WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []errlog.Entry
	for rows.Next() {
		var e errlog.Entry
		var ctx sql.NullString
		var loggedAt string
		if err := rows.Scan(&e.Type, &e.Message, &ctx, &loggedAt); err != nil {
			return nil, err
		}
		if ctx.Valid && ctx.String != "" && ctx.String != "null" {
			json.Unmarshal([]byte(ctx.String), &e.Context)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339, loggedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]model.ConversionRun, error) {
	rows, err := s.DB.Query(
		`SELECT id, started_at, finished_at, status, template_name, query_name, schema_name, model, csv_path, archive_path
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.ConversionRun
	for rows.Next() {
		var r model.ConversionRun
		var finished, tmpl, query, schema, genModel, csvPath, archivePath sql.NullString
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.Status, &tmpl, &query, &schema, &genModel, &csvPath, &archivePath); err != nil {
			return nil, err
		}
		r.FinishedAt = finished.String
		r.TemplateName = tmpl.String
		r.QueryName = query.String
		r.SchemaName = schema.String
		r.Model = genModel.String
		r.CSVPath = csvPath.String
		r.ArchivePath = archivePath.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunCount returns the total number of recorded runs.
func (s *Store) RunCount() int {
	var n int
	s.DB.QueryRow("SELECT COUNT(*) FROM runs").Scan(&n)
	return n
}

// MappingCount returns the number of mappings recorded for a run.
func (s *Store) MappingCount(runID int64) int {
	var n int
	s.DB.QueryRow("SELECT COUNT(*) FROM run_mappings WHERE run_id = ?", runID).Scan(&n)
	return n
}

// ErrorCount returns the number of failures recorded for a run.
func (s *Store) ErrorCount(runID int64) int {
	var n int
	s.DB.QueryRow("SELECT COUNT(*) FROM run_errors WHERE run_id = ?", runID).Scan(&n)
	return n
}
