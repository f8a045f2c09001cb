package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"PivotMirror/internal/model"
	"PivotMirror/internal/publisher"
)

// SQLiteRecorder persists runs and published series to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode lets dashboards read while a batch writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			batch_id    TEXT,
			ticker      TEXT NOT NULL,
			sheet       TEXT,
			symbol      TEXT,
			cache_path  TEXT,
			fetched     INTEGER,
			status      TEXT NOT NULL,
			error       TEXT,
			pivot_date  TEXT,
			pivot_price REAL,
			horizon     INTEGER,
			rows        INTEGER,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ticker ON runs(ticker)`,

		`CREATE TABLE IF NOT EXISTS historical_points (
			run_id TEXT NOT NULL,
			sheet  TEXT NOT NULL,
			seq    INTEGER NOT NULL,
			date   TEXT NOT NULL,
			open   REAL,
			high   REAL,
			low    REAL,
			close  REAL,
			volume INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_hist_run ON historical_points(run_id)`,

		`CREATE TABLE IF NOT EXISTS projected_points (
			run_id    TEXT NOT NULL,
			sheet     TEXT NOT NULL,
			seq       INTEGER NOT NULL,
			date      TEXT NOT NULL,
			projected REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_proj_run ON projected_points(run_id)`,

		`CREATE TABLE IF NOT EXISTS combined_points (
			run_id     TEXT NOT NULL,
			sheet      TEXT NOT NULL,
			date       TEXT NOT NULL,
			hist_close REAL,
			projected  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_combined_run ON combined_points(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) Name() string { return "sqlite" }

// Publish stores the three series of a report in one transaction.
func (r *SQLiteRecorder) Publish(ctx context.Context, rep *publisher.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for i, p := range rep.Series {
		if _, err := tx.ExecContext(ctx, `INSERT INTO historical_points
			(run_id, sheet, seq, date, open, high, low, close, volume)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			rep.RunID, rep.Sheet, i+1, p.Date.Format(model.DateFormat),
			publisher.Cell(p.Open), publisher.Cell(p.High), publisher.Cell(p.Low), publisher.Cell(p.Close), p.Volume,
		); err != nil {
			return fmt.Errorf("insert historical: %w", err)
		}
	}
	for i, p := range rep.Result.Projection {
		if _, err := tx.ExecContext(ctx, `INSERT INTO projected_points
			(run_id, sheet, seq, date, projected) VALUES (?,?,?,?,?)`,
			rep.RunID, rep.Sheet, i+1, p.Date.Format(model.DateFormat), publisher.Cell(p.Price),
		); err != nil {
			return fmt.Errorf("insert projected: %w", err)
		}
	}
	for _, c := range rep.Result.Combined {
		if _, err := tx.ExecContext(ctx, `INSERT INTO combined_points
			(run_id, sheet, date, hist_close, projected) VALUES (?,?,?,?,?)`,
			rep.RunID, rep.Sheet, c.Date.Format(model.DateFormat), nullable(c.HistClose), nullable(c.Projected),
		); err != nil {
			return fmt.Errorf("insert combined: %w", err)
		}
	}
	return tx.Commit()
}

// RecordRun stores the outcome of one instrument run.
func (r *SQLiteRecorder) RecordRun(rec *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pivotDate any
	if !rec.PivotDate.IsZero() {
		pivotDate = rec.PivotDate.Format(model.DateFormat)
	}
	_, err := r.db.Exec(`INSERT INTO runs
		(run_id, batch_id, ticker, sheet, symbol, cache_path, fetched, status, error,
		 pivot_date, pivot_price, horizon, rows, started_at, finished_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.RunID, rec.BatchID, rec.Ticker, rec.Sheet, rec.Symbol, rec.CachePath, rec.Fetched,
		rec.Status, rec.Error, pivotDate, publisher.Cell(rec.PivotPrice), rec.Horizon, rec.Rows,
		rec.StartedAt.Unix(), rec.FinishedAt.Unix(),
	)
	return err
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_id, batch_id, ticker, sheet, symbol, cache_path, fetched,
		status, error, pivot_date, pivot_price, horizon, rows, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec                RunRecord
			batchID, symbol    sql.NullString
			sheet, cachePath   sql.NullString
			errText, pivotDate sql.NullString
			pivotPrice         sql.NullFloat64
			started, finished  int64
		)
		if err := rows.Scan(&rec.RunID, &batchID, &rec.Ticker, &sheet, &symbol, &cachePath, &rec.Fetched,
			&rec.Status, &errText, &pivotDate, &pivotPrice, &rec.Horizon, &rec.Rows, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.BatchID, rec.Sheet, rec.Symbol = batchID.String, sheet.String, symbol.String
		rec.CachePath, rec.Error = cachePath.String, errText.String
		rec.PivotPrice = pivotPrice.Float64
		if pivotDate.Valid {
			if d, err := time.Parse(model.DateFormat, pivotDate.String); err == nil {
				rec.PivotDate = d
			}
		}
		rec.StartedAt, rec.FinishedAt = time.Unix(started, 0), time.Unix(finished, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

func nullable(v sql.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	return publisher.Cell(v.Float64)
}
