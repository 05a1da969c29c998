package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/finreport-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analysis_results (
	cache_key        TEXT PRIMARY KEY,
	symbol           TEXT NOT NULL,
	extraction_model TEXT NOT NULL,
	analysis_model   TEXT NOT NULL,
	run_id           TEXT NOT NULL,
	ledger           TEXT NOT NULL,
	input_tokens     INTEGER NOT NULL DEFAULT 0,
	output_tokens    INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_analysis_results_symbol ON analysis_results(symbol);
CREATE INDEX IF NOT EXISTS idx_analysis_results_created_at ON analysis_results(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Check(ctx context.Context, key model.AnalysisKey) (*model.Ledger, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT ledger FROM analysis_results WHERE cache_key = ?`,
		key.Encode(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: check")
	}

	var led model.Ledger
	if err := json.Unmarshal([]byte(raw), &led); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode ledger")
	}
	return &led, nil
}

func (s *SQLiteStore) Put(ctx context.Context, led *model.Ledger) error {
	if led.Status != model.RunStatusComplete {
		return eris.Errorf("sqlite: refusing to cache %s run %s", led.Status, led.RunID)
	}

	raw, err := json.Marshal(led)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode ledger")
	}

	usage := led.TotalUsage()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO analysis_results
			(cache_key, symbol, extraction_model, analysis_model, run_id, ledger, input_tokens, output_tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO NOTHING`,
		led.Key.Encode(), led.Key.Symbol, led.Key.ExtractionModel, led.Key.AnalysisModel,
		led.RunID, string(raw), usage.InputTokens, usage.OutputTokens, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: put")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCacheConflict
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `SELECT cache_key, symbol, extraction_model, analysis_model, run_id, input_tokens, output_tokens, created_at
		FROM analysis_results`
	args := []any{}
	if filter.Symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, filter.Symbol)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite rejects OFFSET without LIMIT; -1 means unlimited.
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.CacheKey, &e.Key.Symbol, &e.Key.ExtractionModel, &e.Key.AnalysisModel,
			&e.RunID, &e.Usage.InputTokens, &e.Usage.OutputTokens, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list rows")
}
