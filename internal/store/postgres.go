package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/finreport-cli/internal/model"
)

// pgxPool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pgxPool
}

// NewPostgres connects to Postgres and verifies the connection.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool pgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analysis_results (
	cache_key        TEXT PRIMARY KEY,
	symbol           TEXT NOT NULL,
	extraction_model TEXT NOT NULL,
	analysis_model   TEXT NOT NULL,
	run_id           TEXT NOT NULL,
	ledger           JSONB NOT NULL,
	input_tokens     BIGINT NOT NULL DEFAULT 0,
	output_tokens    BIGINT NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analysis_results_symbol ON analysis_results(symbol);
CREATE INDEX IF NOT EXISTS idx_analysis_results_created_at ON analysis_results(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Check(ctx context.Context, key model.AnalysisKey) (*model.Ledger, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT ledger FROM analysis_results WHERE cache_key = $1`,
		key.Encode(),
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: check")
	}

	var led model.Ledger
	if err := json.Unmarshal(raw, &led); err != nil {
		return nil, eris.Wrap(err, "postgres: decode ledger")
	}
	return &led, nil
}

func (s *PostgresStore) Put(ctx context.Context, led *model.Ledger) error {
	if led.Status != model.RunStatusComplete {
		return eris.Errorf("postgres: refusing to cache %s run %s", led.Status, led.RunID)
	}

	raw, err := json.Marshal(led)
	if err != nil {
		return eris.Wrap(err, "postgres: encode ledger")
	}

	usage := led.TotalUsage()
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO analysis_results
			(cache_key, symbol, extraction_model, analysis_model, run_id, ledger, input_tokens, output_tokens, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (cache_key) DO NOTHING`,
		led.Key.Encode(), led.Key.Symbol, led.Key.ExtractionModel, led.Key.AnalysisModel,
		led.RunID, raw, usage.InputTokens, usage.OutputTokens, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "postgres: put")
	}
	if tag.RowsAffected() == 0 {
		return ErrCacheConflict
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `SELECT cache_key, symbol, extraction_model, analysis_model, run_id, input_tokens, output_tokens, created_at
		FROM analysis_results`
	args := []any{}
	if filter.Symbol != "" {
		query += ` WHERE symbol = $1`
		args = append(args, filter.Symbol)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.CacheKey, &e.Key.Symbol, &e.Key.ExtractionModel, &e.Key.AnalysisModel,
			&e.RunID, &e.Usage.InputTokens, &e.Usage.OutputTokens, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list rows")
}
