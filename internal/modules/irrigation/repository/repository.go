package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"greenhouse-dashboard/internal/modules/irrigation/types"
)

//go:embed sql/upsert-result.sql
var upsertResultSQL string

//go:embed sql/get-result.sql
var getResultSQL string

//go:embed sql/get-results.sql
var getResultsSQL string

//go:embed sql/count-failed.sql
var countFailedSQL string

// ResultRepository keeps the latest result per query id. Writes overwrite; there is no history.
type ResultRepository interface {
	UpsertResult(ctx context.Context, r types.QueryResult) error
	GetResult(ctx context.Context, queryID string) (types.QueryResult, bool, error)
	GetResults(ctx context.Context) (map[string]types.QueryResult, error)
	CountFailed(ctx context.Context) (int, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) ResultRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) UpsertResult(ctx context.Context, res types.QueryResult) error {
	if res.QueryID == "" {
		return errors.New("upsert result: empty query id")
	}
	ts := res.Timestamp.UTC().Format(time.RFC3339Nano)
	if _, err := r.db.ExecContext(ctx, upsertResultSQL, res.QueryID, res.Text, string(res.Status), ts); err != nil {
		return fmt.Errorf("upsert result %q: %w", res.QueryID, err)
	}
	return nil
}

func (r *repositoryImpl) GetResult(ctx context.Context, queryID string) (types.QueryResult, bool, error) {
	res, err := scanResult(r.db.QueryRowContext(ctx, getResultSQL, queryID))
	if errors.Is(err, sql.ErrNoRows) {
		return types.QueryResult{}, false, nil
	}
	if err != nil {
		return types.QueryResult{}, false, fmt.Errorf("get result %q: %w", queryID, err)
	}
	return res, true, nil
}

func (r *repositoryImpl) GetResults(ctx context.Context) (map[string]types.QueryResult, error) {
	rows, err := r.db.QueryContext(ctx, getResultsSQL)
	if err != nil {
		return nil, fmt.Errorf("get results: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close results rows", "error", err)
		}
	}()

	out := make(map[string]types.QueryResult)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out[res.QueryID] = res
	}
	return out, rows.Err()
}

func (r *repositoryImpl) CountFailed(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countFailedSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count failed results: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(s scanner) (types.QueryResult, error) {
	var (
		res    types.QueryResult
		status string
		ts     string
	)
	if err := s.Scan(&res.QueryID, &res.Text, &status, &ts); err != nil {
		return types.QueryResult{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("parse executed_at %q: %w", ts, err)
	}
	res.Status = types.Status(status)
	res.Timestamp = t
	return res, nil
}
