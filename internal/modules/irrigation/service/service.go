package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"greenhouse-dashboard/internal/modules/irrigation/catalog"
	"greenhouse-dashboard/internal/modules/irrigation/formatter"
	"greenhouse-dashboard/internal/modules/irrigation/repository"
	"greenhouse-dashboard/internal/modules/irrigation/types"
)

// ErrUnknownQuery is returned for ids that are not in the catalog.
var ErrUnknownQuery = errors.New("unknown query")

// Querier runs a Flux query and returns the raw CSV response.
type Querier interface {
	Query(ctx context.Context, flux string) (string, error)
}

type FormatFunc func(queryID, raw string, now time.Time) string

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithFormatter(f FormatFunc) Option {
	return func(s *Service) { s.format = f }
}

type Service struct {
	querier    Querier
	repository repository.ResultRepository
	catalog    *catalog.Catalog
	logger     *slog.Logger
	format     FormatFunc
	now        func() time.Time

	executions   atomic.Int64
	failures     atomic.Int64
	lastDuration atomic.Int64
	lastFailed   atomic.Bool
}

func NewService(querier Querier, repo repository.ResultRepository, cat *catalog.Catalog, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		querier:    querier,
		repository: repo,
		catalog:    cat,
		logger:     logger,
		format:     formatter.Format,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Queries() []types.Query {
	return s.catalog.All()
}

func (s *Service) Query(id string) (types.Query, bool) {
	return s.catalog.Get(id)
}

// Execute runs the catalog query id and stores its outcome, replacing any earlier one.
// Query failures are returned as a result with StatusError, not as an error.
// The caller's cancellation is not propagated; the HTTP client timeout bounds the call.
func (s *Service) Execute(ctx context.Context, id string) (types.QueryResult, error) {
	q, ok := s.catalog.Get(id)
	if !ok {
		return types.QueryResult{}, fmt.Errorf("%w: %q", ErrUnknownQuery, id)
	}
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	raw, err := s.querier.Query(ctx, q.Text)
	elapsed := time.Since(start)

	s.executions.Add(1)
	s.lastDuration.Store(elapsed.Milliseconds())

	res := types.QueryResult{QueryID: id, Timestamp: s.now()}
	if err != nil {
		s.failures.Add(1)
		s.lastFailed.Store(true)
		s.logger.Warn("query failed", "query_id", id, "duration", elapsed, "error", err)
		res.Status = types.StatusError
		res.Text = ErrorText(err)
	} else {
		s.lastFailed.Store(false)
		s.logger.Info("query executed", "query_id", id, "duration", elapsed, "bytes", len(raw))
		res.Status = types.StatusSuccess
		res.Text = s.format(id, raw, res.Timestamp)
	}

	if err := s.repository.UpsertResult(ctx, res); err != nil {
		return res, fmt.Errorf("store result: %w", err)
	}
	return res, nil
}

// ErrorText is the display text stored for a failed query.
func ErrorText(err error) string {
	return fmt.Sprintf("Error: %s\nCheck the connection to InfluxDB", err.Error())
}

func (s *Service) Result(ctx context.Context, id string) (types.QueryResult, bool, error) {
	return s.repository.GetResult(ctx, id)
}

func (s *Service) Results(ctx context.Context) (map[string]types.QueryResult, error) {
	return s.repository.GetResults(ctx)
}

func (s *Service) FailingQueries(ctx context.Context) (int, error) {
	return s.repository.CountFailed(ctx)
}

// InfluxReady is false when the most recent execution failed.
func (s *Service) InfluxReady() bool {
	return !s.lastFailed.Load()
}

func (s *Service) Stats() types.ExecutionStats {
	return types.ExecutionStats{
		Executions:     s.executions.Load(),
		Failures:       s.failures.Load(),
		LastDurationMs: s.lastDuration.Load(),
	}
}
