package controller

import (
	"context"
	"net/http"
	"time"

	"greenhouse-dashboard/internal/modules/irrigation/types"
	"greenhouse-dashboard/internal/modules/irrigation/views"
)

// QueryService is the part of service.Service the handlers use.
type QueryService interface {
	Queries() []types.Query
	Execute(ctx context.Context, id string) (types.QueryResult, error)
	Results(ctx context.Context) (map[string]types.QueryResult, error)
	FailingQueries(ctx context.Context) (int, error)
	InfluxReady() bool
	Stats() types.ExecutionStats
}

type ZoneSource interface {
	Snapshot() types.ZoneSnapshot
}

type Settings struct {
	Config          views.ConfigView
	RefreshInterval time.Duration
	Conditions      types.Conditions
}

type IrrigationController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type irrigationControllerImpl struct {
	service  QueryService
	zones    ZoneSource
	settings Settings
	now      func() time.Time
}

func NewIrrigationController(service QueryService, zones ZoneSource, settings Settings) IrrigationController {
	return &irrigationControllerImpl{service: service, zones: zones, settings: settings, now: time.Now}
}

func (c *irrigationControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /partials/zones", c.handleZonesPartial)
	mux.HandleFunc("POST /queries/{id}/run", c.handleRunPartial)

	mux.HandleFunc("GET /api/v1/queries", c.handleQueries)
	mux.HandleFunc("GET /api/v1/queries/results", c.handleResults)
	mux.HandleFunc("POST /api/v1/queries/{id}/run", c.handleRun)
	mux.HandleFunc("GET /api/v1/zones", c.handleZones)
	mux.HandleFunc("GET /api/v1/stats", c.handleStats)
}
