package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"greenhouse-dashboard/internal/modules/irrigation/service"
	"greenhouse-dashboard/internal/modules/irrigation/types"
	"greenhouse-dashboard/internal/modules/irrigation/views"
)

type mockService struct {
	queries    []types.Query
	results    map[string]types.QueryResult
	resultsErr error
	executeRes types.QueryResult
	executeErr error
	executed   []string
	failing    int
	ready      bool
	stats      types.ExecutionStats
}

func (m *mockService) Queries() []types.Query { return m.queries }

func (m *mockService) Execute(_ context.Context, id string) (types.QueryResult, error) {
	m.executed = append(m.executed, id)
	return m.executeRes, m.executeErr
}

func (m *mockService) Results(context.Context) (map[string]types.QueryResult, error) {
	return m.results, m.resultsErr
}

func (m *mockService) FailingQueries(context.Context) (int, error) { return m.failing, nil }

func (m *mockService) InfluxReady() bool { return m.ready }

func (m *mockService) Stats() types.ExecutionStats { return m.stats }

type staticZones struct {
	snap types.ZoneSnapshot
}

func (s staticZones) Snapshot() types.ZoneSnapshot { return s.snap }

var ts = time.Date(2025, 6, 3, 11, 0, 0, 0, time.UTC)

func newMockService() *mockService {
	return &mockService{
		queries: []types.Query{
			{ID: "irrigation_status", Name: "Irrigation status", Text: "from(bucket: \"b\")"},
			{ID: "system_stats", Name: "System statistics", Text: "from(bucket: \"b\") |> count()"},
		},
		results: map[string]types.QueryResult{},
		ready:   true,
	}
}

func newTestController(svc *mockService) *irrigationControllerImpl {
	zones := staticZones{snap: types.ZoneSnapshot{
		Zones: []types.ZoneState{
			{ID: "inv2_zona1_zone", Name: "Greenhouse 2 - Zone 1", Status: types.ZoneInactive, LastUpdate: ts},
		},
		LastUpdate: ts,
		TotalZones: 1,
	}}
	settings := Settings{
		Config:          views.ConfigView{InfluxURL: "https://influx.example.com", Org: "Fresas", Bucket: "invernaderos", ConfiguredZones: 2},
		RefreshInterval: 30 * time.Second,
		Conditions:      types.DefaultConditions(),
	}
	ctrl := NewIrrigationController(svc, zones, settings).(*irrigationControllerImpl)
	ctrl.now = func() time.Time { return ts }
	return ctrl
}

func serve(ctrl *irrigationControllerImpl, method, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	ctrl.RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func loadTemplates(t *testing.T) {
	t.Helper()
	if err := views.LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
}

func Test_handleDashboard(t *testing.T) {
	loadTemplates(t)

	t.Run("returns 404 when path is not /", func(t *testing.T) {
		rec := serve(newTestController(newMockService()), http.MethodGet, "/favicon.ico")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("renders the requested tab", func(t *testing.T) {
		svc := newMockService()
		svc.results["system_stats"] = types.QueryResult{QueryID: "system_stats", Text: "Total records found: 7", Status: types.StatusSuccess, Timestamp: ts}

		rec := serve(newTestController(svc), http.MethodGet, "/?tab=queries")

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want 200", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
			t.Errorf("Content-Type = %q", ct)
		}
		body := rec.Body.String()
		for _, want := range []string{"Live queries", "Total records found: 7", `hx-post="/queries/irrigation_status/run"`} {
			if !strings.Contains(body, want) {
				t.Errorf("body missing %q", want)
			}
		}
	})

	t.Run("alerts reflect failing queries", func(t *testing.T) {
		svc := newMockService()
		svc.ready = false
		svc.failing = 2

		body := serve(newTestController(svc), http.MethodGet, "/?tab=alerts").Body.String()

		for _, want := range []string{"The last query failed", "Failing queries", "2 of the stored results are errors"} {
			if !strings.Contains(body, want) {
				t.Errorf("body missing %q", want)
			}
		}
	})

	t.Run("config tab never shows a token", func(t *testing.T) {
		body := serve(newTestController(newMockService()), http.MethodGet, "/?tab=config").Body.String()
		if !strings.Contains(body, "https://influx.example.com") {
			t.Errorf("config tab missing URL")
		}
		if strings.Contains(strings.ToLower(body), "token") {
			t.Errorf("config tab mentions a token")
		}
	})

	t.Run("returns 500 when results cannot be loaded", func(t *testing.T) {
		svc := newMockService()
		svc.resultsErr = errors.New("db closed")

		rec := serve(newTestController(svc), http.MethodGet, "/")

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d; want 500", rec.Code)
		}
	})
}

func Test_handleZonesPartial(t *testing.T) {
	loadTemplates(t)

	rec := serve(newTestController(newMockService()), http.MethodGet, "/partials/zones")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<html") {
		t.Errorf("partial should not contain the page layout")
	}
	if !strings.Contains(body, `hx-trigger="every 30s"`) {
		t.Errorf("partial missing refresh trigger: %q", body)
	}
}

func Test_handleRunPartial(t *testing.T) {
	loadTemplates(t)

	t.Run("renders the updated card", func(t *testing.T) {
		svc := newMockService()
		svc.executeRes = types.QueryResult{QueryID: "system_stats", Text: "Error: refused\nCheck the connection to InfluxDB", Status: types.StatusError, Timestamp: ts}

		rec := serve(newTestController(svc), http.MethodPost, "/queries/system_stats/run")

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want 200", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, `id="query-system_stats"`) || !strings.Contains(body, "Error: refused") {
			t.Errorf("unexpected card: %q", body)
		}
		if len(svc.executed) != 1 || svc.executed[0] != "system_stats" {
			t.Errorf("executed = %v", svc.executed)
		}
	})

	t.Run("unknown query is 404", func(t *testing.T) {
		svc := newMockService()
		svc.executeErr = fmt.Errorf("%w: %q", service.ErrUnknownQuery, "nope")

		rec := serve(newTestController(svc), http.MethodPost, "/queries/nope/run")

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want 404", rec.Code)
		}
	})

	t.Run("GET does not execute", func(t *testing.T) {
		svc := newMockService()
		rec := serve(newTestController(svc), http.MethodGet, "/queries/system_stats/run")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want 404", rec.Code)
		}
		if len(svc.executed) != 0 {
			t.Errorf("executed = %v; want none", svc.executed)
		}
	})
}

func Test_handleRun(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "success", wantStatus: http.StatusOK},
		{name: "unknown", err: service.ErrUnknownQuery, wantStatus: http.StatusNotFound},
		{name: "store failure", err: errors.New("store result: disk full"), wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMockService()
			svc.executeRes = types.QueryResult{QueryID: "irrigation_status", Text: "No data found", Status: types.StatusSuccess, Timestamp: ts}
			svc.executeErr = tt.err

			rec := serve(newTestController(svc), http.MethodPost, "/api/v1/queries/irrigation_status/run")

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d; want %d", rec.Code, tt.wantStatus)
			}
			if tt.err != nil {
				return
			}
			var got types.QueryResult
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Status != types.StatusSuccess || got.Text != "No data found" || got.QueryID != "irrigation_status" {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func Test_handleQueriesAndResults(t *testing.T) {
	svc := newMockService()
	svc.results["irrigation_status"] = types.QueryResult{QueryID: "irrigation_status", Text: "x", Status: types.StatusSuccess, Timestamp: ts}
	ctrl := newTestController(svc)

	rec := serve(ctrl, http.MethodGet, "/api/v1/queries")
	var queries []types.Query
	if err := json.NewDecoder(rec.Body).Decode(&queries); err != nil {
		t.Fatalf("decode queries: %v", err)
	}
	if len(queries) != 2 || queries[0].ID != "irrigation_status" {
		t.Errorf("queries = %+v", queries)
	}

	rec = serve(ctrl, http.MethodGet, "/api/v1/queries/results")
	var results map[string]types.QueryResult
	if err := json.NewDecoder(rec.Body).Decode(&results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if results["irrigation_status"].Text != "x" {
		t.Errorf("results = %+v", results)
	}
}

func Test_handleZonesAndStats(t *testing.T) {
	svc := newMockService()
	svc.stats = types.ExecutionStats{Executions: 3, Failures: 1, LastDurationMs: 42}
	ctrl := newTestController(svc)

	rec := serve(ctrl, http.MethodGet, "/api/v1/zones")
	var snap types.ZoneSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode zones: %v", err)
	}
	if snap.TotalZones != 1 || snap.Zones[0].ID != "inv2_zona1_zone" {
		t.Errorf("snapshot = %+v", snap)
	}

	rec = serve(ctrl, http.MethodGet, "/api/v1/stats")
	var stats types.ExecutionStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats != svc.stats {
		t.Errorf("stats = %+v; want %+v", stats, svc.stats)
	}
}
