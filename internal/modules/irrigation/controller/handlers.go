package controller

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"greenhouse-dashboard/internal/modules/irrigation/service"
	"greenhouse-dashboard/internal/modules/irrigation/views"
	"greenhouse-dashboard/internal/utils"
)

func (c *irrigationControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	tab := views.ParseTab(r.URL.Query().Get("tab"))

	results, err := c.service.Results(r.Context())
	if err != nil {
		slog.Error("dashboard: load results failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load query results")
		return
	}

	data := &views.DashboardData{
		Tab:     tab,
		Tabs:    views.Tabs(tab),
		Zones:   c.zonesData(),
		Queries: buildQueryCards(c.service.Queries(), results),
		Config:  c.settings.Config,
		Now:     c.now(),
	}
	if tab == views.TabAlerts {
		failing, err := c.service.FailingQueries(r.Context())
		if err != nil {
			slog.Error("dashboard: count failing queries failed", "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to load alerts")
			return
		}
		data.Alerts = buildAlerts(c.service.InfluxReady(), failing)
	}

	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, data); err != nil {
		slog.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (c *irrigationControllerImpl) handleZonesPartial(w http.ResponseWriter, r *http.Request) {
	data := c.zonesData()
	var buf bytes.Buffer
	if err := views.RenderZonesPartial(&buf, &data); err != nil {
		slog.Error("zones partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (c *irrigationControllerImpl) handleRunPartial(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, err := c.service.Execute(r.Context(), id)
	if err != nil {
		c.writeExecuteError(w, id, err)
		return
	}

	card := views.QueryCard{Result: &res}
	for _, q := range c.service.Queries() {
		if q.ID == id {
			card.Query = q
			break
		}
	}

	var buf bytes.Buffer
	if err := views.RenderQueryCard(&buf, &card); err != nil {
		slog.Error("query card render failed", "query_id", id, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (c *irrigationControllerImpl) handleQueries(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.service.Queries())
}

func (c *irrigationControllerImpl) handleResults(w http.ResponseWriter, r *http.Request) {
	results, err := c.service.Results(r.Context())
	if err != nil {
		slog.Error("load results failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load query results")
		return
	}
	utils.WriteJSON(w, http.StatusOK, results)
}

func (c *irrigationControllerImpl) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, err := c.service.Execute(r.Context(), id)
	if err != nil {
		c.writeExecuteError(w, id, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res)
}

func (c *irrigationControllerImpl) handleZones(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.zones.Snapshot())
}

func (c *irrigationControllerImpl) handleStats(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.service.Stats())
}

func (c *irrigationControllerImpl) writeExecuteError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, service.ErrUnknownQuery) {
		utils.WriteError(w, http.StatusNotFound, "unknown query: "+id)
		return
	}
	slog.Error("execute query failed", "query_id", id, "error", err)
	utils.WriteError(w, http.StatusInternalServerError, "failed to store query result")
}

func (c *irrigationControllerImpl) zonesData() views.ZonesData {
	return views.ZonesData{
		Snapshot:       c.zones.Snapshot(),
		Conditions:     c.settings.Conditions,
		RefreshSeconds: refreshSeconds(c.settings.RefreshInterval),
	}
}
