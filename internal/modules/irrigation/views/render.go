package views

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"time"

	"github.com/dustin/go-humanize"

	"greenhouse-dashboard/internal/modules/irrigation/types"
)

var dashboardTmpl *template.Template

var errNotLoaded = errors.New("dashboard templates not loaded: call views.LoadTemplates during startup")

var funcs = template.FuncMap{
	"since": humanize.Time,
	"comma": func(n int) string { return humanize.Comma(int64(n)) },
	"clock": func(t time.Time) string { return t.Format("15:04:05") },
	"isActive": func(z types.ZoneState) bool {
		return z.Status == types.ZoneActive
	},
	"isError": func(r *types.QueryResult) bool {
		return r != nil && r.Status == types.StatusError
	},
}

// loadTemplatesFromFS parses *.html and partials/*.html under dir.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("dashboard").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates parses the embedded templates. The server must not start if it fails.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

const (
	TabDashboard = "dashboard"
	TabQueries   = "queries"
	TabAlerts    = "alerts"
	TabConfig    = "config"
)

type Tab struct {
	Key    string
	Label  string
	Active bool
}

var tabLabels = []struct{ key, label string }{
	{TabDashboard, "Dashboard"},
	{TabQueries, "Live queries"},
	{TabAlerts, "Alerts"},
	{TabConfig, "Configuration"},
}

// ParseTab maps an unknown or empty key to the dashboard tab.
func ParseTab(key string) string {
	for _, t := range tabLabels {
		if t.key == key {
			return key
		}
	}
	return TabDashboard
}

func Tabs(active string) []Tab {
	out := make([]Tab, 0, len(tabLabels))
	for _, t := range tabLabels {
		out = append(out, Tab{Key: t.key, Label: t.label, Active: t.key == active})
	}
	return out
}

type QueryCard struct {
	Query  types.Query
	Result *types.QueryResult
}

type AlertLevel string

const (
	AlertOK    AlertLevel = "ok"
	AlertInfo  AlertLevel = "info"
	AlertError AlertLevel = "error"
)

type Alert struct {
	Title  string
	Detail string
	Level  AlertLevel
	Badge  string
}

// ConfigView never carries the token.
type ConfigView struct {
	InfluxURL       string
	Org             string
	Bucket          string
	ConfiguredZones int
	RefreshInterval time.Duration
	MQTTEnabled     bool
}

type ZonesData struct {
	Snapshot       types.ZoneSnapshot
	Conditions     types.Conditions
	RefreshSeconds int
}

type DashboardData struct {
	Tab     string
	Tabs    []Tab
	Zones   ZonesData
	Queries []QueryCard
	Alerts  []Alert
	Config  ConfigView
	Now     time.Time
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errNotLoaded
	}
	if data == nil {
		return fmt.Errorf("render dashboard: nil data")
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderZonesPartial renders the auto-refreshing zone summary fragment.
func RenderZonesPartial(w io.Writer, data *ZonesData) error {
	if dashboardTmpl == nil {
		return errNotLoaded
	}
	return dashboardTmpl.ExecuteTemplate(w, "partials/zones.html", data)
}

// RenderQueryCard renders one query card, used as the response to a run button.
func RenderQueryCard(w io.Writer, card *QueryCard) error {
	if dashboardTmpl == nil {
		return errNotLoaded
	}
	return dashboardTmpl.ExecuteTemplate(w, "partials/query_card.html", card)
}
