// Package catalog holds the fixed set of Flux queries the dashboard can run.
package catalog

import (
	"fmt"

	"greenhouse-dashboard/internal/modules/irrigation/types"
)

const (
	IrrigationStatus    = "irrigation_status"
	WaterConsumption    = "water_consumption"
	IrrigationAnomalies = "irrigation_anomalies"
	SystemStats         = "system_stats"
)

// AnomalyRuntimeSeconds is the runtime above which a zone run counts as an anomaly.
const AnomalyRuntimeSeconds = 600

type Catalog struct {
	bucket  string
	queries []types.Query
	byID    map[string]int
}

func New(bucket string) *Catalog {
	queries := []types.Query{
		{
			ID:          IrrigationStatus,
			Name:        "Irrigation status",
			Description: "Current runtime of every irrigation zone",
			Icon:        "droplets",
			Text: fmt.Sprintf(`from(bucket: %q)
  |> range(start: -1h)
  |> filter(fn: (r) => r._measurement == "units")
  |> filter(fn: (r) => r.entity_id =~ /.*zona.*/)
  |> filter(fn: (r) => r._field == "current_runtime")
  |> group(columns: ["entity_id"])
  |> last()`, bucket),
		},
		{
			ID:          WaterConsumption,
			Name:        "Water consumption",
			Description: "Litres consumed per sensor over the last 24 hours",
			Icon:        "gauge",
			Text: fmt.Sprintf(`from(bucket: %q)
  |> range(start: -24h)
  |> filter(fn: (r) => r._field =~ /.*consumption.*litres.*/)
  |> group(columns: ["entity_id"])
  |> last()`, bucket),
		},
		{
			ID:          IrrigationAnomalies,
			Name:        "Irrigation anomalies",
			Description: "Zone runs longer than 10 minutes in the last 2 hours",
			Icon:        "alert-triangle",
			Text: fmt.Sprintf(`from(bucket: %q)
  |> range(start: -2h)
  |> filter(fn: (r) => r._field == "current_runtime")
  |> filter(fn: (r) => r._value > %d)
  |> group(columns: ["entity_id"])
  |> count()`, bucket, AnomalyRuntimeSeconds),
		},
		{
			ID:          SystemStats,
			Name:        "System statistics",
			Description: "Total points written in the last 24 hours",
			Icon:        "bar-chart",
			Text: fmt.Sprintf(`from(bucket: %q)
  |> range(start: -24h)
  |> group()
  |> count()`, bucket),
		},
	}

	byID := make(map[string]int, len(queries))
	for i, q := range queries {
		byID[q.ID] = i
	}
	return &Catalog{bucket: bucket, queries: queries, byID: byID}
}

func (c *Catalog) Bucket() string {
	return c.bucket
}

// Get returns the query with the given id.
func (c *Catalog) Get(id string) (types.Query, bool) {
	i, ok := c.byID[id]
	if !ok {
		return types.Query{}, false
	}
	return c.queries[i], true
}

// All returns the queries in display order. The slice is a copy.
func (c *Catalog) All() []types.Query {
	out := make([]types.Query, len(c.queries))
	copy(out, c.queries)
	return out
}
