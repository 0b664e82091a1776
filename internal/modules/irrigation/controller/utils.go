package controller

import (
	"fmt"
	"time"

	"greenhouse-dashboard/internal/modules/irrigation/types"
	"greenhouse-dashboard/internal/modules/irrigation/views"
)

// refreshSeconds rounds up to whole seconds, minimum 1.
func refreshSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

func buildQueryCards(queries []types.Query, results map[string]types.QueryResult) []views.QueryCard {
	cards := make([]views.QueryCard, 0, len(queries))
	for _, q := range queries {
		card := views.QueryCard{Query: q}
		if res, ok := results[q.ID]; ok {
			card.Result = &res
		}
		cards = append(cards, card)
	}
	return cards
}

func buildAlerts(influxReady bool, failing int) []views.Alert {
	alerts := []views.Alert{{
		Title:  "System connected",
		Detail: "Dashboard running normally",
		Level:  views.AlertOK,
		Badge:  "OK",
	}}

	influx := views.Alert{
		Title:  "InfluxDB",
		Detail: "Connection available for queries",
		Level:  views.AlertInfo,
		Badge:  "READY",
	}
	if !influxReady {
		influx.Detail = "The last query failed"
		influx.Level = views.AlertError
		influx.Badge = "ERROR"
	}
	alerts = append(alerts, influx)

	if failing > 0 {
		alerts = append(alerts, views.Alert{
			Title:  "Failing queries",
			Detail: fmt.Sprintf("%d of the stored results are errors", failing),
			Level:  views.AlertError,
			Badge:  fmt.Sprint(failing),
		})
	}
	return alerts
}
