package types

import "time"

type Query struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Text        string `json:"query"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// QueryResult is the last outcome stored for a query id.
type QueryResult struct {
	QueryID   string    `json:"queryId"`
	Text      string    `json:"result"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
}

type ZoneStatus string

const (
	ZoneActive   ZoneStatus = "active"
	ZoneInactive ZoneStatus = "inactive"
)

type ZoneState struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Runtime    int        `json:"runtime"`
	Status     ZoneStatus `json:"status"`
	LastUpdate time.Time  `json:"lastUpdate"`
}

type ZoneSnapshot struct {
	Zones       []ZoneState `json:"zones"`
	LastUpdate  time.Time   `json:"lastUpdate"`
	TotalZones  int         `json:"totalZones"`
	ActiveZones int         `json:"activeZones"`
}

// Conditions are fixed display values; nothing measures them.
type Conditions struct {
	TemperatureC float64 `json:"temperatureC"`
	HumidityPct  float64 `json:"humidityPct"`
	LightLux     int     `json:"lightLux"`
	PressureHpa  float64 `json:"pressureHpa"`
}

func DefaultConditions() Conditions {
	return Conditions{TemperatureC: 24.5, HumidityPct: 68, LightLux: 35000, PressureHpa: 1013}
}

// ExecutionStats are the query service counters.
type ExecutionStats struct {
	Executions     int64 `json:"executions"`
	Failures       int64 `json:"failures"`
	LastDurationMs int64 `json:"lastDurationMs"`
}
