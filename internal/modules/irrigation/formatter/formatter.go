// Package formatter turns the annotated CSV returned by InfluxDB into dashboard text.
package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"greenhouse-dashboard/internal/modules/irrigation/catalog"
)

const (
	NoData      = "No data found"
	unknownZone = "Unknown zone"
	clockLayout = "15:04:05"
)

// Format never fails: rows it cannot read fall back to placeholder values.
func Format(queryID, raw string, now time.Time) string {
	rows := dataLines(raw)
	if len(rows) <= 1 {
		return NoData
	}
	rows = rows[1:]

	switch queryID {
	case catalog.IrrigationStatus:
		out := make([]string, 0, len(rows))
		for _, row := range rows {
			out = append(out, zoneLine(row))
		}
		return strings.Join(out, "\n")
	case catalog.SystemStats:
		return fmt.Sprintf("Total records found: %d\nLast query: %s", len(rows), now.Format(clockLayout))
	default:
		return fmt.Sprintf("Records found: %d\nLast updated: %s", len(rows), now.Format(clockLayout))
	}
}

func dataLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func zoneLine(row string) string {
	fields := strings.Split(row, ",")

	zone := unknownZone
	for _, f := range fields {
		if strings.Contains(f, "zona") {
			zone = f
			break
		}
	}

	value := "0"
	if len(fields) >= 2 && fields[len(fields)-2] != "" {
		value = fields[len(fields)-2]
	}

	state := "INACTIVE"
	if IsActive(value) {
		state = "ACTIVE"
	}
	return fmt.Sprintf("%s: %ss (%s)", zone, value, state)
}

// IsActive reports whether a runtime value is a number greater than zero.
func IsActive(value string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	return err == nil && v > 0
}
