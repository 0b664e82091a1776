package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux returns a mux with the health check registered. Features add their own routes.
func NewMux(db *sql.DB) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	return mux
}
