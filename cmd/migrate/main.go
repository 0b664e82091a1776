// Command migrate applies the result-store schema to a file-backed SQLite database
// (SQLITE_PATH or DB_DSN). The server migrates on startup too; this is for preparing a file ahead of time.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"greenhouse-dashboard/internal/config"
	"greenhouse-dashboard/internal/db"
	"greenhouse-dashboard/internal/logging"
	"greenhouse-dashboard/internal/migrate"
)

var version = "dev"

func main() {
	cfg, err := config.LoadDBFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg, version, "greenhouse-migrate")

	if cfg.SQLiteDSN == "" && cfg.SQLitePath == ":memory:" {
		fmt.Fprintln(os.Stderr, "SQLITE_PATH or DB_DSN must point at a file; an in-memory database would be discarded")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations up to date", "path", cfg.SQLitePath)
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) (err error) {
	conn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("db close: %w", closeErr))
		}
	}()

	return migrate.Run(ctx, conn, logger)
}
