package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"greenhouse-dashboard/internal/config"
	"greenhouse-dashboard/internal/db"
	"greenhouse-dashboard/internal/httpapi"
	"greenhouse-dashboard/internal/influx"
	"greenhouse-dashboard/internal/migrate"
	"greenhouse-dashboard/internal/modules/irrigation"
	"greenhouse-dashboard/internal/modules/irrigation/types"
	"greenhouse-dashboard/internal/modules/irrigation/views"
	"greenhouse-dashboard/internal/mqtt"
)

const (
	shutdownTimeout    = 10 * time.Second
	mqttConnectTimeout = 5 * time.Second
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"influxURL", cfg.InfluxURL,
		"influxOrg", cfg.InfluxOrg,
		"influxBucket", cfg.InfluxBucket,
		"influxTimeout", cfg.InfluxTimeout,
		"zoneRefreshInterval", cfg.ZoneRefreshInterval,
		"sqlitePath", cfg.SQLitePath,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
	)

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn, logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := views.LoadTemplates(); err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	client := influx.NewClient(influx.Config{
		URL:     cfg.InfluxURL,
		Token:   cfg.InfluxToken,
		Org:     cfg.InfluxOrg,
		Timeout: cfg.InfluxTimeout,
	})
	defer client.Close()

	mux := httpapi.NewMux(dbConn)
	feature := irrigation.RegisterFeature(mux, dbConn, cfg, client, logger)

	publisher := connectPublisher(ctx, cfg, logger)
	var onUpdate func(types.ZoneSnapshot)
	if publisher != nil {
		defer publisher.Disconnect()
		if err := publisher.PublishZones(feature.Simulator.Snapshot()); err != nil {
			logger.Warn("mqtt initial publish failed", "error", err)
		}
		onUpdate = func(snap types.ZoneSnapshot) {
			if err := publisher.PublishZones(snap); err != nil {
				logger.Warn("mqtt publish zones failed", "error", err)
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	srv := httpapi.NewServer(cfg, mux, logger)
	srv.BaseContext = func(net.Listener) context.Context { return gctx }

	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return feature.Simulator.Run(gctx, cfg.ZoneRefreshInterval, onUpdate)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info("http shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// connectPublisher returns nil when MQTT is disabled or the broker is unreachable at startup.
func connectPublisher(ctx context.Context, cfg config.Config, logger *slog.Logger) *mqtt.Publisher {
	if !cfg.MQTTEnabled() {
		logger.Info("mqtt disabled")
		return nil
	}

	publisher := mqtt.NewPublisher(cfg, logger.With("component", "mqtt"))
	connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
	defer cancel()

	if err := publisher.Connect(connectCtx); err != nil {
		logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		publisher.Disconnect()
		return nil
	}
	return publisher
}
