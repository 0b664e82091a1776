package irrigation

import (
	"database/sql"
	"log/slog"
	"net/http"

	"greenhouse-dashboard/internal/config"
	"greenhouse-dashboard/internal/modules/irrigation/catalog"
	"greenhouse-dashboard/internal/modules/irrigation/controller"
	"greenhouse-dashboard/internal/modules/irrigation/repository"
	"greenhouse-dashboard/internal/modules/irrigation/service"
	"greenhouse-dashboard/internal/modules/irrigation/simulator"
	"greenhouse-dashboard/internal/modules/irrigation/types"
	"greenhouse-dashboard/internal/modules/irrigation/views"
)

type Feature struct {
	Service   *service.Service
	Simulator *simulator.Simulator
}

// RegisterFeature wires the irrigation module and mounts its routes on mux.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, cfg config.Config, querier service.Querier, logger *slog.Logger) *Feature {
	cat := catalog.New(cfg.InfluxBucket)
	svc := service.NewService(querier, repository.NewRepository(db), cat, logger.With("component", "query-service"))
	sim := simulator.New(logger.With("component", "zone-simulator"))

	ctrl := controller.NewIrrigationController(svc, sim, controller.Settings{
		Config: views.ConfigView{
			InfluxURL:       cfg.InfluxURL,
			Org:             cfg.InfluxOrg,
			Bucket:          cfg.InfluxBucket,
			ConfiguredZones: sim.Snapshot().TotalZones,
			RefreshInterval: cfg.ZoneRefreshInterval,
			MQTTEnabled:     cfg.MQTTEnabled(),
		},
		RefreshInterval: cfg.ZoneRefreshInterval,
		Conditions:      types.DefaultConditions(),
	})
	ctrl.RegisterRoutes(mux)

	return &Feature{Service: svc, Simulator: sim}
}
