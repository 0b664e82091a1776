// Package simulator keeps the simulated zone snapshot shown on the dashboard.
// The values are random and unrelated to InfluxDB data.
package simulator

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"greenhouse-dashboard/internal/modules/irrigation/types"
)

const (
	Zone1ID = "inv2_zona1_zone"
	Zone2ID = "inv2_zona2_zone"
)

// zoneProfile describes how a zone is re-rolled on each tick.
type zoneProfile struct {
	id         string
	name       string
	minRuntime int
	spread     int
	activeProb float64
}

var profiles = []zoneProfile{
	{id: Zone1ID, name: "Greenhouse 2 - Zone 1", minRuntime: 0, spread: 10, activeProb: 0.3},
	{id: Zone2ID, name: "Greenhouse 2 - Zone 2", minRuntime: 5, spread: 30, activeProb: 0.7},
}

type Option func(*Simulator)

// WithRand replaces the random source.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) { s.rng = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

type Simulator struct {
	mu       sync.RWMutex
	snapshot types.ZoneSnapshot

	rngMu sync.Mutex
	rng   *rand.Rand
	now   func() time.Time

	logger *slog.Logger
}

func New(logger *slog.Logger, opts ...Option) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Simulator{
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshot = s.initial()
	return s
}

func (s *Simulator) initial() types.ZoneSnapshot {
	now := s.now()
	zones := []types.ZoneState{
		{ID: Zone1ID, Name: profiles[0].name, Runtime: 0, Status: types.ZoneInactive, LastUpdate: now},
		{ID: Zone2ID, Name: profiles[1].name, Runtime: 6, Status: types.ZoneActive, LastUpdate: now},
	}
	return newSnapshot(zones, now)
}

func newSnapshot(zones []types.ZoneState, now time.Time) types.ZoneSnapshot {
	active := 0
	for _, z := range zones {
		if z.Status == types.ZoneActive {
			active++
		}
	}
	return types.ZoneSnapshot{
		Zones:       zones,
		LastUpdate:  now,
		TotalZones:  len(zones),
		ActiveZones: active,
	}
}

// Snapshot returns a copy of the current state.
func (s *Simulator) Snapshot() types.ZoneSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snapshot
	out.Zones = append([]types.ZoneState(nil), s.snapshot.Zones...)
	return out
}

// Tick replaces the whole snapshot with freshly rolled values and returns it.
func (s *Simulator) Tick() types.ZoneSnapshot {
	now := s.now()

	s.rngMu.Lock()
	zones := make([]types.ZoneState, 0, len(profiles))
	for _, p := range profiles {
		status := types.ZoneInactive
		runtime := p.minRuntime + s.rng.IntN(p.spread)
		if s.rng.Float64() < p.activeProb {
			status = types.ZoneActive
		}
		zones = append(zones, types.ZoneState{ID: p.id, Name: p.name, Runtime: runtime, Status: status, LastUpdate: now})
	}
	s.rngMu.Unlock()

	next := newSnapshot(zones, now)
	s.mu.Lock()
	s.snapshot = next
	s.mu.Unlock()

	s.logger.Debug("zones refreshed", "active", next.ActiveZones, "total", next.TotalZones)
	return s.Snapshot()
}

// Run ticks every interval until ctx is done. onUpdate, if set, receives every new snapshot.
func (s *Simulator) Run(ctx context.Context, interval time.Duration, onUpdate func(types.ZoneSnapshot)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap := s.Tick()
			if onUpdate != nil {
				onUpdate(snap)
			}
		}
	}
}
