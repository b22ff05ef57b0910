// Package monitor determines device reachability over the LAN and WiFi
// interfaces and records the outcome in the catalog.
package monitor

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/logging"
	"github.com/dmitrijs2005/fleetsync/internal/periodic"
	"github.com/dmitrijs2005/fleetsync/internal/server/config"
	"github.com/dmitrijs2005/fleetsync/internal/server/models"
	"github.com/dmitrijs2005/fleetsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fleetsync/internal/timex"
	"golang.org/x/sync/errgroup"
)

type Monitor struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	prober       Prober
	timeout      time.Duration
	cycleTimeout time.Duration
	concurrency  int
	probeAll     bool
	clock        timex.Clock
	logger       logging.Logger
	loop         *periodic.Loop
}

func New(db *sql.DB, rm repomanager.RepositoryManager, prober Prober, cfg *config.Config, logger logging.Logger) *Monitor {
	m := &Monitor{
		db:           db,
		repomanager:  rm,
		prober:       prober,
		timeout:      cfg.ProbeTimeout,
		cycleTimeout: cfg.ProbeCycleTimeout,
		concurrency:  cfg.ProbeConcurrency,
		probeAll:     cfg.ProbeAllInterfaces,
		clock:        timex.Real(),
		logger:       logger.With("module", "monitor"),
	}
	m.loop = periodic.New("monitor", cfg.MonitorInterval, func(ctx context.Context) error {
		_, err := m.HealthCheck(ctx)
		return err
	}, m.logger)
	return m
}

func (m *Monitor) Start(ctx context.Context) { m.loop.Start(ctx) }

func (m *Monitor) Stop() { m.loop.Stop() }

func (m *Monitor) Run(ctx context.Context) { m.loop.Run(ctx) }

// Probe checks one device and stores the result. A failed write is logged
// and reported through DeviceStatus.Persisted.
func (m *Monitor) Probe(ctx context.Context, deviceID string) (*models.DeviceStatus, error) {
	d, err := m.repomanager.Devices(m.db).GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	st := m.probeDevice(ctx, d)
	m.persist(ctx, st)
	return st, nil
}

// ProbeAll probes every registered device with bounded parallelism. Each
// device is persisted on its own, so one failed write does not affect the
// others. Only a failure to list devices is returned.
func (m *Monitor) ProbeAll(ctx context.Context) (*models.FleetSummary, error) {
	devices, err := m.repomanager.Devices(m.db).List(ctx)
	if err != nil {
		return nil, err
	}

	cycleCtx, cancel := context.WithTimeout(ctx, m.cycleTimeout)
	defer cancel()

	statuses := make([]*models.DeviceStatus, len(devices))

	g, gctx := errgroup.WithContext(cycleCtx)
	g.SetLimit(m.concurrency)
	for i, d := range devices {
		g.Go(func() error {
			if gctx.Err() != nil {
				statuses[i] = &models.DeviceStatus{DeviceID: d.ID, Skipped: true}
				return nil
			}
			st := m.probeDevice(gctx, d)
			m.persist(ctx, st)
			statuses[i] = st
			return nil
		})
	}
	_ = g.Wait()

	summary := &models.FleetSummary{Devices: make([]*models.DeviceStatus, 0, len(statuses))}
	for _, st := range statuses {
		summary.Add(st)
	}
	if summary.Skipped > 0 {
		m.logger.Warn(ctx, "probe cycle deadline reached", "skipped", summary.Skipped, "cycle_timeout", m.cycleTimeout.String())
	}
	return summary, nil
}

// HealthCheck runs one fleet probe cycle and logs its summary. It is what
// the periodic loop runs and is safe to call on demand.
func (m *Monitor) HealthCheck(ctx context.Context) (*models.FleetSummary, error) {
	started := m.clock.Now()
	summary, err := m.ProbeAll(ctx)
	if err != nil {
		m.logger.Error(ctx, "health check failed", "error", err)
		return nil, err
	}
	m.logger.Info(ctx, "health check done",
		"total", summary.Total,
		"active", summary.Active,
		"inactive", summary.Inactive,
		"lan_active", summary.LanActive,
		"wifi_active", summary.WifiActive,
		"persist_failures", summary.PersistFailures,
		"took", m.clock.Now().Sub(started).String(),
	)
	return summary, nil
}

// probeDevice tries LAN first and WiFi only when LAN is unset or failed,
// unless probeAll asks for both.
func (m *Monitor) probeDevice(ctx context.Context, d *models.Device) *models.DeviceStatus {
	now := m.clock.Now()
	st := &models.DeviceStatus{DeviceID: d.ID, ProbedAt: now}

	if !d.HasInterfaces() {
		m.logger.Warn(ctx, "device has no interface address, marking inactive", "device_id", d.ID)
		return st
	}

	if d.LanIP != "" {
		st.LanActive = m.reachable(ctx, d.ID, "lan", d.LanIP)
	}
	if d.WifiIP != "" && (!st.LanActive || m.probeAll) {
		st.WifiActive = m.reachable(ctx, d.ID, "wifi", d.WifiIP)
	}

	st.IsActive = st.LanActive || st.WifiActive
	if st.IsActive {
		st.LastSeen = &now
	}
	return st
}

func (m *Monitor) reachable(ctx context.Context, deviceID, iface, addr string) bool {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.prober.Probe(pctx, addr); err != nil {
		m.logger.Debug(ctx, "interface unreachable", "device_id", deviceID, "interface", iface, "addr", addr, "error", err)
		return false
	}
	return true
}

func (m *Monitor) persist(ctx context.Context, st *models.DeviceStatus) {
	if err := m.repomanager.Devices(m.db).UpdateLiveness(ctx, st); err != nil {
		m.logger.Error(ctx, "failed to store device liveness", "device_id", st.DeviceID, "error", err)
		return
	}
	st.Persisted = true
}
