package services

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"paritybit-setup/internal/artifacts"
	"paritybit-setup/internal/config"
	"paritybit-setup/internal/logger"
	"paritybit-setup/internal/models"
	"paritybit-setup/internal/utils"
)

// Prober checks whether a local TCP listener accepts connections.
type Prober struct {
	Host    string
	Timeout time.Duration
}

func NewProber(host string, timeout time.Duration) *Prober {
	return &Prober{Host: host, Timeout: timeout}
}

func (p *Prober) Probe(port int) models.ProxyProbe {
	return models.ProxyProbe{
		Address:   net.JoinHostPort(p.Host, strconv.Itoa(port)),
		Reachable: utils.CheckPortConnectable(p.Host, port, p.Timeout),
	}
}

/**
 * Live status of a provisioned host
 * @description
 * - Read-only, safe to call from concurrent HTTP handlers
 * - Combines unit activity, the SOCKS probe, worker artifacts and the last saved outcome
 */
type StatusService struct {
	cfg    config.ProvisionConfig
	sm     *ServiceManager
	prober *Prober
	store  *StateStore
}

func NewStatusService(cfg config.ProvisionConfig, sm *ServiceManager, prober *Prober, store *StateStore) *StatusService {
	return &StatusService{cfg: cfg, sm: sm, prober: prober, store: store}
}

func (s *StatusService) Status(ctx context.Context) models.StatusReport {
	report := models.StatusReport{
		Timestamp:     time.Now().UTC(),
		OverallStatus: models.OverallHealthy,
		Services:      []models.ServiceState{},
	}
	for _, unit := range []string{s.cfg.Proxy.Service, s.cfg.Gatherer.Unit, s.cfg.Watcher.Unit} {
		st := s.sm.State(ctx, unit)
		report.Services = append(report.Services, st)
		if !st.Active {
			report.OverallStatus = models.OverallDegraded
		}
	}
	RecordServiceStates(report.Services)

	if s.prober != nil {
		probe := s.prober.Probe(s.cfg.Proxy.SocksPort)
		report.Proxy = &probe
		if !probe.Reachable {
			report.OverallStatus = models.OverallDegraded
		}
	}

	report.Artifacts = artifacts.Inspect(s.cfg.InstallPath, s.cfg.Artifacts)

	if s.store != nil {
		last, err := s.store.Load()
		switch {
		case err == nil:
			report.LastRun = last
			if !last.Succeeded() {
				report.OverallStatus = models.OverallDegraded
			}
		case !errors.Is(err, ErrNoOutcome):
			logger.Warnf("Load last outcome failed: %v", err)
		}
	}
	return report
}

// LastOutcome returns the persisted outcome of the last run.
func (s *StatusService) LastOutcome() (*models.RunOutcome, error) {
	return s.store.Load()
}
