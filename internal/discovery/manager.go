package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"scanbridge/internal/acquisition"
	"scanbridge/internal/logger"
)

// LocalEnumerator lists locally attached scanners.
type LocalEnumerator interface {
	EnumerateLocalDevices(ctx context.Context) ([]acquisition.LocalDevice, error)
}

// Manager runs local enumeration followed by each network prober and merges
// the results into a fresh registry per call.
type Manager struct {
	local   LocalEnumerator
	probers []Prober
	enrich  bool
	budget  time.Duration
	log     *log.Logger
}

// NewManager creates an orchestrator. local may be nil when no driver layer
// is present.
func NewManager(local LocalEnumerator, probers []Prober, enrich bool) *Manager {
	return &Manager{
		local:   local,
		probers: probers,
		enrich:  enrich,
		log:     logger.Named("discovery"),
	}
}

// WithBudget caps a whole Discover call, local enumeration included. Zero
// leaves only the per-prober budgets.
func (m *Manager) WithBudget(d time.Duration) *Manager {
	m.budget = d
	return m
}

// NewProbers builds the enabled probers in their fixed run order.
func NewProbers(cfg Config) []Prober {
	var probers []Prober
	if cfg.WSD.Enabled {
		probers = append(probers, NewWSDProber(cfg.WSD))
	}
	if cfg.MDNS.Enabled {
		probers = append(probers, NewMDNSProber(cfg.MDNS))
	}
	if cfg.SSDP.Enabled {
		probers = append(probers, NewSSDPProber(cfg.SSDP))
	}
	if cfg.ESCL.Enabled {
		probers = append(probers, NewESCLProber(cfg.ESCL))
	}
	return probers
}

// Discover returns a snapshot with local devices first, then the hits of each
// prober in run order. Probers run one after another; a failing prober adds
// nothing and does not stop the others.
func (m *Manager) Discover(ctx context.Context) Snapshot {
	if m.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.budget)
		defer cancel()
	}
	reg := NewRegistry()
	start := time.Now()

	for _, d := range m.localDevices(ctx) {
		reg.Add(d)
	}

	for _, p := range m.probers {
		if ctx.Err() != nil {
			m.log.Debug("discovery cancelled", "err", ctx.Err())
			break
		}
		for _, d := range m.runProber(ctx, p) {
			if m.enrich {
				enrichHardware(ctx, &d)
			}
			reg.Add(d)
		}
	}

	snap := reg.Snapshot()
	m.log.Info("discovery finished", "devices", len(snap.Devices), "elapsed", time.Since(start).Round(time.Millisecond))
	return snap
}

func (m *Manager) localDevices(ctx context.Context) (devices []Device) {
	if m.local == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("local enumeration panicked", "panic", r)
			devices = nil
		}
	}()

	found, err := m.local.EnumerateLocalDevices(ctx)
	if err != nil {
		m.log.Warn("local enumeration failed", "err", err)
		return nil
	}
	for _, ld := range found {
		handle := strings.TrimSpace(ld.Handle)
		if handle == "" {
			continue
		}
		name := strings.TrimSpace(ld.Name)
		if name == "" {
			name = handle
		}
		devices = append(devices, Device{Identity: handle, Name: name, Origin: OriginLocal})
	}
	return devices
}

func (m *Manager) runProber(ctx context.Context, p Prober) (devices []Device) {
	if b, ok := p.(Budgeted); ok && b.Budget() > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Budget())
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("prober panicked", "prober", p.Name(), "panic", fmt.Sprint(r))
			devices = nil
		}
	}()

	start := time.Now()
	found, err := p.Probe(ctx)
	if err != nil {
		m.log.Warn("prober failed", "prober", p.Name(), "err", err)
		return nil
	}
	m.log.Debug("prober finished", "prober", p.Name(), "found", len(found), "elapsed", time.Since(start).Round(time.Millisecond))
	return dedupeByIdentity(found)
}
