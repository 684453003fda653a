// Package service ties discovery, scan sessions and error advice together
// behind the operations exposed by the CLI and the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/charmbracelet/log"

	"scanbridge/internal/acquisition"
	"scanbridge/internal/advisor"
	"scanbridge/internal/discovery"
	"scanbridge/internal/logger"
	"scanbridge/internal/scanerr"
	"scanbridge/internal/session"
)

// DefaultSnapshotTTL is how long a discovery snapshot stays addressable by ID.
const DefaultSnapshotTTL = 10 * time.Minute

// Discoverer produces registry snapshots.
type Discoverer interface {
	Discover(ctx context.Context) discovery.Snapshot
}

// Service is the public face of the bridge. Scans resolve names against the
// most recent snapshot unless a snapshot ID is given.
type Service struct {
	discoverer Discoverer
	runner     *session.Runner
	snapshots  *ttlworker.Cache[string, discovery.Snapshot]
	log        *log.Logger

	mu   sync.RWMutex
	last discovery.Snapshot
}

// New wires a service from its parts. ttl <= 0 selects DefaultSnapshotTTL.
func New(discoverer Discoverer, runner *session.Runner, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &Service{
		discoverer: discoverer,
		runner:     runner,
		snapshots:  ttlworker.NewCache[string, discovery.Snapshot](ttl),
		log:        logger.Named("service"),
	}
}

// Build constructs the full stack for an acquisition binding and config.
func Build(acq acquisition.Service, disc discovery.Config, scan session.Config, ttl time.Duration) *Service {
	var local discovery.LocalEnumerator
	if acq != nil {
		local = acq
	}
	manager := discovery.NewManager(local, discovery.NewProbers(disc), disc.Enrich).WithBudget(disc.Budget)
	return New(manager, session.NewRunner(acq, scan), ttl)
}

// Discover runs a full discovery pass and remembers the result.
func (s *Service) Discover(ctx context.Context) discovery.Snapshot {
	snap := s.discoverer.Discover(ctx)
	s.snapshots.Set(snap.ID, snap)

	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()

	s.log.Debug("snapshot stored", "snapshot", snap.ID, "devices", len(snap.Devices))
	return snap
}

// Last returns the most recent snapshot and whether one exists.
func (s *Service) Last() (discovery.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.last.ID != ""
}

// Snapshot returns a cached snapshot by ID.
func (s *Service) Snapshot(id string) (discovery.Snapshot, bool) {
	if id == "" {
		return discovery.Snapshot{}, false
	}
	snap := s.snapshots.Get(id)
	if snap.ID == "" {
		return discovery.Snapshot{}, false
	}
	return snap, true
}

// Remember makes an imported snapshot addressable by its ID.
func (s *Service) Remember(snap discovery.Snapshot) {
	if snap.ID == "" {
		return
	}
	s.snapshots.Set(snap.ID, snap)
}

// Scan scans from the named device in the most recent snapshot. Without a
// prior discovery every name is unknown.
func (s *Service) Scan(ctx context.Context, req session.Request) (session.Result, error) {
	snap, _ := s.Last()
	return s.runner.Run(ctx, snap, req)
}

// ScanFrom scans from the named device in a specific snapshot.
func (s *Service) ScanFrom(ctx context.Context, snapshotID string, req session.Request) (session.Result, error) {
	snap, ok := s.Snapshot(snapshotID)
	if !ok {
		return session.Result{}, scanerr.New(scanerr.ScannerNotFound, "snapshot expired")
	}
	return s.runner.Run(ctx, snap, req)
}

// Advise returns the user-facing advice for a failure.
func (s *Service) Advise(err error) advisor.Advice {
	return advisor.For(err)
}
