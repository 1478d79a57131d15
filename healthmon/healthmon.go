// Package healthmon wraps a periodic store connectivity probe, built on
// lightningnetwork/lnd's own healthcheck.Monitor/Observation machinery
// (SPEC_FULL.md §4.8), so a store outage degrades GetInfo's readiness flag
// rather than only surfacing as opaque per-RPC errors. The probe result is
// recorded, not logged.
package healthmon

import (
	"context"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/healthcheck"
)

const (
	checkInterval = 30 * time.Second
	checkTimeout  = 5 * time.Second
	checkBackoff  = 5 * time.Second
	checkAttempts = 2
)

// Pinger is the narrow capability this package needs from the store, next
// to its consumer per design note §9.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor periodically probes the store and exposes the last observed
// health as a single boolean GetInfo can read without blocking on a live
// probe.
type Monitor struct {
	store Pinger

	lnd *healthcheck.Monitor

	mu      sync.RWMutex
	healthy bool
	lastErr error
}

// New constructs a Monitor. Start must be called to begin probing.
func New(store Pinger) *Monitor {
	m := &Monitor{store: store, healthy: true}

	obs := healthcheck.NewObservation(
		"store", func() error { return m.probe(context.Background()) },
		checkInterval, checkTimeout, checkBackoff, checkAttempts,
	)

	m.lnd = healthcheck.NewMonitor(&healthcheck.Config{
		Checks: []*healthcheck.Observation{obs},
	})

	return m
}

// Start begins the background probe loop.
func (m *Monitor) Start() error {
	return m.lnd.Start()
}

// Stop tears down the probe loop.
func (m *Monitor) Stop() error {
	return m.lnd.Stop()
}

// Healthy reports the most recently observed store health.
func (m *Monitor) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.healthy
}

func (m *Monitor) probe(ctx context.Context) error {
	err := m.store.Ping(ctx)

	m.mu.Lock()
	m.healthy = err == nil
	m.lastErr = err
	m.mu.Unlock()

	return err
}
