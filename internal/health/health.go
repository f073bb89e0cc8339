// Package health exposes liveness and readiness checks for the pipe registry.
package health

import (
	"errors"
	"fmt"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/srediag/plugin-pipe/pkg/registry"
)

const (
	// DefaultMaxGoroutines fails liveness when exceeded.
	DefaultMaxGoroutines = 10000
	// DefaultStatsTimeout bounds how long a pipe may hold its lock during a check.
	DefaultStatsTimeout = time.Second
)

// ErrNoPipes fails readiness when the registry is empty.
var ErrNoPipes = errors.New("health: registry has no pipes")

// Options tunes the checks.
type Options struct {
	MaxGoroutines int
	StatsTimeout  time.Duration
	// Registerer, if set, receives a gauge per check.
	Registerer prometheus.Registerer
	Namespace  string
}

// NewHandler returns an http.Handler serving /live and /ready for reg.
func NewHandler(reg *registry.Registry, opts Options) healthcheck.Handler {
	if opts.MaxGoroutines <= 0 {
		opts.MaxGoroutines = DefaultMaxGoroutines
	}
	if opts.StatsTimeout <= 0 {
		opts.StatsTimeout = DefaultStatsTimeout
	}

	var h healthcheck.Handler
	if opts.Registerer != nil {
		h = healthcheck.NewMetricsHandler(opts.Registerer, opts.Namespace)
	} else {
		h = healthcheck.NewHandler()
	}

	h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(opts.MaxGoroutines))
	h.AddReadinessCheck("pipes-registered", func() error {
		if reg.Len() == 0 {
			return ErrNoPipes
		}
		return nil
	})
	h.AddReadinessCheck("pipes-responsive", healthcheck.Timeout(StatsCheck(reg), opts.StatsTimeout))
	return h
}

// StatsCheck takes a snapshot of every pipe, which fails to return only if a
// pipe lock is stuck.
func StatsCheck(reg *registry.Registry) healthcheck.Check {
	return func() error {
		for _, st := range reg.Stats() {
			if st.Allocated && st.Held+st.Free != st.Capacity-1 {
				return fmt.Errorf("pipe %s: held %d + free %d != capacity %d - 1",
					st.Name, st.Held, st.Free, st.Capacity)
			}
		}
		return nil
	}
}
