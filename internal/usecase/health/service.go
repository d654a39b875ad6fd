package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds each individual check.
const DefaultTimeout = 2 * time.Second

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing; searches may still succeed.
	Degraded Status = "degraded"
	// Unhealthy indicates the database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentDatabase  = "database"
	ComponentCache     = "cache"
	ComponentEmbedding = "embedding"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type probe struct {
	name string
	fn   func(ctx context.Context) error
}

// Service coordinates health checks.
type Service struct {
	probes  []probe
	timeout time.Duration
}

// New creates a Service. cache and embedding can be nil.
func New(db DBPinger, cache CachePinger, embedding EmbeddingChecker) *Service {
	probes := []probe{{name: ComponentDatabase, fn: db.Ping}}
	if cache != nil {
		probes = append(probes, probe{name: ComponentCache, fn: cache.Ping})
	}
	if embedding != nil {
		probes = append(probes, probe{name: ComponentEmbedding, fn: embedding.HealthCheck})
	}
	return &Service{probes: probes, timeout: DefaultTimeout}
}

// WithTimeout overrides the per-check timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs every probe concurrently and aggregates the results.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(s.probes))

	var g errgroup.Group
	for i, p := range s.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := p.fn(pctx); err != nil {
				results[i] = CheckError
			} else {
				results[i] = CheckOK
			}
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]CheckResult, len(s.probes))
	status := Healthy
	for i, p := range s.probes {
		checks[p.name] = results[i]
		if results[i] != CheckError {
			continue
		}
		if p.name == ComponentDatabase {
			status = Unhealthy
		} else if status == Healthy {
			status = Degraded
		}
	}

	return Report{Status: status, Checks: checks}
}
