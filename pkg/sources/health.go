package sources

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// EndpointHealth is the cached health record of one mirror
type EndpointHealth struct {
	Address             string        `json:"address"`
	LastChecked         time.Time     `json:"last_checked"`
	Latency             time.Duration `json:"latency"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	Healthy             bool          `json:"healthy"`
	LastError           string        `json:"last_error,omitempty"`
}

// Prober performs a lightweight liveness check against a mirror
type Prober interface {
	Probe(ctx context.Context, address string) error
}

// HTTPProber probes a mirror by fetching its base URL
type HTTPProber struct {
	Fetcher Fetcher
}

// Probe implements Prober. Any status below 400 counts as alive.
func (p HTTPProber) Probe(ctx context.Context, address string) error {
	_, status, err := p.Fetcher.Fetch(ctx, address)
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest {
		se := NewSourceError(ErrCodeHTTPStatus, address, http.StatusText(status), nil)
		se.StatusCode = status
		return se
	}
	return nil
}

// HealthOptions configures a HealthRegistry
type HealthOptions struct {
	Interval         time.Duration
	ProbeTimeout     time.Duration
	FailureThreshold int
	// Now overrides the staleness clock; defaults to time.Now
	Now func() time.Time
}

// HealthRegistry caches per-endpoint health and refreshes a record at most once
// per interval. Concurrent refreshes of the same endpoint share one probe.
type HealthRegistry struct {
	mu      sync.RWMutex
	records map[string]EndpointHealth
	group   singleflight.Group
	prober  Prober
	opts    HealthOptions
	logger  *logrus.Logger
}

// NewHealthRegistry creates an empty registry
func NewHealthRegistry(prober Prober, opts HealthOptions, logger *logrus.Logger) *HealthRegistry {
	if opts.Interval <= 0 {
		opts.Interval = DefaultHealthInterval
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.FailureThreshold < 1 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &HealthRegistry{
		records: make(map[string]EndpointHealth),
		prober:  prober,
		opts:    opts,
		logger:  logger,
	}
}

// Set stores a health record as is, replacing any cached one
func (r *HealthRegistry) Set(h EndpointHealth) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[h.Address] = h
}

// Get returns the cached record for address
func (r *HealthRegistry) Get(address string) (EndpointHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.records[address]
	return h, ok
}

// Snapshot returns every cached record ordered by address
func (r *HealthRegistry) Snapshot() []EndpointHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EndpointHealth, 0, len(r.records))
	for _, h := range r.records {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func (r *HealthRegistry) fresh(address string) (EndpointHealth, bool) {
	h, ok := r.Get(address)
	if !ok || h.LastChecked.IsZero() {
		return h, false
	}
	return h, r.opts.Now().Sub(h.LastChecked) < r.opts.Interval
}

// Check returns the endpoint's health, probing it first when the cached record is
// missing or older than the interval.
func (r *HealthRegistry) Check(ctx context.Context, address string) EndpointHealth {
	if h, ok := r.fresh(address); ok {
		return h
	}

	v, _, _ := r.group.Do(address, func() (interface{}, error) {
		if h, ok := r.fresh(address); ok {
			return h, nil
		}
		return r.probe(ctx, address), nil
	})
	return v.(EndpointHealth)
}

func (r *HealthRegistry) probe(ctx context.Context, address string) EndpointHealth {
	probeCtx, cancel := context.WithTimeout(ctx, r.opts.ProbeTimeout)
	defer cancel()

	start := time.Now()
	err := r.prober.Probe(probeCtx, address)
	latency := time.Since(start)

	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.records[address]
	if err != nil && ctx.Err() != nil {
		// the caller gave up; that says nothing about the mirror
		h.Address = address
		return h
	}

	h.Address = address
	h.LastChecked = r.opts.Now()
	if err != nil {
		h.ConsecutiveFailures++
		h.LastError = err.Error()
	} else {
		h.Latency = latency
		h.ConsecutiveFailures = 0
		h.LastError = ""
	}
	h.Healthy = h.ConsecutiveFailures < r.opts.FailureThreshold
	r.records[address] = h

	r.logger.WithFields(logrus.Fields{
		"endpoint":             address,
		"healthy":              h.Healthy,
		"latency":              latency.String(),
		"consecutive_failures": h.ConsecutiveFailures,
	}).Debug("Probed mirror endpoint")

	return h
}

// Ordered refreshes every stale endpoint concurrently and returns the healthy
// endpoints, those with fewer recent failures first and then by ascending latency. When none are healthy the full list is returned
// in its configured order as a last resort.
func (r *HealthRegistry) Ordered(ctx context.Context, addresses []string) []string {
	records := make([]EndpointHealth, len(addresses))

	g, gctx := errgroup.WithContext(ctx)
	for i, addr := range addresses {
		i, addr := i, addr
		g.Go(func() error {
			records[i] = r.Check(gctx, addr)
			return nil
		})
	}
	_ = g.Wait()

	healthy := make([]EndpointHealth, 0, len(records))
	for _, h := range records {
		if h.Healthy {
			healthy = append(healthy, h)
		}
	}
	if len(healthy) == 0 {
		r.logger.WithField("endpoints", len(addresses)).Warn("No healthy mirrors, trying all endpoints")
		return append([]string(nil), addresses...)
	}

	sort.SliceStable(healthy, func(i, j int) bool {
		if healthy[i].ConsecutiveFailures != healthy[j].ConsecutiveFailures {
			return healthy[i].ConsecutiveFailures < healthy[j].ConsecutiveFailures
		}
		return healthy[i].Latency < healthy[j].Latency
	})
	out := make([]string, len(healthy))
	for i, h := range healthy {
		out[i] = h.Address
	}
	return out
}
