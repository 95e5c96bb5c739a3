// Package sources fetches candidate posts for a campaign from a pool of
// interchangeable mirror endpoints, tracking endpoint health and failing over
// between mirrors.
package sources

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Default configuration values
const (
	// DefaultFetchTimeout bounds a single content fetch
	DefaultFetchTimeout = 10 * time.Second
	// DefaultProbeTimeout bounds a single liveness probe
	DefaultProbeTimeout = 5 * time.Second
	// DefaultHealthInterval is how long a health record stays fresh
	DefaultHealthInterval = 5 * time.Minute
	// DefaultFailureThreshold is the consecutive failure count that marks an endpoint unhealthy
	DefaultFailureThreshold = 3
	// DefaultMaxPosts caps the posts returned by one fetch
	DefaultMaxPosts = 50
	// DefaultRequestsPerMinute paces requests to a single mirror host
	DefaultRequestsPerMinute = 30
)

// Config holds the mirror pool settings.
// Environment variables:
//   - MIRROR_ENDPOINTS: comma separated mirror base URLs
//   - MIRROR_FETCH_TIMEOUT: content fetch timeout in seconds (default: 10)
//   - MIRROR_PROBE_TIMEOUT: health probe timeout in seconds (default: 5)
//   - MIRROR_HEALTH_INTERVAL: health record lifetime in seconds (default: 300)
//   - MIRROR_FAILURE_THRESHOLD: consecutive failures before exclusion (default: 3)
//   - MIRROR_MAX_POSTS: posts per fetch (default: 50)
//   - MIRROR_REQUESTS_PER_MINUTE: request budget per mirror host (default: 30)
type Config struct {
	Endpoints         []string
	FetchTimeout      time.Duration
	ProbeTimeout      time.Duration
	HealthInterval    time.Duration
	FailureThreshold  int
	MaxPosts          int
	RequestsPerMinute int
	Logger            *logrus.Logger
}

// NewConfig creates a Config from environment variables, falling back to defaults.
// A .env file is loaded if present; its absence is not an error.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
		logrus.Debug(".env file not found, continuing with environment variables")
	}

	config := &Config{
		Endpoints:         splitEndpoints(os.Getenv("MIRROR_ENDPOINTS")),
		FetchTimeout:      envSeconds("MIRROR_FETCH_TIMEOUT", DefaultFetchTimeout),
		ProbeTimeout:      envSeconds("MIRROR_PROBE_TIMEOUT", DefaultProbeTimeout),
		HealthInterval:    envSeconds("MIRROR_HEALTH_INTERVAL", DefaultHealthInterval),
		FailureThreshold:  envInt("MIRROR_FAILURE_THRESHOLD", DefaultFailureThreshold),
		MaxPosts:          envInt("MIRROR_MAX_POSTS", DefaultMaxPosts),
		RequestsPerMinute: envInt("MIRROR_REQUESTS_PER_MINUTE", DefaultRequestsPerMinute),
		Logger:            logrus.StandardLogger(),
	}

	logrus.WithFields(logrus.Fields{
		"endpoints":         len(config.Endpoints),
		"fetch_timeout":     config.FetchTimeout.String(),
		"probe_timeout":     config.ProbeTimeout.String(),
		"health_interval":   config.HealthInterval.String(),
		"failure_threshold": config.FailureThreshold,
		"max_posts":         config.MaxPosts,
	}).Debug("Mirror config initialized")

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration:
//   - at least one endpoint
//   - positive timeouts, interval, threshold and post cap
//   - non-negative request budget (0 disables pacing)
func (c *Config) Validate() error {
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("sources: at least one mirror endpoint is required")
	}
	if c.FetchTimeout <= 0 || c.ProbeTimeout <= 0 {
		return fmt.Errorf("sources: timeouts must be positive, got fetch=%v probe=%v", c.FetchTimeout, c.ProbeTimeout)
	}
	if c.HealthInterval <= 0 {
		return fmt.Errorf("sources: health interval must be positive, got %v", c.HealthInterval)
	}
	if c.FailureThreshold < 1 {
		return fmt.Errorf("sources: failure threshold must be positive, got %d", c.FailureThreshold)
	}
	if c.MaxPosts < 1 {
		return fmt.Errorf("sources: max posts must be positive, got %d", c.MaxPosts)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("sources: requests per minute cannot be negative")
	}
	if c.Logger == nil {
		return fmt.Errorf("sources: logger is required")
	}
	return nil
}

func splitEndpoints(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimRight(strings.TrimSpace(part), "/"); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"key":     key,
			"value":   raw,
			"default": def,
		}).Warn("Invalid integer in environment, using default")
		return def
	}
	return v
}

func envSeconds(key string, def time.Duration) time.Duration {
	secs := envInt(key, int(def/time.Second))
	return time.Duration(secs) * time.Second
}
