package tracker

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/validity"
)

// Default configuration values
const (
	// DefaultWorkers is how many campaigns TrackAll runs at once
	DefaultWorkers = 4
	// DefaultLockTTL bounds how long a crashed run can block its campaign
	DefaultLockTTL = 10 * time.Minute
	// DefaultStatusInterval is how often TrackAll logs batch progress
	DefaultStatusInterval = 30 * time.Second
)

// Config holds tracker settings.
// Environment variables:
//   - PRIMARY_TAG: program-wide tag every post must carry (default: #mindshare)
//   - TRACKER_WORKERS: concurrent campaign runs in TrackAll (default: 4)
//   - TRACKER_LOCK_TTL: per-campaign run lock lifetime in seconds (default: 600)
type Config struct {
	PrimaryTag     string
	Workers        int
	LockTTL        time.Duration
	StatusInterval time.Duration
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		PrimaryTag:     validity.DefaultPrimaryTag,
		Workers:        DefaultWorkers,
		LockTTL:        DefaultLockTTL,
		StatusInterval: DefaultStatusInterval,
	}
}

// NewConfig reads the tracker configuration from the environment
func NewConfig() (*Config, error) {
	config := DefaultConfig()
	if tag := os.Getenv("PRIMARY_TAG"); tag != "" {
		config.PrimaryTag = validity.NormalizeTag(tag)
	}

	if raw := os.Getenv("TRACKER_WORKERS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid TRACKER_WORKERS %q: %w", raw, err)
		}
		config.Workers = n
	}
	if raw := os.Getenv("TRACKER_LOCK_TTL"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid TRACKER_LOCK_TTL %q: %w", raw, err)
		}
		config.LockTTL = time.Duration(secs) * time.Second
	}

	logrus.WithFields(logrus.Fields{
		"primary_tag": config.PrimaryTag,
		"workers":     config.Workers,
		"lock_ttl":    config.LockTTL.String(),
	}).Debug("Tracker config initialized")

	return config, config.Validate()
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if validity.NormalizeTag(c.PrimaryTag) == "" {
		return fmt.Errorf("tracker: primary tag is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("tracker: workers must be positive, got %d", c.Workers)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("tracker: lock ttl must be positive, got %v", c.LockTTL)
	}
	return nil
}
