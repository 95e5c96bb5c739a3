package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Periodic is a Job that calls a function on a fixed interval. Errors from the
// function are logged and the next tick runs anyway.
type Periodic struct {
	name       string
	interval   time.Duration
	runOnStart bool
	fn         func(ctx context.Context) error
	logger     *logrus.Logger

	done     chan struct{}
	stopOnce sync.Once
}

type PeriodicOptions struct {
	Interval time.Duration
	// RunOnStart calls the function once before the first tick
	RunOnStart bool
}

func NewPeriodic(name string, fn func(ctx context.Context) error, logger *logrus.Logger, options PeriodicOptions) (*Periodic, error) {
	if name == "" {
		return nil, fmt.Errorf("job name is required")
	}
	if fn == nil {
		return nil, fmt.Errorf("job function is required")
	}
	if options.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", options.Interval)
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Periodic{
		name:       name,
		interval:   options.Interval,
		runOnStart: options.RunOnStart,
		fn:         fn,
		logger:     logger,
		done:       make(chan struct{}),
	}, nil
}

func (p *Periodic) Name() string {
	return p.name
}

func (p *Periodic) Execute(ctx context.Context) error {
	log := p.logger.WithFields(logrus.Fields{
		"job":      p.name,
		"interval": p.interval.String(),
	})
	log.Info("Starting periodic job")

	if p.runOnStart {
		p.tick(ctx, log)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.done:
			return nil
		case <-ticker.C:
			p.tick(ctx, log)
		}
	}
}

func (p *Periodic) tick(ctx context.Context, log *logrus.Entry) {
	start := time.Now()
	if err := p.fn(ctx); err != nil {
		log.WithError(err).Error("Periodic job run failed")
		return
	}
	log.WithField("duration", time.Since(start).String()).Debug("Periodic job run finished")
}

// Stop is safe to call more than once
func (p *Periodic) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
}
